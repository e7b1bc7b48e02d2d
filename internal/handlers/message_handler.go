package handlers

import (
	"fmt"
	"net/http"

	"github.com/bhojansetu/bhojansetu/internal/helpers"
	"github.com/gin-gonic/gin"
)

type SendMessageRequest struct {
	DonationID string `json:"donationId" binding:"required,uuid"`
	Content    string `json:"content" binding:"required,max=2000"`
}

func ListMessages(c *gin.Context) {
	principal, svc, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "donationId", invalidDonationID)
	if !ok {
		return
	}

	messages, err := svc.Chat.List(c.Request.Context(), principal, id)
	if err != nil {
		helpers.RespondWithAppError(c, svc.Log, err)
		return
	}
	helpers.RespondWithList(c, messages)
}

func SendMessage(c *gin.Context) {
	principal, svc, ok := caller(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid data passed into request.")
		return
	}
	donationID, ok := helpers.ParseID(req.DonationID)
	if !ok {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid data passed into request.")
		return
	}

	message, err := svc.Chat.Send(c.Request.Context(), principal, donationID, req.Content)
	if err != nil {
		helpers.RespondWithAppError(c, svc.Log, err)
		return
	}
	helpers.RespondWithData(c, http.StatusCreated, "", message)
}

func ClearMessages(c *gin.Context) {
	principal, svc, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "donationId", invalidDonationID)
	if !ok {
		return
	}

	n, err := svc.Chat.Clear(c.Request.Context(), principal, id)
	if err != nil {
		helpers.RespondWithAppError(c, svc.Log, err)
		return
	}
	helpers.RespondWithMessage(c, http.StatusOK, fmt.Sprintf("Cleared %d messages.", n), gin.H{"count": n})
}
