package handlers

import (
	"net/http"

	"github.com/bhojansetu/bhojansetu/internal/helpers"
	"github.com/bhojansetu/bhojansetu/internal/services"
	"github.com/gin-gonic/gin"
)

type ContactRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Message string `json:"message" binding:"required"`
}

func SubmitContact(c *gin.Context) {
	svc, ok := servicesFrom(c)
	if !ok {
		return
	}

	var req ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Please fill out all fields.")
		return
	}

	err := svc.Contact.Submit(c.Request.Context(), services.ContactInput{
		Name:    req.Name,
		Email:   req.Email,
		Message: req.Message,
	})
	if err != nil {
		helpers.RespondWithAppError(c, svc.Log, err)
		return
	}
	helpers.RespondWithMessage(c, http.StatusOK, "Your message has been sent successfully!", nil)
}
