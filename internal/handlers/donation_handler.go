package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bhojansetu/bhojansetu/internal/helpers"
	"github.com/bhojansetu/bhojansetu/internal/models"
	"github.com/bhojansetu/bhojansetu/internal/services"
	"github.com/gin-gonic/gin"
)

const invalidDonationID = "Invalid donation ID."

type FoodItemRequest struct {
	Name     string `json:"name" binding:"required"`
	Quantity string `json:"quantity" binding:"required"`
}

type CreateDonationRequest struct {
	FoodItems      []FoodItemRequest `json:"foodItems" binding:"required,min=1,dive"`
	ExpiryDate     string            `json:"expiryDate" binding:"required"`
	PickupLocation struct {
		Address string `json:"address" binding:"required"`
	} `json:"pickupLocation"`
	Notes string `json:"notes"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
	OTP    string `json:"otp"`
}

// Layouts accepted for expiryDate, most specific first.
var expiryLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseExpiry(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func CreateDonation(c *gin.Context) {
	principal, svc, ok := caller(c)
	if !ok {
		return
	}

	var req CreateDonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Please provide food items, expiry date, and pickup address.")
		return
	}
	expiry, ok := parseExpiry(req.ExpiryDate)
	if !ok {
		helpers.RespondWithError(c, http.StatusBadRequest, "Please provide food items, expiry date, and pickup address.")
		return
	}
	items := make([]models.FoodItem, len(req.FoodItems))
	for i, item := range req.FoodItems {
		items[i] = models.FoodItem{Name: item.Name, Quantity: item.Quantity}
	}

	donation, err := svc.Donations.Create(c.Request.Context(), principal, services.CreateDonationInput{
		FoodItems:  items,
		ExpiryDate: expiry,
		Address:    req.PickupLocation.Address,
		Notes:      req.Notes,
	})
	if err != nil {
		helpers.RespondWithAppError(c, svc.Log, err)
		return
	}

	helpers.RespondWithData(c, http.StatusCreated, "Donation request created successfully.", donation)
}

func ListDonationsForNGO(c *gin.Context) {
	principal, svc, ok := caller(c)
	if !ok {
		return
	}

	donations, err := svc.Donations.ListForNGO(c.Request.Context(), principal)
	if err != nil {
		helpers.RespondWithAppError(c, svc.Log, err)
		return
	}
	helpers.RespondWithList(c, donations)
}

func ListMyDonations(c *gin.Context) {
	principal, svc, ok := caller(c)
	if !ok {
		return
	}

	donations, err := svc.Donations.ListForDonor(c.Request.Context(), principal)
	if err != nil {
		helpers.RespondWithAppError(c, svc.Log, err)
		return
	}
	helpers.RespondWithList(c, donations)
}

func GetDonation(c *gin.Context) {
	principal, svc, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", invalidDonationID)
	if !ok {
		return
	}

	donation, err := svc.Donations.Get(c.Request.Context(), principal, id)
	if err != nil {
		helpers.RespondWithAppError(c, svc.Log, err)
		return
	}
	helpers.RespondWithData(c, http.StatusOK, "", donation)
}

func AcceptDonation(c *gin.Context) {
	principal, svc, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", invalidDonationID)
	if !ok {
		return
	}

	donation, err := svc.Donations.Accept(c.Request.Context(), principal, id)
	if err != nil {
		helpers.RespondWithAppError(c, svc.Log, err)
		return
	}
	helpers.RespondWithData(c, http.StatusOK, "Donation successfully accepted and assigned for pickup!", donation)
}

func SendPickupOTP(c *gin.Context) {
	principal, svc, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", invalidDonationID)
	if !ok {
		return
	}

	masked, err := svc.Donations.IssuePickupCode(c.Request.Context(), principal, id)
	if err != nil {
		helpers.RespondWithAppError(c, svc.Log, err)
		return
	}
	helpers.RespondWithData(c, http.StatusOK,
		fmt.Sprintf("OTP sent successfully to Donor's email: %s", masked),
		gin.H{"email": masked})
}

func UpdateDonationStatus(c *gin.Context) {
	principal, svc, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", invalidDonationID)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid status transition.")
		return
	}

	donation, err := svc.Donations.UpdateStatus(c.Request.Context(), principal, id, req.Status, req.OTP)
	if err != nil {
		helpers.RespondWithAppError(c, svc.Log, err)
		return
	}
	helpers.RespondWithData(c, http.StatusOK, fmt.Sprintf("Status updated to %s!", donation.Status), donation)
}

func ClearDonationHistory(c *gin.Context) {
	principal, svc, ok := caller(c)
	if !ok {
		return
	}

	n, err := svc.Donations.ClearHistory(c.Request.Context(), principal)
	if err != nil {
		helpers.RespondWithAppError(c, svc.Log, err)
		return
	}
	helpers.RespondWithMessage(c, http.StatusOK, fmt.Sprintf("Cleared %d history records!", n), gin.H{"count": n})
}
