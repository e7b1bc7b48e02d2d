package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/bhojansetu/bhojansetu/internal/helpers"
	"github.com/bhojansetu/bhojansetu/internal/services"
	"github.com/gin-gonic/gin"
)

type UpdateProfileRequest struct {
	Name              *string `json:"name" binding:"omitempty,max=100"`
	Email             *string `json:"email" binding:"omitempty,email"`
	Phone             *string `json:"phone" binding:"omitempty,max=20"`
	Address           *string `json:"address"`
	NGORegistrationID *string `json:"ngoRegistrationId"`
	NewPassword       *string `json:"newPassword" binding:"omitempty,min=6"`
}

type VerifyUserRequest struct {
	IsVerified *bool `json:"isVerified" binding:"required"`
}

func GetProfile(c *gin.Context) {
	principal, svc, ok := caller(c)
	if !ok {
		return
	}

	user, err := svc.Users.Profile(c.Request.Context(), principal.ID)
	if err != nil {
		helpers.RespondWithAppError(c, svc.Log, err)
		return
	}
	helpers.RespondWithData(c, http.StatusOK, "", user)
}

func UpdateProfile(c *gin.Context) {
	principal, svc, ok := caller(c)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	user, err := svc.Users.UpdateProfile(c.Request.Context(), principal.ID, services.ProfileInput{
		Name:              req.Name,
		Email:             req.Email,
		Phone:             req.Phone,
		Address:           req.Address,
		NGORegistrationID: req.NGORegistrationID,
		NewPassword:       req.NewPassword,
	})
	if err != nil {
		helpers.RespondWithAppError(c, svc.Log, err)
		return
	}
	helpers.RespondWithData(c, http.StatusOK, "Profile updated successfully", user)
}

func ListUsers(c *gin.Context) {
	_, svc, ok := caller(c)
	if !ok {
		return
	}

	users, err := svc.Users.ListUsers(c.Request.Context())
	if err != nil {
		helpers.RespondWithAppError(c, svc.Log, err)
		return
	}
	helpers.RespondWithList(c, users)
}

func VerifyUser(c *gin.Context) {
	_, svc, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "Invalid user ID.")
	if !ok {
		return
	}

	var req VerifyUserRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsVerified == nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Verification status is required.")
		return
	}

	user, err := svc.Users.SetVerification(c.Request.Context(), id, *req.IsVerified)
	if err != nil {
		helpers.RespondWithAppError(c, svc.Log, err)
		return
	}
	helpers.RespondWithData(c, http.StatusOK,
		fmt.Sprintf("%s %s verification status updated.", strings.ToUpper(string(user.Role)), user.Name),
		user)
}

func GetStats(c *gin.Context) {
	_, svc, ok := caller(c)
	if !ok {
		return
	}

	stats, err := svc.Users.Stats(c.Request.Context())
	if err != nil {
		helpers.RespondWithAppError(c, svc.Log, err)
		return
	}
	helpers.RespondWithData(c, http.StatusOK, "", stats)
}
