package handlers

import (
	"errors"
	"net/http"

	"github.com/bhojansetu/bhojansetu/internal/apperrors"
	"github.com/bhojansetu/bhojansetu/internal/helpers"
	"github.com/bhojansetu/bhojansetu/internal/services"
	"github.com/gin-gonic/gin"
)

type RegisterRequest struct {
	Name              string `json:"name" binding:"required,max=100"`
	Email             string `json:"email" binding:"required,email"`
	Password          string `json:"password" binding:"required,min=6"`
	Role              string `json:"role" binding:"omitempty,oneof=donor ngo"`
	Phone             string `json:"phone" binding:"max=20"`
	Address           string `json:"address" binding:"required"`
	NGORegistrationID string `json:"ngoRegistrationId" binding:"required_if=Role ngo"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type VerifyEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required"`
}

type ResendOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func Register(c *gin.Context) {
	svc, ok := servicesFrom(c)
	if !ok {
		return
	}

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	user, err := svc.Users.Register(c.Request.Context(), services.RegisterInput{
		Name:              req.Name,
		Email:             req.Email,
		Password:          req.Password,
		Role:              req.Role,
		Phone:             req.Phone,
		Address:           req.Address,
		NGORegistrationID: req.NGORegistrationID,
	})
	if err != nil {
		helpers.RespondWithAppError(c, svc.Log, err)
		return
	}

	helpers.RespondWithMessage(c, http.StatusCreated, "Registration successful. OTP sent to your email for verification.", gin.H{
		"needsVerification": true,
		"userEmail":         user.Email,
	})
}

func VerifyEmail(c *gin.Context) {
	svc, ok := servicesFrom(c)
	if !ok {
		return
	}

	var req VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Please provide email and OTP.")
		return
	}

	result, err := svc.Users.VerifyEmail(c.Request.Context(), req.Email, req.OTP)
	if err != nil {
		helpers.RespondWithAppError(c, svc.Log, err)
		return
	}
	helpers.RespondWithMessage(c, http.StatusOK, "Email successfully verified. Login successful.", gin.H{
		"token": result.Token,
		"user":  result.User,
	})
}

func ResendOTP(c *gin.Context) {
	svc, ok := servicesFrom(c)
	if !ok {
		return
	}

	var req ResendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Please provide your email.")
		return
	}

	if err := svc.Users.ResendOTP(c.Request.Context(), req.Email); err != nil {
		helpers.RespondWithAppError(c, svc.Log, err)
		return
	}
	helpers.RespondWithMessage(c, http.StatusOK, "New OTP sent to your email.", nil)
}

func Login(c *gin.Context) {
	svc, ok := servicesFrom(c)
	if !ok {
		return
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Please provide email and password")
		return
	}

	result, err := svc.Users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		var appErr *apperrors.Error
		if result != nil && result.NeedsVerification && errors.As(err, &appErr) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success":           false,
				"error":             helpers.HTTPStatusText(http.StatusUnauthorized),
				"message":           appErr.Message,
				"needsVerification": true,
				"userEmail":         result.Email,
			})
			return
		}
		helpers.RespondWithAppError(c, svc.Log, err)
		return
	}

	helpers.RespondWithMessage(c, http.StatusOK, "Login Successfully", gin.H{
		"token": result.Token,
		"user":  result.User,
	})
}
