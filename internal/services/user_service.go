package services

import (
	"context"
	"strings"
	"time"

	"github.com/bhojansetu/bhojansetu/internal/apperrors"
	"github.com/bhojansetu/bhojansetu/internal/helpers"
	"github.com/bhojansetu/bhojansetu/internal/models"
	"github.com/bhojansetu/bhojansetu/internal/notify"
	"github.com/bhojansetu/bhojansetu/internal/repository"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	verificationCodeDigits = 6
	verificationCodeTTL    = 10 * time.Minute
	minPasswordLength      = 6

	msgUserNotFound    = "User not found"
	msgAlreadyVerified = "Email already verified."
)

type RegisterInput struct {
	Name              string
	Email             string
	Password          string
	Role              string
	Phone             string
	Address           string
	NGORegistrationID string
}

type ProfileInput struct {
	Name              *string
	Email             *string
	Phone             *string
	Address           *string
	NGORegistrationID *string
	NewPassword       *string
}

// AuthResult is returned by login and email verification.
type AuthResult struct {
	Token             string       `json:"token,omitempty"`
	User              *models.User `json:"user,omitempty"`
	NeedsVerification bool         `json:"needsVerification,omitempty"`
	Email             string       `json:"userEmail,omitempty"`
}

type Stats struct {
	TotalUsers        int64                           `json:"totalUsers"`
	TotalNGOs         int64                           `json:"totalNGOs"`
	TotalDonations    int64                           `json:"totalDonations"`
	PendingDonations  int64                           `json:"pendingDonations"`
	DonationsByStatus map[models.DonationStatus]int64 `json:"donationsByStatus"`
}

type UserService struct {
	users     *repository.UserRepository
	donations *repository.DonationRepository
	notifier  notify.Notifier
	tokens    *helpers.TokenIssuer
	log       *zap.Logger

	now        Clock
	newCode    CodeGenerator
	bcryptCost int
}

func NewUserService(
	users *repository.UserRepository,
	donations *repository.DonationRepository,
	notifier notify.Notifier,
	tokens *helpers.TokenIssuer,
	log *zap.Logger,
) *UserService {
	return &UserService{
		users:      users,
		donations:  donations,
		notifier:   notifier,
		tokens:     tokens,
		log:        log,
		now:        utcNow,
		newCode:    helpers.GenerateNumericCode,
		bcryptCost: bcrypt.DefaultCost,
	}
}

// Register creates an unverified account and mails it a verification code.
// When the mail fails the account is kept and a Dependency error is returned.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = repository.NormalizeEmail(in.Email)
	in.Address = strings.TrimSpace(in.Address)
	in.NGORegistrationID = strings.TrimSpace(in.NGORegistrationID)

	role := models.RoleDonor
	if strings.TrimSpace(in.Role) != "" {
		parsed, ok := models.ParseRole(in.Role)
		if !ok || parsed == models.RoleAdmin {
			return nil, apperrors.Validation("Role must be donor or ngo.")
		}
		role = parsed
	}
	if in.Name == "" || in.Address == "" || !validEmail(in.Email) {
		return nil, apperrors.Validation("Please provide name, a valid email, and address.")
	}
	if len(in.Name) > 100 || len(strings.TrimSpace(in.Phone)) > 20 {
		return nil, apperrors.Validation("Name or phone number is too long.")
	}
	if len(in.Password) < minPasswordLength {
		return nil, apperrors.Validation("Password must be at least 6 characters.")
	}
	if role == models.RoleNGO && in.NGORegistrationID == "" {
		return nil, apperrors.Validation("NGO registration ID is required for NGOs.")
	}

	if _, err := s.users.FindByEmail(ctx, in.Email); err == nil {
		return nil, apperrors.Validation("Email already registered. Please Login.")
	} else if !isNotFound(err) {
		return nil, storeError(err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, apperrors.Internal("Failed to hash password.", err)
	}

	user := &models.User{
		Name:     in.Name,
		Email:    in.Email,
		Password: string(hashed),
		Role:     role,
		Phone:    strings.TrimSpace(in.Phone),
		Address:  in.Address,
	}
	if role == models.RoleNGO {
		user.NGORegistrationID = in.NGORegistrationID
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, storeError(err)
	}
	s.log.Info("user registered", zap.String("user_id", user.ID.String()), zap.String("role", string(role)))

	if err := s.sendVerificationCode(ctx, user); err != nil {
		return user, apperrors.Dependency("Registration successful, but failed to send verification email. Please try Resend OTP.", err)
	}
	return user, nil
}

func (s *UserService) VerifyEmail(ctx context.Context, email, code string) (*AuthResult, error) {
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user.IsVerified {
		return nil, apperrors.Validation(msgAlreadyVerified)
	}
	code = strings.TrimSpace(code)
	if code == "" || user.VerificationOTP == nil || *user.VerificationOTP != code ||
		user.OTPExpires == nil || !user.OTPExpires.After(s.now()) {
		return nil, apperrors.Validation("Invalid or expired OTP.")
	}

	user.IsVerified = true
	user.VerificationOTP = nil
	user.OTPExpires = nil
	if _, err := s.users.UpdateFields(ctx, user.ID, map[string]interface{}{
		"is_verified":      true,
		"verification_otp": nil,
		"otp_expires":      nil,
	}); err != nil {
		return nil, storeError(err)
	}
	return s.authResult(user)
}

func (s *UserService) ResendOTP(ctx context.Context, email string) error {
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.IsVerified {
		return apperrors.Validation(msgAlreadyVerified)
	}
	if err := s.sendVerificationCode(ctx, user); err != nil {
		return apperrors.Dependency("Failed to resend verification email.", err)
	}
	return nil
}

// Login checks credentials. An unverified account gets a fresh code and an
// Authentication error together with a result flagged NeedsVerification.
func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, apperrors.Validation("Please provide email and password")
	}
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if !user.IsVerified {
		status := "New OTP sent to your email."
		if err := s.sendVerificationCode(ctx, user); err != nil {
			s.log.Warn("login verification mail failed", zap.String("user_id", user.ID.String()), zap.Error(err))
			status = "Failed to send OTP. Please try Resend OTP."
		}
		return &AuthResult{NeedsVerification: true, Email: user.Email},
			apperrors.Unauthenticated("Email not verified. " + status)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, apperrors.Unauthenticated("Invalid Credentials (Wrong Password)")
	}
	return s.authResult(user)
}

func (s *UserService) Profile(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.NotFound(msgUserNotFound)
		}
		return nil, storeError(err)
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, id uuid.UUID, in ProfileInput) (*models.User, error) {
	user, err := s.Profile(ctx, id)
	if err != nil {
		return nil, err
	}

	if v := trimmed(in.Name); v != "" {
		if len(v) > 100 {
			return nil, apperrors.Validation("Name is too long.")
		}
		user.Name = v
	}
	if v := trimmed(in.Email); v != "" {
		v = repository.NormalizeEmail(v)
		if !validEmail(v) {
			return nil, apperrors.Validation("Please provide a valid email.")
		}
		if v != user.Email {
			taken, err := s.users.EmailTaken(ctx, v, user.ID)
			if err != nil {
				return nil, storeError(err)
			}
			if taken {
				return nil, apperrors.Validation("Email already registered.")
			}
			user.Email = v
		}
	}
	if v := trimmed(in.Phone); v != "" {
		if len(v) > 20 {
			return nil, apperrors.Validation("Phone number is too long.")
		}
		user.Phone = v
	}
	if v := trimmed(in.Address); v != "" {
		user.Address = v
	}
	if v := trimmed(in.NGORegistrationID); v != "" && user.Role == models.RoleNGO {
		user.NGORegistrationID = v
	}
	if in.NewPassword != nil && *in.NewPassword != "" {
		if len(*in.NewPassword) < minPasswordLength {
			return nil, apperrors.Validation("Password must be at least 6 characters.")
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(*in.NewPassword), s.bcryptCost)
		if err != nil {
			return nil, apperrors.Internal("Failed to hash password.", err)
		}
		user.Password = string(hashed)
	}

	if err := s.users.Save(ctx, user); err != nil {
		return nil, storeError(err)
	}
	return user, nil
}

// ListUsers returns every donor and NGO account.
func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.users.ListByRoles(ctx, models.RoleDonor, models.RoleNGO)
	if err != nil {
		return nil, storeError(err)
	}
	return users, nil
}

func (s *UserService) SetVerification(ctx context.Context, id uuid.UUID, verified bool) (*models.User, error) {
	ok, err := s.users.UpdateFields(ctx, id, map[string]interface{}{"is_verified": verified})
	if err != nil {
		return nil, storeError(err)
	}
	if !ok {
		return nil, apperrors.NotFound(msgUserNotFound)
	}
	user, err := s.Profile(ctx, id)
	if err != nil {
		return nil, err
	}
	s.log.Info("user verification updated", zap.String("user_id", id.String()), zap.Bool("verified", verified))
	return user, nil
}

func (s *UserService) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	var err error
	if stats.TotalUsers, err = s.users.CountByRoles(ctx, models.RoleDonor, models.RoleNGO); err != nil {
		return nil, storeError(err)
	}
	if stats.TotalNGOs, err = s.users.CountVerified(ctx, models.RoleNGO); err != nil {
		return nil, storeError(err)
	}
	if stats.TotalDonations, err = s.donations.Count(ctx); err != nil {
		return nil, storeError(err)
	}
	if stats.DonationsByStatus, err = s.donations.CountByStatus(ctx); err != nil {
		return nil, storeError(err)
	}
	stats.PendingDonations = stats.DonationsByStatus[models.StatusPending]
	return &stats, nil
}

// sendVerificationCode stores a new code and mails it. On mail failure the
// stored code is cleared again.
func (s *UserService) sendVerificationCode(ctx context.Context, user *models.User) error {
	code, err := s.newCode(verificationCodeDigits)
	if err != nil {
		return err
	}
	expires := s.now().Add(verificationCodeTTL)
	if _, err := s.users.UpdateFields(ctx, user.ID, map[string]interface{}{
		"verification_otp": code,
		"otp_expires":      expires,
	}); err != nil {
		return err
	}

	mail := notify.BuildVerificationEmail(user.Email, notify.VerificationEmailData{Code: code, ExpiresIn: "10 minutes"})
	if err := s.notifier.Send(ctx, mail); err != nil {
		if _, clearErr := s.users.UpdateFields(context.WithoutCancel(ctx), user.ID, map[string]interface{}{
			"verification_otp": nil,
			"otp_expires":      nil,
		}); clearErr != nil {
			s.log.Error("failed to clear verification code", zap.String("user_id", user.ID.String()), zap.Error(clearErr))
		}
		return err
	}
	return nil
}

func (s *UserService) findByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.NotFound(msgUserNotFound)
		}
		return nil, storeError(err)
	}
	return user, nil
}

func (s *UserService) authResult(user *models.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, apperrors.Internal("Failed to issue token.", err)
	}
	return &AuthResult{Token: token, User: user}, nil
}

var validate = validator.New()

func validEmail(email string) bool {
	return validate.Var(email, "required,email") == nil
}

func trimmed(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}
