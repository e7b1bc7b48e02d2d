package services

import (
	"context"
	"strings"
	"time"

	"github.com/bhojansetu/bhojansetu/internal/apperrors"
	"github.com/bhojansetu/bhojansetu/internal/helpers"
	"github.com/bhojansetu/bhojansetu/internal/metrics"
	"github.com/bhojansetu/bhojansetu/internal/models"
	"github.com/bhojansetu/bhojansetu/internal/notify"
	"github.com/bhojansetu/bhojansetu/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const pickupCodeDigits = 4

const (
	msgDonationNotFound = "Donation not found."
	msgCreateInvalid    = "Please provide food items, expiry date, and pickup address."
	msgNotAssignedToYou = "Not assigned to you."
	msgNotAuthorized    = "Not authorized to change status."
	msgMustBeAssigned   = "Donation must be assigned before being picked."
	msgMustBePicked     = "Donation must be picked up before being delivered."
	msgOTPRequired      = "Please enter the OTP."
	msgOTPInvalid       = "Invalid OTP. Please try again."
	msgCannotExpire     = "Donation can no longer be expired."
	msgBadTransition    = "Invalid status transition."
)

type CreateDonationInput struct {
	FoodItems  []models.FoodItem
	ExpiryDate time.Time
	Address    string
	Notes      string
}

type DonationService struct {
	donations *repository.DonationRepository
	messages  repository.MessageRepository
	notifier  notify.Notifier
	metrics   *metrics.Manager
	log       *zap.Logger

	now     Clock
	newCode CodeGenerator
}

func NewDonationService(
	donations *repository.DonationRepository,
	messages repository.MessageRepository,
	notifier notify.Notifier,
	m *metrics.Manager,
	log *zap.Logger,
) *DonationService {
	return &DonationService{
		donations: donations,
		messages:  messages,
		notifier:  notifier,
		metrics:   m,
		log:       log,
		now:       utcNow,
		newCode:   helpers.GenerateNumericCode,
	}
}

func (s *DonationService) Create(ctx context.Context, p models.Principal, in CreateDonationInput) (*models.DonationView, error) {
	address := strings.TrimSpace(in.Address)
	if len(in.FoodItems) == 0 || in.ExpiryDate.IsZero() || address == "" {
		return nil, apperrors.Validation(msgCreateInvalid)
	}
	items := make([]models.FoodItem, 0, len(in.FoodItems))
	for _, item := range in.FoodItems {
		item.Name = strings.TrimSpace(item.Name)
		item.Quantity = strings.TrimSpace(item.Quantity)
		if item.Name == "" || item.Quantity == "" {
			return nil, apperrors.Validation(msgCreateInvalid)
		}
		items = append(items, item)
	}
	if !in.ExpiryDate.After(s.now()) {
		return nil, apperrors.Validation("Expiry date must be in the future.")
	}

	donation := &models.Donation{
		DonorID:        p.ID,
		FoodItems:      items,
		ExpiryDate:     in.ExpiryDate.UTC(),
		PickupLocation: models.PickupLocation{Address: address},
		Notes:          strings.TrimSpace(in.Notes),
		Status:         models.StatusPending,
	}
	if err := s.donations.Create(ctx, donation); err != nil {
		return nil, storeError(err)
	}
	s.metrics.DonationCreated()
	s.log.Info("donation created",
		zap.String("donation_id", donation.ID.String()),
		zap.String("donor_id", p.ID.String()))

	return s.view(ctx, donation.ID)
}

func (s *DonationService) ListForNGO(ctx context.Context, p models.Principal) ([]models.DonationView, error) {
	donations, err := s.donations.ListVisibleToNGO(ctx, p.ID)
	if err != nil {
		return nil, storeError(err)
	}
	return toViews(donations), nil
}

func (s *DonationService) ListForDonor(ctx context.Context, p models.Principal) ([]models.DonationView, error) {
	donations, err := s.donations.ListByDonor(ctx, p.ID)
	if err != nil {
		return nil, storeError(err)
	}
	return toViews(donations), nil
}

// Get returns a donation visible to its donor, its assignee or an admin.
func (s *DonationService) Get(ctx context.Context, p models.Principal, id uuid.UUID) (*models.DonationView, error) {
	donation, err := s.donations.FindByIDWithParties(ctx, id)
	if err != nil {
		return nil, s.lookupError(err)
	}
	if !donation.IsParticipant(p) {
		return nil, apperrors.Forbidden("Not authorized to view this donation.")
	}
	view := models.NewDonationView(*donation)
	return &view, nil
}

// Accept assigns a pending donation to the caller. Of several concurrent
// callers exactly one succeeds.
func (s *DonationService) Accept(ctx context.Context, p models.Principal, id uuid.UUID) (*models.DonationView, error) {
	donation, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if donation.Status != models.StatusPending {
		return nil, alreadyError(donation.Status)
	}

	now := s.now()
	ok, err := s.donations.Transition(ctx, id, repository.Guard{Status: models.StatusPending}, map[string]interface{}{
		"status":         models.StatusAssigned,
		"assigned_to_id": p.ID,
		"pickup_time":    now,
	})
	if err != nil {
		return nil, storeError(err)
	}
	if !ok {
		current, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, alreadyError(current.Status)
	}

	s.metrics.Transition(string(models.StatusAssigned))
	s.log.Info("donation accepted",
		zap.String("donation_id", id.String()),
		zap.String("ngo_id", p.ID.String()))
	return s.view(ctx, id)
}

// IssuePickupCode stores a fresh 4-digit code on an assigned donation and
// emails it to the donor. It returns the masked donor address.
func (s *DonationService) IssuePickupCode(ctx context.Context, p models.Principal, id uuid.UUID) (string, error) {
	donation, err := s.donations.FindByIDWithParties(ctx, id)
	if err != nil {
		return "", s.lookupError(err)
	}
	if donation.Status != models.StatusAssigned {
		return "", apperrors.Conflict("Donation must be assigned before a pickup code can be sent.")
	}
	if !donation.IsAssignedTo(p.ID) {
		return "", apperrors.Forbidden(msgNotAssignedToYou)
	}
	if donation.Donor == nil || strings.TrimSpace(donation.Donor.Email) == "" {
		return "", apperrors.NotFound("Donor email not found.")
	}

	code, err := s.newCode(pickupCodeDigits)
	if err != nil {
		return "", apperrors.Internal("Failed to generate pickup code.", err)
	}

	assignee := p.ID
	ok, err := s.donations.Transition(ctx, id,
		repository.Guard{Status: models.StatusAssigned, AssignedTo: &assignee},
		map[string]interface{}{"pickup_otp": code})
	if err != nil {
		return "", storeError(err)
	}
	if !ok {
		return "", apperrors.Conflict("Donation changed while sending the pickup code. Please retry.")
	}

	mail, err := notify.BuildPickupEmail(donation.Donor.Email, notify.PickupEmailData{
		Code:     code,
		NGOName:  ngoName(donation, p),
		Items:    itemLabels(donation.FoodItems),
		Address:  donation.PickupLocation.Address,
		QRInline: true,
	})
	if err == nil {
		err = s.notifier.Send(ctx, mail)
	}
	if err != nil {
		s.rollbackCode(id, assignee, code)
		s.metrics.PickupCodeFailed("mail")
		return "", apperrors.Dependency("Failed to send OTP. Check SMTP credentials.", err)
	}

	s.metrics.PickupCodeIssued()
	s.log.Info("pickup code sent",
		zap.String("donation_id", id.String()),
		zap.String("ngo_id", p.ID.String()))
	return helpers.MaskEmail(donation.Donor.Email), nil
}

// rollbackCode clears the stored code only if it is still the one just issued.
func (s *DonationService) rollbackCode(id, assignee uuid.UUID, code string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := s.donations.Transition(ctx, id,
		repository.Guard{Status: models.StatusAssigned, AssignedTo: &assignee, PickupOTP: &code},
		map[string]interface{}{"pickup_otp": nil})
	if err != nil {
		s.log.Error("failed to roll back pickup code", zap.String("donation_id", id.String()), zap.Error(err))
	}
}

// ConfirmPickup moves an assigned donation to picked when code matches the
// stored pickup code. The code is single use.
func (s *DonationService) ConfirmPickup(ctx context.Context, p models.Principal, id uuid.UUID, code string) (*models.DonationView, error) {
	donation, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if donation.AssignedToID != nil && !donation.IsAssignedTo(p.ID) && !p.IsAdmin() {
		return nil, apperrors.Forbidden(msgNotAuthorized)
	}
	if donation.Status != models.StatusAssigned {
		return nil, apperrors.Conflict(msgMustBeAssigned)
	}
	if strings.TrimSpace(code) == "" {
		return nil, apperrors.Validation(msgOTPRequired)
	}
	if donation.PickupOTP == nil || *donation.PickupOTP != code {
		return nil, apperrors.Validation(msgOTPInvalid)
	}

	ok, err := s.donations.Transition(ctx, id,
		repository.Guard{Status: models.StatusAssigned, PickupOTP: &code},
		map[string]interface{}{
			"status":     models.StatusPicked,
			"picked_at":  s.now(),
			"pickup_otp": nil,
		})
	if err != nil {
		return nil, storeError(err)
	}
	if !ok {
		return nil, apperrors.Validation(msgOTPInvalid)
	}

	s.metrics.Transition(string(models.StatusPicked))
	s.log.Info("donation picked up", zap.String("donation_id", id.String()))
	return s.view(ctx, id)
}

func (s *DonationService) MarkDelivered(ctx context.Context, p models.Principal, id uuid.UUID) (*models.DonationView, error) {
	donation, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !donation.IsAssignedTo(p.ID) && !p.IsAdmin() {
		return nil, apperrors.Forbidden(msgNotAuthorized)
	}
	if donation.Status != models.StatusPicked {
		return nil, apperrors.Conflict(msgMustBePicked)
	}

	ok, err := s.donations.Transition(ctx, id,
		repository.Guard{Status: models.StatusPicked},
		map[string]interface{}{"status": models.StatusDelivered, "delivered_at": s.now()})
	if err != nil {
		return nil, storeError(err)
	}
	if !ok {
		return nil, apperrors.Conflict(msgMustBePicked)
	}

	s.metrics.Transition(string(models.StatusDelivered))
	s.log.Info("donation delivered", zap.String("donation_id", id.String()))
	return s.view(ctx, id)
}

// MarkExpired retires a pending donation (admin) or an assigned one
// (assignee or admin). The assignee is kept so the NGO can clear it later.
func (s *DonationService) MarkExpired(ctx context.Context, p models.Principal, id uuid.UUID) (*models.DonationView, error) {
	donation, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	switch donation.Status {
	case models.StatusPending:
		if !p.IsAdmin() {
			return nil, apperrors.Forbidden(msgNotAuthorized)
		}
	case models.StatusAssigned:
		if !donation.IsAssignedTo(p.ID) && !p.IsAdmin() {
			return nil, apperrors.Forbidden(msgNotAuthorized)
		}
	default:
		return nil, apperrors.Conflict(msgCannotExpire)
	}

	ok, err := s.donations.Transition(ctx, id,
		repository.Guard{Status: donation.Status},
		map[string]interface{}{"status": models.StatusExpired, "pickup_otp": nil})
	if err != nil {
		return nil, storeError(err)
	}
	if !ok {
		return nil, apperrors.Conflict(msgCannotExpire)
	}

	s.metrics.Transition(string(models.StatusExpired))
	s.log.Info("donation expired", zap.String("donation_id", id.String()))
	return s.view(ctx, id)
}

// UpdateStatus dispatches a requested target status to its transition.
func (s *DonationService) UpdateStatus(ctx context.Context, p models.Principal, id uuid.UUID, status, code string) (*models.DonationView, error) {
	switch models.DonationStatus(strings.ToLower(strings.TrimSpace(status))) {
	case models.StatusPicked:
		return s.ConfirmPickup(ctx, p, id, code)
	case models.StatusDelivered:
		return s.MarkDelivered(ctx, p, id)
	case models.StatusExpired:
		return s.MarkExpired(ctx, p, id)
	default:
		return nil, apperrors.Validation(msgBadTransition)
	}
}

// ClearHistory deletes the caller's delivered and expired donations along
// with their chat threads and returns how many donations were removed.
// Threads go first so a failure leaves every donation in place for a retry.
func (s *DonationService) ClearHistory(ctx context.Context, p models.Principal) (int, error) {
	ids, err := s.donations.ListHistoryIDs(ctx, p.ID)
	if err != nil {
		return 0, storeError(err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	messages, err := s.messages.DeleteByDonations(ctx, ids)
	if err != nil {
		return 0, apperrors.Internal("Failed to clear donation history.", err)
	}
	removed, err := s.donations.DeleteHistory(ctx, p.ID, ids)
	if err != nil {
		return 0, storeError(err)
	}

	s.log.Info("donation history cleared",
		zap.String("ngo_id", p.ID.String()),
		zap.Int64("donations", removed),
		zap.Int64("messages", messages))
	return int(removed), nil
}

// ExpireOverdue marks pending donations past their expiry date as expired.
func (s *DonationService) ExpireOverdue(ctx context.Context) (int64, error) {
	n, err := s.donations.ExpireOverdue(ctx, s.now())
	if err != nil {
		return 0, err
	}
	s.metrics.DonationsExpired(n)
	return n, nil
}

func (s *DonationService) load(ctx context.Context, id uuid.UUID) (*models.Donation, error) {
	donation, err := s.donations.FindByID(ctx, id)
	if err != nil {
		return nil, s.lookupError(err)
	}
	return donation, nil
}

func (s *DonationService) view(ctx context.Context, id uuid.UUID) (*models.DonationView, error) {
	donation, err := s.donations.FindByIDWithParties(ctx, id)
	if err != nil {
		return nil, s.lookupError(err)
	}
	view := models.NewDonationView(*donation)
	return &view, nil
}

func (s *DonationService) lookupError(err error) error {
	if isNotFound(err) {
		return apperrors.NotFound(msgDonationNotFound)
	}
	return storeError(err)
}

func alreadyError(status models.DonationStatus) error {
	return apperrors.Conflict("Donation already " + string(status) + ".")
}

func toViews(donations []models.Donation) []models.DonationView {
	views := make([]models.DonationView, len(donations))
	for i := range donations {
		views[i] = models.NewDonationView(donations[i])
	}
	return views
}

func itemLabels(items []models.FoodItem) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Name + " (" + item.Quantity + ")"
	}
	return out
}

func ngoName(d *models.Donation, p models.Principal) string {
	if d.AssignedTo != nil && d.AssignedTo.Name != "" {
		return d.AssignedTo.Name
	}
	return p.Name
}
