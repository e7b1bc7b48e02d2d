package repository

import (
	"context"
	"time"

	"github.com/bhojansetu/bhojansetu/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Guard restates a transition's precondition inside the UPDATE statement so
// that the check and the write are a single atomic step.
type Guard struct {
	Status     models.DonationStatus
	AssignedTo *uuid.UUID
	PickupOTP  *string
}

type DonationRepository struct {
	db *gorm.DB
}

func NewDonationRepository(db *gorm.DB) *DonationRepository {
	return &DonationRepository{db: db}
}

func (r *DonationRepository) Create(ctx context.Context, donation *models.Donation) error {
	return r.db.WithContext(ctx).Create(donation).Error
}

func (r *DonationRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Donation, error) {
	var donation models.Donation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&donation).Error; err != nil {
		return nil, translate(err)
	}
	return &donation, nil
}

// FindByIDWithParties loads the donation together with its donor and assignee.
func (r *DonationRepository) FindByIDWithParties(ctx context.Context, id uuid.UUID) (*models.Donation, error) {
	var donation models.Donation
	err := r.withParties(ctx).Where("id = ?", id).First(&donation).Error
	if err != nil {
		return nil, translate(err)
	}
	return &donation, nil
}

// ListVisibleToNGO returns every pending donation plus every donation assigned to ngoID.
func (r *DonationRepository) ListVisibleToNGO(ctx context.Context, ngoID uuid.UUID) ([]models.Donation, error) {
	var donations []models.Donation
	err := r.withParties(ctx).
		Where("status = ? OR (assigned_to_id = ? AND status <> ?)", models.StatusPending, ngoID, models.StatusPending).
		Order("created_at DESC").
		Find(&donations).Error
	return donations, err
}

func (r *DonationRepository) ListByDonor(ctx context.Context, donorID uuid.UUID) ([]models.Donation, error) {
	var donations []models.Donation
	err := r.withParties(ctx).
		Where("donor_id = ?", donorID).
		Order("created_at DESC").
		Find(&donations).Error
	return donations, err
}

// Transition applies updates only when the guard still holds and reports
// whether a row was changed.
func (r *DonationRepository) Transition(ctx context.Context, id uuid.UUID, guard Guard, updates map[string]interface{}) (bool, error) {
	query := r.db.WithContext(ctx).Model(&models.Donation{}).
		Where("id = ? AND status = ?", id, guard.Status)
	if guard.AssignedTo != nil {
		query = query.Where("assigned_to_id = ?", *guard.AssignedTo)
	}
	if guard.PickupOTP != nil {
		query = query.Where("pickup_otp = ?", *guard.PickupOTP)
	}
	result := query.Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

var finishedStatuses = []string{string(models.StatusDelivered), string(models.StatusExpired)}

// ListHistoryIDs returns the ids of the NGO's delivered and expired donations.
func (r *DonationRepository) ListHistoryIDs(ctx context.Context, ngoID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&models.Donation{}).
		Where("assigned_to_id = ? AND status IN ?", ngoID, finishedStatuses).
		Pluck("id", &ids).Error
	return ids, err
}

// DeleteHistory removes the listed donations that are still finished and
// assigned to ngoID, and returns how many were removed.
func (r *DonationRepository) DeleteHistory(ctx context.Context, ngoID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Where("id IN ? AND assigned_to_id = ? AND status IN ?", ids, ngoID, finishedStatuses).
		Delete(&models.Donation{})
	return result.RowsAffected, result.Error
}

// ExpireOverdue marks pending donations whose expiry date is before now as expired.
func (r *DonationRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Donation{}).
		Where("status = ? AND expiry_date < ?", models.StatusPending, now).
		Updates(map[string]interface{}{"status": models.StatusExpired, "pickup_otp": nil})
	return result.RowsAffected, result.Error
}

func (r *DonationRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Donation{}).Count(&count).Error
	return count, err
}

func (r *DonationRepository) CountByStatus(ctx context.Context) (map[models.DonationStatus]int64, error) {
	var rows []struct {
		Status models.DonationStatus
		Total  int64
	}
	err := r.db.WithContext(ctx).Model(&models.Donation{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[models.DonationStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Total
	}
	return out, nil
}

func (r *DonationRepository) withParties(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Donor").Preload("AssignedTo")
}
