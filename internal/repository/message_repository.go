package repository

import (
	"context"

	"github.com/bhojansetu/bhojansetu/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageRepository stores chat messages. Implementations exist for the SQL
// database and for MongoDB.
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	ListByDonation(ctx context.Context, donationID uuid.UUID) ([]models.Message, error)
	DeleteByDonation(ctx context.Context, donationID uuid.UUID) (int64, error)
	DeleteByDonations(ctx context.Context, donationIDs []uuid.UUID) (int64, error)
}

type SQLMessageRepository struct {
	db *gorm.DB
}

func NewSQLMessageRepository(db *gorm.DB) *SQLMessageRepository {
	return &SQLMessageRepository{db: db}
}

func (r *SQLMessageRepository) Create(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *SQLMessageRepository) ListByDonation(ctx context.Context, donationID uuid.UUID) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.WithContext(ctx).
		Where("donation_id = ?", donationID).
		Order("created_at ASC").
		Find(&messages).Error
	return messages, err
}

func (r *SQLMessageRepository) DeleteByDonation(ctx context.Context, donationID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("donation_id = ?", donationID).Delete(&models.Message{})
	return result.RowsAffected, result.Error
}

func (r *SQLMessageRepository) DeleteByDonations(ctx context.Context, donationIDs []uuid.UUID) (int64, error) {
	if len(donationIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Where("donation_id IN ?", donationIDs).Delete(&models.Message{})
	return result.RowsAffected, result.Error
}
