package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/bhojansetu/bhojansetu/internal/models"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// TestPassword is the plain-text password of every fixture user.
const TestPassword = "secret123"

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *gorm.DB
	t  *testing.T
}

func NewFixtures(t *testing.T, db *gorm.DB) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// CreateUser creates a verified user with the given role.
func (f *Fixtures) CreateUser(ctx context.Context, name, email string, role models.Role) models.User {
	f.t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		f.t.Fatalf("failed to hash password: %v", err)
	}
	user := models.User{
		ID:         uuid.New(),
		Name:       name,
		Email:      email,
		Password:   string(hashed),
		Role:       role,
		Phone:      "9999999999",
		Address:    "12 Test Street",
		IsVerified: true,
	}
	if role == models.RoleNGO {
		user.NGORegistrationID = "NGO-" + name
	}
	if err := f.db.WithContext(ctx).Create(&user).Error; err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

func (f *Fixtures) CreateDonor(ctx context.Context, name, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, name, email, models.RoleDonor)
}

func (f *Fixtures) CreateNGO(ctx context.Context, name, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, name, email, models.RoleNGO)
}

func (f *Fixtures) CreateAdmin(ctx context.Context, name, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, name, email, models.RoleAdmin)
}

// CreateDonation inserts a donation in the given state. assignee may be nil.
func (f *Fixtures) CreateDonation(ctx context.Context, donor models.User, status models.DonationStatus, assignee *models.User) models.Donation {
	f.t.Helper()

	donation := models.Donation{
		ID:             uuid.New(),
		DonorID:        donor.ID,
		FoodItems:      []models.FoodItem{{Name: "Rice", Quantity: "5kg"}},
		ExpiryDate:     time.Now().UTC().Add(24 * time.Hour),
		PickupLocation: models.PickupLocation{Address: "12 Test Street"},
		Status:         status,
	}
	if assignee != nil {
		id := assignee.ID
		donation.AssignedToID = &id
	}
	if err := f.db.WithContext(ctx).Create(&donation).Error; err != nil {
		f.t.Fatalf("failed to create test donation: %v", err)
	}
	return donation
}

// CreateMessage inserts a chat message into the donation's thread.
func (f *Fixtures) CreateMessage(ctx context.Context, donationID, senderID uuid.UUID, content string) models.Message {
	f.t.Helper()

	msg := models.Message{
		ID:         uuid.New(),
		DonationID: donationID,
		SenderID:   senderID,
		Content:    content,
		ReadBy:     []uuid.UUID{senderID},
		CreatedAt:  time.Now().UTC(),
	}
	if err := f.db.WithContext(ctx).Create(&msg).Error; err != nil {
		f.t.Fatalf("failed to create test message: %v", err)
	}
	return msg
}

// Principal returns the authenticated principal for a fixture user.
func Principal(u models.User) models.Principal {
	return models.Principal{ID: u.ID, Role: u.Role, Name: u.Name, Email: u.Email}
}
