package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DonationStatus string

const (
	StatusPending   DonationStatus = "pending"
	StatusAssigned  DonationStatus = "assigned"
	StatusPicked    DonationStatus = "picked"
	StatusDelivered DonationStatus = "delivered"
	StatusExpired   DonationStatus = "expired"
)

type FoodItem struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
}

type PickupLocation struct {
	Address string `gorm:"column:pickup_address;not null" json:"address"`
}

type Donation struct {
	ID             uuid.UUID                     `gorm:"type:uuid;primary_key" json:"_id"`
	DonorID        uuid.UUID                     `gorm:"type:uuid;not null;index" json:"-"`
	Donor          *User                         `gorm:"foreignKey:DonorID" json:"-"`
	FoodItems      datatypes.JSONSlice[FoodItem] `gorm:"not null" json:"foodItems"`
	ExpiryDate     time.Time                     `gorm:"not null;index" json:"expiryDate"`
	PickupLocation PickupLocation                `gorm:"embedded" json:"pickupLocation"`
	Notes          string                        `json:"notes,omitempty"`
	Status         DonationStatus                `gorm:"size:16;not null;default:'pending';index" json:"status"`
	AssignedToID   *uuid.UUID                    `gorm:"type:uuid;index" json:"-"`
	AssignedTo     *User                         `gorm:"foreignKey:AssignedToID" json:"-"`
	PickupTime     *time.Time                    `json:"pickupTime,omitempty"`
	PickedAt       *time.Time                    `json:"pickedAt,omitempty"`
	DeliveredAt    *time.Time                    `json:"deliveredAt,omitempty"`
	PickupOTP      *string                       `gorm:"column:pickup_otp" json:"-"`
	CreatedAt      time.Time                     `json:"createdAt"`
	UpdatedAt      time.Time                     `json:"updatedAt"`
}

func (donation *Donation) BeforeCreate(tx *gorm.DB) (err error) {
	if donation.ID == uuid.Nil {
		donation.ID = uuid.New()
	}
	return
}

// IsParticipant reports whether the principal may see the donation and its chat thread.
func (donation *Donation) IsParticipant(p Principal) bool {
	if p.IsAdmin() || donation.DonorID == p.ID {
		return true
	}
	return donation.IsAssignedTo(p.ID)
}

func (donation *Donation) IsAssignedTo(userID uuid.UUID) bool {
	return donation.AssignedToID != nil && *donation.AssignedToID == userID
}

// DonationView is a donation with its donor and assignee projections attached.
type DonationView struct {
	Donation
	DonorRef      *UserRef `json:"donor"`
	AssignedToRef *UserRef `json:"assignedTo"`
}

func NewDonationView(d Donation) DonationView {
	return DonationView{Donation: d, DonorRef: d.Donor.Ref(), AssignedToRef: d.AssignedTo.Ref()}
}
