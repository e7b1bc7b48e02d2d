package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID                uuid.UUID  `gorm:"type:uuid;primary_key" json:"_id"`
	Name              string     `gorm:"size:100;not null" json:"name"`
	Email             string     `gorm:"unique;not null" json:"email"`
	Password          string     `gorm:"not null" json:"-"`
	Role              Role       `gorm:"size:16;not null;default:'donor';index" json:"role"`
	Phone             string     `gorm:"size:20" json:"phone,omitempty"`
	Address           string     `gorm:"not null" json:"address"`
	NGORegistrationID string     `json:"ngoRegistrationId,omitempty"`
	IsVerified        bool       `gorm:"not null;default:false" json:"isVerified"`
	VerificationOTP   *string    `json:"-"`
	OTPExpires        *time.Time `json:"-"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

func (user *User) BeforeCreate(tx *gorm.DB) (err error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	return
}

// UserRef is the public projection of a user attached to donations and messages.
type UserRef struct {
	ID    uuid.UUID `json:"_id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Phone string    `json:"phone,omitempty"`
	Role  Role      `json:"role,omitempty"`
}

func (user *User) Ref() *UserRef {
	if user == nil {
		return nil
	}
	return &UserRef{ID: user.ID, Name: user.Name, Email: user.Email, Phone: user.Phone}
}

// SenderRef is the projection used for chat senders.
func (user *User) SenderRef() *UserRef {
	if user == nil {
		return nil
	}
	return &UserRef{ID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role}
}

// Principal is the authenticated caller of an operation.
type Principal struct {
	ID    uuid.UUID
	Role  Role
	Name  string
	Email string
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
