package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const MaxMessageLength = 2000

type Message struct {
	ID         uuid.UUID                      `gorm:"type:uuid;primary_key" json:"_id"`
	DonationID uuid.UUID                      `gorm:"type:uuid;not null;index" json:"donation"`
	SenderID   uuid.UUID                      `gorm:"type:uuid;not null" json:"-"`
	Content    string                         `gorm:"type:text;not null" json:"content"`
	ReadBy     datatypes.JSONSlice[uuid.UUID] `json:"readBy"`
	CreatedAt  time.Time                      `gorm:"index" json:"createdAt"`
}

func (message *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	return
}

// MessageView is a message with the sender projection attached.
type MessageView struct {
	Message
	Sender *UserRef `json:"sender"`
}
