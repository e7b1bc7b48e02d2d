// Package realtime relays persisted chat messages to connected websocket
// clients, grouped into one room per donation.
package realtime

import (
	"encoding/json"

	"github.com/google/uuid"
)

const (
	FrameJoinRoom        = "join_chat_room"
	FrameLeaveRoom       = "leave_chat_room"
	FrameNewMessage      = "new_message"
	FrameJoined          = "joined"
	FrameLeft            = "left"
	FrameError           = "error"
	FrameMessageReceived = "message_received"
)

// Frame is the JSON object exchanged with websocket clients.
type Frame struct {
	Type       string          `json:"type"`
	DonationID string          `json:"donationId,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
	Message    string          `json:"message,omitempty"`
}

// Event is a frame addressed to every socket in a room, the sender's own
// included. Clients drop duplicates by message id.
type Event struct {
	Room  uuid.UUID `json:"room"`
	Frame Frame     `json:"frame"`
}

// NewMessageEvent wraps a stored message for delivery to the donation's room.
func NewMessageEvent(donationID uuid.UUID, message any) (Event, error) {
	data, err := json.Marshal(message)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Room: donationID,
		Frame: Frame{
			Type:       FrameMessageReceived,
			DonationID: donationID.String(),
			Data:       data,
		},
	}, nil
}

func errorFrame(donationID, message string) Frame {
	return Frame{Type: FrameError, DonationID: donationID, Message: message}
}
