package helpers

import (
	"strings"

	"github.com/google/uuid"
)

// ParseID parses a path or body identifier, returning false when it is not a UUID.
func ParseID(s string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// MaskEmail hides the middle of the local part: "ramesh@example.com" -> "ra****@example.com".
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return email
	}
	local, domain := email[:at], email[at:]
	visible := 2
	if len(local) <= visible {
		visible = 1
	}
	return local[:visible] + strings.Repeat("*", len(local)-visible) + domain
}
