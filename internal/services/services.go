// Package services holds the donation lifecycle, chat, identity and contact
// operations. Handlers resolve the caller and call in here; every error
// returned is an *apperrors.Error.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/bhojansetu/bhojansetu/internal/apperrors"
	"github.com/bhojansetu/bhojansetu/internal/realtime"
	"github.com/bhojansetu/bhojansetu/internal/repository"
)

// EventPublisher hands realtime events to the broker.
type EventPublisher interface {
	Publish(ctx context.Context, ev realtime.Event) error
}

// Clock returns the current time. Tests replace it.
type Clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }

// CodeGenerator returns a numeric one-time code.
type CodeGenerator func(digits int) (string, error)

var errNoContactReceiver = errors.New("CONTACT_RECEIVER_EMAIL is not configured")

func storeError(err error) error {
	return apperrors.Internal("Internal server error.", err)
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
