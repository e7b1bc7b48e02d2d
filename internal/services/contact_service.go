package services

import (
	"context"
	"strings"

	"github.com/bhojansetu/bhojansetu/internal/apperrors"
	"github.com/bhojansetu/bhojansetu/internal/notify"
	"go.uber.org/zap"
)

type ContactInput struct {
	Name    string
	Email   string
	Message string
}

// ContactService forwards contact-form submissions to the site inbox.
type ContactService struct {
	notifier notify.Notifier
	receiver string
	log      *zap.Logger
}

func NewContactService(notifier notify.Notifier, receiver string, log *zap.Logger) *ContactService {
	return &ContactService{notifier: notifier, receiver: receiver, log: log}
}

func (s *ContactService) Submit(ctx context.Context, in ContactInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Message = strings.TrimSpace(in.Message)
	if in.Name == "" || in.Email == "" || in.Message == "" {
		return apperrors.Validation("Please fill out all fields.")
	}
	if s.receiver == "" {
		return apperrors.Dependency("Failed to send message.", errNoContactReceiver)
	}

	mail := notify.BuildContactEmail(s.receiver, notify.ContactEmailData{
		Name:    in.Name,
		Email:   in.Email,
		Message: in.Message,
	})
	if err := s.notifier.Send(ctx, mail); err != nil {
		return apperrors.Dependency("Failed to send message. Please check SMTP credentials and network access.", err)
	}
	s.log.Info("contact message forwarded", zap.String("from", in.Email))
	return nil
}
