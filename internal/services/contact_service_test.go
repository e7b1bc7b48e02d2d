package services

import (
	"context"
	"strings"
	"testing"

	"github.com/bhojansetu/bhojansetu/internal/apperrors"
	"github.com/bhojansetu/bhojansetu/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func TestContactService_Submit(t *testing.T) {
	notifier := &mockNotifier{}
	svc := NewContactService(notifier, "inbox@bhojansetu.org", zap.NewNop())

	notifier.On("Send", mock.Anything, mock.MatchedBy(func(m notify.Mail) bool {
		return m.To[0] == "inbox@bhojansetu.org" && !strings.Contains(m.HTMLBody, "<script>")
	})).Return(nil).Once()

	err := svc.Submit(context.Background(), ContactInput{
		Name:    "Priya",
		Email:   "priya@example.com",
		Message: "Hello <script>alert(1)</script> team",
	})
	assert.NoError(t, err)
	notifier.AssertExpectations(t)
}

func TestContactService_Failures(t *testing.T) {
	notifier := &mockNotifier{}
	svc := NewContactService(notifier, "inbox@bhojansetu.org", zap.NewNop())

	err := svc.Submit(context.Background(), ContactInput{Name: "Priya", Email: "", Message: "hi"})
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	notifier.On("Send", mock.Anything, mock.Anything).Return(errSMTPDown).Once()
	err = svc.Submit(context.Background(), ContactInput{Name: "Priya", Email: "p@example.com", Message: "hi"})
	assert.True(t, apperrors.Is(err, apperrors.KindDependency))

	unconfigured := NewContactService(notifier, "", zap.NewNop())
	err = unconfigured.Submit(context.Background(), ContactInput{Name: "Priya", Email: "p@example.com", Message: "hi"})
	assert.True(t, apperrors.Is(err, apperrors.KindDependency))
}
