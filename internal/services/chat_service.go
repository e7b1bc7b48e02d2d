package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/bhojansetu/bhojansetu/internal/apperrors"
	"github.com/bhojansetu/bhojansetu/internal/metrics"
	"github.com/bhojansetu/bhojansetu/internal/models"
	"github.com/bhojansetu/bhojansetu/internal/realtime"
	"github.com/bhojansetu/bhojansetu/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	msgChatViewDenied  = "Not authorized to view this chat."
	msgChatSendDenied  = "Not authorized to send to this chat."
	msgChatClearDenied = "Not authorized to clear this chat."
	msgChatInvalid     = "Invalid data passed into request."
)

// ChatService manages the message thread attached to each donation. Only the
// donation's donor, its assignee and admins take part.
type ChatService struct {
	donations *repository.DonationRepository
	users     *repository.UserRepository
	messages  repository.MessageRepository
	publisher EventPublisher
	metrics   *metrics.Manager
	log       *zap.Logger
	now       Clock
}

func NewChatService(
	donations *repository.DonationRepository,
	users *repository.UserRepository,
	messages repository.MessageRepository,
	publisher EventPublisher,
	m *metrics.Manager,
	log *zap.Logger,
) *ChatService {
	return &ChatService{
		donations: donations,
		users:     users,
		messages:  messages,
		publisher: publisher,
		metrics:   m,
		log:       log,
		now:       utcNow,
	}
}

func (s *ChatService) List(ctx context.Context, p models.Principal, donationID uuid.UUID) ([]models.MessageView, error) {
	if err := s.authorize(ctx, p, donationID, msgChatViewDenied); err != nil {
		return nil, err
	}
	messages, err := s.messages.ListByDonation(ctx, donationID)
	if err != nil {
		return nil, storeError(err)
	}
	return s.attachSenders(ctx, messages)
}

func (s *ChatService) Send(ctx context.Context, p models.Principal, donationID uuid.UUID, content string) (*models.MessageView, error) {
	content = strings.TrimSpace(content)
	if donationID == uuid.Nil || content == "" || utf8.RuneCountInString(content) > models.MaxMessageLength {
		return nil, apperrors.Validation(msgChatInvalid)
	}
	if err := s.authorize(ctx, p, donationID, msgChatSendDenied); err != nil {
		return nil, err
	}

	message := &models.Message{
		DonationID: donationID,
		SenderID:   p.ID,
		Content:    content,
		ReadBy:     []uuid.UUID{p.ID},
		CreatedAt:  s.now(),
	}
	if err := s.messages.Create(ctx, message); err != nil {
		return nil, storeError(err)
	}
	s.metrics.MessageSent()

	views, err := s.attachSenders(ctx, []models.Message{*message})
	if err != nil {
		return nil, err
	}
	view := views[0]
	s.publish(ctx, view)
	return &view, nil
}

// publish relays a stored message to the room. Failures only get logged; the
// message is already persisted.
func (s *ChatService) publish(ctx context.Context, view models.MessageView) {
	if s.publisher == nil {
		return
	}
	ev, err := realtime.NewMessageEvent(view.DonationID, view)
	if err == nil {
		err = s.publisher.Publish(ctx, ev)
	}
	if err != nil {
		s.log.Warn("failed to publish chat message",
			zap.String("donation_id", view.DonationID.String()),
			zap.String("message_id", view.ID.String()),
			zap.Error(err))
	}
}

// Clear deletes every message of the donation's thread and returns the count.
func (s *ChatService) Clear(ctx context.Context, p models.Principal, donationID uuid.UUID) (int64, error) {
	if err := s.authorize(ctx, p, donationID, msgChatClearDenied); err != nil {
		return 0, err
	}
	n, err := s.messages.DeleteByDonation(ctx, donationID)
	if err != nil {
		return 0, storeError(err)
	}
	s.log.Info("chat cleared",
		zap.String("donation_id", donationID.String()),
		zap.String("user_id", p.ID.String()),
		zap.Int64("messages", n))
	return n, nil
}

// Authorize is the participant check used when a websocket joins a room.
func (s *ChatService) Authorize(ctx context.Context, p models.Principal, donationID uuid.UUID) error {
	return s.authorize(ctx, p, donationID, msgChatViewDenied)
}

func (s *ChatService) authorize(ctx context.Context, p models.Principal, donationID uuid.UUID, denied string) error {
	donation, err := s.donations.FindByID(ctx, donationID)
	if err != nil {
		if isNotFound(err) {
			return apperrors.NotFound(msgDonationNotFound)
		}
		return storeError(err)
	}
	if !donation.IsParticipant(p) {
		return apperrors.Forbidden(denied)
	}
	return nil
}

func (s *ChatService) attachSenders(ctx context.Context, messages []models.Message) ([]models.MessageView, error) {
	ids := make([]uuid.UUID, 0, len(messages))
	seen := make(map[uuid.UUID]struct{}, len(messages))
	for _, m := range messages {
		if _, ok := seen[m.SenderID]; !ok {
			seen[m.SenderID] = struct{}{}
			ids = append(ids, m.SenderID)
		}
	}
	senders, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, storeError(err)
	}

	views := make([]models.MessageView, len(messages))
	for i, m := range messages {
		views[i] = models.MessageView{Message: m, Sender: senders[m.SenderID].SenderRef()}
	}
	return views, nil
}
