package services

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/bhojansetu/bhojansetu/internal/apperrors"
	"github.com/bhojansetu/bhojansetu/internal/models"
	"github.com/bhojansetu/bhojansetu/internal/realtime"
	"github.com/bhojansetu/bhojansetu/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatService_DonorMessageVisibleToAssigneeOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	donor := env.fx.CreateDonor(ctx, "Asha", "asha@example.com")
	ngoA := env.fx.CreateNGO(ctx, "FeedAll", "a@ngo.org")
	ngoC := env.fx.CreateNGO(ctx, "Elsewhere", "c@ngo.org")
	donation := env.fx.CreateDonation(ctx, donor, models.StatusAssigned, &ngoA)

	sent, err := env.chat.Send(ctx, testutil.Principal(donor), donation.ID, "  Ready for pickup ")
	require.NoError(t, err)
	assert.Equal(t, "Ready for pickup", sent.Content)
	require.NotNil(t, sent.Sender)
	assert.Equal(t, donor.ID, sent.Sender.ID)
	assert.Equal(t, models.RoleDonor, sent.Sender.Role)
	assert.Equal(t, []uuid.UUID{donor.ID}, []uuid.UUID(sent.ReadBy))

	thread, err := env.chat.List(ctx, testutil.Principal(ngoA), donation.ID)
	require.NoError(t, err)
	require.Len(t, thread, 1)
	assert.Equal(t, "Ready for pickup", thread[0].Content)
	assert.Equal(t, donor.Email, thread[0].Sender.Email)

	_, err = env.chat.List(ctx, testutil.Principal(ngoC), donation.ID)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindAuthorization))
	assert.Equal(t, "Not authorized to view this chat.", err.(*apperrors.Error).Message)
}

func TestChatService_SendPublishesToRoom(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	donor := env.fx.CreateDonor(ctx, "Asha", "asha@example.com")
	ngo := env.fx.CreateNGO(ctx, "FeedAll", "a@ngo.org")
	donation := env.fx.CreateDonation(ctx, donor, models.StatusAssigned, &ngo)

	sent, err := env.chat.Send(ctx, testutil.Principal(ngo), donation.ID, "On the way")
	require.NoError(t, err)

	events := env.publisher.Events()
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, donation.ID, ev.Room)
	assert.Equal(t, realtime.FrameMessageReceived, ev.Frame.Type)

	var payload struct {
		ID      uuid.UUID `json:"_id"`
		Content string    `json:"content"`
	}
	require.NoError(t, json.Unmarshal(ev.Frame.Data, &payload))
	assert.Equal(t, sent.ID, payload.ID)
	assert.Equal(t, "On the way", payload.Content)
}

func TestChatService_PublishFailureStillStoresMessage(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	donor := env.fx.CreateDonor(ctx, "Asha", "asha@example.com")
	donation := env.fx.CreateDonation(ctx, donor, models.StatusPending, nil)
	env.publisher.err = errors.New("redis: connection closed")

	_, err := env.chat.Send(ctx, testutil.Principal(donor), donation.ID, "hello")
	require.NoError(t, err)

	thread, err := env.messageRepo.ListByDonation(ctx, donation.ID)
	require.NoError(t, err)
	assert.Len(t, thread, 1)
}

func TestChatService_SendValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	donor := env.fx.CreateDonor(ctx, "Asha", "asha@example.com")
	stranger := env.fx.CreateNGO(ctx, "Elsewhere", "c@ngo.org")
	donation := env.fx.CreateDonation(ctx, donor, models.StatusPending, nil)
	p := testutil.Principal(donor)

	for name, tc := range map[string]struct {
		id      uuid.UUID
		content string
	}{
		"empty id":      {uuid.Nil, "hi"},
		"blank content": {donation.ID, "   "},
		"too long":      {donation.ID, strings.Repeat("a", models.MaxMessageLength+1)},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := env.chat.Send(ctx, p, tc.id, tc.content)
			require.Error(t, err)
			assert.Equal(t, "Invalid data passed into request.", err.(*apperrors.Error).Message)
		})
	}

	_, err := env.chat.Send(ctx, p, uuid.New(), "hi")
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))

	_, err = env.chat.Send(ctx, testutil.Principal(stranger), donation.ID, "hi")
	require.Error(t, err)
	assert.Equal(t, "Not authorized to send to this chat.", err.(*apperrors.Error).Message)

	assert.Empty(t, env.publisher.Events())
}

func TestChatService_ClearRemovesOnlyThatThread(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	donor := env.fx.CreateDonor(ctx, "Asha", "asha@example.com")
	ngo := env.fx.CreateNGO(ctx, "FeedAll", "a@ngo.org")
	stranger := env.fx.CreateNGO(ctx, "Elsewhere", "c@ngo.org")
	first := env.fx.CreateDonation(ctx, donor, models.StatusAssigned, &ngo)
	second := env.fx.CreateDonation(ctx, donor, models.StatusPending, nil)

	env.fx.CreateMessage(ctx, first.ID, donor.ID, "one")
	env.fx.CreateMessage(ctx, first.ID, ngo.ID, "two")
	env.fx.CreateMessage(ctx, second.ID, donor.ID, "other thread")

	_, err := env.chat.Clear(ctx, testutil.Principal(stranger), first.ID)
	require.Error(t, err)
	assert.Equal(t, "Not authorized to clear this chat.", err.(*apperrors.Error).Message)

	n, err := env.chat.Clear(ctx, testutil.Principal(ngo), first.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	remaining, err := env.messageRepo.ListByDonation(ctx, second.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "other thread", remaining[0].Content)
}

func TestChatService_AdminAndAuthorize(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	donor := env.fx.CreateDonor(ctx, "Asha", "asha@example.com")
	admin := env.fx.CreateAdmin(ctx, "Root", "root@example.com")
	stranger := env.fx.CreateNGO(ctx, "Elsewhere", "c@ngo.org")
	donation := env.fx.CreateDonation(ctx, donor, models.StatusPending, nil)

	assert.NoError(t, env.chat.Authorize(ctx, testutil.Principal(admin), donation.ID))
	assert.True(t, apperrors.Is(env.chat.Authorize(ctx, testutil.Principal(stranger), donation.ID), apperrors.KindAuthorization))
	assert.True(t, apperrors.Is(env.chat.Authorize(ctx, testutil.Principal(admin), uuid.New()), apperrors.KindNotFound))

	thread, err := env.chat.List(ctx, testutil.Principal(admin), donation.ID)
	require.NoError(t, err)
	assert.Empty(t, thread)
}
