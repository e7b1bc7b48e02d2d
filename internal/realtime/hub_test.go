package realtime

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/bhojansetu/bhojansetu/internal/apperrors"
	"github.com/bhojansetu/bhojansetu/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func allowAll(context.Context, models.Principal, uuid.UUID) error { return nil }

func newTestClient(t *testing.T, hub *Hub, authorize JoinAuthorizer) *Client {
	t.Helper()
	c := NewClient(hub, nil, models.Principal{ID: uuid.New(), Role: models.RoleNGO}, authorize)
	require.True(t, hub.Register(c))
	return c
}

func nextFrame(t *testing.T, c *Client) Frame {
	t.Helper()
	select {
	case payload, ok := <-c.send:
		require.True(t, ok, "send queue closed")
		var f Frame
		require.NoError(t, json.Unmarshal(payload, &f))
		return f
	default:
		t.Fatal("expected a queued frame")
		return Frame{}
	}
}

func joinFrame(room uuid.UUID) []byte {
	b, _ := json.Marshal(Frame{Type: FrameJoinRoom, DonationID: room.String()})
	return b
}

func TestHub_JoinAndDeliverToEveryMember(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil)
	room := uuid.New()

	sender := newTestClient(t, hub, allowAll)
	receiver := newTestClient(t, hub, allowAll)

	sender.handleFrame(context.Background(), joinFrame(room))
	receiver.handleFrame(context.Background(), joinFrame(room))
	assert.Equal(t, FrameJoined, nextFrame(t, sender).Type)
	assert.Equal(t, FrameJoined, nextFrame(t, receiver).Type)
	assert.Equal(t, 2, hub.RoomSize(room))

	// A second tab of the same user.
	senderTab := NewClient(hub, nil, sender.principal, allowAll)
	require.True(t, hub.Register(senderTab))
	hub.Join(room, senderTab)

	ev, err := NewMessageEvent(room, map[string]string{"content": "on my way"})
	require.NoError(t, err)
	hub.Deliver(ev)

	for _, c := range []*Client{receiver, sender, senderTab} {
		got := nextFrame(t, c)
		assert.Equal(t, FrameMessageReceived, got.Type)
		assert.Equal(t, room.String(), got.DonationID)
		assert.JSONEq(t, `{"content":"on my way"}`, string(got.Data))
	}
}

func TestHub_DeliverOnlyToRoomMembers(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil)
	roomA, roomB := uuid.New(), uuid.New()

	a := newTestClient(t, hub, allowAll)
	b := newTestClient(t, hub, allowAll)
	hub.Join(roomA, a)
	hub.Join(roomB, b)

	ev, err := NewMessageEvent(roomA, "hello")
	require.NoError(t, err)
	hub.Deliver(ev)

	assert.Len(t, a.send, 1)
	assert.Len(t, b.send, 0)
}

func TestClient_JoinDenied(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil)
	room := uuid.New()
	deny := func(context.Context, models.Principal, uuid.UUID) error {
		return apperrors.Forbidden("Not authorized to view this chat.")
	}
	c := newTestClient(t, hub, deny)

	c.handleFrame(context.Background(), joinFrame(room))

	f := nextFrame(t, c)
	assert.Equal(t, FrameError, f.Type)
	assert.Equal(t, "Not authorized to view this chat.", f.Message)
	assert.Equal(t, 0, hub.RoomSize(room))
}

func TestClient_RejectsClientOriginatedMessages(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil)
	room := uuid.New()
	c := newTestClient(t, hub, allowAll)
	other := newTestClient(t, hub, allowAll)
	hub.Join(room, c)
	hub.Join(room, other)

	raw, _ := json.Marshal(Frame{Type: FrameNewMessage, DonationID: room.String(), Data: json.RawMessage(`{"content":"spoof"}`)})
	c.handleFrame(context.Background(), raw)

	assert.Equal(t, FrameError, nextFrame(t, c).Type)
	assert.Len(t, other.send, 0)
}

func TestClient_LeaveAndMalformed(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil)
	room := uuid.New()
	c := newTestClient(t, hub, allowAll)
	hub.Join(room, c)

	leave, _ := json.Marshal(Frame{Type: FrameLeaveRoom, DonationID: room.String()})
	c.handleFrame(context.Background(), leave)
	assert.Equal(t, FrameLeft, nextFrame(t, c).Type)
	assert.Equal(t, 0, hub.RoomSize(room))

	c.handleFrame(context.Background(), []byte("{not json"))
	assert.Equal(t, FrameError, nextFrame(t, c).Type)
}

func TestHub_DropsFullClient(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil)
	room := uuid.New()
	c := newTestClient(t, hub, allowAll)
	hub.Join(room, c)

	for i := 0; i < sendQueueSize; i++ {
		require.True(t, c.enqueue([]byte("{}")))
	}

	ev, err := NewMessageEvent(room, "overflow")
	require.NoError(t, err)
	hub.Deliver(ev)

	assert.Equal(t, 0, hub.RoomSize(room))
	for range c.send {
	}
}

func TestHub_CloseRejectsRegistration(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil)
	c := newTestClient(t, hub, allowAll)
	hub.Join(uuid.New(), c)

	hub.Close()

	_, open := <-c.send
	assert.False(t, open)
	late := NewClient(hub, nil, models.Principal{ID: uuid.New()}, allowAll)
	assert.False(t, hub.Register(late))
}

func TestLocalBroker_Publish(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil)
	room := uuid.New()
	c := newTestClient(t, hub, allowAll)
	hub.Join(room, c)

	broker := NewLocalBroker(hub)
	ev, err := NewMessageEvent(room, "hi")
	require.NoError(t, err)
	require.NoError(t, broker.Publish(context.Background(), ev))
	assert.Equal(t, FrameMessageReceived, nextFrame(t, c).Type)
	assert.NoError(t, broker.Close())
}
