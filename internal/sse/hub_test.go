package sse

import (
	"testing"

	"github.com/google/uuid"

	"github.com/novamark/agencydesk-backend/internal/realtime"
	"github.com/novamark/agencydesk-backend/internal/testutil"
)

func TestBroadcastReachesSubscribedClients(t *testing.T) {
	hub := NewHub(testutil.Logger(t))

	userA := hub.NewClient(uuid.New())
	userB := hub.NewClient(uuid.New())
	hub.AddChannel(userA, "conversation:1")
	hub.AddChannel(userB, "conversation:2")

	hub.Broadcast(realtime.SSEMessage{
		Channel: "conversation:1",
		Event:   realtime.SSEEventMessageCreated,
	})

	select {
	case msg := <-userA.Outbound:
		if msg.Event != realtime.SSEEventMessageCreated {
			t.Fatalf("unexpected event: %s", msg.Event)
		}
	default:
		t.Fatalf("subscribed client received nothing")
	}
	select {
	case msg := <-userB.Outbound:
		t.Fatalf("unsubscribed client received %+v", msg)
	default:
	}
}

func TestBroadcastAfterRemove(t *testing.T) {
	hub := NewHub(testutil.Logger(t))

	client := hub.NewClient(uuid.New())
	hub.AddChannel(client, "admin:inbox")
	hub.RemoveClient(client)

	hub.Broadcast(realtime.SSEMessage{Channel: "admin:inbox", Event: realtime.SSEEventConversationCreated})

	select {
	case msg := <-client.Outbound:
		t.Fatalf("removed client received %+v", msg)
	default:
	}
}

func TestSlowConsumerDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub(testutil.Logger(t))

	client := hub.NewClient(uuid.New())
	hub.AddChannel(client, "user:1")

	// Nothing drains Outbound; broadcasts past the buffer must not block.
	for i := 0; i < cap(client.Outbound)+5; i++ {
		hub.Broadcast(realtime.SSEMessage{Channel: "user:1", Event: realtime.SSEEventMessageCreated})
	}
	if len(client.Outbound) != cap(client.Outbound) {
		t.Fatalf("expected full buffer, got %d", len(client.Outbound))
	}
}

func TestAddChannelIgnoresBlank(t *testing.T) {
	hub := NewHub(testutil.Logger(t))

	client := hub.NewClient(uuid.New())
	hub.AddChannel(client, "  ")
	if len(client.Channels) != 0 {
		t.Fatalf("blank channel registered: %+v", client.Channels)
	}
}
