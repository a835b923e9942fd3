package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/novamark/agencydesk-backend/internal/domain"
	"github.com/novamark/agencydesk-backend/internal/platform/apierr"
	"github.com/novamark/agencydesk-backend/internal/testutil"
)

type chatFixture struct {
	conversations ConversationService
	messages      MessageService
}

// newChatFixture wires conversation and message services over one store.
// responder may be nil to disable the assistant.
func newChatFixture(t *testing.T, responder Responder) *chatFixture {
	t.Helper()
	records := testutil.Store(t)
	log := testutil.Logger(t)
	conversations := NewConversationService(records, log, nil)
	messages := NewMessageService(records, log, conversations, nil, responder)
	return &chatFixture{conversations: conversations, messages: messages}
}

func (f *chatFixture) openThread(t *testing.T, clientID string) *domain.Conversation {
	t.Helper()
	conv, err := f.conversations.FindOrCreateActive(context.Background(), clientID, "")
	if err != nil {
		t.Fatalf("FindOrCreateActive: %v", err)
	}
	return conv
}

func (f *chatFixture) send(t *testing.T, convID, senderType, text string) *domain.Message {
	t.Helper()
	msg, err := f.messages.Send(context.Background(), SendMessageInput{
		ConversationID: convID,
		SenderID:       senderType + "-1",
		SenderName:     strings.ToUpper(senderType[:1]) + senderType[1:],
		SenderType:     senderType,
		Text:           text,
	})
	if err != nil {
		t.Fatalf("Send (%s): %v", senderType, err)
	}
	return msg
}

func TestSendValidationWritesNothing(t *testing.T) {
	f := newChatFixture(t, nil)
	ctx := context.Background()
	conv := f.openThread(t, "client-1")

	cases := []struct {
		name string
		in   SendMessageInput
	}{
		{"empty text", SendMessageInput{ConversationID: conv.ID, SenderID: "c", SenderName: "C", SenderType: domain.SenderClient}},
		{"whitespace text", SendMessageInput{ConversationID: conv.ID, SenderID: "c", SenderName: "C", SenderType: domain.SenderClient, Text: "   "}},
		{"oversized text", SendMessageInput{ConversationID: conv.ID, SenderID: "c", SenderName: "C", SenderType: domain.SenderClient, Text: strings.Repeat("x", domain.MaxMessageLength+1)}},
		{"bad sender type", SendMessageInput{ConversationID: conv.ID, SenderID: "c", SenderName: "C", SenderType: "robot", Text: "hi"}},
		{"missing conversation ref", SendMessageInput{SenderID: "c", SenderName: "C", SenderType: domain.SenderClient, Text: "hi"}},
	}
	for _, tc := range cases {
		if _, err := f.messages.Send(ctx, tc.in); !apierr.IsValidation(err) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
	}

	msgs, err := f.messages.List(ctx, conv.ID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("rejected sends must not persist, got %d messages", len(msgs))
	}
}

func TestSendToMissingConversation(t *testing.T) {
	f := newChatFixture(t, nil)

	_, err := f.messages.Send(context.Background(), SendMessageInput{
		ConversationID: "no-such-thread",
		SenderID:       "c",
		SenderName:     "C",
		SenderType:     domain.SenderClient,
		Text:           "hi",
	})
	if !apierr.IsNotFound(err) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestSendAppendsInOrder(t *testing.T) {
	f := newChatFixture(t, nil)
	ctx := context.Background()
	conv := f.openThread(t, "client-1")

	f.send(t, conv.ID, domain.SenderClient, "first")
	f.send(t, conv.ID, domain.SenderAdmin, "second")
	f.send(t, conv.ID, domain.SenderClient, "third")

	msgs, err := f.messages.List(ctx, conv.ID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	for i, want := range []string{"first", "second", "third"} {
		if msgs[i].Text != want {
			t.Fatalf("msgs[%d].Text = %q, want %q", i, msgs[i].Text, want)
		}
	}
	if msgs[0].Read {
		t.Fatalf("new messages start unread")
	}
}

func TestSendUpdatesConversationPreview(t *testing.T) {
	f := newChatFixture(t, nil)
	ctx := context.Background()
	conv := f.openThread(t, "client-1")

	f.send(t, conv.ID, domain.SenderClient, "hello there")
	sent := f.send(t, conv.ID, domain.SenderAdmin, "on it")

	got, err := f.conversations.Get(ctx, conv.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.LastMessage == nil || *got.LastMessage != "on it" {
		t.Fatalf("LastMessage = %v", got.LastMessage)
	}
	if got.LastMessageAt == nil || !got.LastMessageAt.Equal(sent.CreatedAt) {
		t.Fatalf("LastMessageAt = %v, want %v", got.LastMessageAt, sent.CreatedAt)
	}
}

func TestMarkThreadReadIsViewerScoped(t *testing.T) {
	f := newChatFixture(t, nil)
	ctx := context.Background()
	conv := f.openThread(t, "client-1")

	f.send(t, conv.ID, domain.SenderClient, "question")
	f.send(t, conv.ID, domain.SenderAdmin, "answer")

	// The admin opens the thread: the client's message is now read, the
	// admin's own message stays unread from the client's perspective.
	if err := f.messages.MarkThreadRead(ctx, conv.ID, domain.SenderAdmin); err != nil {
		t.Fatalf("MarkThreadRead: %v", err)
	}

	msgs, err := f.messages.List(ctx, conv.ID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	byText := map[string]*domain.Message{}
	for _, m := range msgs {
		byText[m.Text] = m
	}
	if !byText["question"].Read {
		t.Fatalf("client message should be read after admin views the thread")
	}
	if byText["answer"].Read {
		t.Fatalf("admin message must not be marked read by the admin's own view")
	}

	if n := UnreadCount(msgs, domain.SenderAdmin); n != 0 {
		t.Fatalf("admin unread = %d, want 0", n)
	}
	if n := UnreadCount(msgs, domain.SenderClient); n != 1 {
		t.Fatalf("client unread = %d, want 1", n)
	}

	// Now the client catches up.
	if err := f.messages.MarkThreadRead(ctx, conv.ID, domain.SenderClient); err != nil {
		t.Fatalf("MarkThreadRead (client): %v", err)
	}
	msgs, err = f.messages.List(ctx, conv.ID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if n := UnreadCount(msgs, domain.SenderClient); n != 0 {
		t.Fatalf("client unread after catch-up = %d, want 0", n)
	}
}

func TestSubscribeFansOutToMultipleListeners(t *testing.T) {
	f := newChatFixture(t, nil)
	conv := f.openThread(t, "client-1")

	a := make(chan []*domain.Message, 16)
	b := make(chan []*domain.Message, 16)
	unsubA := f.messages.Subscribe(conv.ID, func(msgs []*domain.Message) { a <- msgs })
	defer unsubA()
	unsubB := f.messages.Subscribe(conv.ID, func(msgs []*domain.Message) { b <- msgs })
	defer unsubB()

	waitMsgs(t, a)
	waitMsgs(t, b)

	f.send(t, conv.ID, domain.SenderClient, "hello")

	gotA := waitMsgs(t, a)
	gotB := waitMsgs(t, b)
	if len(gotA) != 1 || gotA[0].Text != "hello" {
		t.Fatalf("listener a: %+v", gotA)
	}
	if len(gotB) != 1 || gotB[0].Text != "hello" {
		t.Fatalf("listener b: %+v", gotB)
	}

	// Dropping one listener leaves the other live.
	unsubA()
	f.send(t, conv.ID, domain.SenderAdmin, "still here")
	if got := waitMsgs(t, b); len(got) != 2 {
		t.Fatalf("listener b after second send: %d messages", len(got))
	}
	select {
	case msgs := <-a:
		t.Fatalf("listener a delivered after unsubscribe: %d messages", len(msgs))
	case <-time.After(200 * time.Millisecond):
	}
}

func TestAssistantAcknowledgesUntilAdminEngages(t *testing.T) {
	f := newChatFixture(t, NewCannedResponder())
	ctx := context.Background()
	conv := f.openThread(t, "client-1")

	f.send(t, conv.ID, domain.SenderClient, "Hello, I need help with my campaign")

	msgs := waitForMessageCount(t, f.messages, conv.ID, 2)
	if msgs[1].SenderType != domain.SenderAI {
		t.Fatalf("expected assistant reply, got %+v", msgs[1])
	}
	if msgs[1].Text == "" {
		t.Fatalf("assistant reply empty")
	}

	// Once an admin has replied, the assistant stays quiet.
	f.send(t, conv.ID, domain.SenderAdmin, "Hi, taking over from here")
	f.send(t, conv.ID, domain.SenderClient, "Thanks!")

	time.Sleep(300 * time.Millisecond)
	final, err := f.messages.List(ctx, conv.ID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(final) != 4 {
		t.Fatalf("expected 4 messages (no second assistant reply), got %d", len(final))
	}
}

func waitMsgs(tb testing.TB, ch <-chan []*domain.Message) []*domain.Message {
	tb.Helper()
	select {
	case msgs := <-ch:
		return msgs
	case <-time.After(2 * time.Second):
		tb.Fatalf("timed out waiting for message delivery")
		return nil
	}
}

func waitForMessageCount(tb testing.TB, svc MessageService, convID string, want int) []*domain.Message {
	tb.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		msgs, err := svc.List(context.Background(), convID)
		if err != nil {
			tb.Fatalf("List: %v", err)
		}
		if len(msgs) >= want {
			return msgs
		}
		if time.Now().After(deadline) {
			tb.Fatalf("timed out waiting for %d messages, have %d", want, len(msgs))
		}
		time.Sleep(10 * time.Millisecond)
	}
}
