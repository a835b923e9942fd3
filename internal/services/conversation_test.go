package services

import (
	"context"
	"testing"
	"time"

	"github.com/novamark/agencydesk-backend/internal/domain"
	"github.com/novamark/agencydesk-backend/internal/platform/apierr"
	"github.com/novamark/agencydesk-backend/internal/testutil"
)

func newConversationService(t *testing.T) ConversationService {
	t.Helper()
	return NewConversationService(testutil.Store(t), testutil.Logger(t), nil)
}

func TestConversationCreateValidates(t *testing.T) {
	svc := newConversationService(t)

	if _, err := svc.Create(context.Background(), "", ""); !apierr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestConversationCreateAndGet(t *testing.T) {
	svc := newConversationService(t)
	ctx := context.Background()

	conv, err := svc.Create(ctx, "client-1", "project-9")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if conv.ID == "" || conv.ClientID != "client-1" || conv.ProjectID != "project-9" {
		t.Fatalf("Create: %+v", conv)
	}
	if conv.IsClosed {
		t.Fatalf("new conversation should be open")
	}
	if conv.LastMessage != nil || conv.LastMessageAt != nil {
		t.Fatalf("new conversation should have no preview: %+v", conv)
	}
	if conv.CreatedAt.IsZero() || conv.UpdatedAt.IsZero() {
		t.Fatalf("timestamps not assigned: %+v", conv)
	}

	got, err := svc.Get(ctx, conv.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.ID != conv.ID {
		t.Fatalf("Get: %+v", got)
	}

	missing, err := svc.Get(ctx, "no-such-id")
	if err != nil {
		t.Fatalf("Get (missing): %v", err)
	}
	if missing != nil {
		t.Fatalf("Get (missing): expected nil, got %+v", missing)
	}
}

func TestFindOrCreateActiveReusesOpenConversation(t *testing.T) {
	svc := newConversationService(t)
	ctx := context.Background()

	first, err := svc.FindOrCreateActive(ctx, "client-1", "")
	if err != nil {
		t.Fatalf("FindOrCreateActive: %v", err)
	}
	again, err := svc.FindOrCreateActive(ctx, "client-1", "")
	if err != nil {
		t.Fatalf("FindOrCreateActive (repeat): %v", err)
	}
	if again.ID != first.ID {
		t.Fatalf("expected same conversation, got %s and %s", first.ID, again.ID)
	}

	// A different client never shares a thread.
	other, err := svc.FindOrCreateActive(ctx, "client-2", "")
	if err != nil {
		t.Fatalf("FindOrCreateActive (other client): %v", err)
	}
	if other.ID == first.ID {
		t.Fatalf("conversations leaked across clients")
	}
}

func TestFindOrCreateActiveScopesByProject(t *testing.T) {
	svc := newConversationService(t)
	ctx := context.Background()

	general, err := svc.FindOrCreateActive(ctx, "client-1", "")
	if err != nil {
		t.Fatalf("FindOrCreateActive: %v", err)
	}
	scoped, err := svc.FindOrCreateActive(ctx, "client-1", "project-9")
	if err != nil {
		t.Fatalf("FindOrCreateActive (project): %v", err)
	}
	if scoped.ID == general.ID {
		t.Fatalf("project thread should be separate from the general thread")
	}
	if scoped.ProjectID != "project-9" {
		t.Fatalf("scoped thread: %+v", scoped)
	}

	again, err := svc.FindOrCreateActive(ctx, "client-1", "project-9")
	if err != nil {
		t.Fatalf("FindOrCreateActive (project repeat): %v", err)
	}
	if again.ID != scoped.ID {
		t.Fatalf("expected same project thread, got %s and %s", scoped.ID, again.ID)
	}
}

func TestCloseStartsFreshThread(t *testing.T) {
	svc := newConversationService(t)
	ctx := context.Background()

	first, err := svc.FindOrCreateActive(ctx, "client-1", "")
	if err != nil {
		t.Fatalf("FindOrCreateActive: %v", err)
	}
	if err := svc.Close(ctx, first.ID); err != nil {
		t.Fatalf("Close: %v", err)
	}

	closed, err := svc.Get(ctx, first.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !closed.IsClosed {
		t.Fatalf("conversation should be closed: %+v", closed)
	}

	next, err := svc.FindOrCreateActive(ctx, "client-1", "")
	if err != nil {
		t.Fatalf("FindOrCreateActive (after close): %v", err)
	}
	if next.ID == first.ID {
		t.Fatalf("closed conversation must not be reused")
	}

	// The closed thread stays in the history.
	all, err := svc.ListForClient(ctx, "client-1")
	if err != nil {
		t.Fatalf("ListForClient: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected both threads listed, got %d", len(all))
	}
}

func TestListForClientOrdersByRecentActivity(t *testing.T) {
	svc := newConversationService(t)
	ctx := context.Background()

	older, err := svc.Create(ctx, "client-1", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	newer, err := svc.Create(ctx, "client-1", "project-9")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Touching the older thread moves it back to the top.
	if err := svc.Close(ctx, older.ID); err != nil {
		t.Fatalf("Close: %v", err)
	}

	convs, err := svc.ListForClient(ctx, "client-1")
	if err != nil {
		t.Fatalf("ListForClient: %v", err)
	}
	if len(convs) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(convs))
	}
	if convs[0].ID != older.ID || convs[1].ID != newer.ID {
		t.Fatalf("unexpected order: %s, %s", convs[0].ID, convs[1].ID)
	}
}

func TestSubscribeForClientSeesLifecycle(t *testing.T) {
	svc := newConversationService(t)
	ctx := context.Background()

	sets := make(chan []*domain.Conversation, 16)
	unsub := svc.SubscribeForClient("client-1", func(convs []*domain.Conversation) {
		sets <- convs
	})
	defer unsub()

	if initial := waitConvs(t, sets); len(initial) != 0 {
		t.Fatalf("initial snapshot should be empty, got %d", len(initial))
	}

	conv, err := svc.Create(ctx, "client-1", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	created := waitConvs(t, sets)
	if len(created) != 1 || created[0].ID != conv.ID {
		t.Fatalf("after create: %+v", created)
	}

	if err := svc.Close(ctx, conv.ID); err != nil {
		t.Fatalf("Close: %v", err)
	}
	closed := waitConvs(t, sets)
	if len(closed) != 1 || !closed[0].IsClosed {
		t.Fatalf("after close: %+v", closed)
	}

	// Another client's thread does not reach this subscription.
	if _, err := svc.Create(ctx, "client-2", ""); err != nil {
		t.Fatalf("Create (other): %v", err)
	}
	select {
	case convs := <-sets:
		t.Fatalf("unexpected delivery: %+v", convs)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestSubscribeAllSpansClients(t *testing.T) {
	svc := newConversationService(t)
	ctx := context.Background()

	sets := make(chan []*domain.Conversation, 16)
	unsub := svc.SubscribeAll(func(convs []*domain.Conversation) {
		sets <- convs
	})
	defer unsub()

	if initial := waitConvs(t, sets); len(initial) != 0 {
		t.Fatalf("initial snapshot should be empty, got %d", len(initial))
	}

	first, err := svc.Create(ctx, "client-1", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if convs := waitConvs(t, sets); len(convs) != 1 || convs[0].ID != first.ID {
		t.Fatalf("after first create: %+v", convs)
	}

	// Unlike per-client subscriptions, the inbox view sees every client.
	second, err := svc.Create(ctx, "client-2", "")
	if err != nil {
		t.Fatalf("Create (other client): %v", err)
	}
	convs := waitConvs(t, sets)
	if len(convs) != 2 {
		t.Fatalf("after second create: %+v", convs)
	}
	if convs[0].ID != second.ID || convs[1].ID != first.ID {
		t.Fatalf("expected recency order, got %s, %s", convs[0].ID, convs[1].ID)
	}

	if err := svc.Close(ctx, first.ID); err != nil {
		t.Fatalf("Close: %v", err)
	}
	convs = waitConvs(t, sets)
	if len(convs) != 2 || convs[0].ID != first.ID || !convs[0].IsClosed {
		t.Fatalf("after close: %+v", convs)
	}
}

func waitConvs(tb testing.TB, ch <-chan []*domain.Conversation) []*domain.Conversation {
	tb.Helper()
	select {
	case convs := <-ch:
		return convs
	case <-time.After(2 * time.Second):
		tb.Fatalf("timed out waiting for conversation delivery")
		return nil
	}
}
