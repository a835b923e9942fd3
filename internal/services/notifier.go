package services

import (
	"github.com/novamark/agencydesk-backend/internal/domain"
	"github.com/novamark/agencydesk-backend/internal/realtime"
	"github.com/novamark/agencydesk-backend/internal/sse"
)

// ChatNotifier pushes conversation lifecycle events to connected browsers.
// Delivery is advisory; the record store subscriptions remain ground truth.
type ChatNotifier interface {
	ConversationCreated(conv *domain.Conversation)
	ConversationClosed(conv *domain.Conversation)
	MessageCreated(conv *domain.Conversation, msg *domain.Message)
	ThreadRead(conv *domain.Conversation, viewerClass string)
}

type hubNotifier struct {
	hub *sse.Hub
}

func NewChatNotifier(hub *sse.Hub) ChatNotifier {
	return &hubNotifier{hub: hub}
}

func (n *hubNotifier) ConversationCreated(conv *domain.Conversation) {
	n.emit(conv, realtime.SSEEventConversationCreated, map[string]any{"conversation": conv})
}

func (n *hubNotifier) ConversationClosed(conv *domain.Conversation) {
	n.emit(conv, realtime.SSEEventConversationClosed, map[string]any{"conversation": conv})
}

func (n *hubNotifier) MessageCreated(conv *domain.Conversation, msg *domain.Message) {
	n.emit(conv, realtime.SSEEventMessageCreated, map[string]any{
		"conversation_id": conv.ID,
		"message":         msg,
	})
}

func (n *hubNotifier) ThreadRead(conv *domain.Conversation, viewerClass string) {
	n.emit(conv, realtime.SSEEventThreadRead, map[string]any{
		"conversation_id": conv.ID,
		"viewer":          viewerClass,
	})
}

func (n *hubNotifier) emit(conv *domain.Conversation, event realtime.SSEEvent, data map[string]any) {
	if n == nil || n.hub == nil || conv == nil {
		return
	}
	for _, channel := range []string{
		realtime.UserChannel(conv.ClientID),
		realtime.ConversationChannel(conv.ID),
		realtime.AdminChannel,
	} {
		n.hub.Broadcast(realtime.SSEMessage{Channel: channel, Event: event, Data: data})
	}
}
