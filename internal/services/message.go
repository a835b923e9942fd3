package services

import (
	"context"
	"strings"
	"time"

	"github.com/novamark/agencydesk-backend/internal/domain"
	"github.com/novamark/agencydesk-backend/internal/platform/apierr"
	"github.com/novamark/agencydesk-backend/internal/platform/logger"
	"github.com/novamark/agencydesk-backend/internal/store"
)

type SendMessageInput struct {
	ConversationID string
	SenderID       string
	SenderName     string
	SenderType     string
	Text           string
	Attachments    []domain.Attachment
}

type MessageService interface {
	// Send appends one message and then updates the parent conversation's
	// preview fields. The two writes are not atomic: a preview failure after
	// a durable append is logged and accepted, never rolled back.
	Send(ctx context.Context, in SendMessageInput) (*domain.Message, error)

	// List returns the conversation's full log ascending by creation time.
	List(ctx context.Context, conversationID string) ([]*domain.Message, error)

	// Subscribe delivers the full ordered log on every change.
	Subscribe(conversationID string, onChange func([]*domain.Message)) store.Unsubscribe

	// MarkThreadRead flags the other parties' messages as read from the
	// viewer's perspective. The viewer's own messages are untouched.
	MarkThreadRead(ctx context.Context, conversationID, viewerClass string) error
}

type messageService struct {
	records       store.Store
	log           *logger.Logger
	conversations ConversationService
	notify        ChatNotifier

	responder     Responder
	assistantName string
}

func NewMessageService(
	records store.Store,
	baseLog *logger.Logger,
	conversations ConversationService,
	notify ChatNotifier,
	responder Responder,
) MessageService {
	return &messageService{
		records:       records,
		log:           baseLog.With("service", "MessageService"),
		conversations: conversations,
		notify:        notify,
		responder:     responder,
		assistantName: "Studio Assistant",
	}
}

var createdAsc = store.Ordering{Field: "createdAt"}

func (s *messageService) Send(ctx context.Context, in SendMessageInput) (*domain.Message, error) {
	msg := &domain.Message{
		ConversationID: strings.TrimSpace(in.ConversationID),
		SenderID:       strings.TrimSpace(in.SenderID),
		SenderName:     strings.TrimSpace(in.SenderName),
		SenderType:     in.SenderType,
		Text:           strings.TrimSpace(in.Text),
		Attachments:    in.Attachments,
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	// Referential integrity is caller-enforced, so verify the parent here
	// before anything is written.
	conv, err := s.conversations.Get(ctx, msg.ConversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, apierr.NotFound("conversation %s not found", msg.ConversationID)
	}

	doc, err := domain.ToDoc(msg)
	if err != nil {
		return nil, apierr.Validation("encode message: %v", err)
	}
	doc["read"] = false

	id, err := s.records.Create(ctx, domain.CollectionMessages, doc)
	if err != nil {
		return nil, err
	}
	rec, err := s.records.Get(ctx, domain.CollectionMessages, id)
	if err != nil || rec == nil {
		return nil, apierr.IO(err)
	}
	created, err := messageFromRecord(rec)
	if err != nil {
		return nil, err
	}

	// Denormalized preview. The message is already durable; a failure here
	// leaves the preview stale until the next successful send.
	if err := s.records.Update(ctx, domain.CollectionConversations, conv.ID, map[string]any{
		"lastMessage":   created.Text,
		"lastMessageAt": created.CreatedAt.Format(time.RFC3339Nano),
	}); err != nil {
		s.log.Warn("conversation preview update failed",
			"conversation_id", conv.ID, "message_id", created.ID, "error", err)
	}

	if s.notify != nil {
		s.notify.MessageCreated(conv, created)
	}

	if created.SenderType == domain.SenderClient && s.responder != nil {
		go s.respond(conv)
	}

	return created, nil
}

func (s *messageService) List(ctx context.Context, conversationID string) ([]*domain.Message, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, apierr.Validation("missing conversation reference")
	}
	recs, err := s.records.List(ctx, domain.CollectionMessages,
		[]store.Filter{store.Eq("conversationId", conversationID)}, createdAsc, 0)
	if err != nil {
		return nil, err
	}
	return messagesFromRecords(recs)
}

func (s *messageService) Subscribe(conversationID string, onChange func([]*domain.Message)) store.Unsubscribe {
	return s.records.Subscribe(domain.CollectionMessages,
		[]store.Filter{store.Eq("conversationId", conversationID)}, createdAsc, func(recs []store.Record) {
			msgs, err := messagesFromRecords(recs)
			if err != nil {
				s.log.Warn("message snapshot decode failed", "conversation_id", conversationID, "error", err)
				return
			}
			onChange(msgs)
		})
}

func (s *messageService) MarkThreadRead(ctx context.Context, conversationID, viewerClass string) error {
	if strings.TrimSpace(conversationID) == "" {
		return apierr.Validation("missing conversation reference")
	}
	recs, err := s.records.List(ctx, domain.CollectionMessages, []store.Filter{
		store.Eq("conversationId", conversationID),
		store.Eq("read", false),
	}, createdAsc, 0)
	if err != nil {
		return err
	}
	for i := range recs {
		msg, err := messageFromRecord(&recs[i])
		if err != nil {
			s.log.Warn("skipping undecodable message", "id", recs[i].ID, "error", err)
			continue
		}
		if msg.SenderType == viewerClass {
			continue
		}
		if err := s.records.Update(ctx, domain.CollectionMessages, msg.ID, map[string]any{
			"read": true,
		}); err != nil {
			return err
		}
	}
	if s.notify != nil {
		if conv, err := s.conversations.Get(ctx, conversationID); err == nil && conv != nil {
			s.notify.ThreadRead(conv, viewerClass)
		}
	}
	return nil
}

func (s *messageService) respond(conv *domain.Conversation) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	history, err := s.List(ctx, conv.ID)
	if err != nil {
		s.log.Warn("assistant history load failed", "conversation_id", conv.ID, "error", err)
		return
	}
	reply, err := s.responder.Respond(ctx, conv, history)
	if err != nil {
		s.log.Warn("assistant response failed", "conversation_id", conv.ID, "error", err)
		return
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return
	}
	if _, err := s.Send(ctx, SendMessageInput{
		ConversationID: conv.ID,
		SenderID:       "assistant",
		SenderName:     s.assistantName,
		SenderType:     domain.SenderAI,
		Text:           reply,
	}); err != nil {
		s.log.Warn("assistant send failed", "conversation_id", conv.ID, "error", err)
	}
}

// UnreadCount is the viewer-side derivation every presentation surface does
// for itself: other parties' messages not yet read.
func UnreadCount(msgs []*domain.Message, viewerClass string) int {
	n := 0
	for _, m := range msgs {
		if !m.Read && m.SenderType != viewerClass {
			n++
		}
	}
	return n
}

func messageFromRecord(rec *store.Record) (*domain.Message, error) {
	var msg domain.Message
	if err := domain.FromDoc(rec.Doc, &msg); err != nil {
		return nil, apierr.IO(err)
	}
	return &msg, nil
}

func messagesFromRecords(recs []store.Record) ([]*domain.Message, error) {
	out := make([]*domain.Message, 0, len(recs))
	for i := range recs {
		msg, err := messageFromRecord(&recs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, nil
}
