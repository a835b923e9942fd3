package services

import (
	"context"
	"strings"

	"github.com/novamark/agencydesk-backend/internal/domain"
	"github.com/novamark/agencydesk-backend/internal/platform/apierr"
	"github.com/novamark/agencydesk-backend/internal/platform/logger"
	"github.com/novamark/agencydesk-backend/internal/store"
)

type ConversationService interface {
	Create(ctx context.Context, clientID, projectID string) (*domain.Conversation, error)
	// Get returns nil, nil for a missing id.
	Get(ctx context.Context, id string) (*domain.Conversation, error)
	// ListForClient orders most-recently-updated first.
	ListForClient(ctx context.Context, clientID string) ([]*domain.Conversation, error)
	ListAll(ctx context.Context) ([]*domain.Conversation, error)
	// FindOrCreateActive picks the first open conversation for the client
	// (optionally scoped to a project), creating one when none exists.
	FindOrCreateActive(ctx context.Context, clientID, projectID string) (*domain.Conversation, error)
	Close(ctx context.Context, id string) error

	// Live views over the same orderings as the list calls.
	SubscribeAll(onChange func([]*domain.Conversation)) store.Unsubscribe
	SubscribeForClient(clientID string, onChange func([]*domain.Conversation)) store.Unsubscribe
	SubscribeOne(id string, onChange func(*domain.Conversation)) store.Unsubscribe
}

type conversationService struct {
	records store.Store
	log     *logger.Logger
	notify  ChatNotifier
}

func NewConversationService(records store.Store, baseLog *logger.Logger, notify ChatNotifier) ConversationService {
	return &conversationService{
		records: records,
		log:     baseLog.With("service", "ConversationService"),
		notify:  notify,
	}
}

var updatedDesc = store.Ordering{Field: "updatedAt", Desc: true}

func (s *conversationService) Create(ctx context.Context, clientID, projectID string) (*domain.Conversation, error) {
	conv := &domain.Conversation{
		ClientID:  strings.TrimSpace(clientID),
		ProjectID: strings.TrimSpace(projectID),
	}
	if err := conv.Validate(); err != nil {
		return nil, err
	}
	doc, err := domain.ToDoc(conv)
	if err != nil {
		return nil, apierr.Validation("encode conversation: %v", err)
	}
	id, err := s.records.Create(ctx, domain.CollectionConversations, doc)
	if err != nil {
		return nil, err
	}
	created, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.notify != nil && created != nil {
		s.notify.ConversationCreated(created)
	}
	return created, nil
}

func (s *conversationService) Get(ctx context.Context, id string) (*domain.Conversation, error) {
	rec, err := s.records.Get(ctx, domain.CollectionConversations, id)
	if err != nil || rec == nil {
		return nil, err
	}
	return conversationFromRecord(rec)
}

func (s *conversationService) ListForClient(ctx context.Context, clientID string) ([]*domain.Conversation, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, apierr.Validation("missing client reference")
	}
	recs, err := s.records.List(ctx, domain.CollectionConversations,
		[]store.Filter{store.Eq("clientId", clientID)}, updatedDesc, 0)
	if err != nil {
		return nil, err
	}
	return conversationsFromRecords(recs)
}

func (s *conversationService) ListAll(ctx context.Context) ([]*domain.Conversation, error) {
	recs, err := s.records.List(ctx, domain.CollectionConversations, nil, updatedDesc, 0)
	if err != nil {
		return nil, err
	}
	return conversationsFromRecords(recs)
}

// FindOrCreateActive does not enforce single-open-conversation at the store
// level: two racing calls can each create one. Discovery heals by picking the
// most-recently-updated open conversation on the next call.
func (s *conversationService) FindOrCreateActive(ctx context.Context, clientID, projectID string) (*domain.Conversation, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, apierr.Validation("missing client reference")
	}
	filters := []store.Filter{store.Eq("clientId", clientID)}
	if strings.TrimSpace(projectID) != "" {
		filters = append(filters, store.Eq("projectId", projectID))
	}
	recs, err := s.records.List(ctx, domain.CollectionConversations, filters, updatedDesc, 0)
	if err != nil {
		return nil, err
	}
	for i := range recs {
		conv, err := conversationFromRecord(&recs[i])
		if err != nil {
			s.log.Warn("skipping undecodable conversation", "id", recs[i].ID, "error", err)
			continue
		}
		if !conv.IsClosed {
			return conv, nil
		}
	}
	return s.Create(ctx, clientID, projectID)
}

func (s *conversationService) Close(ctx context.Context, id string) error {
	if err := s.records.Update(ctx, domain.CollectionConversations, id, map[string]any{
		"isClosed": true,
	}); err != nil {
		return err
	}
	if s.notify != nil {
		if conv, err := s.Get(ctx, id); err == nil && conv != nil {
			s.notify.ConversationClosed(conv)
		}
	}
	return nil
}

func (s *conversationService) SubscribeAll(onChange func([]*domain.Conversation)) store.Unsubscribe {
	return s.records.Subscribe(domain.CollectionConversations, nil, updatedDesc, func(recs []store.Record) {
		convs, err := conversationsFromRecords(recs)
		if err != nil {
			s.log.Warn("conversation snapshot decode failed", "error", err)
			return
		}
		onChange(convs)
	})
}

func (s *conversationService) SubscribeForClient(clientID string, onChange func([]*domain.Conversation)) store.Unsubscribe {
	return s.records.Subscribe(domain.CollectionConversations,
		[]store.Filter{store.Eq("clientId", clientID)}, updatedDesc, func(recs []store.Record) {
			convs, err := conversationsFromRecords(recs)
			if err != nil {
				s.log.Warn("conversation snapshot decode failed", "error", err)
				return
			}
			onChange(convs)
		})
}

func (s *conversationService) SubscribeOne(id string, onChange func(*domain.Conversation)) store.Unsubscribe {
	return s.records.SubscribeOne(domain.CollectionConversations, id, func(rec *store.Record) {
		if rec == nil {
			onChange(nil)
			return
		}
		conv, err := conversationFromRecord(rec)
		if err != nil {
			s.log.Warn("conversation decode failed", "id", rec.ID, "error", err)
			return
		}
		onChange(conv)
	})
}

func conversationFromRecord(rec *store.Record) (*domain.Conversation, error) {
	var conv domain.Conversation
	if err := domain.FromDoc(rec.Doc, &conv); err != nil {
		return nil, apierr.IO(err)
	}
	return &conv, nil
}

func conversationsFromRecords(recs []store.Record) ([]*domain.Conversation, error) {
	out := make([]*domain.Conversation, 0, len(recs))
	for i := range recs {
		conv, err := conversationFromRecord(&recs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, conv)
	}
	return out, nil
}
