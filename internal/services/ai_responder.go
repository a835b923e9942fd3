package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/novamark/agencydesk-backend/internal/clients/openai"
	"github.com/novamark/agencydesk-backend/internal/domain"
)

// Responder is the external AI collaborator: given a conversation's history
// it returns reply text for the caller to append with the ai sender class.
// Generation itself is out of scope here.
type Responder interface {
	Respond(ctx context.Context, conv *domain.Conversation, history []*domain.Message) (string, error)
}

// cannedResponder acknowledges the client until a support admin picks the
// thread up. Used when no model backend is configured.
type cannedResponder struct{}

func NewCannedResponder() Responder { return &cannedResponder{} }

func (cannedResponder) Respond(_ context.Context, _ *domain.Conversation, history []*domain.Message) (string, error) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].SenderType == domain.SenderAdmin {
			// An admin is already engaged; stay quiet.
			return "", nil
		}
	}
	return "Thanks for reaching out! A member of our team will get back to you shortly.", nil
}

const responderSystemPrompt = "You are the support assistant for a marketing agency's client portal. " +
	"Answer the client's latest message briefly and helpfully. " +
	"If the question needs an account manager, say one will follow up."

type openaiResponder struct {
	ai openai.Client
}

func NewOpenAIResponder(ai openai.Client) Responder {
	return &openaiResponder{ai: ai}
}

func (r *openaiResponder) Respond(ctx context.Context, conv *domain.Conversation, history []*domain.Message) (string, error) {
	if r == nil || r.ai == nil {
		return "", fmt.Errorf("responder not initialized")
	}
	return r.ai.GenerateText(ctx, responderSystemPrompt, formatTranscript(conv, history))
}

// Last few turns, oldest first, tagged by sender class.
func formatTranscript(conv *domain.Conversation, history []*domain.Message) string {
	const maxTurns = 20
	if len(history) > maxTurns {
		history = history[len(history)-maxTurns:]
	}
	var b strings.Builder
	if conv != nil && conv.ProjectID != "" {
		fmt.Fprintf(&b, "(project-scoped conversation %s)\n", conv.ProjectID)
	}
	for _, m := range history {
		fmt.Fprintf(&b, "[%s] %s: %s\n", m.SenderType, m.SenderName, m.Text)
	}
	return b.String()
}
