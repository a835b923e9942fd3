package domain

import (
	"strings"
	"time"

	"github.com/novamark/agencydesk-backend/internal/platform/apierr"
)

const CollectionMessages = "messages"

// Sender classes. A message's author is exactly one of these.
const (
	SenderClient = "client"
	SenderAdmin  = "admin"
	SenderAI     = "ai"
	SenderSystem = "system"
)

const MaxMessageLength = 20000

type Attachment struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	MimeType string `json:"mimeType,omitempty"`
}

// Message is one immutable unit of conversation content. Only the read flag
// may change after creation.
type Message struct {
	ID             string       `json:"id"`
	ConversationID string       `json:"conversationId"`
	SenderID       string       `json:"senderId"`
	SenderName     string       `json:"senderName"`
	SenderType     string       `json:"senderType"`
	Text           string       `json:"text"`
	Attachments    []Attachment `json:"attachments,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
	Read           bool         `json:"read"`
}

func ValidSenderType(t string) bool {
	switch t {
	case SenderClient, SenderAdmin, SenderAI, SenderSystem:
		return true
	}
	return false
}

func (m *Message) Validate() error {
	if strings.TrimSpace(m.ConversationID) == "" {
		return apierr.Validation("message requires a conversation reference")
	}
	if strings.TrimSpace(m.SenderID) == "" {
		return apierr.Validation("message requires a sender reference")
	}
	if !ValidSenderType(m.SenderType) {
		return apierr.Validation("unknown sender type %q", m.SenderType)
	}
	if strings.TrimSpace(m.Text) == "" {
		return apierr.Validation("message text is empty")
	}
	if len(m.Text) > MaxMessageLength {
		return apierr.Validation("message text too long")
	}
	return nil
}
