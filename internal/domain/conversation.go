package domain

import (
	"strings"
	"time"

	"github.com/novamark/agencydesk-backend/internal/platform/apierr"
)

const CollectionConversations = "conversations"

// Conversation is a thread container owned by one client, optionally scoped to
// one project. LastMessage/LastMessageAt are denormalized previews maintained
// by MessageService on every append; ListMessages remains ground truth when
// the preview is stale.
type Conversation struct {
	ID            string     `json:"id"`
	ClientID      string     `json:"clientId"`
	ProjectID     string     `json:"projectId,omitempty"`
	IsClosed      bool       `json:"isClosed"`
	LastMessage   *string    `json:"lastMessage,omitempty"`
	LastMessageAt *time.Time `json:"lastMessageAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func (c *Conversation) Validate() error {
	if strings.TrimSpace(c.ClientID) == "" {
		return apierr.Validation("conversation requires a client reference")
	}
	return nil
}
