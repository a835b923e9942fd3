package domain

import (
	"strings"
	"time"

	"github.com/novamark/agencydesk-backend/internal/platform/apierr"
)

const (
	CollectionClients  = "clients"
	CollectionProjects = "projects"
)

// Client is an agency customer. Plain record, no algorithmic content; the
// conversation core only needs it as a reference target and for inbox display.
type Client struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Company   string    `json:"company,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *Client) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return apierr.Validation("client requires a name")
	}
	if strings.TrimSpace(c.Email) == "" {
		return apierr.Validation("client requires an email")
	}
	return nil
}

type Project struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"clientId"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (p *Project) Validate() error {
	if strings.TrimSpace(p.ClientID) == "" {
		return apierr.Validation("project requires a client reference")
	}
	if strings.TrimSpace(p.Name) == "" {
		return apierr.Validation("project requires a name")
	}
	return nil
}
