package services

import (
	"context"
	"testing"

	"github.com/novamark/agencydesk-backend/internal/platform/apierr"
	"github.com/novamark/agencydesk-backend/internal/testutil"
)

func TestDirectoryClientsAndProjects(t *testing.T) {
	svc := NewDirectoryService(testutil.Store(t), testutil.Logger(t))
	ctx := context.Background()

	client, err := svc.CreateClient(ctx, "Acme Corp", "ops@acme.test", "Acme")
	if err != nil {
		t.Fatalf("CreateClient: %v", err)
	}
	if client.ID == "" || client.Name != "Acme Corp" {
		t.Fatalf("CreateClient: %+v", client)
	}

	if _, err := svc.CreateClient(ctx, "", "x@y.test", ""); !apierr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}

	project, err := svc.CreateProject(ctx, client.ID, "Spring Campaign")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if project.ClientID != client.ID || project.Status != "active" {
		t.Fatalf("CreateProject: %+v", project)
	}

	// Projects require an existing owner.
	if _, err := svc.CreateProject(ctx, "no-such-client", "Orphan"); !apierr.IsNotFound(err) {
		t.Fatalf("expected NotFound, got %v", err)
	}

	projects, err := svc.ListProjectsForClient(ctx, client.ID)
	if err != nil {
		t.Fatalf("ListProjectsForClient: %v", err)
	}
	if len(projects) != 1 || projects[0].ID != project.ID {
		t.Fatalf("ListProjectsForClient: %+v", projects)
	}

	clients, err := svc.ListClients(ctx)
	if err != nil {
		t.Fatalf("ListClients: %v", err)
	}
	if len(clients) != 1 {
		t.Fatalf("ListClients: %d", len(clients))
	}
}
