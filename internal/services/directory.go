package services

import (
	"context"
	"strings"

	"github.com/novamark/agencydesk-backend/internal/domain"
	"github.com/novamark/agencydesk-backend/internal/platform/apierr"
	"github.com/novamark/agencydesk-backend/internal/platform/logger"
	"github.com/novamark/agencydesk-backend/internal/store"
)

// DirectoryService manages the client and project records the conversation
// core references. Plain record storage; the store enforces nothing, so the
// project→client reference is checked here.
type DirectoryService interface {
	CreateClient(ctx context.Context, name, email, company string) (*domain.Client, error)
	GetClient(ctx context.Context, id string) (*domain.Client, error)
	ListClients(ctx context.Context) ([]*domain.Client, error)

	CreateProject(ctx context.Context, clientID, name string) (*domain.Project, error)
	GetProject(ctx context.Context, id string) (*domain.Project, error)
	ListProjectsForClient(ctx context.Context, clientID string) ([]*domain.Project, error)
}

type directoryService struct {
	records store.Store
	log     *logger.Logger
}

func NewDirectoryService(records store.Store, baseLog *logger.Logger) DirectoryService {
	return &directoryService{
		records: records,
		log:     baseLog.With("service", "DirectoryService"),
	}
}

func (s *directoryService) CreateClient(ctx context.Context, name, email, company string) (*domain.Client, error) {
	client := &domain.Client{
		Name:    strings.TrimSpace(name),
		Email:   strings.TrimSpace(email),
		Company: strings.TrimSpace(company),
	}
	if err := client.Validate(); err != nil {
		return nil, err
	}
	doc, err := domain.ToDoc(client)
	if err != nil {
		return nil, apierr.Validation("encode client: %v", err)
	}
	id, err := s.records.Create(ctx, domain.CollectionClients, doc)
	if err != nil {
		return nil, err
	}
	return s.GetClient(ctx, id)
}

func (s *directoryService) GetClient(ctx context.Context, id string) (*domain.Client, error) {
	rec, err := s.records.Get(ctx, domain.CollectionClients, id)
	if err != nil || rec == nil {
		return nil, err
	}
	var client domain.Client
	if err := domain.FromDoc(rec.Doc, &client); err != nil {
		return nil, apierr.IO(err)
	}
	return &client, nil
}

func (s *directoryService) ListClients(ctx context.Context) ([]*domain.Client, error) {
	recs, err := s.records.List(ctx, domain.CollectionClients, nil,
		store.Ordering{Field: "name"}, 0)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Client, 0, len(recs))
	for i := range recs {
		var client domain.Client
		if err := domain.FromDoc(recs[i].Doc, &client); err != nil {
			return nil, apierr.IO(err)
		}
		out = append(out, &client)
	}
	return out, nil
}

func (s *directoryService) CreateProject(ctx context.Context, clientID, name string) (*domain.Project, error) {
	project := &domain.Project{
		ClientID: strings.TrimSpace(clientID),
		Name:     strings.TrimSpace(name),
		Status:   "active",
	}
	if err := project.Validate(); err != nil {
		return nil, err
	}
	owner, err := s.GetClient(ctx, project.ClientID)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, apierr.NotFound("client %s not found", project.ClientID)
	}
	doc, err := domain.ToDoc(project)
	if err != nil {
		return nil, apierr.Validation("encode project: %v", err)
	}
	id, err := s.records.Create(ctx, domain.CollectionProjects, doc)
	if err != nil {
		return nil, err
	}
	return s.GetProject(ctx, id)
}

func (s *directoryService) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	rec, err := s.records.Get(ctx, domain.CollectionProjects, id)
	if err != nil || rec == nil {
		return nil, err
	}
	var project domain.Project
	if err := domain.FromDoc(rec.Doc, &project); err != nil {
		return nil, apierr.IO(err)
	}
	return &project, nil
}

func (s *directoryService) ListProjectsForClient(ctx context.Context, clientID string) ([]*domain.Project, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, apierr.Validation("missing client reference")
	}
	recs, err := s.records.List(ctx, domain.CollectionProjects,
		[]store.Filter{store.Eq("clientId", clientID)},
		store.Ordering{Field: "createdAt", Desc: true}, 0)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Project, 0, len(recs))
	for i := range recs {
		var project domain.Project
		if err := domain.FromDoc(recs[i].Doc, &project); err != nil {
			return nil, apierr.IO(err)
		}
		out = append(out, &project)
	}
	return out, nil
}
