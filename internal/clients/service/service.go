// Package service implements client management and sender identity resolution.
package service

import (
	"context"
	"errors"
	"strings"

	"procurement_backend/internal/clients/repository"
	"procurement_backend/internal/requests/domain"
	"procurement_backend/internal/requests/ports"
	"procurement_backend/platform/apperr"
	"procurement_backend/platform/logger"
	"procurement_backend/platform/phone"

	"github.com/google/uuid"
)

// Service provides client CRUD and implements ports.ContactResolver.
type Service struct {
	repo *repository.Repository
	log  *logger.Logger
}

// New creates a new clients service.
func New(repo *repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// CreateInput carries the fields for a new client.
type CreateInput struct {
	Name  string
	Phone string
	Email string
}

// Create registers a client. Phone is normalized to E.164 and email lowercased
// so webhook sender identities match without per-query normalization.
func (s *Service) Create(ctx context.Context, in CreateInput) (repository.Client, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return repository.Client{}, apperr.Validation("name is required")
	}

	client := repository.Client{Name: name}
	if p := strings.TrimSpace(in.Phone); p != "" {
		normalized := phone.NormalizeE164(p)
		client.Phone = &normalized
	}
	if e := strings.TrimSpace(in.Email); e != "" {
		lowered := strings.ToLower(e)
		client.Email = &lowered
	}

	if err := s.repo.Create(ctx, &client); err != nil {
		return repository.Client{}, err
	}
	return client, nil
}

// Get returns a client by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (repository.Client, error) {
	client, err := s.repo.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Client{}, apperr.NotFound("client not found")
	}
	return client, err
}

// List returns all active clients.
func (s *Service) List(ctx context.Context) ([]repository.Client, error) {
	return s.repo.List(ctx)
}

// ContactInput carries the fields for an additional contact.
type ContactInput struct {
	Name  string
	Phone string
	Email string
}

// AddContact registers an additional contact for a client.
func (s *Service) AddContact(ctx context.Context, clientID uuid.UUID, in ContactInput) (repository.Contact, error) {
	if _, err := s.Get(ctx, clientID); err != nil {
		return repository.Contact{}, err
	}

	contact := repository.Contact{ClientID: clientID, Name: strings.TrimSpace(in.Name)}
	if p := strings.TrimSpace(in.Phone); p != "" {
		normalized := phone.NormalizeE164(p)
		contact.Phone = &normalized
	}
	if e := strings.TrimSpace(in.Email); e != "" {
		lowered := strings.ToLower(e)
		contact.Email = &lowered
	}

	if err := s.repo.AddContact(ctx, &contact); err != nil {
		return repository.Contact{}, err
	}
	return contact, nil
}

// ListContacts returns a client's additional contacts.
func (s *Service) ListContacts(ctx context.Context, clientID uuid.UUID) ([]repository.Contact, error) {
	if _, err := s.Get(ctx, clientID); err != nil {
		return nil, err
	}
	return s.repo.ListContacts(ctx, clientID)
}

// ResolveSender maps a channel sender identity to a known client. WhatsApp
// identities are phone numbers; email identities are addresses. Unknown
// senders resolve to nil without error.
func (s *Service) ResolveSender(ctx context.Context, channel, senderIdentity string) (*ports.ContactMatch, error) {
	identity := strings.TrimSpace(senderIdentity)
	if identity == "" {
		return nil, nil
	}

	var match *repository.Match
	var err error
	switch channel {
	case domain.SourceWhatsApp:
		match, err = s.repo.FindByPhone(ctx, phone.NormalizeE164(identity))
	case domain.SourceEmail:
		match, err = s.repo.FindByEmail(ctx, strings.ToLower(identity))
	default:
		// Web and API senders carry emails when they carry anything resolvable.
		if strings.Contains(identity, "@") {
			match, err = s.repo.FindByEmail(ctx, strings.ToLower(identity))
		} else {
			match, err = s.repo.FindByPhone(ctx, phone.NormalizeE164(identity))
		}
	}
	if err != nil || match == nil {
		return nil, err
	}
	return &ports.ContactMatch{ClientID: match.ClientID, Name: match.Name}, nil
}

// Compile-time check that Service implements ports.ContactResolver
var _ ports.ContactResolver = (*Service)(nil)
