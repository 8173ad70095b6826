package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/helpdesk-io/support-service/internal/domain"
	"github.com/helpdesk-io/support-service/internal/repository"
	apperrors "github.com/helpdesk-io/support-service/pkg/util"
)

// ClientService is the client directory.
type ClientService struct {
	clients repository.ClientRepository
	users   repository.UserRepository
}

// NewClientService constructs the service.
func NewClientService(clients repository.ClientRepository, users repository.UserRepository) *ClientService {
	return &ClientService{clients: clients, users: users}
}

// ClientInput describes create/update payloads.
type ClientInput struct {
	Name         string
	Company      string
	ContactEmail string
	UserID       *string
}

// Create registers a client, resolving the linked user when given.
func (s *ClientService) Create(ctx context.Context, input ClientInput) (*domain.Client, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperrors.NewValidationError("name is required", nil)
	}
	if input.UserID != nil {
		if _, err := s.users.GetByID(ctx, *input.UserID); err != nil {
			return nil, storeErr(err, "user", *input.UserID)
		}
	}
	client := &domain.Client{
		Name:         strings.TrimSpace(input.Name),
		Company:      input.Company,
		ContactEmail: input.ContactEmail,
		UserID:       input.UserID,
	}
	if err := s.clients.Create(ctx, client); err != nil {
		return nil, apperrors.NewUnavailable(err)
	}
	return client, nil
}

// GetByID resolves a client or reports NotFound.
func (s *ClientService) GetByID(ctx context.Context, id string) (*domain.Client, error) {
	client, err := s.clients.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "client", id)
	}
	return client, nil
}

// List returns all clients.
func (s *ClientService) List(ctx context.Context) ([]domain.Client, error) {
	clients, err := s.clients.List(ctx)
	if err != nil {
		return nil, apperrors.NewUnavailable(err)
	}
	return clients, nil
}

// Update merges non-empty fields into an existing client.
func (s *ClientService) Update(ctx context.Context, id string, input ClientInput) (*domain.Client, error) {
	client, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Name) != "" {
		client.Name = strings.TrimSpace(input.Name)
	}
	if input.Company != "" {
		client.Company = input.Company
	}
	if input.ContactEmail != "" {
		client.ContactEmail = input.ContactEmail
	}
	if input.UserID != nil {
		if _, err := s.users.GetByID(ctx, *input.UserID); err != nil {
			return nil, storeErr(err, "user", *input.UserID)
		}
		client.UserID = input.UserID
	}
	if err := s.clients.Update(ctx, client); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("client", map[string]any{"id": id})
		}
		return nil, apperrors.NewUnavailable(err)
	}
	return client, nil
}

// Delete removes a client.
func (s *ClientService) Delete(ctx context.Context, id string) error {
	if err := s.clients.Delete(ctx, id); err != nil {
		return storeErr(err, "client", id)
	}
	return nil
}
