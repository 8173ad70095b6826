package service

import (
	"context"
	"strings"

	"github.com/helpdesk-io/support-service/internal/domain"
	"github.com/helpdesk-io/support-service/internal/repository"
	apperrors "github.com/helpdesk-io/support-service/pkg/util"
)

// TechnicianService is the technician directory. Besides CRUD it reports a
// technician's current IN_PROGRESS workload.
type TechnicianService struct {
	technicians repository.TechnicianRepository
	tickets     repository.TicketRepository
}

// NewTechnicianService constructs the service.
func NewTechnicianService(technicians repository.TechnicianRepository, tickets repository.TicketRepository) *TechnicianService {
	return &TechnicianService{technicians: technicians, tickets: tickets}
}

// TechnicianInput describes create/update payloads.
type TechnicianInput struct {
	Name           string
	Email          string
	Phone          string
	Specialization string
	Availability   *bool
}

// Create registers a technician.
func (s *TechnicianService) Create(ctx context.Context, input TechnicianInput) (*domain.Technician, error) {
	if strings.TrimSpace(input.Name) == "" || strings.TrimSpace(input.Email) == "" {
		return nil, apperrors.NewValidationError("name and email are required", nil)
	}
	technician := &domain.Technician{
		Name:           strings.TrimSpace(input.Name),
		Email:          strings.TrimSpace(input.Email),
		Phone:          input.Phone,
		Specialization: input.Specialization,
		Availability:   true,
	}
	if input.Availability != nil {
		technician.Availability = *input.Availability
	}
	if err := s.technicians.Create(ctx, technician); err != nil {
		return nil, apperrors.NewUnavailable(err)
	}
	return technician, nil
}

// GetByID resolves a technician or reports NotFound.
func (s *TechnicianService) GetByID(ctx context.Context, id string) (*domain.Technician, error) {
	technician, err := s.technicians.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "technician", id)
	}
	return technician, nil
}

// List returns all technicians.
func (s *TechnicianService) List(ctx context.Context) ([]domain.Technician, error) {
	technicians, err := s.technicians.List(ctx)
	if err != nil {
		return nil, apperrors.NewUnavailable(err)
	}
	return technicians, nil
}

// CountInProgress reports the technician's current IN_PROGRESS workload.
// The count is always fresh; it is never cached.
func (s *TechnicianService) CountInProgress(ctx context.Context, id string) (int, error) {
	if _, err := s.GetByID(ctx, id); err != nil {
		return 0, err
	}
	count, err := s.tickets.CountByTechnicianAndStatus(ctx, id, domain.TicketStatusInProgress)
	if err != nil {
		return 0, apperrors.NewUnavailable(err)
	}
	return count, nil
}

// Update merges non-empty fields into an existing technician.
func (s *TechnicianService) Update(ctx context.Context, id string, input TechnicianInput) (*domain.Technician, error) {
	technician, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Name) != "" {
		technician.Name = strings.TrimSpace(input.Name)
	}
	if strings.TrimSpace(input.Email) != "" {
		technician.Email = strings.TrimSpace(input.Email)
	}
	if input.Phone != "" {
		technician.Phone = input.Phone
	}
	if input.Specialization != "" {
		technician.Specialization = input.Specialization
	}
	if input.Availability != nil {
		technician.Availability = *input.Availability
	}
	if err := s.technicians.Update(ctx, technician); err != nil {
		return nil, storeErr(err, "technician", id)
	}
	return technician, nil
}

// Delete removes a technician.
func (s *TechnicianService) Delete(ctx context.Context, id string) error {
	if err := s.technicians.Delete(ctx, id); err != nil {
		return storeErr(err, "technician", id)
	}
	return nil
}
