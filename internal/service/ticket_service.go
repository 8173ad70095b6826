package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/helpdesk-io/support-service/internal/domain"
	"github.com/helpdesk-io/support-service/internal/events"
	"github.com/helpdesk-io/support-service/internal/repository"
	apperrors "github.com/helpdesk-io/support-service/pkg/util"
)

// TicketService is the lifecycle engine: it owns creation, field edits,
// status transitions, deletion and listing, and enforces the state machine
// plus the technician admission rule.
type TicketService struct {
	tickets       repository.TicketRepository
	clients       repository.ClientRepository
	technicians   repository.TechnicianRepository
	categories    repository.CategoryRepository
	dispatcher    events.Dispatcher
	maxInProgress int
}

// TicketDependencies bundles collaborators for the lifecycle engine.
type TicketDependencies struct {
	TicketRepo     repository.TicketRepository
	ClientRepo     repository.ClientRepository
	TechnicianRepo repository.TechnicianRepository
	CategoryRepo   repository.CategoryRepository
	Dispatcher     events.Dispatcher
	MaxInProgress  int
}

// TicketCreateInput describes ticket creation payload. Status and Priority
// are optional; empty values default to OPEN and MEDIUM.
type TicketCreateInput struct {
	Title        string
	Description  string
	Status       domain.TicketStatus
	Priority     domain.TicketPriority
	ClientID     string
	CategoryID   string
	TechnicianID *string
}

// TechnicianPatch is a tagged optional: Set=false leaves the assignment
// unchanged, Set=true with a nil ID clears it, Set=true with an ID
// reassigns.
type TechnicianPatch struct {
	Set bool
	ID  *string
}

// TicketUpdateInput describes a field edit. Status is deliberately absent:
// status changes go through TransitionStatus only.
type TicketUpdateInput struct {
	Title       *string
	Description *string
	Priority    *domain.TicketPriority
	ClientID    *string
	CategoryID  *string
	Technician  TechnicianPatch
}

// NewTicketService constructs the engine.
func NewTicketService(deps TicketDependencies) *TicketService {
	maxInProgress := deps.MaxInProgress
	if maxInProgress <= 0 {
		maxInProgress = domain.MaxInProgressPerTechnician
	}
	return &TicketService{
		tickets:       deps.TicketRepo,
		clients:       deps.ClientRepo,
		technicians:   deps.TechnicianRepo,
		categories:    deps.CategoryRepo,
		dispatcher:    deps.Dispatcher,
		maxInProgress: maxInProgress,
	}
}

// Create resolves the referenced client, category and (optional) technician,
// then persists the ticket. A technician assigned up front goes through
// capacity admission regardless of the requested initial status.
func (s *TicketService) Create(ctx context.Context, actor domain.Principal, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, apperrors.NewValidationError("title and description are required", nil)
	}
	status := input.Status
	if status == "" {
		status = domain.TicketStatusOpen
	}
	if !domain.IsValidStatus(status) {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": input.Status})
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !domain.IsValidPriority(priority) {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": input.Priority})
	}

	if _, err := s.clients.GetByID(ctx, input.ClientID); err != nil {
		return nil, storeErr(err, "client", input.ClientID)
	}
	if _, err := s.categories.GetByID(ctx, input.CategoryID); err != nil {
		return nil, storeErr(err, "category", input.CategoryID)
	}
	if input.TechnicianID != nil {
		if _, err := s.technicians.GetByID(ctx, *input.TechnicianID); err != nil {
			return nil, storeErr(err, "technician", *input.TechnicianID)
		}
	}

	ticket := &domain.Ticket{
		Title:        title,
		Description:  description,
		Status:       status,
		Priority:     priority,
		ClientID:     input.ClientID,
		CategoryID:   input.CategoryID,
		TechnicianID: input.TechnicianID,
	}

	if ticket.TechnicianID != nil {
		if err := s.tickets.CreateAdmitted(ctx, ticket, s.maxInProgress); err != nil {
			return nil, s.admissionErr(err, *ticket.TechnicianID)
		}
	} else {
		if err := s.tickets.Create(ctx, ticket); err != nil {
			return nil, apperrors.NewUnavailable(err)
		}
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    eventActor(actor),
		Payload: events.TicketCreatedPayload{
			ClientID:     ticket.ClientID,
			CategoryID:   ticket.CategoryID,
			TechnicianID: ticket.TechnicianID,
			Status:       ticket.Status,
			Priority:     ticket.Priority,
			Title:        ticket.Title,
		},
	})
	return ticket, nil
}

// GetByID loads a single ticket.
func (s *TicketService) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "ticket", id)
	}
	return ticket, nil
}

// List returns tickets matching the filter, most recent first.
func (s *TicketService) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	tickets, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewUnavailable(err)
	}
	return tickets, nil
}

// ListByClient resolves the client, then returns its tickets newest first.
func (s *TicketService) ListByClient(ctx context.Context, clientID string) ([]domain.Ticket, error) {
	if _, err := s.clients.GetByID(ctx, clientID); err != nil {
		return nil, storeErr(err, "client", clientID)
	}
	return s.List(ctx, repository.TicketFilter{ClientID: &clientID})
}

// ListByTechnician resolves the technician, then returns its tickets newest first.
func (s *TicketService) ListByTechnician(ctx context.Context, technicianID string) ([]domain.Ticket, error) {
	if _, err := s.technicians.GetByID(ctx, technicianID); err != nil {
		return nil, storeErr(err, "technician", technicianID)
	}
	return s.List(ctx, repository.TicketFilter{TechnicianID: &technicianID})
}

// UpdateFields merges a patch of data fields. It never changes status; the
// state machine is not consulted here. Assigning a different technician to
// a ticket that is already IN_PROGRESS re-runs capacity admission; clearing
// the assignment never does.
func (s *TicketService) UpdateFields(ctx context.Context, actor domain.Principal, id string, patch TicketUpdateInput) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "ticket", id)
	}

	if patch.ClientID != nil {
		if _, err := s.clients.GetByID(ctx, *patch.ClientID); err != nil {
			return nil, storeErr(err, "client", *patch.ClientID)
		}
		ticket.ClientID = *patch.ClientID
	}
	if patch.CategoryID != nil {
		if _, err := s.categories.GetByID(ctx, *patch.CategoryID); err != nil {
			return nil, storeErr(err, "category", *patch.CategoryID)
		}
		ticket.CategoryID = *patch.CategoryID
	}

	needsAdmission := false
	assignmentChanged := false
	if patch.Technician.Set {
		if patch.Technician.ID == nil {
			assignmentChanged = ticket.TechnicianID != nil
			ticket.TechnicianID = nil
		} else {
			newID := *patch.Technician.ID
			if _, err := s.technicians.GetByID(ctx, newID); err != nil {
				return nil, storeErr(err, "technician", newID)
			}
			if ticket.TechnicianID == nil || *ticket.TechnicianID != newID {
				assignmentChanged = true
				needsAdmission = ticket.Status == domain.TicketStatusInProgress
			}
			ticket.TechnicianID = &newID
		}
	}

	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return nil, apperrors.NewValidationError("title must not be empty", nil)
		}
		ticket.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		if strings.TrimSpace(*patch.Description) == "" {
			return nil, apperrors.NewValidationError("description must not be empty", nil)
		}
		ticket.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Priority != nil {
		if !domain.IsValidPriority(*patch.Priority) {
			return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": *patch.Priority})
		}
		ticket.Priority = *patch.Priority
	}

	if needsAdmission {
		if err := s.tickets.SaveAdmitted(ctx, ticket, s.maxInProgress); err != nil {
			return nil, s.admissionErr(err, *ticket.TechnicianID)
		}
	} else {
		if err := s.tickets.Save(ctx, ticket); err != nil {
			return nil, storeErr(err, "ticket", id)
		}
	}

	if assignmentChanged {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketAssigned,
			TicketID: ticket.ID,
			Actor:    eventActor(actor),
			Payload:  events.TicketAssignedPayload{TechnicianID: ticket.TechnicianID},
		})
	}
	return ticket, nil
}

// TransitionStatus moves a ticket through the state machine. Entering
// IN_PROGRESS with an assigned technician re-runs capacity admission;
// failing it leaves the stored status untouched.
func (s *TicketService) TransitionStatus(ctx context.Context, actor domain.Principal, id string, target domain.TicketStatus) (*domain.Ticket, error) {
	if !domain.IsValidStatus(target) {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": target})
	}
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "ticket", id)
	}

	if err := domain.ValidateTransition(ticket.Status, target); err != nil {
		var te *domain.TransitionError
		if !errors.As(err, &te) {
			return nil, apperrors.NewInvalidTransition(err.Error(), nil)
		}
		return nil, apperrors.NewInvalidTransition(te.Error(), map[string]any{
			"from":          te.From,
			"to":            te.To,
			"valid_targets": te.Allowed,
		})
	}

	oldStatus := ticket.Status
	ticket.Status = target

	if target == domain.TicketStatusInProgress && ticket.TechnicianID != nil {
		if err := s.tickets.SaveAdmitted(ctx, ticket, s.maxInProgress); err != nil {
			return nil, s.admissionErr(err, *ticket.TechnicianID)
		}
	} else {
		if err := s.tickets.Save(ctx, ticket); err != nil {
			return nil, storeErr(err, "ticket", id)
		}
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    eventActor(actor),
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: target,
		},
	})
	return ticket, nil
}

// Remove deletes a ticket. Removal is final; there is no soft delete.
func (s *TicketService) Remove(ctx context.Context, actor domain.Principal, id string) error {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return storeErr(err, "ticket", id)
	}
	if err := s.tickets.Delete(ctx, id); err != nil {
		return storeErr(err, "ticket", id)
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: ticket.ID,
		Actor:    eventActor(actor),
		Payload:  events.TicketDeletedPayload{ClientID: ticket.ClientID},
	})
	return nil
}

func (s *TicketService) admissionErr(err error, technicianID string) error {
	if errors.Is(err, repository.ErrCapacityExceeded) {
		return apperrors.NewCapacityExceeded(
			"technician already has the maximum number of tickets in progress",
			map[string]any{"technician_id": technicianID, "limit": s.maxInProgress},
		)
	}
	return apperrors.NewUnavailable(err)
}

// storeErr maps repository failures: missing rows become NotFound for the
// named entity, anything else is a collaborator outage.
func storeErr(err error, resource, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	return apperrors.NewUnavailable(err)
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func eventActor(p domain.Principal) events.Actor {
	return events.Actor{UserID: p.UserID, Role: p.Role}
}
