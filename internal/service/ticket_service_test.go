package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/helpdesk-io/support-service/internal/domain"
	"github.com/helpdesk-io/support-service/internal/events"
	"github.com/helpdesk-io/support-service/internal/repository"
	apperrors "github.com/helpdesk-io/support-service/pkg/util"
)

// memTicketRepo is an in-memory TicketRepository. Admitted writes enforce
// the in-progress limit the way the Postgres implementation does, so the
// engine's admission paths can be exercised without a database.
type memTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]domain.Ticket
	nextID  int
}

func newMemTicketRepo() *memTicketRepo {
	return &memTicketRepo{tickets: make(map[string]domain.Ticket)}
}

func (r *memTicketRepo) put(ticket *domain.Ticket) {
	if ticket.ID == "" {
		r.nextID++
		ticket.ID = fmt.Sprintf("ticket-%d", r.nextID)
		ticket.CreatedAt = time.Now()
	}
	ticket.UpdatedAt = time.Now()
	r.tickets[ticket.ID] = *ticket
}

func (r *memTicketRepo) inProgressCount(technicianID, excludeID string) int {
	count := 0
	for _, t := range r.tickets {
		if t.ID == excludeID {
			continue
		}
		if t.TechnicianID != nil && *t.TechnicianID == technicianID && t.Status == domain.TicketStatusInProgress {
			count++
		}
	}
	return count
}

func (r *memTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.put(ticket)
	return nil
}

// CreateAdmitted mirrors the Postgres gate: a technician assignment is
// denied whenever the technician's IN_PROGRESS load is at the limit, no
// matter what status the new ticket itself carries.
func (r *memTicketRepo) CreateAdmitted(ctx context.Context, ticket *domain.Ticket, maxInProgress int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ticket.TechnicianID != nil {
		if r.inProgressCount(*ticket.TechnicianID, "") >= maxInProgress {
			return repository.ErrCapacityExceeded
		}
	}
	r.put(ticket)
	return nil
}

func (r *memTicketRepo) Save(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.put(ticket)
	return nil
}

func (r *memTicketRepo) SaveAdmitted(ctx context.Context, ticket *domain.Ticket, maxInProgress int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	if ticket.TechnicianID != nil {
		if r.inProgressCount(*ticket.TechnicianID, ticket.ID) >= maxInProgress {
			return repository.ErrCapacityExceeded
		}
	}
	r.put(ticket)
	return nil
}

func (r *memTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &t, nil
}

func (r *memTicketRepo) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Ticket
	for _, t := range r.tickets {
		if filter.ClientID != nil && t.ClientID != *filter.ClientID {
			continue
		}
		if filter.TechnicianID != nil && (t.TechnicianID == nil || *t.TechnicianID != *filter.TechnicianID) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *memTicketRepo) CountByTechnicianAndStatus(ctx context.Context, technicianID string, status domain.TicketStatus) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, t := range r.tickets {
		if t.TechnicianID != nil && *t.TechnicianID == technicianID && t.Status == status {
			count++
		}
	}
	return count, nil
}

func (r *memTicketRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.tickets, id)
	return nil
}

func (r *memTicketRepo) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tickets)
}

type memClientRepo struct{ clients map[string]domain.Client }

func (r *memClientRepo) Create(ctx context.Context, c *domain.Client) error { return nil }
func (r *memClientRepo) Update(ctx context.Context, c *domain.Client) error { return nil }
func (r *memClientRepo) List(ctx context.Context) ([]domain.Client, error)  { return nil, nil }
func (r *memClientRepo) Delete(ctx context.Context, id string) error        { return nil }
func (r *memClientRepo) GetByID(ctx context.Context, id string) (*domain.Client, error) {
	c, ok := r.clients[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &c, nil
}

type memTechnicianRepo struct{ technicians map[string]domain.Technician }

func (r *memTechnicianRepo) Create(ctx context.Context, t *domain.Technician) error { return nil }
func (r *memTechnicianRepo) Update(ctx context.Context, t *domain.Technician) error { return nil }
func (r *memTechnicianRepo) List(ctx context.Context) ([]domain.Technician, error)  { return nil, nil }
func (r *memTechnicianRepo) Delete(ctx context.Context, id string) error            { return nil }
func (r *memTechnicianRepo) GetByID(ctx context.Context, id string) (*domain.Technician, error) {
	t, ok := r.technicians[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &t, nil
}

type memCategoryRepo struct{ categories map[string]domain.Category }

func (r *memCategoryRepo) Create(ctx context.Context, c *domain.Category) error { return nil }
func (r *memCategoryRepo) Update(ctx context.Context, c *domain.Category) error { return nil }
func (r *memCategoryRepo) List(ctx context.Context) ([]domain.Category, error)  { return nil, nil }
func (r *memCategoryRepo) Delete(ctx context.Context, id string) error          { return nil }
func (r *memCategoryRepo) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	c, ok := r.categories[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &c, nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, 0, len(d.events))
	for _, e := range d.events {
		out = append(out, e.Type)
	}
	return out
}

type ticketFixture struct {
	svc        *TicketService
	tickets    *memTicketRepo
	dispatcher *recordingDispatcher
}

func newTicketFixture(maxInProgress int) *ticketFixture {
	tickets := newMemTicketRepo()
	dispatcher := &recordingDispatcher{}
	svc := NewTicketService(TicketDependencies{
		TicketRepo: tickets,
		ClientRepo: &memClientRepo{clients: map[string]domain.Client{
			"client-1": {ID: "client-1", Name: "Acme"},
		}},
		TechnicianRepo: &memTechnicianRepo{technicians: map[string]domain.Technician{
			"tech-1": {ID: "tech-1", Name: "Dana", Availability: true},
			"tech-2": {ID: "tech-2", Name: "Lee", Availability: true},
		}},
		CategoryRepo: &memCategoryRepo{categories: map[string]domain.Category{
			"cat-1": {ID: "cat-1", Name: "Network"},
		}},
		Dispatcher:    dispatcher,
		MaxInProgress: maxInProgress,
	})
	return &ticketFixture{svc: svc, tickets: tickets, dispatcher: dispatcher}
}

var testActor = domain.Principal{UserID: "actor-1", Role: domain.RoleAdmin}

func wantDomainCode(t *testing.T, err error, code string) *apperrors.DomainError {
	t.Helper()
	var de *apperrors.DomainError
	if !errors.As(err, &de) {
		t.Fatalf("expected DomainError %s, got %v", code, err)
	}
	if de.Code != code {
		t.Fatalf("want code %s, got %s (%s)", code, de.Code, de.Message)
	}
	return de
}

func TestCreateDefaults(t *testing.T) {
	fx := newTicketFixture(5)

	ticket, err := fx.svc.Create(context.Background(), testActor, TicketCreateInput{
		Title:       "printer jam",
		Description: "third floor printer is stuck",
		ClientID:    "client-1",
		CategoryID:  "cat-1",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ticket.ID == "" {
		t.Error("expected generated id")
	}
	if ticket.Status != domain.TicketStatusOpen {
		t.Errorf("want default status OPEN, got %s", ticket.Status)
	}
	if ticket.Priority != domain.TicketPriorityMedium {
		t.Errorf("want default priority MEDIUM, got %s", ticket.Priority)
	}
	if ticket.TechnicianID != nil {
		t.Errorf("want no technician, got %v", *ticket.TechnicianID)
	}
	if got := fx.dispatcher.types(); len(got) != 1 || got[0] != events.EventTicketCreated {
		t.Errorf("want one created event, got %v", got)
	}
}

func TestCreateValidation(t *testing.T) {
	fx := newTicketFixture(5)
	ctx := context.Background()

	tests := []struct {
		name  string
		input TicketCreateInput
		code  string
	}{
		{
			name:  "blank title",
			input: TicketCreateInput{Title: "  ", Description: "d", ClientID: "client-1", CategoryID: "cat-1"},
			code:  "VALIDATION_FAILED",
		},
		{
			name:  "unknown status",
			input: TicketCreateInput{Title: "t", Description: "d", Status: "PENDING", ClientID: "client-1", CategoryID: "cat-1"},
			code:  "VALIDATION_FAILED",
		},
		{
			name:  "unknown priority",
			input: TicketCreateInput{Title: "t", Description: "d", Priority: "EXTREME", ClientID: "client-1", CategoryID: "cat-1"},
			code:  "VALIDATION_FAILED",
		},
		{
			name:  "missing client",
			input: TicketCreateInput{Title: "t", Description: "d", ClientID: "nope", CategoryID: "cat-1"},
			code:  "NOT_FOUND",
		},
		{
			name:  "missing category",
			input: TicketCreateInput{Title: "t", Description: "d", ClientID: "client-1", CategoryID: "nope"},
			code:  "NOT_FOUND",
		},
		{
			name:  "missing technician",
			input: TicketCreateInput{Title: "t", Description: "d", ClientID: "client-1", CategoryID: "cat-1", TechnicianID: strptr("ghost")},
			code:  "NOT_FOUND",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := fx.svc.Create(ctx, testActor, tc.input)
			wantDomainCode(t, err, tc.code)
		})
	}
	if fx.tickets.len() != 0 {
		t.Errorf("rejected creates must not persist, store has %d tickets", fx.tickets.len())
	}
}

func TestCreateCapacityExceeded(t *testing.T) {
	fx := newTicketFixture(2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := fx.svc.Create(ctx, testActor, TicketCreateInput{
			Title:        fmt.Sprintf("ticket %d", i),
			Description:  "busy",
			Status:       domain.TicketStatusInProgress,
			ClientID:     "client-1",
			CategoryID:   "cat-1",
			TechnicianID: strptr("tech-1"),
		})
		if err != nil {
			t.Fatalf("seed create %d: %v", i, err)
		}
	}

	_, err := fx.svc.Create(ctx, testActor, TicketCreateInput{
		Title:        "one too many",
		Description:  "over the line",
		Status:       domain.TicketStatusInProgress,
		ClientID:     "client-1",
		CategoryID:   "cat-1",
		TechnicianID: strptr("tech-1"),
	})
	de := wantDomainCode(t, err, "CAPACITY_EXCEEDED")
	if de.Details["technician_id"] != "tech-1" {
		t.Errorf("want technician_id in details, got %v", de.Details)
	}
	if fx.tickets.len() != 2 {
		t.Errorf("rejected ticket must not persist, store has %d", fx.tickets.len())
	}

	// A different technician is unaffected by tech-1's load.
	if _, err := fx.svc.Create(ctx, testActor, TicketCreateInput{
		Title:        "other queue",
		Description:  "fine",
		Status:       domain.TicketStatusInProgress,
		ClientID:     "client-1",
		CategoryID:   "cat-1",
		TechnicianID: strptr("tech-2"),
	}); err != nil {
		t.Fatalf("create for tech-2: %v", err)
	}
}

func TestCreateAssignedToSaturatedTechnicianRejectedRegardlessOfStatus(t *testing.T) {
	fx := newTicketFixture(1)
	ctx := context.Background()

	if _, err := fx.svc.Create(ctx, testActor, TicketCreateInput{
		Title: "occupies the slot", Description: "d", Status: domain.TicketStatusInProgress,
		ClientID: "client-1", CategoryID: "cat-1", TechnicianID: strptr("tech-1"),
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// The admission gate fires on assignment, not on the new ticket's own
	// status: even an OPEN ticket cannot be handed to a full technician.
	_, err := fx.svc.Create(ctx, testActor, TicketCreateInput{
		Title: "queued for a full technician", Description: "d",
		ClientID: "client-1", CategoryID: "cat-1", TechnicianID: strptr("tech-1"),
	})
	wantDomainCode(t, err, "CAPACITY_EXCEEDED")
	if fx.tickets.len() != 1 {
		t.Errorf("rejected ticket must not persist, store has %d", fx.tickets.len())
	}
}

func TestCreateOpenTicketsDoNotCountAgainstCapacity(t *testing.T) {
	fx := newTicketFixture(1)
	ctx := context.Background()

	// An OPEN ticket with an assigned technician does not consume a slot.
	if _, err := fx.svc.Create(ctx, testActor, TicketCreateInput{
		Title: "queued", Description: "d", ClientID: "client-1", CategoryID: "cat-1",
		TechnicianID: strptr("tech-1"),
	}); err != nil {
		t.Fatalf("open create: %v", err)
	}
	if _, err := fx.svc.Create(ctx, testActor, TicketCreateInput{
		Title: "active", Description: "d", Status: domain.TicketStatusInProgress,
		ClientID: "client-1", CategoryID: "cat-1", TechnicianID: strptr("tech-1"),
	}); err != nil {
		t.Fatalf("in-progress create: %v", err)
	}
}

func TestTransitionStatus(t *testing.T) {
	fx := newTicketFixture(5)
	ctx := context.Background()

	ticket, err := fx.svc.Create(ctx, testActor, TicketCreateInput{
		Title: "t", Description: "d", ClientID: "client-1", CategoryID: "cat-1",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// OPEN -> RESOLVED skips a state and must be rejected without touching
	// the stored status.
	_, err = fx.svc.TransitionStatus(ctx, testActor, ticket.ID, domain.TicketStatusResolved)
	de := wantDomainCode(t, err, "INVALID_TRANSITION")
	if de.Details["from"] != domain.TicketStatusOpen {
		t.Errorf("want from=OPEN in details, got %v", de.Details)
	}
	stored, _ := fx.svc.GetByID(ctx, ticket.ID)
	if stored.Status != domain.TicketStatusOpen {
		t.Fatalf("rejected transition must not change status, got %s", stored.Status)
	}

	for _, target := range []domain.TicketStatus{
		domain.TicketStatusInProgress,
		domain.TicketStatusResolved,
		domain.TicketStatusClosed,
	} {
		updated, err := fx.svc.TransitionStatus(ctx, testActor, ticket.ID, target)
		if err != nil {
			t.Fatalf("transition to %s: %v", target, err)
		}
		if updated.Status != target {
			t.Fatalf("want status %s, got %s", target, updated.Status)
		}
	}

	// CLOSED is terminal.
	_, err = fx.svc.TransitionStatus(ctx, testActor, ticket.ID, domain.TicketStatusOpen)
	wantDomainCode(t, err, "INVALID_TRANSITION")

	_, err = fx.svc.TransitionStatus(ctx, testActor, ticket.ID, "LIMBO")
	wantDomainCode(t, err, "VALIDATION_FAILED")

	_, err = fx.svc.TransitionStatus(ctx, testActor, "missing", domain.TicketStatusInProgress)
	wantDomainCode(t, err, "NOT_FOUND")
}

func TestTransitionIntoInProgressChecksCapacity(t *testing.T) {
	fx := newTicketFixture(1)
	ctx := context.Background()

	busy, err := fx.svc.Create(ctx, testActor, TicketCreateInput{
		Title: "busy", Description: "d", Status: domain.TicketStatusInProgress,
		ClientID: "client-1", CategoryID: "cat-1", TechnicianID: strptr("tech-1"),
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	waiting, err := fx.svc.Create(ctx, testActor, TicketCreateInput{
		Title: "waiting", Description: "d", ClientID: "client-1", CategoryID: "cat-1",
		TechnicianID: strptr("tech-1"),
	})
	if err != nil {
		t.Fatalf("create waiting: %v", err)
	}

	_, err = fx.svc.TransitionStatus(ctx, testActor, waiting.ID, domain.TicketStatusInProgress)
	wantDomainCode(t, err, "CAPACITY_EXCEEDED")
	stored, _ := fx.svc.GetByID(ctx, waiting.ID)
	if stored.Status != domain.TicketStatusOpen {
		t.Fatalf("failed admission must leave status, got %s", stored.Status)
	}

	// Freeing the slot lets the waiting ticket in.
	if _, err := fx.svc.TransitionStatus(ctx, testActor, busy.ID, domain.TicketStatusResolved); err != nil {
		t.Fatalf("resolve busy: %v", err)
	}
	if _, err := fx.svc.TransitionStatus(ctx, testActor, waiting.ID, domain.TicketStatusInProgress); err != nil {
		t.Fatalf("retry transition: %v", err)
	}
}

func TestUpdateFields(t *testing.T) {
	fx := newTicketFixture(5)
	ctx := context.Background()

	ticket, err := fx.svc.Create(ctx, testActor, TicketCreateInput{
		Title: "original", Description: "original desc", ClientID: "client-1", CategoryID: "cat-1",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	high := domain.TicketPriorityHigh
	updated, err := fx.svc.UpdateFields(ctx, testActor, ticket.ID, TicketUpdateInput{
		Title:    strptr("renamed"),
		Priority: &high,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "renamed" || updated.Priority != domain.TicketPriorityHigh {
		t.Errorf("patch not applied: %+v", updated)
	}
	if updated.Description != "original desc" {
		t.Errorf("untouched field changed: %s", updated.Description)
	}
	if updated.Status != domain.TicketStatusOpen {
		t.Errorf("field edit must not change status, got %s", updated.Status)
	}

	_, err = fx.svc.UpdateFields(ctx, testActor, ticket.ID, TicketUpdateInput{Title: strptr("  ")})
	wantDomainCode(t, err, "VALIDATION_FAILED")

	bad := domain.TicketPriority("EXTREME")
	_, err = fx.svc.UpdateFields(ctx, testActor, ticket.ID, TicketUpdateInput{Priority: &bad})
	wantDomainCode(t, err, "VALIDATION_FAILED")

	_, err = fx.svc.UpdateFields(ctx, testActor, "missing", TicketUpdateInput{})
	wantDomainCode(t, err, "NOT_FOUND")
}

func TestUpdateFieldsTechnicianPatch(t *testing.T) {
	fx := newTicketFixture(5)
	ctx := context.Background()

	ticket, err := fx.svc.Create(ctx, testActor, TicketCreateInput{
		Title: "t", Description: "d", ClientID: "client-1", CategoryID: "cat-1",
		TechnicianID: strptr("tech-1"),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Unset patch leaves the assignment alone.
	updated, err := fx.svc.UpdateFields(ctx, testActor, ticket.ID, TicketUpdateInput{
		Title: strptr("still assigned"),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.TechnicianID == nil || *updated.TechnicianID != "tech-1" {
		t.Fatalf("absent patch must keep assignment, got %v", updated.TechnicianID)
	}

	// Explicit null clears it.
	updated, err = fx.svc.UpdateFields(ctx, testActor, ticket.ID, TicketUpdateInput{
		Technician: TechnicianPatch{Set: true},
	})
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if updated.TechnicianID != nil {
		t.Fatalf("explicit null must clear assignment, got %v", *updated.TechnicianID)
	}

	_, err = fx.svc.UpdateFields(ctx, testActor, ticket.ID, TicketUpdateInput{
		Technician: TechnicianPatch{Set: true, ID: strptr("ghost")},
	})
	wantDomainCode(t, err, "NOT_FOUND")
}

func TestReassignmentOfInProgressTicketChecksCapacity(t *testing.T) {
	fx := newTicketFixture(1)
	ctx := context.Background()

	if _, err := fx.svc.Create(ctx, testActor, TicketCreateInput{
		Title: "occupies tech-2", Description: "d", Status: domain.TicketStatusInProgress,
		ClientID: "client-1", CategoryID: "cat-1", TechnicianID: strptr("tech-2"),
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	ticket, err := fx.svc.Create(ctx, testActor, TicketCreateInput{
		Title: "on tech-1", Description: "d", Status: domain.TicketStatusInProgress,
		ClientID: "client-1", CategoryID: "cat-1", TechnicianID: strptr("tech-1"),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = fx.svc.UpdateFields(ctx, testActor, ticket.ID, TicketUpdateInput{
		Technician: TechnicianPatch{Set: true, ID: strptr("tech-2")},
	})
	wantDomainCode(t, err, "CAPACITY_EXCEEDED")
	stored, _ := fx.svc.GetByID(ctx, ticket.ID)
	if stored.TechnicianID == nil || *stored.TechnicianID != "tech-1" {
		t.Fatalf("failed reassignment must keep old assignment, got %v", stored.TechnicianID)
	}

	// Clearing never runs admission, even at full capacity.
	if _, err := fx.svc.UpdateFields(ctx, testActor, ticket.ID, TicketUpdateInput{
		Technician: TechnicianPatch{Set: true},
	}); err != nil {
		t.Fatalf("clear at capacity: %v", err)
	}
}

func TestRemove(t *testing.T) {
	fx := newTicketFixture(5)
	ctx := context.Background()

	ticket, err := fx.svc.Create(ctx, testActor, TicketCreateInput{
		Title: "t", Description: "d", ClientID: "client-1", CategoryID: "cat-1",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := fx.svc.Remove(ctx, testActor, ticket.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	_, err = fx.svc.GetByID(ctx, ticket.ID)
	wantDomainCode(t, err, "NOT_FOUND")

	err = fx.svc.Remove(ctx, testActor, ticket.ID)
	wantDomainCode(t, err, "NOT_FOUND")
}

func TestListByUnknownOwner(t *testing.T) {
	fx := newTicketFixture(5)
	ctx := context.Background()

	_, err := fx.svc.ListByClient(ctx, "ghost")
	wantDomainCode(t, err, "NOT_FOUND")
	_, err = fx.svc.ListByTechnician(ctx, "ghost")
	wantDomainCode(t, err, "NOT_FOUND")
}

func strptr(s string) *string { return &s }
