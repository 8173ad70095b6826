package domain

import (
	"fmt"
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
)

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID           string
	Title        string
	Description  string
	Status       TicketStatus
	Priority     TicketPriority
	ClientID     string
	CategoryID   string
	TechnicianID *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsValidStatus reports whether s is a known lifecycle state.
func IsValidStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// IsValidPriority reports whether p is a known priority.
func IsValidPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh:
		return true
	}
	return false
}

// statusTransitions is the lifecycle state machine. CLOSED is terminal.
var statusTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusOpen:       {TicketStatusInProgress},
	TicketStatusInProgress: {TicketStatusResolved},
	TicketStatusResolved:   {TicketStatusClosed},
	TicketStatusClosed:     {},
}

// AllowedTransitions returns the valid target states for the given status.
func AllowedTransitions(current TicketStatus) []TicketStatus {
	return statusTransitions[current]
}

// TransitionError describes a rejected status change.
type TransitionError struct {
	From    TicketStatus
	To      TicketStatus
	Allowed []TicketStatus
}

func (e *TransitionError) Error() string {
	targets := make([]string, 0, len(e.Allowed))
	for _, s := range e.Allowed {
		targets = append(targets, string(s))
	}
	rendered := "none"
	if len(targets) > 0 {
		rendered = strings.Join(targets, ", ")
	}
	return fmt.Sprintf("cannot transition ticket from %s to %s; valid targets: %s", e.From, e.To, rendered)
}

// ValidateTransition checks the state machine for a requested status change.
func ValidateTransition(current, next TicketStatus) error {
	for _, candidate := range statusTransitions[current] {
		if candidate == next {
			return nil
		}
	}
	return &TransitionError{From: current, To: next, Allowed: statusTransitions[current]}
}
