package dto

import (
	"encoding/json"
	"time"

	"github.com/helpdesk-io/support-service/internal/domain"
)

// OptionalString distinguishes an absent JSON field from an explicit null.
// Absent: Set=false. Null: Set=true, Value=nil. Present: Set=true, Value set.
type OptionalString struct {
	Set   bool
	Value *string
}

// UnmarshalJSON marks the field as present and captures null vs value.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	Status       domain.TicketStatus   `json:"status"`
	Priority     domain.TicketPriority `json:"priority"`
	ClientID     string                `json:"client_id"`
	CategoryID   string                `json:"category_id"`
	TechnicianID *string               `json:"technician_id"`
}

// UpdateTicketRequest is the field-edit payload. It carries no status on
// purpose: status changes go through the dedicated transition endpoint,
// and a status key supplied here is ignored. The technician field is a
// tagged optional so that "clear assignment" (explicit null) is distinct
// from "leave unchanged" (absent).
type UpdateTicketRequest struct {
	Title       *string                `json:"title"`
	Description *string                `json:"description"`
	Priority    *domain.TicketPriority `json:"priority"`
	ClientID    *string                `json:"client_id"`
	CategoryID  *string                `json:"category_id"`
	Technician  OptionalString         `json:"technician_id"`
}

// UpdateStatusRequest payload for the transition endpoint.
type UpdateStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// TicketResponse is the wire form of a ticket.
type TicketResponse struct {
	ID           string                `json:"id"`
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	Status       domain.TicketStatus   `json:"status"`
	Priority     domain.TicketPriority `json:"priority"`
	ClientID     string                `json:"client_id"`
	CategoryID   string                `json:"category_id"`
	TechnicianID *string               `json:"technician_id,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}
