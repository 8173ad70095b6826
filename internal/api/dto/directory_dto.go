package dto

// CreateClientRequest payload.
type CreateClientRequest struct {
	Name         string  `json:"name"`
	Company      string  `json:"company"`
	ContactEmail string  `json:"contact_email"`
	UserID       *string `json:"user_id"`
}

// ClientResponse is the wire form of a client.
type ClientResponse struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Company      string  `json:"company"`
	ContactEmail string  `json:"contact_email"`
	UserID       *string `json:"user_id,omitempty"`
}

// CreateTechnicianRequest payload.
type CreateTechnicianRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Specialization string `json:"specialization"`
	Availability   *bool  `json:"availability"`
}

// TechnicianResponse is the wire form of a technician.
type TechnicianResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Specialization string `json:"specialization"`
	Availability   bool   `json:"availability"`
}

// TechnicianWorkloadResponse reports current IN_PROGRESS load.
type TechnicianWorkloadResponse struct {
	TechnicianID string `json:"technician_id"`
	InProgress   int    `json:"in_progress"`
	Limit        int    `json:"limit"`
}

// CreateCategoryRequest payload.
type CreateCategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CategoryResponse is the wire form of a category.
type CategoryResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}
