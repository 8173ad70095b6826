package domain

// Client is a customer account that can open tickets.
type Client struct {
	ID           string
	Name         string
	Company      string
	ContactEmail string
	UserID       *string
}
