package domain

// Category groups tickets by subject area.
type Category struct {
	ID          string
	Name        string
	Description string
}
