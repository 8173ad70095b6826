package domain

// Technician is a support agent tickets can be assigned to.
type Technician struct {
	ID             string
	Name           string
	Email          string
	Phone          string
	Specialization string
	Availability   bool
}

// MaxInProgressPerTechnician caps simultaneous IN_PROGRESS assignments
// for a single technician.
const MaxInProgressPerTechnician = 5
