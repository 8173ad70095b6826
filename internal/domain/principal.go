package domain

// Principal is the authenticated identity attached to a request.
// It is rebuilt per request from the token's signed claims and never persisted.
type Principal struct {
	UserID string
	Email  string
	Role   Role
}
