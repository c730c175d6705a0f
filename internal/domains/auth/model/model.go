package model

// Identity is the authenticated caller attached to the request context by the
// auth gate.
type Identity struct {
	UserID   string
	Username string
	Role     string
}
