package model

// User is the authenticated identity attached to a request, if any.
type User struct {
	ID    string
	Name  string
	Email string
	Token string
}
