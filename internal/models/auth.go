package models

// AuthContext identifies the signed-in user. It is built from a validated
// session and handed to services explicitly.
type AuthContext struct {
	UserID int64
	Email  string
	Name   string
}

// NewAuthContext builds the context for a user
func NewAuthContext(u *User) AuthContext {
	return AuthContext{UserID: u.ID, Email: u.Email, Name: u.Name}
}
