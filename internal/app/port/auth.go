package port

// User is the authenticated account a session belongs to.
type User struct {
	ID    string
	Email string
}

// AuthProvider exposes the synchronously-cached session state. Operations
// that require a session consult CurrentUser before doing any work.
type AuthProvider interface {
	// CurrentUser returns the signed-in user, or nil when there is no session.
	CurrentUser() *User

	// OnAuthChange registers a callback invoked with the new user (or nil on
	// sign-out) whenever the session state changes. The returned function
	// cancels the registration.
	OnAuthChange(fn func(*User)) (cancel func())
}
