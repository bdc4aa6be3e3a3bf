package authflow

// Session is the narrow session-collaborator surface logout needs.
// Persistent session storage itself lives outside this module; anything that
// can answer these three questions for the current request will do.
type Session interface {
	// IsAuthenticated reports whether the session currently carries an
	// authenticated user.
	IsAuthenticated() bool

	// IDToken returns the raw id_token stored in the session, or "" when
	// there isn't one. It's passed to the provider's end-session endpoint
	// as a hint during identity-provider logout.
	IDToken() string

	// Delete removes the session's local state.
	Delete() error
}
