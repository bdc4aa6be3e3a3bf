package authflow

import (
	"errors"
)

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrNilParameter     = errors.New("nil parameter")
	ErrInvalidCACert    = errors.New("invalid CA certificate")

	// ErrInvalidCustomState is returned when a WithLoginState hook returns
	// something other than a key/value mapping. It aborts the login attempt
	// before any cookie is written or any redirect issued.
	ErrInvalidCustomState = errors.New("custom login state must be a key/value mapping")

	// ErrMalformedState is returned when a login-state value can't be
	// decoded.
	ErrMalformedState = errors.New("malformed login state")

	// ErrProtocolStateMissing is returned by Callback when the transient
	// login cookies are absent or invalid. It is recoverable: the caller
	// should re-initiate login rather than fail hard.
	ErrProtocolStateMissing = errors.New("login state protocol failed")

	// ErrResponseStateMismatch is returned when the state parameter the
	// provider sent back doesn't match the state this flow issued.
	ErrResponseStateMismatch = errors.New("response state and login state are not equal")

	ErrProviderError  = errors.New("provider returned an error")
	ErrMissingCode    = errors.New("authorization code is missing")
	ErrMissingIDToken = errors.New("id_token is missing")

	// ErrNoEndSessionEndpoint is returned when identity-provider logout is
	// requested but the provider's discovery document doesn't advertise an
	// end_session_endpoint.
	ErrNoEndSessionEndpoint = errors.New("no end_session_endpoint")
)
