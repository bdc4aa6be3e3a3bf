package authflow

import (
	"fmt"
	"net/http"

	"github.com/hashicorp/go-hclog"

	"github.com/gatekit/gatekit/authflow/keyring"
	"github.com/gatekit/gatekit/authflow/transient"
)

// Names of the transient cookies written during the login leg and consumed
// during the callback leg.
const (
	nonceCookie    = "nonce"
	stateCookie    = "state"
	verifierCookie = "code_verifier"
)

// Flow orchestrates the browser-facing legs of the authorization code flow:
// Login builds the authorization request and redirects to the provider,
// Callback completes the round trip, and Logout tears the session down.
type Flow struct {
	config    *Config
	idp       IdentityProvider
	transient *transient.Store
	logger    hclog.Logger
}

// NewFlow creates a Flow for the given config and identity provider. The
// cookie-signing keyring is built here, once, and handed to the transient
// store; it lives for the Flow's lifetime.
func NewFlow(c *Config, idp IdentityProvider) (*Flow, error) {
	const op = "authflow.NewFlow"
	if c == nil {
		return nil, fmt.Errorf("%s: config is nil: %w", op, ErrNilParameter)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: config is invalid: %w", op, err)
	}
	if idp == nil {
		return nil, fmt.Errorf("%s: identity provider is nil: %w", op, ErrNilParameter)
	}

	secrets := make([]string, 0, len(c.Secrets))
	for _, s := range c.Secrets {
		secrets = append(secrets, string(s))
	}
	kr, err := keyring.New(secrets...)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to build keyring: %w", op, err)
	}
	store, err := transient.NewStore(kr, transient.Config{
		Domain:          c.CookieDomain,
		Path:            c.CookiePath,
		Secure:          c.SecureCookies,
		FallbackCookies: c.LegacySameSiteCookie,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: unable to build transient store: %w", op, err)
	}

	logger := c.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Flow{
		config:    c,
		idp:       idp,
		transient: store,
		logger:    logger,
	}, nil
}

// redirectURL returns the effective redirect_uri: a per-call override when
// given, otherwise the configured BaseURL + CallbackPath.
func (f *Flow) redirectURL(override string) string {
	if override != "" {
		return override
	}
	return f.config.RedirectURL()
}

// LoginHandler returns an http.HandlerFunc running the login leg. Failures
// happen before any redirect is issued and surface as a 500 naming the
// failing phase.
func (f *Flow) LoginHandler(opt ...Option) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := f.Login(w, r, opt...); err != nil {
			f.logger.Error("login failed", "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

// SessionFn resolves the Session for a request.
type SessionFn func(r *http.Request) Session

// LogoutHandler returns an http.HandlerFunc running the logout leg against
// the session that sessionFor resolves for each request.
func (f *Flow) LogoutHandler(sessionFor SessionFn, opt ...Option) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := f.Logout(w, r, sessionFor(r), opt...); err != nil {
			f.logger.Error("logout failed", "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}
