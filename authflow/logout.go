package authflow

import (
	"fmt"
	"net/http"
	"net/url"
)

// Logout tears the session down and redirects the user agent. Logging out
// twice is safe: an unauthenticated request redirects straight to the
// resolved return URL without touching session state. For an authenticated
// request the local session is always deleted first, before any external
// redirect is computed, and then the user is sent either to the provider's
// end-session endpoint (when the config enables identity-provider logout)
// or to the local return URL.
//
// Supported options: WithReturnTo
func (f *Flow) Logout(w http.ResponseWriter, r *http.Request, session Session, opt ...Option) error {
	const op = "authflow.Flow.Logout"
	if session == nil {
		return fmt.Errorf("%s: session is nil: %w", op, ErrNilParameter)
	}
	opts := getLogoutOpts(opt...)

	returnTo := opts.withReturnTo
	if returnTo == "" {
		returnTo = f.config.PostLogoutRedirect
	}
	if returnTo == "" {
		returnTo = f.config.BaseURL
	}
	returnTo = f.resolveLogoutReturnTo(returnTo)

	if !session.IsAuthenticated() {
		http.Redirect(w, r, returnTo, http.StatusFound)
		return nil
	}

	idTokenHint := session.IDToken()
	if err := session.Delete(); err != nil {
		return fmt.Errorf("%s: unable to delete session: %w", op, err)
	}
	f.logger.Debug("session deleted")

	if f.config.IDPLogout {
		endSession, err := f.idp.EndSessionURL(idTokenHint, returnTo)
		if err != nil {
			// the local session is already gone; the failure only affects
			// the provider-side session
			return fmt.Errorf("%s: unable to build end-session URL: %w", op, err)
		}
		http.Redirect(w, r, endSession, http.StatusFound)
		return nil
	}

	http.Redirect(w, r, returnTo, http.StatusFound)
	return nil
}

// resolveLogoutReturnTo makes the post-logout URL absolute: an absolute URL
// is used as-is, anything else is joined to the base application URL.
func (f *Flow) resolveLogoutReturnTo(returnTo string) string {
	u, err := url.Parse(returnTo)
	if err != nil {
		return f.config.BaseURL
	}
	if u.IsAbs() {
		return returnTo
	}
	joined, err := url.JoinPath(f.config.BaseURL, returnTo)
	if err != nil {
		return f.config.BaseURL
	}
	return joined
}

// logoutOptions is the set of available options for Flow.Logout
type logoutOptions struct {
	withReturnTo string
}

// getLogoutOpts gets the logout defaults and applies the opt overrides
// passed in.
func getLogoutOpts(opt ...Option) *logoutOptions {
	opts := &logoutOptions{}
	ApplyOpts(opts, opt...)
	return opts
}
