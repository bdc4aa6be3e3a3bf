package authflow

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/gatekit/gatekit/sdk/id"
	strutil "github.com/gatekit/gatekit/sdk/strutils"
)

// Login begins the authorization code flow. It builds the login state (see
// buildLoginState for the returnTo rules), generates a nonce and a PKCE
// code verifier, persists each as a signed SameSite=Lax transient cookie,
// and redirects the user agent to the provider's authorize endpoint.
//
// Any failure happens before the redirect and is returned to the caller,
// which is responsible for turning it into an HTTP error response (see
// LoginHandler). Cookies already written by an earlier step are harmless on
// failure: each is independent and single use.
//
// Supported options: WithReturnTo, WithRedirectURL, WithScopes,
// WithAudience, WithOrganization, WithInvitation, WithAuthorizationParams,
// WithLoginState
func (f *Flow) Login(w http.ResponseWriter, r *http.Request, opt ...Option) error {
	const op = "authflow.Flow.Login"
	opts := getLoginOpts(opt...)

	state, err := f.buildLoginState(r, opts)
	if err != nil {
		return fmt.Errorf("%s: unable to build login state: %w", op, err)
	}
	encodedState, err := EncodeLoginState(state)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	nonce, err := id.New("")
	if err != nil {
		return fmt.Errorf("%s: unable to generate nonce: %w", op, err)
	}
	verifier := oauth2.GenerateVerifier()
	challenge := oauth2.S256ChallengeFromVerifier(verifier)

	if _, err := f.transient.Save(w, nonceCookie, nonce, http.SameSiteLaxMode); err != nil {
		return fmt.Errorf("%s: unable to persist nonce: %w", op, err)
	}
	if _, err := f.transient.Save(w, stateCookie, encodedState, http.SameSiteLaxMode); err != nil {
		return fmt.Errorf("%s: unable to persist state: %w", op, err)
	}
	if _, err := f.transient.Save(w, verifierCookie, verifier, http.SameSiteLaxMode); err != nil {
		return fmt.Errorf("%s: unable to persist code verifier: %w", op, err)
	}

	params := f.authorizationParams(opts, encodedState, nonce, challenge)
	authURL := f.idp.AuthEndpoint() + "?" + params.Encode()
	f.logger.Debug("issuing authorization redirect", "client_id", f.config.ClientID)
	http.Redirect(w, r, authURL, http.StatusFound)
	return nil
}

// authorizationParams composes the authorize-endpoint query. Tunable
// parameters merge in increasing precedence: protocol defaults, static
// configuration, per-call options; the protocol-controlled state, nonce and
// PKCE parameters are set last and can't be overridden.
func (f *Flow) authorizationParams(opts *loginOptions, state, nonce, challenge string) url.Values {
	scopes := f.config.Scopes
	if len(opts.withScopes) > 0 {
		scopes = opts.withScopes
	}
	scopes = strutil.RemoveDuplicatesStable(append([]string{oidc.ScopeOpenID}, scopes...), false)

	defaults := map[string]string{
		"client_id":     f.config.ClientID,
		"response_type": "code",
		"redirect_uri":  f.redirectURL(opts.withRedirectURL),
		"scope":         strings.Join(scopes, " "),
	}

	configured := map[string]string{}
	if f.config.Audience != "" {
		configured["audience"] = f.config.Audience
	}
	if f.config.Organization != "" {
		configured["organization"] = f.config.Organization
	}
	for k, v := range f.config.AuthorizationParams {
		configured[k] = v
	}

	caller := map[string]string{}
	if opts.withAudience != "" {
		caller["audience"] = opts.withAudience
	}
	if opts.withOrganization != "" {
		caller["organization"] = opts.withOrganization
	}
	if opts.withInvitation != "" {
		caller["invitation"] = opts.withInvitation
	}
	for k, v := range opts.withAuthorizationParams {
		caller[k] = v
	}

	merged := mergeParams(defaults, configured, caller)
	merged["state"] = state
	merged["nonce"] = nonce
	merged["code_challenge"] = challenge
	merged["code_challenge_method"] = "S256"

	values := url.Values{}
	for k, v := range merged {
		values.Set(k, v)
	}
	return values
}

// mergeParams merges maps in order, last wins. Precedence stays an explicit
// ordered merge so it can be audited and tested in isolation.
func mergeParams(maps ...map[string]string) map[string]string {
	merged := map[string]string{}
	for _, m := range maps {
		for k, v := range m {
			merged[k] = v
		}
	}
	return merged
}

// loginOptions is the set of available options for Flow.Login
type loginOptions struct {
	withReturnTo            string
	withRedirectURL         string
	withScopes              []string
	withAudience            string
	withOrganization        string
	withInvitation          string
	withAuthorizationParams map[string]string
	withLoginState          LoginStateFn
}

// getLoginOpts gets the login defaults and applies the opt overrides passed
// in.
func getLoginOpts(opt ...Option) *loginOptions {
	opts := &loginOptions{}
	ApplyOpts(opts, opt...)
	return opts
}
