package authflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"

	sdkHTTP "github.com/gatekit/gatekit/sdk/http"
	strutil "github.com/gatekit/gatekit/sdk/strutils"
)

// Secret is a sensitive string (client secret, cookie-signing secret) which
// redacts itself when printed or marshaled.
type Secret string

// RedactedSecret is the redacted string or json for a Secret.
const RedactedSecret = "[REDACTED: secret]"

// String will redact the secret.
func (s Secret) String() string {
	return RedactedSecret
}

// MarshalJSON will redact the secret.
func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedSecret)
}

// DefaultCallbackPath is the path under BaseURL the provider redirects back
// to after authentication.
const DefaultCallbackPath = "/callback"

// Config represents the configuration for the browser-facing legs of a
// 3-legged OIDC authorization code flow.
type Config struct {
	// ClientID is the relying party id.
	ClientID string

	// ClientSecret is the relying party secret, only needed when this
	// module also performs the authorization-code exchange.
	ClientSecret Secret

	// Issuer is a case-sensitive URL string using the https scheme that
	// contains scheme, host, and optionally, port number and path
	// components and no query or fragment components.
	Issuer string

	// BaseURL is the absolute URL the application is served from. Relative
	// return URLs resolve against it and the default redirect_uri is
	// derived from it.
	BaseURL string

	// CallbackPath is the path joined to BaseURL to form the redirect_uri.
	// Defaults to DefaultCallbackPath.
	CallbackPath string

	// Secrets is the ordered set of cookie-signing secrets. The first is
	// the current secret used for signing; the rest are previous secrets
	// kept so rotation doesn't invalidate in-flight logins.
	Secrets []Secret

	// Scopes is the default list of oidc scopes to request of the
	// provider. The required "openid" scope is always requested.
	Scopes []string

	// Audience is an optional default audience authorization parameter.
	Audience string

	// Organization is an optional default organization authorization
	// parameter.
	Organization string

	// AuthorizationParams are additional static authorization request
	// parameters sent on every login; per-call options override them.
	AuthorizationParams map[string]string

	// CookieDomain is an optional domain for the transient cookies.
	CookieDomain string

	// CookiePath is the path for the transient cookies and defaults
	// to "/".
	CookiePath string

	// SecureCookies marks the transient cookies Secure. SameSite=None
	// cookies are always Secure regardless of this setting.
	SecureCookies bool

	// LegacySameSiteCookie enables the dual-cookie fallback for browsers
	// that predate SameSite=None support. Defaults to true.
	LegacySameSiteCookie bool

	// IDPLogout redirects logout through the provider's end-session
	// endpoint so the provider session is torn down too.
	IDPLogout bool

	// PostLogoutRedirect is the default URL the user lands on after
	// logout. Relative values resolve against BaseURL; empty means
	// BaseURL itself.
	PostLogoutRedirect string

	// DefaultReturnTo is the default post-login return URL. Empty means
	// BaseURL.
	DefaultReturnTo string

	// ProviderCA is an optional CA cert to use when sending requests to
	// the provider.
	ProviderCA string

	// Logger is an optional logger.
	Logger hclog.Logger
}

// NewConfig composes a new front-door config.
// Supported options: WithClientSecret, WithScopes, WithAudience,
// WithOrganization, WithAuthorizationParams, WithCallbackPath,
// WithCookieDomain, WithCookiePath, WithSecureCookies, WithLegacySameSite,
// WithIDPLogout, WithPostLogoutRedirect, WithDefaultReturnTo,
// WithProviderCA, WithLogger
func NewConfig(issuer, clientID, baseURL string, secrets []Secret, opt ...Option) (*Config, error) {
	const op = "authflow.NewConfig"
	opts := getConfigOpts(opt...)
	c := &Config{
		ClientID:             clientID,
		ClientSecret:         opts.withClientSecret,
		Issuer:               issuer,
		BaseURL:              baseURL,
		CallbackPath:         opts.withCallbackPath,
		Secrets:              secrets,
		Scopes:               opts.withScopes,
		Audience:             opts.withAudience,
		Organization:         opts.withOrganization,
		AuthorizationParams:  opts.withAuthorizationParams,
		CookieDomain:         opts.withCookieDomain,
		CookiePath:           opts.withCookiePath,
		SecureCookies:        opts.withSecureCookies,
		LegacySameSiteCookie: opts.withLegacySameSite,
		IDPLogout:            opts.withIDPLogout,
		PostLogoutRedirect:   opts.withPostLogoutRedirect,
		DefaultReturnTo:      opts.withDefaultReturnTo,
		ProviderCA:           opts.withProviderCA,
		Logger:               opts.withLogger,
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid configuration: %w", op, err)
	}
	return c, nil
}

// Validate the configuration. Problems are accumulated, so a caller sees
// every configuration error at once, at startup, rather than one per
// request.
func (c *Config) Validate() error {
	const op = "authflow.Config.Validate"
	if c == nil {
		return fmt.Errorf("%s: config is nil: %w", op, ErrNilParameter)
	}
	var result *multierror.Error
	if c.ClientID == "" {
		result = multierror.Append(result, fmt.Errorf("client id is empty: %w", ErrInvalidParameter))
	}
	if c.Issuer == "" {
		result = multierror.Append(result, fmt.Errorf("issuer is empty: %w", ErrInvalidParameter))
	} else if u, err := url.Parse(c.Issuer); err != nil || !strutil.StrListContains([]string{"https", "http"}, u.Scheme) {
		result = multierror.Append(result, fmt.Errorf("issuer %s schema is not http or https: %w", c.Issuer, ErrInvalidParameter))
	}
	if c.BaseURL == "" {
		result = multierror.Append(result, fmt.Errorf("base URL is empty: %w", ErrInvalidParameter))
	} else if u, err := url.Parse(c.BaseURL); err != nil || !strutil.StrListContains([]string{"https", "http"}, u.Scheme) || u.Host == "" {
		result = multierror.Append(result, fmt.Errorf("base URL %s is not an absolute http or https URL: %w", c.BaseURL, ErrInvalidParameter))
	}
	if len(c.Secrets) == 0 {
		result = multierror.Append(result, fmt.Errorf("no cookie-signing secrets: %w", ErrInvalidParameter))
	}
	for i, s := range c.Secrets {
		if s == "" {
			result = multierror.Append(result, fmt.Errorf("cookie-signing secret at index %d is empty: %w", i, ErrInvalidParameter))
		}
	}
	if c.CallbackPath != "" && c.CallbackPath[0] != '/' {
		result = multierror.Append(result, fmt.Errorf("callback path %s is not rooted: %w", c.CallbackPath, ErrInvalidParameter))
	}
	return result.ErrorOrNil()
}

// RedirectURL returns the redirect_uri for this config: BaseURL joined with
// CallbackPath. Only valid once the config has been validated.
func (c *Config) RedirectURL() string {
	path := c.CallbackPath
	if path == "" {
		path = DefaultCallbackPath
	}
	u, err := url.JoinPath(c.BaseURL, path)
	if err != nil {
		// Validate guarantees BaseURL parses; a rooted path can't fail to
		// join
		return c.BaseURL + path
	}
	return u
}

// HTTPClient is a helper function that creates a new http client for the
// provider configured.
func (c *Config) HTTPClient() (*http.Client, error) {
	client, err := sdkHTTP.NewClient(c.ProviderCA)
	if err != nil {
		if errors.Is(err, sdkHTTP.ErrInvalidCertificatePem) {
			return nil, fmt.Errorf("could not parse CA PEM value: %w", ErrInvalidCACert)
		}
		return nil, fmt.Errorf("could not get an http client: %w", err)
	}
	return client, nil
}

// HTTPClientContext is a helper function that returns a new Context that
// carries the provided HTTP client. This method sets the same context key
// used by the github.com/coreos/go-oidc and golang.org/x/oauth2 packages, so
// the returned context works for those packages as well.
func HTTPClientContext(ctx context.Context, client *http.Client) context.Context {
	return oidc.ClientContext(ctx, client)
}

// configOptions is the set of available options for Config functions
type configOptions struct {
	withClientSecret        Secret
	withScopes              []string
	withAudience            string
	withOrganization        string
	withAuthorizationParams map[string]string
	withCallbackPath        string
	withCookieDomain        string
	withCookiePath          string
	withSecureCookies       bool
	withLegacySameSite      bool
	withIDPLogout           bool
	withPostLogoutRedirect  string
	withDefaultReturnTo     string
	withProviderCA          string
	withLogger              hclog.Logger
}

// configDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func configDefaults() configOptions {
	return configOptions{
		withScopes:         []string{oidc.ScopeOpenID, "profile", "email"},
		withCallbackPath:   DefaultCallbackPath,
		withCookiePath:     "/",
		withLegacySameSite: true,
	}
}

// getConfigOpts gets the config defaults and applies the opt overrides
// passed in.
func getConfigOpts(opt ...Option) configOptions {
	opts := configDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithClientSecret provides the relying party secret, needed only when the
// flow performs the authorization-code exchange. Valid for: Config
func WithClientSecret(secret Secret) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withClientSecret = secret
		}
	}
}

// WithCallbackPath provides the path joined to BaseURL to form the
// redirect_uri. Valid for: Config
func WithCallbackPath(path string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withCallbackPath = path
		}
	}
}

// WithCookieDomain provides an optional domain for the transient cookies.
// Valid for: Config
func WithCookieDomain(domain string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withCookieDomain = domain
		}
	}
}

// WithCookiePath provides the path for the transient cookies. Valid for:
// Config
func WithCookiePath(path string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withCookiePath = path
		}
	}
}

// WithSecureCookies marks the transient cookies Secure. Valid for: Config
func WithSecureCookies(secure bool) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withSecureCookies = secure
		}
	}
}

// WithLegacySameSite enables or disables the legacy dual-cookie fallback
// for browsers that predate SameSite=None support. It's enabled by default.
// Valid for: Config
func WithLegacySameSite(enabled bool) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withLegacySameSite = enabled
		}
	}
}

// WithIDPLogout routes logout through the provider's end-session endpoint.
// Valid for: Config
func WithIDPLogout(enabled bool) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withIDPLogout = enabled
		}
	}
}

// WithPostLogoutRedirect provides the default URL the user lands on after
// logout. Valid for: Config
func WithPostLogoutRedirect(u string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withPostLogoutRedirect = u
		}
	}
}

// WithDefaultReturnTo provides the default post-login return URL. Valid
// for: Config
func WithDefaultReturnTo(u string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withDefaultReturnTo = u
		}
	}
}

// WithProviderCA provides an optional CA cert for requests to the provider.
// Valid for: Config
func WithProviderCA(cert string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withProviderCA = cert
		}
	}
}

// WithLogger provides an optional logger. Valid for: Config
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withLogger = l
		}
	}
}
