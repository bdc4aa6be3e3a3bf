package authflow

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// IdentityProvider is the identity-provider surface the orchestrators
// consume: where to send the authorization request, how to build an
// end-session URL, and how to redeem an authorization code. Provider is the
// discovery-backed implementation; anything satisfying this interface can
// stand in for it.
type IdentityProvider interface {
	// AuthEndpoint returns the provider's authorization endpoint.
	AuthEndpoint() string

	// EndSessionURL builds the provider's logout URL, carrying the
	// optional id_token_hint and post_logout_redirect_uri parameters.
	EndSessionURL(idTokenHint, postLogoutRedirect string) (string, error)

	// Exchange redeems an authorization code, presenting the PKCE code
	// verifier that the matching login leg generated.
	Exchange(ctx context.Context, code, redirectURL, codeVerifier string) (*oauth2.Token, error)
}

// Provider provides integration with an identity provider via OIDC
// discovery. Creating one makes an http request to the configured issuer.
//
// See Provider.Done() which must be called to release provider resources.
type Provider struct {
	config   *Config
	provider *oidc.Provider

	mu sync.Mutex

	// backgroundCtx is the context used by the provider for background
	// activities like refreshing JWKs key sets
	backgroundCtx context.Context

	// backgroundCtxCancel is used to cancel any background activities
	// running in spawned go routines.
	backgroundCtxCancel context.CancelFunc
}

var _ IdentityProvider = (*Provider)(nil)

// NewProvider creates and initializes a Provider, which includes making an
// http request to the issuer's discovery endpoint.
func NewProvider(c *Config) (*Provider, error) {
	const op = "authflow.NewProvider"
	if c == nil {
		return nil, fmt.Errorf("%s: config is nil: %w", op, ErrNilParameter)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: config is invalid: %w", op, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	// initializing the Provider with its background ctx/cancel allows
	// p.Done() to release resources when returning errors from this
	// function
	p := &Provider{
		config:              c,
		backgroundCtx:       ctx,
		backgroundCtxCancel: cancel,
	}

	client, err := c.HTTPClient()
	if err != nil {
		p.Done()
		return nil, fmt.Errorf("%s: unable to create http client: %w", op, err)
	}

	provider, err := oidc.NewProvider(HTTPClientContext(p.backgroundCtx, client), c.Issuer) // makes http req to issuer for discovery
	if err != nil {
		p.Done()
		return nil, fmt.Errorf("%s: unable to create provider: %w", op, err)
	}
	p.provider = provider

	return p, nil
}

// Done with the provider's background resources and must be called for
// every Provider created.
func (p *Provider) Done() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.backgroundCtxCancel != nil {
		p.backgroundCtxCancel()
		p.backgroundCtxCancel = nil
	}
}

// AuthEndpoint returns the discovered authorization endpoint.
func (p *Provider) AuthEndpoint() string {
	return p.provider.Endpoint().AuthURL
}

// EndSessionURL builds a logout URL from the discovered
// end_session_endpoint. It fails with ErrNoEndSessionEndpoint when the
// provider doesn't advertise one.
func (p *Provider) EndSessionURL(idTokenHint, postLogoutRedirect string) (string, error) {
	const op = "authflow.Provider.EndSessionURL"
	var claims struct {
		EndSessionEndpoint string `json:"end_session_endpoint"`
	}
	if err := p.provider.Claims(&claims); err != nil {
		return "", fmt.Errorf("%s: unable to read discovery claims: %w", op, err)
	}
	if claims.EndSessionEndpoint == "" {
		return "", fmt.Errorf("%s: %s: %w", op, p.config.Issuer, ErrNoEndSessionEndpoint)
	}
	u, err := url.Parse(claims.EndSessionEndpoint)
	if err != nil {
		return "", fmt.Errorf("%s: end_session_endpoint is invalid: %w", op, err)
	}
	q := u.Query()
	q.Set("client_id", p.config.ClientID)
	if idTokenHint != "" {
		q.Set("id_token_hint", idTokenHint)
	}
	if postLogoutRedirect != "" {
		q.Set("post_logout_redirect_uri", postLogoutRedirect)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Exchange redeems an authorization code at the provider's token endpoint,
// presenting the PKCE code verifier. The redirectURL must match the one the
// authorization request was issued with.
func (p *Provider) Exchange(ctx context.Context, code, redirectURL, codeVerifier string) (*oauth2.Token, error) {
	const op = "authflow.Provider.Exchange"
	if code == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingCode)
	}

	client, err := p.config.HTTPClient()
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create http client: %w", op, err)
	}
	oidcCtx := HTTPClientContext(ctx, client)

	oauth2Config := oauth2.Config{
		ClientID:     p.config.ClientID,
		ClientSecret: string(p.config.ClientSecret),
		RedirectURL:  redirectURL,
		Endpoint:     p.provider.Endpoint(),
	}
	tok, err := oauth2Config.Exchange(oidcCtx, code, oauth2.VerifierOption(codeVerifier))
	if err != nil {
		return nil, fmt.Errorf("%s: unable to exchange auth code with provider: %w", op, err)
	}
	return tok, nil
}
