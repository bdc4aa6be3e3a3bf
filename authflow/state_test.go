package authflow

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// testIdp is an IdentityProvider stub for orchestration tests.
type testIdp struct {
	authEndpoint  string
	endSessionURL string
	endSessionErr error

	// captured by Exchange
	exchangedCode     string
	exchangedRedirect string
	exchangedVerifier string
	exchangeToken     *oauth2.Token
	exchangeErr       error
}

func (p *testIdp) AuthEndpoint() string {
	if p.authEndpoint == "" {
		return "https://issuer.example.com/authorize"
	}
	return p.authEndpoint
}

func (p *testIdp) EndSessionURL(idTokenHint, postLogoutRedirect string) (string, error) {
	if p.endSessionErr != nil {
		return "", p.endSessionErr
	}
	if p.endSessionURL != "" {
		return p.endSessionURL, nil
	}
	return fmt.Sprintf(
		"https://issuer.example.com/v2/logout?id_token_hint=%s&post_logout_redirect_uri=%s",
		idTokenHint, postLogoutRedirect,
	), nil
}

func (p *testIdp) Exchange(_ context.Context, code, redirectURL, codeVerifier string) (*oauth2.Token, error) {
	p.exchangedCode = code
	p.exchangedRedirect = redirectURL
	p.exchangedVerifier = codeVerifier
	if p.exchangeErr != nil {
		return nil, p.exchangeErr
	}
	if p.exchangeToken != nil {
		return p.exchangeToken, nil
	}
	tok := &oauth2.Token{AccessToken: "test-access-token"}
	return tok.WithExtra(map[string]interface{}{"id_token": "test-id-token"}), nil
}

func testFlow(t *testing.T, idp *testIdp, opt ...Option) *Flow {
	t.Helper()
	require := require.New(t)
	c, err := NewConfig(
		"https://issuer.example.com/",
		"client-id",
		"http://www.acme.com",
		[]Secret{"a-secret"},
		opt...,
	)
	require.NoError(err)
	if idp == nil {
		idp = &testIdp{}
	}
	f, err := NewFlow(c, idp)
	require.NoError(err)
	return f
}

func TestLoginStateCodec(t *testing.T) {
	t.Parallel()
	t.Run("round-trip", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		in := LoginState{"returnTo": "http://www.acme.com/", "foo": "bar"}
		encoded, err := EncodeLoginState(in)
		require.NoError(err)
		got, err := DecodeLoginState(encoded)
		require.NoError(err)
		assert.Equal(in, got)
		assert.Equal("http://www.acme.com/", got.ReturnTo())
	})
	t.Run("malformed", func(t *testing.T) {
		require := require.New(t)
		for _, raw := range []string{"not base64!", "bm90IGpzb24"} {
			_, err := DecodeLoginState(raw)
			require.ErrorIs(err, ErrMalformedState)
		}
	})
}

func TestFlow_buildLoginState(t *testing.T) {
	t.Parallel()
	newReq := func(target string) *http.Request {
		return httptest.NewRequest(http.MethodGet, target, nil)
	}
	t.Run("default-return-to", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		f := testFlow(t, nil)
		got, err := f.buildLoginState(newReq("/login"), getLoginOpts())
		require.NoError(err)
		assert.Equal("http://www.acme.com", got.ReturnTo())
	})
	t.Run("querystring-relative-honored", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		f := testFlow(t, nil)
		got, err := f.buildLoginState(newReq("/login?returnTo=/profile"), getLoginOpts())
		require.NoError(err)
		assert.Equal("http://www.acme.com/profile", got.ReturnTo())
	})
	t.Run("querystring-absolute-rejected", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		f := testFlow(t, nil)
		for _, evil := range []string{
			"https://evil.com",
			"http://evil.com/phish",
			"//evil.com",
		} {
			got, err := f.buildLoginState(newReq("/login?returnTo="+evil), getLoginOpts())
			require.NoError(err)
			assert.Equalf("http://www.acme.com", got.ReturnTo(), "returnTo=%s should fall back to the default", evil)
		}
	})
	t.Run("querystring-first-occurrence-only", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		f := testFlow(t, nil)
		got, err := f.buildLoginState(newReq("/login?returnTo=/foo&returnTo=/bar"), getLoginOpts())
		require.NoError(err)
		assert.Equal("http://www.acme.com/foo", got.ReturnTo())
	})
	t.Run("explicit-option-may-be-absolute", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		f := testFlow(t, nil)
		got, err := f.buildLoginState(
			newReq("/login?returnTo=/ignored"),
			getLoginOpts(WithReturnTo("https://google.com")),
		)
		require.NoError(err)
		assert.Equal("https://google.com", got.ReturnTo())
	})
	t.Run("relative-resolves-against-redirect-override", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		f := testFlow(t, nil)
		got, err := f.buildLoginState(
			newReq("/login"),
			getLoginOpts(
				WithReturnTo("/profile"),
				WithRedirectURL("https://other.acme.com/callback"),
			),
		)
		require.NoError(err)
		assert.Equal("https://other.acme.com/profile", got.ReturnTo())
	})
	t.Run("custom-state-merges", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		f := testFlow(t, nil, WithDefaultReturnTo("http://www.acme.com/"))
		got, err := f.buildLoginState(newReq("/login"), getLoginOpts(
			WithLoginState(func(*http.Request) interface{} {
				return map[string]interface{}{"foo": "bar"}
			}),
		))
		require.NoError(err)
		assert.Equal(LoginState{"foo": "bar", "returnTo": "http://www.acme.com/"}, got)
	})
	t.Run("custom-state-return-to-wins", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		f := testFlow(t, nil)
		got, err := f.buildLoginState(newReq("/login"), getLoginOpts(
			WithReturnTo("/profile"),
			WithLoginState(func(*http.Request) interface{} {
				return map[string]interface{}{"foo": "bar", "returnTo": "/bar"}
			}),
		))
		require.NoError(err)
		assert.Equal("bar", got["foo"])
		assert.Equal("/bar", got.ReturnTo())
	})
	t.Run("custom-state-non-mapping", func(t *testing.T) {
		require := require.New(t)
		f := testFlow(t, nil)
		for _, bad := range []interface{}{1, "scalar", []string{"list"}, nil} {
			bad := bad
			_, err := f.buildLoginState(newReq("/login"), getLoginOpts(
				WithLoginState(func(*http.Request) interface{} { return bad }),
			))
			require.ErrorIs(err, ErrInvalidCustomState)
		}
	})
	t.Run("custom-state-typed-mapping", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		f := testFlow(t, nil)
		got, err := f.buildLoginState(newReq("/login"), getLoginOpts(
			WithLoginState(func(*http.Request) interface{} {
				return map[string]int{"attempt": 2}
			}),
		))
		require.NoError(err)
		assert.Equal(2, got["attempt"])
	})
}
