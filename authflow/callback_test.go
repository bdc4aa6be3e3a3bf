package authflow

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// startLogin runs the login leg and returns a callback request carrying the
// transient cookies a browser would replay plus the given response query.
func startLogin(t *testing.T, f *Flow, query url.Values, opt ...Option) *http.Request {
	t.Helper()
	require := require.New(t)
	rec := httptest.NewRecorder()
	require.NoError(f.Login(rec, httptest.NewRequest(http.MethodGet, "/login", nil), opt...))

	q := authRedirectQuery(t, rec)
	if query.Get("state") == "" && !query.Has("state") {
		query.Set("state", q.Get("state"))
	}
	req := httptest.NewRequest(http.MethodGet, "/callback?"+query.Encode(), nil)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			continue
		}
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	return req
}

func TestFlow_Callback(t *testing.T) {
	t.Parallel()
	t.Run("success", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		idp := &testIdp{}
		f := testFlow(t, idp)
		req := startLogin(t, f, url.Values{"code": {"auth-code"}}, WithReturnTo("/profile"))

		rec := httptest.NewRecorder()
		got, err := f.Callback(rec, req)
		require.NoError(err)
		assert.Equal("http://www.acme.com/profile", got.ReturnTo)
		assert.NotEmpty(got.Nonce)
		assert.Equal("test-id-token", got.IDToken)
		assert.Equal("test-access-token", got.Token.AccessToken)

		// the exchange presented the code, the matching redirect_uri and
		// the verifier from the transient cookie
		assert.Equal("auth-code", idp.exchangedCode)
		assert.Equal("http://www.acme.com/callback", idp.exchangedRedirect)
		assert.NotEmpty(idp.exchangedVerifier)
	})
	t.Run("clears-transients", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		f := testFlow(t, nil)
		req := startLogin(t, f, url.Values{"code": {"auth-code"}})

		rec := httptest.NewRecorder()
		_, err := f.Callback(rec, req)
		require.NoError(err)

		cleared := map[string]bool{}
		for _, c := range rec.Result().Cookies() {
			if c.MaxAge < 0 {
				cleared[c.Name] = true
			}
		}
		for _, name := range []string{stateCookie, nonceCookie, verifierCookie} {
			assert.Truef(cleared[name], "expected %s to be cleared", name)
		}
	})
	t.Run("missing-cookies", func(t *testing.T) {
		require := require.New(t)
		f := testFlow(t, nil)
		req := httptest.NewRequest(http.MethodGet, "/callback?state=whatever&code=auth-code", nil)
		_, err := f.Callback(httptest.NewRecorder(), req)
		require.ErrorIs(err, ErrProtocolStateMissing)
	})
	t.Run("tampered-state-cookie", func(t *testing.T) {
		require := require.New(t)
		f := testFlow(t, nil)
		req := startLogin(t, f, url.Values{"code": {"auth-code"}})

		// corrupt the state cookie the way an attacker (or a truncating
		// proxy) would
		tampered := httptest.NewRequest(http.MethodGet, req.URL.String(), nil)
		for _, c := range req.Cookies() {
			v := c.Value
			if c.Name == stateCookie {
				v += "x"
			}
			tampered.AddCookie(&http.Cookie{Name: c.Name, Value: v})
		}
		_, err := f.Callback(httptest.NewRecorder(), tampered)
		require.ErrorIs(err, ErrProtocolStateMissing)
	})
	t.Run("state-mismatch", func(t *testing.T) {
		require := require.New(t)
		f := testFlow(t, nil)
		req := startLogin(t, f, url.Values{"state": {"some-other-state"}, "code": {"auth-code"}})
		_, err := f.Callback(httptest.NewRecorder(), req)
		require.ErrorIs(err, ErrResponseStateMismatch)
	})
	t.Run("provider-error-response", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		f := testFlow(t, nil)
		req := startLogin(t, f, url.Values{
			"error":             {"access_denied"},
			"error_description": {"user cancelled"},
		})
		_, err := f.Callback(httptest.NewRecorder(), req)
		require.ErrorIs(err, ErrProviderError)
		assert.Contains(err.Error(), "access_denied")
		assert.Contains(err.Error(), "user cancelled")
	})
	t.Run("missing-code", func(t *testing.T) {
		require := require.New(t)
		f := testFlow(t, nil)
		req := startLogin(t, f, url.Values{})
		_, err := f.Callback(httptest.NewRecorder(), req)
		require.ErrorIs(err, ErrMissingCode)
	})
	t.Run("missing-id-token", func(t *testing.T) {
		require := require.New(t)
		idp := &testIdp{exchangeToken: &oauth2.Token{AccessToken: "no-id-token"}}
		f := testFlow(t, idp)
		req := startLogin(t, f, url.Values{"code": {"auth-code"}})
		_, err := f.Callback(httptest.NewRecorder(), req)
		require.ErrorIs(err, ErrMissingIDToken)
	})
	t.Run("exchange-failure", func(t *testing.T) {
		require := require.New(t)
		idp := &testIdp{exchangeErr: errors.New("token endpoint unavailable")}
		f := testFlow(t, idp)
		req := startLogin(t, f, url.Values{"code": {"auth-code"}})
		_, err := f.Callback(httptest.NewRecorder(), req)
		require.Error(err)
	})
	t.Run("no-replay", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		f := testFlow(t, nil)
		req := startLogin(t, f, url.Values{"code": {"auth-code"}})

		// replay is impossible once the transients are cleared
		rec := httptest.NewRecorder()
		_, err := f.Callback(rec, req)
		require.NoError(err)

		replay := httptest.NewRequest(http.MethodGet, req.URL.String(), nil)
		_, err = f.Callback(httptest.NewRecorder(), replay)
		assert.ErrorIs(err, ErrProtocolStateMissing)
	})
}
