package authflow

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
)

// LoginState carries caller-chosen key/values across the login round trip.
// Once built it always holds a "returnTo" entry describing where the user
// lands after the callback completes.
type LoginState map[string]interface{}

// returnToKey is the reserved LoginState key for the post-login return URL.
const returnToKey = "returnTo"

// ReturnTo returns the state's post-login return URL, if present.
func (s LoginState) ReturnTo() string {
	rt, _ := s[returnToKey].(string)
	return rt
}

// LoginStateFn builds custom login state for a request. The returned value
// must be a key/value mapping with string keys (a LoginState,
// map[string]interface{}, map[string]string, ...); anything else aborts the
// login with ErrInvalidCustomState.
type LoginStateFn func(r *http.Request) interface{}

// EncodeLoginState serializes state to the compact opaque form used for the
// authorization request's state parameter: unpadded base64url over the JSON
// encoding. The value placed in the redirect's state query parameter is this
// unsigned form; only the cookie copy is signed.
func EncodeLoginState(state LoginState) (string, error) {
	const op = "authflow.EncodeLoginState"
	b, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("%s: unable to marshal login state: %w", op, err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DecodeLoginState is the inverse of EncodeLoginState.
func DecodeLoginState(raw string) (LoginState, error) {
	const op = "authflow.DecodeLoginState"
	b, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrMalformedState)
	}
	var s LoginState
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrMalformedState)
	}
	return s, nil
}

// buildLoginState resolves the post-login return URL and merges in any
// custom state. Sources, in increasing precedence:
//
//  1. the configured default return URL (BaseURL when unset)
//  2. the first returnTo querystring parameter, accepted only when it is a
//     relative reference: absolute URLs from the querystring are never
//     trusted, which closes the open-redirect vector
//  3. an explicit WithReturnTo option, which is caller controlled and may
//     be absolute
//  4. the WithLoginState hook's mapping, merged last, whose own returnTo
//     wins over everything
//
// A relative result is resolved against the effective redirect_uri's origin
// before being embedded.
func (f *Flow) buildLoginState(r *http.Request, opts *loginOptions) (LoginState, error) {
	const op = "authflow.buildLoginState"

	returnTo := f.config.DefaultReturnTo
	if returnTo == "" {
		returnTo = f.config.BaseURL
	}
	if qs := firstQueryValue(r, returnToKey); qs != "" && isRelativeReference(qs) {
		returnTo = qs
	}
	if opts.withReturnTo != "" {
		returnTo = opts.withReturnTo
	}
	returnTo = resolveAgainstOrigin(returnTo, f.redirectURL(opts.withRedirectURL))

	state := LoginState{}
	if returnTo != "" {
		state[returnToKey] = returnTo
	}
	if opts.withLoginState != nil {
		custom, ok := asMapping(opts.withLoginState(r))
		if !ok {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCustomState)
		}
		for k, v := range custom {
			state[k] = v
		}
	}
	return state, nil
}

// firstQueryValue returns the first occurrence of name in the request's
// querystring. Only the first occurrence is ever honored.
func firstQueryValue(r *http.Request, name string) string {
	if vs := r.URL.Query()[name]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// isRelativeReference reports whether raw is a relative URL reference:
// no scheme and no authority, so it can only ever land on our own origin.
func isRelativeReference(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme == "" && u.Host == "" && u.User == nil
}

// resolveAgainstOrigin makes raw absolute by resolving it against base's
// origin (scheme and host only). An already-absolute raw is returned
// unchanged.
func resolveAgainstOrigin(raw, base string) string {
	if raw == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if u.IsAbs() {
		return raw
	}
	b, err := url.Parse(base)
	if err != nil {
		return raw
	}
	origin := &url.URL{Scheme: b.Scheme, Host: b.Host}
	return origin.ResolveReference(u).String()
}

// asMapping validates a custom state hook's result at the boundary,
// converting any string-keyed mapping into a LoginState.
func asMapping(v interface{}) (LoginState, bool) {
	switch s := v.(type) {
	case LoginState:
		return s, true
	case map[string]interface{}:
		return s, true
	case map[string]string:
		out := make(LoginState, len(s))
		for k, val := range s {
			out[k] = val
		}
		return out, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
		out := make(LoginState, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = iter.Value().Interface()
		}
		return out, true
	}
	return nil, false
}
