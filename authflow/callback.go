package authflow

import (
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// CallbackResult is what a completed callback leg yields.
type CallbackResult struct {
	// LoginState is the state the matching login leg carried through the
	// flow.
	LoginState LoginState

	// ReturnTo is where the user should land now that the flow is
	// complete.
	ReturnTo string

	// Nonce is the nonce the login leg generated. The caller must check it
	// against the ID token's nonce claim when validating the token.
	Nonce string

	// Token is the provider's token response.
	Token *oauth2.Token

	// IDToken is the raw id_token from the token response. It has not been
	// verified; validation is the caller's concern.
	IDToken string
}

// Callback completes the redirect round trip. It reads and clears the
// transient login cookies, compares the state parameter the provider sent
// back against the signed cookie copy, recovers the login state, and
// redeems the authorization code (with the PKCE verifier) at the provider.
//
// Absent or invalid transient cookies yield ErrProtocolStateMissing, which
// is recoverable: the browser dropped or outlived the cookies, or the
// request is forged, and either way the caller should re-initiate login
// rather than fail hard.
//
// Supported options: WithRedirectURL
func (f *Flow) Callback(w http.ResponseWriter, r *http.Request, opt ...Option) (*CallbackResult, error) {
	const op = "authflow.Flow.Callback"
	opts := getCallbackOpts(opt...)

	// read-and-clear all three up front so no transient survives the
	// callback, whatever its outcome
	expectedState := f.transient.Read(w, r, stateCookie)
	nonce := f.transient.Read(w, r, nonceCookie)
	verifier := f.transient.Read(w, r, verifierCookie)

	if errParam := r.FormValue("error"); errParam != "" {
		return nil, fmt.Errorf("%s: %s (%s): %w", op, errParam, r.FormValue("error_description"), ErrProviderError)
	}
	if expectedState == "" || nonce == "" || verifier == "" {
		return nil, fmt.Errorf("%s: transient login cookies are absent or invalid: %w", op, ErrProtocolStateMissing)
	}
	if r.FormValue("state") != expectedState {
		return nil, fmt.Errorf("%s: %w", op, ErrResponseStateMismatch)
	}

	state, err := DecodeLoginState(expectedState)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	result := &CallbackResult{
		LoginState: state,
		ReturnTo:   state.ReturnTo(),
		Nonce:      nonce,
	}

	code := r.FormValue("code")
	if code == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingCode)
	}
	token, err := f.idp.Exchange(r.Context(), code, f.redirectURL(opts.withRedirectURL), verifier)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	result.Token = token

	raw, ok := token.Extra("id_token").(string)
	if !ok || raw == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingIDToken)
	}
	result.IDToken = raw

	return result, nil
}

// callbackOptions is the set of available options for Flow.Callback
type callbackOptions struct {
	withRedirectURL string
}

// getCallbackOpts gets the callback defaults and applies the opt overrides
// passed in.
func getCallbackOpts(opt ...Option) *callbackOptions {
	opts := &callbackOptions{}
	ApplyOpts(opts, opt...)
	return opts
}
