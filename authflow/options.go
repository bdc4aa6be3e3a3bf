package authflow

// Option defines a common functional options type
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		if o == nil {
			continue
		}
		o(opts)
	}
}

// WithScopes provides optional scopes, replacing the defaults. The required
// "openid" scope is always requested, whether listed or not. Valid for:
// Config, Login
func WithScopes(scopes ...string) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *configOptions:
			v.withScopes = scopes
		case *loginOptions:
			v.withScopes = scopes
		}
	}
}

// WithAudience provides an optional audience authorization parameter. Valid
// for: Config, Login
func WithAudience(audience string) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *configOptions:
			v.withAudience = audience
		case *loginOptions:
			v.withAudience = audience
		}
	}
}

// WithOrganization provides an optional organization authorization
// parameter. Valid for: Config, Login
func WithOrganization(organization string) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *configOptions:
			v.withOrganization = organization
		case *loginOptions:
			v.withOrganization = organization
		}
	}
}

// WithInvitation provides an optional invitation authorization parameter for
// accepting an organization invitation. Valid for: Login
func WithInvitation(invitation string) Option {
	return func(o interface{}) {
		if o, ok := o.(*loginOptions); ok {
			o.withInvitation = invitation
		}
	}
}

// WithAuthorizationParams provides additional authorization request
// parameters. Config-level parameters apply to every login; per-call
// parameters override them. Valid for: Config, Login
func WithAuthorizationParams(params map[string]string) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *configOptions:
			v.withAuthorizationParams = params
		case *loginOptions:
			v.withAuthorizationParams = params
		}
	}
}

// WithReturnTo provides the URL the user lands on once the flow completes.
// Unlike a returnTo querystring parameter, an explicit WithReturnTo is
// caller controlled and is therefore allowed to be absolute. Valid for:
// Login, Logout
func WithReturnTo(returnTo string) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *loginOptions:
			v.withReturnTo = returnTo
		case *logoutOptions:
			v.withReturnTo = returnTo
		}
	}
}

// WithRedirectURL overrides the redirect_uri sent to the provider for a
// single call. It must match between the login and callback legs of one
// flow. Valid for: Login, Callback
func WithRedirectURL(redirectURL string) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *loginOptions:
			v.withRedirectURL = redirectURL
		case *callbackOptions:
			v.withRedirectURL = redirectURL
		}
	}
}

// WithLoginState provides a hook that contributes caller-defined key/values
// to the login state carried through the flow. The hook's mapping is merged
// over the accumulated state, so its returnTo entry, when present, wins over
// every other source. Valid for: Login
func WithLoginState(fn LoginStateFn) Option {
	return func(o interface{}) {
		if o, ok := o.(*loginOptions); ok {
			o.withLoginState = fn
		}
	}
}
