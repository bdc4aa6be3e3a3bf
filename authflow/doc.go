// Package authflow implements the browser-facing front door of an OIDC
// authorization code flow: initiating login, completing the callback, and
// tearing the session down again.
//
// The handshake is protected by short-lived, tamper-evident transient
// cookies (see the transient subpackage) carrying the nonce, the state and
// the PKCE code verifier across the redirect round trip, and by an
// open-redirect-safe returnTo resolution when deciding where the user lands
// afterwards.
//
// A typical wiring:
//
//	cfg, err := authflow.NewConfig(
//		"https://issuer.example.com/",
//		"client-id",
//		"https://app.example.com",
//		[]authflow.Secret{"a-long-lived-secret"},
//	)
//	// handle err
//	p, err := authflow.NewProvider(cfg)
//	// handle err
//	defer p.Done()
//	flow, err := authflow.NewFlow(cfg, p)
//	// handle err
//
//	mux.Handle("/login", flow.LoginHandler())
//	mux.Handle("/logout", flow.LogoutHandler(sessionFor))
//	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
//		res, err := flow.Callback(w, r)
//		// validate res.IDToken against res.Nonce, establish the session,
//		// then redirect to res.ReturnTo
//	})
package authflow
