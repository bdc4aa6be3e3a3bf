// webapp is a minimal web application fronted by the authflow package: it
// wires up login, callback and logout handlers against a real identity
// provider and keeps a demo session in memory.
//
// Required configuration environment variables:
//
//	OIDC_ISSUER     the provider's issuer URL
//	OIDC_CLIENT_ID  the relying party client id
//	BASE_URL        the absolute URL this app is served from
//	COOKIE_SECRET   the transient-cookie signing secret
//	PORT            the port to listen on
package main

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/gatekit/gatekit/authflow"
)

func envConfig() (map[string]string, error) {
	env := map[string]string{}
	for _, k := range []string{"OIDC_ISSUER", "OIDC_CLIENT_ID", "BASE_URL", "COOKIE_SECRET", "PORT"} {
		v := os.Getenv(k)
		if v == "" {
			return nil, fmt.Errorf("%s is empty", k)
		}
		env[k] = v
	}
	return env, nil
}

// memSession is a demo-only session shared by every visitor. A real
// application would back authflow.Session with its session store.
type memSession struct {
	mu      sync.Mutex
	idToken string
}

func (s *memSession) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idToken != ""
}

func (s *memSession) IDToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idToken
}

func (s *memSession) Delete() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idToken = ""
	return nil
}

func (s *memSession) set(idToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idToken = idToken
}

func main() {
	logger := hclog.New(&hclog.LoggerOptions{Name: "webapp"})

	env, err := envConfig()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	cfg, err := authflow.NewConfig(
		env["OIDC_ISSUER"],
		env["OIDC_CLIENT_ID"],
		env["BASE_URL"],
		[]authflow.Secret{authflow.Secret(env["COOKIE_SECRET"])},
		authflow.WithClientSecret(authflow.Secret(os.Getenv("OIDC_CLIENT_SECRET"))),
		authflow.WithLogger(logger),
	)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	provider, err := authflow.NewProvider(cfg)
	if err != nil {
		logger.Error("unable to reach the identity provider", "error", err)
		os.Exit(1)
	}
	defer provider.Done()

	flow, err := authflow.NewFlow(cfg, provider)
	if err != nil {
		logger.Error("unable to build flow", "error", err)
		os.Exit(1)
	}

	session := &memSession{}
	sessionFor := func(*http.Request) authflow.Session { return session }

	mux := http.NewServeMux()
	mux.Handle("/login", flow.LoginHandler())
	mux.Handle("/logout", flow.LogoutHandler(sessionFor))
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		res, err := flow.Callback(w, r)
		if err != nil {
			logger.Error("callback failed", "error", err)
			// the transient state expired or never existed; start over
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		// a real application must verify res.IDToken (including its nonce
		// claim against res.Nonce) before establishing the session
		session.set(res.IDToken)
		http.Redirect(w, r, res.ReturnTo, http.StatusFound)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if session.IsAuthenticated() {
			fmt.Fprintln(w, `logged in. <a href="/logout">logout</a>`)
			return
		}
		fmt.Fprintln(w, `logged out. <a href="/login">login</a>`)
	})

	addr := net.JoinHostPort("localhost", env["PORT"])
	logger.Info("listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
