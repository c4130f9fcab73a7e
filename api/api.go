package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/andrebq/notebox/identity"
	"github.com/andrebq/notebox/internal/logutil"
	"github.com/andrebq/notebox/notebook"
	"github.com/andrebq/notebox/session"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
)

type (
	Config struct {
		Store    notebook.Store
		Verifier identity.Verifier
		Issuer   *session.Issuer
		Cookies  session.Transport

		// VerifyTimeout bounds the call to the identity provider.
		VerifyTimeout time.Duration
		// AllowedOrigin is the only cross-origin caller allowed, with
		// credentials. Empty disables CORS headers.
		AllowedOrigin string
		// Client, when set, serves the browser application. It receives GET /
		// and every path outside /api/ that no route claims.
		Client http.Handler
	}
)

// AsHandler exposes the notes api. The logger carried by ctx becomes the
// parent of every request logger.
func AsHandler(ctx context.Context, cfg Config) (http.Handler, error) {
	switch {
	case cfg.Store == nil:
		return nil, errors.New("api: missing store")
	case cfg.Verifier == nil:
		return nil, errors.New("api: missing identity verifier")
	case cfg.Issuer == nil:
		return nil, errors.New("api: missing session issuer")
	}
	if cfg.VerifyTimeout <= 0 {
		cfg.VerifyTimeout = 10 * time.Second
	}

	realm := NewRealm(cfg.Issuer, cfg.Cookies, cfg.Store)
	router := httprouter.New()
	router.Handler("POST", "/api/login", login(cfg.Verifier, cfg.Store, cfg.Issuer, cfg.Cookies, cfg.VerifyTimeout))
	router.Handler("POST", "/api/logout", logout(cfg.Issuer, cfg.Cookies))
	router.Handler("GET", "/api/user", realm.Authenticate(currentUser(cfg.Cookies)))
	router.Handler("GET", "/api/notes", realm.Protect(listNotes(cfg.Store)))
	router.Handler("POST", "/api/notes", realm.Protect(addNote(cfg.Store)))
	router.HandlerFunc("GET", "/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	if cfg.Client != nil {
		router.Handler("GET", "/", cfg.Client)
	}
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cfg.Client != nil && !strings.HasPrefix(r.URL.Path, "/api/") {
			cfg.Client.ServeHTTP(w, r)
			return
		}
		writeJSON(w, http.StatusNotFound, message{Message: "Not found"})
	})
	router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, message{Message: "Method not allowed"})
	})
	router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v interface{}) {
		log := logutil.GetOrDefault(r.Context())
		log.Error().Interface("panic", v).Msg("Handler panic")
		writeJSON(w, http.StatusInternalServerError, message{Message: "Internal server error"})
	}

	var handler http.Handler = router
	if cfg.AllowedOrigin != "" {
		handler = cors.New(cors.Options{
			AllowedOrigins:   []string{cfg.AllowedOrigin},
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Content-Type"},
			AllowCredentials: true,
		}).Handler(handler)
	}
	return logutil.Middleware(logutil.GetOrDefault(ctx), handler), nil
}
