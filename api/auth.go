package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/andrebq/notebox/identity"
	"github.com/andrebq/notebox/internal/logutil"
	"github.com/andrebq/notebox/notebook"
	"github.com/andrebq/notebox/session"
)

type (
	loginRequest struct {
		IDToken string `json:"idToken"`
	}

	userResponse struct {
		Message string        `json:"message,omitempty"`
		User    notebook.User `json:"user"`
	}
)

func login(verifier identity.Verifier, users notebook.Store, issuer *session.Issuer, cookies session.Transport, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body loginRequest
		if err := readJSON(w, r, &body); err != nil {
			writeError(w, r, err)
			return
		}
		if body.IDToken == "" {
			writeError(w, r, BadRequest{Message: "Missing ID Token"})
			return
		}
		log := logutil.GetOrDefault(r.Context())

		// single attempt, bounded, no retry
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		payload, err := verifier.Verify(ctx, body.IDToken)
		cancel()
		var invalid identity.InvalidAssertion
		if errors.As(err, &invalid) {
			writeError(w, r, err)
			return
		} else if err != nil {
			log.Error().Err(err).Msg("Unable to verify identity assertion")
			writeJSON(w, http.StatusInternalServerError, message{Message: "Authentication failed"})
			return
		}

		user, _, err := users.Upsert(r.Context(), notebook.Profile{
			Subject: payload.Subject,
			Name:    payload.Name,
			Email:   payload.Email,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		tk, err := issuer.Issue(user.Subject)
		if err != nil {
			log.Error().Err(err).Str("subject", user.Subject).Msg("Unable to issue session token")
			writeJSON(w, http.StatusInternalServerError, message{Message: "Authentication failed"})
			return
		}
		cookies.Write(w, tk)
		log.Info().Str("subject", user.Subject).Time("expires_at", tk.ExpiresAt).Msg("Session issued")
		writeJSON(w, http.StatusOK, userResponse{Message: "Login successful", User: user})
	}
}

func logout(issuer *session.Issuer, cookies session.Transport) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if value, err := cookies.Read(r); err == nil {
			revoked, err := issuer.Revoke(r.Context(), value)
			log := logutil.GetOrDefault(r.Context())
			if err != nil {
				log.Warn().Err(err).Msg("Unable to revoke session token, only the cookie will be cleared")
			} else if revoked {
				log.Debug().Msg("Session token revoked")
			}
		}
		cookies.Clear(w)
		writeJSON(w, http.StatusOK, message{Message: "Logout successful"})
	}
}

// currentUser answers 404 for a valid session whose subject is missing from
// the directory (the directory was reset while the token stayed valid). The
// cookie is dropped so the client goes through login again.
func currentUser(cookies session.Transport) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _ := PrincipalFrom(r.Context())
		if !p.Known {
			cookies.Clear(w)
			writeJSON(w, http.StatusNotFound, message{Message: "User not found"})
			return
		}
		writeJSON(w, http.StatusOK, userResponse{User: p.User})
	}
}
