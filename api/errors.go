package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/andrebq/notebox/identity"
	"github.com/andrebq/notebox/internal/logutil"
	"github.com/andrebq/notebox/notebook"
	"github.com/andrebq/notebox/session"
)

type (
	BadRequest struct {
		Message string
	}

	// staleSession is a valid token whose subject is gone from the directory.
	staleSession struct{}

	message struct {
		Message string `json:"message"`
	}
)

func (b BadRequest) Error() string {
	return b.Message
}

func (staleSession) Error() string {
	return "session subject not found in directory"
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := classify(err)
	log := logutil.GetOrDefault(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", status).Msg("Request failed")
	} else {
		log.Debug().Err(err).Int("status", status).Msg("Request rejected")
	}
	writeJSON(w, status, message{Message: msg})
}

func classify(err error) (int, string) {
	var (
		invalidToken     session.TokenInvalid
		invalidAssertion identity.InvalidAssertion
		badRequest       BadRequest
	)
	switch {
	case errors.Is(err, session.TokenMissing{}):
		return http.StatusUnauthorized, "Not authenticated. No token found."
	case errors.As(err, &invalidToken):
		return http.StatusUnauthorized, "Not authenticated. Invalid token."
	case errors.Is(err, staleSession{}):
		return http.StatusUnauthorized, "Not authenticated. Please log in again."
	case errors.As(err, &invalidAssertion):
		return http.StatusUnauthorized, "Authentication failed"
	case errors.Is(err, notebook.EmptyContent{}):
		return http.StatusBadRequest, "Note content is required."
	case errors.As(err, &badRequest):
		return http.StatusBadRequest, badRequest.Message
	}
	return http.StatusInternalServerError, "Internal server error"
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func readJSON(w http.ResponseWriter, r *http.Request, out interface{}) error {
	const MaxBody = 1 << 20
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBody))
	if err := dec.Decode(out); err != nil {
		return BadRequest{Message: "Invalid JSON body"}
	}
	return nil
}
