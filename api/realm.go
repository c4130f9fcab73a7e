package api

import (
	"context"
	"net/http"

	"github.com/andrebq/notebox/internal/logutil"
	"github.com/andrebq/notebox/notebook"
	"github.com/andrebq/notebox/session"
)

type (
	// SecurityRealm guards the endpoints that need a logged in user.
	SecurityRealm struct {
		issuer  *session.Issuer
		cookies session.Transport
		users   notebook.Store
	}

	// Principal is the caller of a protected endpoint.
	Principal struct {
		Subject string
		// User is the zero value when Known is false.
		User  notebook.User
		Known bool
		Token session.Claims
	}

	principalKey struct{}
)

func NewRealm(issuer *session.Issuer, cookies session.Transport, users notebook.Store) *SecurityRealm {
	return &SecurityRealm{
		issuer:  issuer,
		cookies: cookies,
		users:   users,
	}
}

// Protect runs sensitive only for callers with a valid session whose subject
// is present in the directory. Everyone else gets a 401 and sensitive never
// runs.
func (s *SecurityRealm) Protect(sensitive http.Handler) http.Handler {
	return s.guard(sensitive, true)
}

// Authenticate is Protect without the directory requirement, the handler
// decides what to do when Principal.Known is false.
func (s *SecurityRealm) Authenticate(sensitive http.Handler) http.Handler {
	return s.guard(sensitive, false)
}

func (s *SecurityRealm) guard(sensitive http.Handler, requireUser bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := s.principal(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if requireUser && !p.Known {
			log := logutil.GetOrDefault(r.Context())
			log.Warn().Str("subject", p.Subject).Msg("Valid session for a subject missing from the directory")
			s.cookies.Clear(w)
			writeError(w, r, staleSession{})
			return
		}
		sensitive.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, p)))
	})
}

func (s *SecurityRealm) principal(r *http.Request) (Principal, error) {
	ctx := r.Context()
	value, err := s.cookies.Read(r)
	if err != nil {
		return Principal{}, err
	}
	claims, err := s.issuer.Verify(ctx, value)
	if err != nil {
		return Principal{}, err
	}
	u, found, err := s.users.Lookup(ctx, claims.Subject)
	if err != nil {
		return Principal{}, err
	}
	return Principal{
		Subject: claims.Subject,
		User:    u,
		Known:   found,
		Token:   claims,
	}, nil
}

// PrincipalFrom returns the caller attached by the realm.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
