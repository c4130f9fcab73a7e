package session

import (
	"errors"
	"net/http"
	"time"
)

const (
	DefaultCookieName = "jwt"
)

// Transport moves the session token between browser and server inside a
// cookie page scripts cannot read.
type Transport struct {
	Name string
	// Secure must be on whenever the service is reached over https.
	Secure bool
}

func (t Transport) name() string {
	if t.Name == "" {
		return DefaultCookieName
	}
	return t.Name
}

// Read returns TokenMissing when the cookie is absent or empty.
func (t Transport) Read(r *http.Request) (string, error) {
	c, err := r.Cookie(t.name())
	if errors.Is(err, http.ErrNoCookie) || (err == nil && c.Value == "") {
		return "", TokenMissing{}
	} else if err != nil {
		return "", TokenInvalid{Reason: "unreadable cookie", cause: err}
	}
	return c.Value, nil
}

// Write stores tk, the cookie lives exactly as long as the token.
func (t Transport) Write(w http.ResponseWriter, tk Token) {
	maxAge := int(tk.ExpiresAt.Sub(tk.IssuedAt) / time.Second)
	if maxAge <= 0 {
		maxAge = -1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     t.name(),
		Value:    tk.Value,
		Path:     "/",
		MaxAge:   maxAge,
		Expires:  tk.ExpiresAt.UTC(),
		HttpOnly: true,
		Secure:   t.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// Clear asks the browser to drop its copy of the token. The token itself
// stays valid.
func (t Transport) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     t.name(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		HttpOnly: true,
		Secure:   t.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}
