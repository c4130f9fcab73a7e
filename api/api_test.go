package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/andrebq/notebox/identity"
	"github.com/andrebq/notebox/internal/testutil"
	"github.com/andrebq/notebox/notebook"
	"github.com/andrebq/notebox/session"
	"github.com/steinfletcher/apitest"
	jsonpath "github.com/steinfletcher/apitest-jsonpath"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOrigin = "http://localhost:5173"

type fixture struct {
	handler  http.Handler
	verifier *testutil.Verifier
	store    notebook.Store
	issuer   *session.Issuer
}

func newFixture(t *testing.T, backend string, opts ...session.Option) (*fixture, func()) {
	ctx := context.Background()
	store, cleanup := testutil.AcquireStore(ctx, t, backend)
	verifier := testutil.NewVerifier().
		Accept("assertion-u1", identity.Payload{Subject: "u1", Name: "Ada", Email: "ada@example.com"}).
		Accept("assertion-u1-renamed", identity.Payload{Subject: "u1", Name: "Countess", Email: "countess@example.com"}).
		Accept("assertion-u2", identity.Payload{Subject: "u2", Name: "Grace", Email: "grace@example.com"})
	issuer := testutil.AcquireIssuer(t, opts...)
	handler, err := AsHandler(ctx, Config{
		Store:         store,
		Verifier:      verifier,
		Issuer:        issuer,
		Cookies:       session.Transport{},
		VerifyTimeout: time.Second,
		AllowedOrigin: testOrigin,
	})
	require.NoError(t, err)
	return &fixture{handler: handler, verifier: verifier, store: store, issuer: issuer}, cleanup
}

func (f *fixture) login(t *testing.T, assertion string) string {
	res := apitest.Handler(f.handler).
		Post("/api/login").
		JSON(fmt.Sprintf(`{"idToken": %q}`, assertion)).
		Expect(t).
		Status(http.StatusOK).
		CookiePresent("jwt").
		End()
	for _, c := range res.Response.Cookies() {
		if c.Name == "jwt" {
			return c.Value
		}
	}
	t.Fatal("login did not set the session cookie")
	return ""
}

func forEachBackend(t *testing.T, fn func(t *testing.T, backend string)) {
	for _, backend := range []string{"memory", "sqlite"} {
		backend := backend
		t.Run(backend, func(t *testing.T) { fn(t, backend) })
	}
}

func TestEndToEnd(t *testing.T) {
	forEachBackend(t, func(t *testing.T, backend string) {
		f, cleanup := newFixture(t, backend)
		defer cleanup()

		res := apitest.Handler(f.handler).
			Post("/api/login").
			JSON(`{"idToken": "assertion-u1"}`).
			Expect(t).
			Status(http.StatusOK).
			Assert(jsonpath.Equal("$.message", "Login successful")).
			Assert(jsonpath.Equal("$.user.name", "Ada")).
			Assert(jsonpath.Equal("$.user.email", "ada@example.com")).
			End()
		var cookie *http.Cookie
		for _, c := range res.Response.Cookies() {
			if c.Name == "jwt" {
				cookie = c
			}
		}
		require.NotNil(t, cookie)
		assert.True(t, cookie.HttpOnly)
		assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
		assert.Equal(t, 7*24*60*60, cookie.MaxAge)
		assert.False(t, cookie.Secure)

		apitest.Handler(f.handler).
			Get("/api/user").
			Cookie("jwt", cookie.Value).
			Expect(t).
			Status(http.StatusOK).
			Assert(jsonpath.Equal("$.user.name", "Ada")).
			Assert(jsonpath.Equal("$.user.email", "ada@example.com")).
			End()

		apitest.Handler(f.handler).
			Get("/api/notes").
			Cookie("jwt", cookie.Value).
			Expect(t).
			Status(http.StatusOK).
			Body(`{"notes":[]}`).
			End()

		apitest.Handler(f.handler).
			Post("/api/notes").
			Cookie("jwt", cookie.Value).
			JSON(`{"content": "buy milk"}`).
			Expect(t).
			Status(http.StatusCreated).
			Assert(jsonpath.Equal("$.message", "Note added successfully")).
			Assert(jsonpath.Equal("$.note.content", "buy milk")).
			Assert(jsonpath.Present("$.note.id")).
			Assert(jsonpath.Present("$.note.timestamp")).
			End()

		apitest.Handler(f.handler).
			Get("/api/notes").
			Cookie("jwt", cookie.Value).
			Expect(t).
			Status(http.StatusOK).
			Assert(jsonpath.Len("$.notes", 1)).
			Assert(jsonpath.Equal("$.notes[0].content", "buy milk")).
			End()

		res = apitest.Handler(f.handler).
			Post("/api/logout").
			Cookie("jwt", cookie.Value).
			Expect(t).
			Status(http.StatusOK).
			Assert(jsonpath.Equal("$.message", "Logout successful")).
			End()
		var cleared bool
		for _, c := range res.Response.Cookies() {
			if c.Name == "jwt" {
				cleared = c.Value == "" && c.MaxAge < 0
			}
		}
		assert.True(t, cleared, "logout must ask the browser to drop the cookie")

		// the browser honoured the deletion, no cookie goes out anymore
		apitest.Handler(f.handler).
			Get("/api/notes").
			Expect(t).
			Status(http.StatusUnauthorized).
			Assert(jsonpath.Present("$.message")).
			End()
	})
}

func TestNotesAreIsolated(t *testing.T) {
	f, cleanup := newFixture(t, "memory")
	defer cleanup()
	ada := f.login(t, "assertion-u1")
	grace := f.login(t, "assertion-u2")

	apitest.Handler(f.handler).Post("/api/notes").Cookie("jwt", ada).JSON(`{"content":"ada's"}`).
		Expect(t).Status(http.StatusCreated).End()
	apitest.Handler(f.handler).Post("/api/notes").Cookie("jwt", grace).JSON(`{"content":"grace's"}`).
		Expect(t).Status(http.StatusCreated).End()

	apitest.Handler(f.handler).Get("/api/notes").Cookie("jwt", ada).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Len("$.notes", 1)).
		Assert(jsonpath.Equal("$.notes[0].content", "ada's")).
		End()
}

func TestLoginValidation(t *testing.T) {
	f, cleanup := newFixture(t, "memory")
	defer cleanup()

	for _, body := range []string{`{}`, `{"idToken": ""}`, `not json`} {
		apitest.Handler(f.handler).
			Post("/api/login").
			Body(body).
			Header("Content-Type", "application/json").
			Expect(t).
			Status(http.StatusBadRequest).
			CookieNotPresent("jwt").
			Assert(jsonpath.Present("$.message")).
			End()
	}
	assert.Equal(t, 0, f.verifier.Calls(), "verifier must not be called without a token")
}

func TestLoginRejected(t *testing.T) {
	f, cleanup := newFixture(t, "memory")
	defer cleanup()

	apitest.Handler(f.handler).
		Post("/api/login").
		JSON(`{"idToken": "forged"}`).
		Expect(t).
		Status(http.StatusUnauthorized).
		CookieNotPresent("jwt").
		Assert(jsonpath.Equal("$.message", "Authentication failed")).
		End()

	_, found, err := f.store.Lookup(context.Background(), "forged")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLoginProviderUnavailable(t *testing.T) {
	f, cleanup := newFixture(t, "memory")
	defer cleanup()
	f.verifier.Fail = errors.New("unable to reach provider keys")

	apitest.Handler(f.handler).
		Post("/api/login").
		JSON(`{"idToken": "assertion-u1"}`).
		Expect(t).
		Status(http.StatusInternalServerError).
		CookieNotPresent("jwt").
		Assert(jsonpath.Equal("$.message", "Authentication failed")).
		End()
	assert.Equal(t, 1, f.verifier.Calls(), "no retry on provider failure")
}

func TestRepeatedLoginKeepsProfile(t *testing.T) {
	forEachBackend(t, func(t *testing.T, backend string) {
		f, cleanup := newFixture(t, backend)
		defer cleanup()
		f.login(t, "assertion-u1")

		apitest.Handler(f.handler).
			Post("/api/login").
			JSON(`{"idToken": "assertion-u1-renamed"}`).
			Expect(t).
			Status(http.StatusOK).
			Assert(jsonpath.Equal("$.user.name", "Ada")).
			Assert(jsonpath.Equal("$.user.email", "ada@example.com")).
			End()

		u, found, err := f.store.Lookup(context.Background(), "u1")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "Ada", u.Name)
	})
}

func TestProtectedEndpointsRejectBadSessions(t *testing.T) {
	f, cleanup := newFixture(t, "memory")
	defer cleanup()

	expired, err := testutil.AcquireIssuer(t, session.WithClock(func() time.Time {
		return time.Now().Add(-8 * 24 * time.Hour)
	})).Issue("u1")
	require.NoError(t, err)
	otherKey, err := session.DeriveKey("some other secret")
	require.NoError(t, err)
	forged, err := session.NewIssuer(otherKey).Issue("u1")
	require.NoError(t, err)

	// u1 exists, so only the token can be the reason for a rejection
	f.login(t, "assertion-u1")

	cookies := map[string]string{
		"no cookie": "",
		"malformed": "definitely-not-a-token",
		"expired":   expired.Value,
		"forged":    forged.Value,
	}
	for name, value := range cookies {
		value := value
		t.Run(name, func(t *testing.T) {
			for _, call := range []struct {
				method, path, body string
			}{
				{"GET", "/api/user", ""},
				{"GET", "/api/notes", ""},
				{"POST", "/api/notes", `{"content": "should not be stored"}`},
			} {
				req := apitest.Handler(f.handler).Method(call.method).URL(call.path)
				if call.body != "" {
					req = req.JSON(call.body)
				}
				if value != "" {
					req = req.Cookie("jwt", value)
				}
				req.Expect(t).
					Status(http.StatusUnauthorized).
					Assert(jsonpath.Present("$.message")).
					End()
			}
		})
	}

	notes, err := f.store.ListNotes(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, notes, "rejected requests must not mutate the store")
}

func TestStaleDirectory(t *testing.T) {
	f, cleanup := newFixture(t, "memory")
	defer cleanup()

	// a valid token for a subject the directory forgot, as after a restart
	ghost, err := f.issuer.Issue("ghost")
	require.NoError(t, err)

	res := apitest.Handler(f.handler).
		Get("/api/user").
		Cookie("jwt", ghost.Value).
		Expect(t).
		Status(http.StatusNotFound).
		Assert(jsonpath.Equal("$.message", "User not found")).
		End()
	var cleared bool
	for _, c := range res.Response.Cookies() {
		cleared = cleared || (c.Name == "jwt" && c.MaxAge < 0)
	}
	assert.True(t, cleared, "stale sessions must be forced to log in again")

	apitest.Handler(f.handler).
		Post("/api/notes").
		Cookie("jwt", ghost.Value).
		JSON(`{"content": "orphan"}`).
		Expect(t).
		Status(http.StatusUnauthorized).
		End()

	notes, err := f.store.ListNotes(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestAddNoteValidation(t *testing.T) {
	f, cleanup := newFixture(t, "memory")
	defer cleanup()
	value := f.login(t, "assertion-u1")

	for _, body := range []string{`{}`, `{"content": ""}`, `{"content": "   "}`, `nope`} {
		apitest.Handler(f.handler).
			Post("/api/notes").
			Cookie("jwt", value).
			Body(body).
			Header("Content-Type", "application/json").
			Expect(t).
			Status(http.StatusBadRequest).
			Assert(jsonpath.Present("$.message")).
			End()
	}
	notes, err := f.store.ListNotes(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestLogoutKeepsTokenValid(t *testing.T) {
	f, cleanup := newFixture(t, "memory")
	defer cleanup()
	value := f.login(t, "assertion-u1")

	apitest.Handler(f.handler).Post("/api/logout").Cookie("jwt", value).
		Expect(t).Status(http.StatusOK).End()

	// stateless sessions: a copy kept elsewhere is still good until it expires
	apitest.Handler(f.handler).Get("/api/notes").Cookie("jwt", value).
		Expect(t).Status(http.StatusOK).End()
}

func TestLogoutWithRevocation(t *testing.T) {
	registry, err := session.InMemoryRevocations(time.Hour)
	require.NoError(t, err)
	f, cleanup := newFixture(t, "memory", session.WithRevocations(registry))
	defer cleanup()
	value := f.login(t, "assertion-u1")
	other := f.login(t, "assertion-u1")

	apitest.Handler(f.handler).Post("/api/logout").Cookie("jwt", value).
		Expect(t).Status(http.StatusOK).End()

	apitest.Handler(f.handler).Get("/api/notes").Cookie("jwt", value).
		Expect(t).Status(http.StatusUnauthorized).End()
	apitest.Handler(f.handler).Get("/api/notes").Cookie("jwt", other).
		Expect(t).Status(http.StatusOK).End()
}

func TestLogoutWithoutSession(t *testing.T) {
	f, cleanup := newFixture(t, "memory")
	defer cleanup()
	apitest.Handler(f.handler).
		Post("/api/logout").
		Expect(t).
		Status(http.StatusOK).
		CookiePresent("jwt").
		End()
}

func TestCORS(t *testing.T) {
	f, cleanup := newFixture(t, "memory")
	defer cleanup()

	apitest.Handler(f.handler).
		Post("/api/logout").
		Header("Origin", testOrigin).
		Expect(t).
		Status(http.StatusOK).
		Header("Access-Control-Allow-Origin", testOrigin).
		Header("Access-Control-Allow-Credentials", "true").
		End()

	apitest.Handler(f.handler).
		Post("/api/logout").
		Header("Origin", "https://evil.example.com").
		Expect(t).
		Status(http.StatusOK).
		HeaderNotPresent("Access-Control-Allow-Origin").
		End()
}

func TestHealthAndNotFound(t *testing.T) {
	f, cleanup := newFixture(t, "memory")
	defer cleanup()
	apitest.Handler(f.handler).Get("/healthz").Expect(t).Status(http.StatusOK).Body(`{"ok":true}`).End()
	apitest.Handler(f.handler).Get("/api/nope").Expect(t).Status(http.StatusNotFound).End()
}

func TestMethodNotAllowed(t *testing.T) {
	f, cleanup := newFixture(t, "memory")
	defer cleanup()
	apitest.Handler(f.handler).
		Get("/api/login").
		Expect(t).
		Status(http.StatusMethodNotAllowed).
		Assert(jsonpath.Equal("$.message", "Method not allowed")).
		End()
}

func TestAsHandlerRequiresCollaborators(t *testing.T) {
	_, err := AsHandler(context.Background(), Config{})
	assert.Error(t, err)
}

func TestClientFallback(t *testing.T) {
	ctx := context.Background()
	store, cleanup := testutil.AcquireStore(ctx, t, "memory")
	defer cleanup()
	var served []string
	handler, err := AsHandler(ctx, Config{
		Store:    store,
		Verifier: testutil.NewVerifier(),
		Issuer:   testutil.AcquireIssuer(t),
		Client: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			served = append(served, r.URL.Path)
			w.WriteHeader(http.StatusOK)
		}),
	})
	require.NoError(t, err)

	apitest.Handler(handler).Get("/").Expect(t).Status(http.StatusOK).End()
	apitest.Handler(handler).Get("/assets/app.js").Expect(t).Status(http.StatusOK).End()
	apitest.Handler(handler).Get("/api/unknown").Expect(t).
		Status(http.StatusNotFound).
		Assert(jsonpath.Equal("$.message", "Not found")).
		End()
	assert.Equal(t, []string{"/", "/assets/app.js"}, served)
}
