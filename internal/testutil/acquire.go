package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/andrebq/notebox/identity"
	"github.com/andrebq/notebox/notebook"
	"github.com/andrebq/notebox/session"
)

type (
	TestLog interface {
		Fatal(...interface{})
		Log(...interface{})
	}

	// Verifier accepts only the assertions it was told about.
	Verifier struct {
		sync.Mutex
		known map[string]identity.Payload
		// Fail, when set, is returned for every call instead of a verdict.
		Fail  error
		calls int
	}
)

func NewVerifier() *Verifier {
	return &Verifier{known: map[string]identity.Payload{}}
}

// Accept registers assertion as a valid proof of p.
func (v *Verifier) Accept(assertion string, p identity.Payload) *Verifier {
	v.Lock()
	defer v.Unlock()
	v.known[assertion] = p
	return v
}

func (v *Verifier) Verify(ctx context.Context, assertion string) (identity.Payload, error) {
	v.Lock()
	defer v.Unlock()
	v.calls++
	if v.Fail != nil {
		return identity.Payload{}, v.Fail
	}
	p, ok := v.known[assertion]
	if !ok {
		return identity.Payload{}, identity.NewInvalidAssertion(errors.New("unknown assertion"))
	}
	return p, nil
}

func (v *Verifier) Calls() int {
	v.Lock()
	defer v.Unlock()
	return v.calls
}

func AcquireStore(ctx context.Context, t TestLog, backend string) (notebook.Store, func()) {
	var s notebook.Store
	switch backend {
	case "sqlite":
		var err error
		s, err = notebook.InSQLite(ctx)
		if err != nil {
			t.Fatal(err)
		}
	default:
		s = notebook.InMemory()
	}
	return s, func() {
		err := s.Close()
		if err != nil {
			t.Log("unable to close store", err)
		}
	}
}

func AcquireIssuer(t TestLog, opts ...session.Option) *session.Issuer {
	key, err := session.DeriveKey("notebox tests")
	if err != nil {
		t.Fatal(err)
	}
	return session.NewIssuer(key, opts...)
}
