// Package identity checks the identity assertions handed to the browser by
// the identity provider and extracts who the user is.
package identity

import (
	"context"
	"fmt"
)

type (
	Payload struct {
		Subject string
		Name    string
		Email   string
	}

	// Verifier validates an assertion against the provider keys and the
	// audience it was configured with.
	Verifier interface {
		Verify(ctx context.Context, assertion string) (Payload, error)
	}

	// InvalidAssertion means the provider keys were reachable but the
	// assertion was rejected: bad signature, wrong audience, expired or
	// malformed.
	InvalidAssertion struct {
		cause error
	}
)

func NewInvalidAssertion(cause error) InvalidAssertion {
	return InvalidAssertion{cause: cause}
}

func (i InvalidAssertion) Error() string {
	if i.cause == nil {
		return "identity assertion rejected"
	}
	return fmt.Sprintf("identity assertion rejected, cause %v", i.cause)
}

func (i InvalidAssertion) Unwrap() error {
	return i.cause
}
