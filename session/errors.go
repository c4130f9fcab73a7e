package session

import "fmt"

type (
	// TokenMissing means the request carried no session token at all.
	TokenMissing struct{}

	// TokenInvalid covers bad signatures, unexpected algorithms, malformed
	// claims, expired and revoked tokens.
	TokenInvalid struct {
		Reason string
		cause  error
	}
)

func (TokenMissing) Error() string {
	return "session token missing"
}

func (t TokenInvalid) Error() string {
	if t.cause != nil {
		return fmt.Sprintf("session token invalid: %v, cause %v", t.Reason, t.cause)
	}
	return fmt.Sprintf("session token invalid: %v", t.Reason)
}

func (t TokenInvalid) Unwrap() error {
	return t.cause
}
