package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	DefaultTTL = 7 * 24 * time.Hour
)

type (
	Token struct {
		Value     string
		ID        string
		Subject   string
		IssuedAt  time.Time
		ExpiresAt time.Time
	}

	Claims struct {
		Subject   string
		ID        string
		IssuedAt  time.Time
		ExpiresAt time.Time
	}

	Issuer struct {
		key     []byte
		ttl     time.Duration
		now     func() time.Time
		revoked Revocations
	}

	Option func(*Issuer)
)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(i *Issuer) { i.ttl = ttl }
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

// WithRevocations makes Verify consult r and enables Revoke.
func WithRevocations(r Revocations) Option {
	return func(i *Issuer) { i.revoked = r }
}

func NewIssuer(key *Key, opts ...Option) *Issuer {
	i := &Issuer{
		key: append([]byte(nil), key[:]...),
		ttl: DefaultTTL,
		now: time.Now,
	}
	for _, o := range opts {
		o(i)
	}
	return i
}

func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

func (i *Issuer) Issue(subject string) (Token, error) {
	if subject == "" {
		return Token{}, errors.New("session: cannot issue a token without subject")
	}
	now := i.now()
	tk := Token{
		ID:        uuid.NewString(),
		Subject:   subject,
		IssuedAt:  now,
		ExpiresAt: now.Add(i.ttl),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ID:        tk.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(tk.ExpiresAt),
	}).SignedString(i.key)
	if err != nil {
		return Token{}, fmt.Errorf("session: unable to sign token, cause %w", err)
	}
	tk.Value = signed
	return tk, nil
}

func (i *Issuer) Verify(ctx context.Context, value string) (Claims, error) {
	if value == "" {
		return Claims{}, TokenMissing{}
	}
	var rc jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(value, &rc, func(t *jwt.Token) (interface{}, error) {
		return i.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(i.now))
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return Claims{}, TokenInvalid{Reason: "expired", cause: err}
	case err != nil:
		return Claims{}, TokenInvalid{Reason: "rejected", cause: err}
	case rc.Subject == "":
		return Claims{}, TokenInvalid{Reason: "missing subject"}
	}
	c := Claims{
		Subject:   rc.Subject,
		ID:        rc.ID,
		ExpiresAt: rc.ExpiresAt.Time,
	}
	if rc.IssuedAt != nil {
		c.IssuedAt = rc.IssuedAt.Time
	}
	if i.revoked != nil && c.ID != "" {
		revoked, err := i.revoked.Revoked(ctx, c.ID)
		if err != nil {
			return Claims{}, fmt.Errorf("session: unable to check revocation of %v, cause %w", c.ID, err)
		} else if revoked {
			return Claims{}, TokenInvalid{Reason: "revoked"}
		}
	}
	return c, nil
}

// Revoke records the token id of value so Verify rejects it. Without a
// revocation registry this does nothing: tokens stay valid until they expire.
func (i *Issuer) Revoke(ctx context.Context, value string) (bool, error) {
	if i.revoked == nil {
		return false, nil
	}
	c, err := i.Verify(ctx, value)
	var invalid TokenInvalid
	if errors.Is(err, TokenMissing{}) || errors.As(err, &invalid) {
		// nothing to revoke on a token we would reject anyway
		return false, nil
	} else if err != nil {
		return false, err
	}
	if c.ID == "" {
		return false, nil
	}
	err = i.revoked.Revoke(ctx, c.ID, c.ExpiresAt)
	if err != nil {
		return false, err
	}
	return true, nil
}
