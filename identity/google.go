package identity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"

	"google.golang.org/api/idtoken"
)

// certFetchFailure prefixes the idtoken error for a non-200 answer from the
// certificate endpoint.
const certFetchFailure = "idtoken: unable to retrieve cert"

type (
	// Google verifies Google Sign-In id tokens issued to one OAuth client.
	Google struct {
		audience string
		validate func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
	}
)

func NewGoogle(ctx context.Context, clientID string) (*Google, error) {
	if clientID == "" {
		return nil, errors.New("identity: google client id cannot be empty")
	}
	v, err := idtoken.NewValidator(ctx)
	if err != nil {
		return nil, fmt.Errorf("identity: unable to create google validator, cause %w", err)
	}
	return &Google{audience: clientID, validate: v.Validate}, nil
}

func (g *Google) Verify(ctx context.Context, assertion string) (Payload, error) {
	if assertion == "" {
		return Payload{}, NewInvalidAssertion(errors.New("empty assertion"))
	}
	p, err := g.validate(ctx, assertion, g.audience)
	if err != nil {
		return Payload{}, classify(err)
	}
	return payloadFrom(p)
}

// classify separates "the provider said no" from "we could not ask".
func classify(err error) error {
	var urlErr *url.Error
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("identity: verification interrupted, cause %w", err)
	case errors.As(err, &urlErr), errors.As(err, &netErr),
		errors.Is(err, io.ErrUnexpectedEOF),
		strings.HasPrefix(err.Error(), certFetchFailure):
		return fmt.Errorf("identity: unable to reach provider keys, cause %w", err)
	}
	return NewInvalidAssertion(err)
}

func payloadFrom(p *idtoken.Payload) (Payload, error) {
	if p == nil || p.Subject == "" {
		return Payload{}, NewInvalidAssertion(errors.New("assertion without subject"))
	}
	out := Payload{Subject: p.Subject}
	if name, ok := p.Claims["name"].(string); ok {
		out.Name = name
	}
	if email, ok := p.Claims["email"].(string); ok {
		out.Email = email
	}
	return out, nil
}
