// Package identity supplies the current user's opaque identifier. The
// ledger coordinator refuses every mutation when no identity is available.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/idtoken"

	"finvoice/internal/core"
)

// Provider yields the user ID that scopes a ledger operation.
type Provider interface {
	UserID(ctx context.Context) (string, error)
}

// Verifier checks a raw bearer token and returns the user ID it asserts.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (string, error)
}

type ctxKey struct{}

// WithUser returns a context carrying the authenticated user ID.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// FromContext extracts the user ID placed by WithUser, if any.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// Static is a fixed single-user provider, used with the local backend where
// no authentication service is involved.
type Static struct {
	ID string
}

func (s Static) UserID(context.Context) (string, error) {
	if strings.TrimSpace(s.ID) == "" {
		return "", core.ErrNotAuthenticated
	}
	return s.ID, nil
}

// Contextual reads the user ID injected into the request context by the
// authentication middleware.
type Contextual struct{}

func (Contextual) UserID(ctx context.Context) (string, error) {
	id, ok := FromContext(ctx)
	if !ok {
		return "", core.ErrNotAuthenticated
	}
	return id, nil
}

// GoogleVerifier validates Google-issued ID tokens against an expected
// audience and uses the token subject as the user ID.
type GoogleVerifier struct {
	audience  string
	validator *idtoken.Validator
}

func NewGoogleVerifier(ctx context.Context, audience string) (*GoogleVerifier, error) {
	if strings.TrimSpace(audience) == "" {
		return nil, errors.New("missing token audience")
	}
	validator, err := idtoken.NewValidator(ctx)
	if err != nil {
		return nil, fmt.Errorf("create idtoken validator: %w", err)
	}
	return &GoogleVerifier{audience: audience, validator: validator}, nil
}

func (v *GoogleVerifier) Verify(ctx context.Context, rawToken string) (string, error) {
	payload, err := v.validator.Validate(ctx, rawToken, v.audience)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrNotAuthenticated, err)
	}
	if payload.Subject == "" {
		return "", core.ErrNotAuthenticated
	}
	return payload.Subject, nil
}
