// Package auth signs users in against an identity provider and keeps the
// resulting identity in a signed session cookie.
package auth

import (
	"context"
	"errors"
	"fmt"

	"kharcha/internal/ledger"
)

// Provider ids as reported by the identity provider.
const (
	ProviderPassword = "password"
	ProviderGoogle   = "google.com"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailExists        = errors.New("an account with this email already exists")
	ErrWeakPassword       = errors.New("password should be at least 6 characters")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrTooManyAttempts    = errors.New("too many attempts, try again later")
	ErrInvalidToken       = errors.New("invalid or expired session")
)

// Identity is the signed-in user.
type Identity struct {
	Email       string
	DisplayName string
	Provider    string
}

// Ledger converts the identity to what the expense backend stores.
func (i Identity) Ledger() ledger.Identity {
	return ledger.Identity{Name: i.DisplayName, Email: i.Email, AuthProvider: i.Provider}
}

// Greeting returns the name to greet the user with.
func (i Identity) Greeting() string {
	if i.DisplayName != "" {
		return i.DisplayName
	}
	return i.Email
}

// IdentityProvider authenticates users.
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (Identity, error)
	SignUp(ctx context.Context, email, password string) (Identity, error)
	// SignInWithIDP exchanges a federated id token (e.g. a Google id token).
	SignInWithIDP(ctx context.Context, providerID, idToken string) (Identity, error)
	SendPasswordReset(ctx context.Context, email string) error
}

// ProviderError is an identity provider failure that maps to no sentinel.
type ProviderError struct {
	StatusCode int
	Code       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("identity provider error (status %d): %s", e.StatusCode, e.Code)
}

// ValidateRegistration checks the register form before calling the provider.
func ValidateRegistration(email, password, confirm string) error {
	if email == "" {
		return ErrInvalidEmail
	}
	if password != confirm {
		return ErrPasswordMismatch
	}
	if len(password) < 6 {
		return ErrWeakPassword
	}
	return nil
}

type identityKey struct{}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity stored by WithIdentity.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && id.Email != ""
}
