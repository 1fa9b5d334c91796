// Package identity is the user-management collaborator consumed by the token
// services: lookup by stable username and an opaque credential verifier.
package identity

import (
	"context"
	"errors"
)

var (
	ErrIdentityNotFound   = errors.New("identity not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrStorage            = errors.New("identity storage failure")
)

// Profile holds the public claims embedded in access tokens.
type Profile struct {
	Email    string `json:"email,omitempty"`
	FullName string `json:"full_name,omitempty"`
	Role     string `json:"role,omitempty"`
}

type Identity struct {
	ID       uint    `json:"id"`
	Username string  `json:"username"`
	Profile  Profile `json:"profile"`
}

type Lookup interface {
	FindIdentity(ctx context.Context, username string) (*Identity, error)
}

type Verifier interface {
	VerifyCredentials(ctx context.Context, username, password string) (*Identity, error)
}
