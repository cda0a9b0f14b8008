// Package auth checks the shared admin secret.
package auth

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotConfigured      = errors.New("admin login not configured")
)

// Credentials holds the bcrypt hash of the admin secret. The zero value
// rejects every login.
type Credentials struct {
	hash []byte
}

// NewCredentials prefers a pre-computed hash and otherwise hashes the plain
// password once at startup. Both empty disables admin login.
func NewCredentials(password, hash string) (*Credentials, error) {
	hash = strings.TrimSpace(hash)
	if hash != "" {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("admin password hash: %w", err)
		}
		return &Credentials{hash: []byte(hash)}, nil
	}
	if password == "" {
		return &Credentials{}, nil
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}
	return &Credentials{hash: h}, nil
}

func (c *Credentials) Enabled() bool {
	return c != nil && len(c.hash) > 0
}

func (c *Credentials) Verify(password string) error {
	if !c.Enabled() {
		return ErrNotConfigured
	}
	if password == "" {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(c.hash, []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
