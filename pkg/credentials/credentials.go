// Package credentials generates the workload's shared secret and derives
// the admin password digest.
package credentials

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"

	"graylogoperator/pkg/core"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Generator produces a random alphanumeric string of the given length.
type Generator func(length int) (string, error)

// Manager owns the credential material of one unit.
// The material is stored in the caller's persisted state and mutated in place.
type Manager struct {
	material *core.CredentialMaterial
	length   int
	generate Generator
}

// Option customizes a Manager.
type Option func(*Manager)

// WithLength overrides the generated secret length.
func WithLength(length int) Option {
	return func(m *Manager) {
		if length > 0 {
			m.length = length
		}
	}
}

// WithGenerator replaces the random source.
func WithGenerator(generate Generator) Option {
	return func(m *Manager) {
		if generate != nil {
			m.generate = generate
		}
	}
}

func NewManager(material *core.CredentialMaterial, opts ...Option) *Manager {
	m := &Manager{material: material, length: core.DefaultSecretLength, generate: RandomString}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Secret returns the stored secret, generating and storing one on first use.
// Once stored the secret never changes for the lifetime of the state.
func (manager *Manager) Secret() (string, error) {
	if manager.material.Secret != "" {
		return manager.material.Secret, nil
	}
	secret, err := manager.generate(manager.length)
	if err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	if len(secret) != manager.length {
		return "", fmt.Errorf("generate secret: got %d characters, want %d", len(secret), manager.length)
	}
	manager.material.Secret = secret
	return secret, nil
}

// HashPassword records the digest of the admin password and returns it.
func (manager *Manager) HashPassword(plaintext string) string {
	manager.material.PasswordHash = PasswordHash(plaintext)
	return manager.material.PasswordHash
}

// PasswordHash is the lowercase hex SHA-256 digest of the UTF-8 password.
func PasswordHash(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// RandomString draws length characters uniformly from [A-Za-z0-9] using crypto/rand.
func RandomString(length int) (string, error) {
	out := make([]byte, length)
	limit := big.NewInt(int64(len(alphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out), nil
}
