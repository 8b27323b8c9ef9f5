// Package storage defines the session-local key/value store the cart
// persists its snapshot in. It mirrors browser localStorage: string keys,
// opaque values, no transactions.
package storage

import "context"

// Storage is durable key/value storage scoped to one browsing session.
type Storage interface {
	// GetItem returns the stored value, or an error wrapping
	// apperrors.ErrNotFound when the key is absent.
	GetItem(ctx context.Context, key string) ([]byte, error)
	SetItem(ctx context.Context, key string, value []byte) error
	RemoveItem(ctx context.Context, key string) error
}

// Provider hands out the Storage of a session.
type Provider interface {
	ForSession(sessionID string) Storage
}
