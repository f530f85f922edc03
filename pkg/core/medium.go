package core

import "context"

// Medium defines the contract of the synchronous durable store under the KV tier.
// Keys and values are opaque strings; the facade owns encoding.
//
// Implementations report a full medium with ErrQuotaExceeded and a medium
// that cannot be reached with ErrUnavailable.
type Medium interface {
	// GetItem returns the stored value. The boolean is false when the key is absent.
	GetItem(key string) (string, bool, error)

	// SetItem stores value under key, replacing any previous value.
	SetItem(key, value string) error

	// RemoveItem deletes key. Removing an absent key is not an error.
	RemoveItem(key string) error
}

// Watchable is implemented by media that can observe writes made by other processes.
type Watchable interface {
	// Watch streams changes to physical keys until ctx is cancelled.
	Watch(ctx context.Context) (<-chan Event, error)
}

// Closer is implemented by media and record services holding resources.
type Closer interface {
	Close() error
}
