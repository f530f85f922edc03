// Package memory provides in-process implementations of the durable medium
// and of the content record service. Nothing survives the process; they back
// tests, previews and the "memory" adapter of the platform factory.
package memory

import (
	"sync"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/peermall/peerstore/pkg/core"
)

// Medium implements core.Medium on a concurrent map. Reads are lock free;
// writes are serialized so the size ceiling holds across keys.
type Medium struct {
	items    *xsync.MapOf[string, string]
	maxBytes int64

	mu   sync.Mutex
	size int64
}

// NewMedium creates an empty medium. maxBytes bounds the summed size of keys
// and values; zero means unbounded.
func NewMedium(maxBytes int64) *Medium {
	return &Medium{
		items:    xsync.NewMapOf[string, string](),
		maxBytes: maxBytes,
	}
}

func (m *Medium) GetItem(key string) (string, bool, error) {
	v, ok := m.items.Load(key)
	return v, ok, nil
}

func (m *Medium) SetItem(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delta := int64(len(value))
	if old, loaded := m.items.Load(key); loaded {
		delta -= int64(len(old))
	} else {
		delta += int64(len(key))
	}
	if m.maxBytes > 0 && m.size+delta > m.maxBytes {
		return core.Errorf("set", key, core.ErrQuotaExceeded, "%d bytes would exceed the %d byte ceiling", m.size+delta, m.maxBytes)
	}
	m.items.Store(key, value)
	m.size += delta
	return nil
}

func (m *Medium) RemoveItem(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.items.LoadAndDelete(key); ok {
		m.size -= int64(len(key) + len(old))
	}
	return nil
}

// Size returns the bytes currently accounted against the ceiling.
func (m *Medium) Size() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.size
}

// ComponentType implements introspection.Component.
func (m *Medium) ComponentType() string {
	return "memory-medium"
}

var _ core.Medium = (*Medium)(nil)
