package content

import (
	"github.com/aretw0/introspection"
)

// BridgeState exposes internal state for observability.
type BridgeState struct {
	Service   string `json:"service"`
	Calls     int64  `json:"calls"`
	Failures  int64  `json:"failures"`
	LastError string `json:"last_error,omitempty"`
}

// State implements introspection.Introspectable.
func (b *Bridge) State() any {
	b.mu.Lock()
	defer b.mu.Unlock()

	service := "custom"
	if c, ok := b.service.(introspection.Component); ok {
		service = c.ComponentType()
	}
	return BridgeState{
		Service:   service,
		Calls:     b.calls.Load(),
		Failures:  b.failures.Load(),
		LastError: b.lastErr,
	}
}

// ComponentType implements introspection.Component.
func (b *Bridge) ComponentType() string {
	return "content-bridge"
}

var _ introspection.Introspectable = (*Bridge)(nil)
var _ introspection.Component = (*Bridge)(nil)
