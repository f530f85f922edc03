package fs

import (
	"os"

	"github.com/aretw0/introspection"
)

// MediumState exposes internal state for observability.
type MediumState struct {
	Dir           string   `json:"dir"`
	Keys          []string `json:"keys"`
	Bytes         int64    `json:"bytes"`
	MaxBytes      int64    `json:"max_bytes,omitempty"`
	WatchPattern  string   `json:"watch_pattern,omitempty"`
	WatcherActive bool     `json:"watcher_active"`
	LastEvent     string   `json:"last_event,omitempty"`
}

// State implements introspection.Introspectable.
func (m *Medium) State() any {
	m.stateMu.RLock()
	state := MediumState{
		Dir:           m.dir,
		Keys:          []string{},
		MaxBytes:      m.config.MaxBytes,
		WatchPattern:  m.config.WatchPattern,
		WatcherActive: m.watcherActive,
		LastEvent:     m.lastEvent,
	}
	m.stateMu.RUnlock()

	if entries, err := os.ReadDir(m.dir); err == nil {
		for _, e := range entries {
			if !e.IsDir() && isKeyFile(e.Name()) {
				state.Keys = append(state.Keys, e.Name())
			}
		}
	}
	state.Bytes, _ = m.Size()
	return state
}

// ComponentType implements introspection.Component.
func (m *Medium) ComponentType() string {
	return "fs-medium"
}

var _ introspection.Introspectable = (*Medium)(nil)
var _ introspection.Component = (*Medium)(nil)
