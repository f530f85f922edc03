package kv

import (
	"fmt"

	"github.com/aretw0/introspection"
)

// FacadeState exposes internal state for observability.
type FacadeState struct {
	Medium    string   `json:"medium"`
	Available bool     `json:"available"`
	Present   []string `json:"present_keys,omitempty"`
}

// State implements introspection.Introspectable.
func (f *Facade) State() any {
	medium := "none"
	if f.medium != nil {
		medium = fmt.Sprintf("%T", f.medium)
		if comp, ok := f.medium.(introspection.Component); ok {
			medium = comp.ComponentType()
		}
	}

	var present []string
	if keys, err := f.Keys(""); err == nil {
		for _, k := range keys {
			present = append(present, string(k))
		}
	}

	return FacadeState{
		Medium:    medium,
		Available: f.medium != nil,
		Present:   present,
	}
}

// ComponentType implements introspection.Component.
func (f *Facade) ComponentType() string {
	return "kv-facade"
}

var _ introspection.Introspectable = (*Facade)(nil)
var _ introspection.Component = (*Facade)(nil)
