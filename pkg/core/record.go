package core

import (
	"context"
	"maps"
	"slices"
)

// Record is a content entity of the async tier, scoped to an owning address.
// Its ID is always assigned by the RecordService.
type Record struct {
	ID          string         `json:"id" yaml:"id"`
	Address     string         `json:"address" yaml:"address"`
	Kind        string         `json:"kind,omitempty" yaml:"kind,omitempty"`
	Title       string         `json:"title,omitempty" yaml:"title,omitempty"`
	Body        string         `json:"body,omitempty" yaml:"body,omitempty"`
	Author      string         `json:"author,omitempty" yaml:"author,omitempty"`
	Attachments []string       `json:"attachments,omitempty" yaml:"attachments,omitempty"`
	Fields      map[string]any `json:"fields,omitempty" yaml:"fields,omitempty"`
	CreatedAt   string         `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
	UpdatedAt   string         `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
}

// Clone returns a copy of r that shares no slices or maps with it.
func (r Record) Clone() Record {
	c := r
	c.Attachments = slices.Clone(r.Attachments)
	c.Fields = maps.Clone(r.Fields)
	return c
}

// Patch is a partial content update. Nil fields are left untouched;
// Fields, when non-nil, replaces the stored map whole.
type Patch struct {
	Kind        *string        `json:"kind,omitempty"`
	Title       *string        `json:"title,omitempty"`
	Body        *string        `json:"body,omitempty"`
	Author      *string        `json:"author,omitempty"`
	Attachments *[]string      `json:"attachments,omitempty"`
	Fields      map[string]any `json:"fields,omitempty"`
}

// Apply returns r with the present fields of p written over it.
// It does not touch ID, Address or the timestamps.
func (p Patch) Apply(r Record) Record {
	out := r.Clone()
	if p.Kind != nil {
		out.Kind = *p.Kind
	}
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Body != nil {
		out.Body = *p.Body
	}
	if p.Author != nil {
		out.Author = *p.Author
	}
	if p.Attachments != nil {
		out.Attachments = slices.Clone(*p.Attachments)
	}
	if p.Fields != nil {
		out.Fields = maps.Clone(p.Fields)
	}
	return out
}

// RecordService is the external, asynchronous, scope-addressed record store
// behind the content bridge. Implementations own id assignment and storage
// layout; they return ErrNotFound for unknown ids on Update and Delete.
type RecordService interface {
	// List returns every record of the address scope.
	List(ctx context.Context, address string) ([]Record, error)

	// Create stores rec under address and returns the id it assigned.
	// Any ID carried by rec is ignored.
	Create(ctx context.Context, address string, rec Record) (string, error)

	// Update applies patch to the record with the given id.
	Update(ctx context.Context, id string, patch Patch) error

	// Delete removes the record with the given id.
	Delete(ctx context.Context, id string) error
}
