package store

import (
	"context"
	"time"
)

// Op is a filter predicate operator.
type Op string

const (
	OpEq  Op = "=="
	OpGt  Op = ">"
	OpGte Op = ">="
	OpLt  Op = "<"
	OpLte Op = "<="
)

// Filter is an equality or range predicate on a named document field. The
// reserved fields "id", "seq", "createdAt" and "updatedAt" resolve against
// store-assigned record metadata instead of the document body.
type Filter struct {
	Field string
	Op    Op
	Value any
}

func Eq(field string, v any) Filter  { return Filter{Field: field, Op: OpEq, Value: v} }
func Gt(field string, v any) Filter  { return Filter{Field: field, Op: OpGt, Value: v} }
func Gte(field string, v any) Filter { return Filter{Field: field, Op: OpGte, Value: v} }
func Lt(field string, v any) Filter  { return Filter{Field: field, Op: OpLt, Value: v} }
func Lte(field string, v any) Filter { return Filter{Field: field, Op: OpLte, Value: v} }

// Ordering sorts by one field. Equal keys fall back to seq ascending, so every
// materialized result is totally ordered.
type Ordering struct {
	Field string
	Desc  bool
}

// Record is one stored document plus store-assigned metadata. Seq is a
// store-global monotonic sequence assigned at creation.
type Record struct {
	Collection string
	ID         string
	Seq        int64
	Doc        map[string]any
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Unsubscribe permanently detaches a live listener. Safe to call repeatedly.
type Unsubscribe func()

// Store is the generic persistence primitive the entity managers are built
// on: named collections of JSON documents with opaque string ids,
// server-assigned timestamps, and live subscriptions.
type Store interface {
	// Get returns nil, nil for a missing id.
	Get(ctx context.Context, collection, id string) (*Record, error)

	// List materializes a full query each call: filtered, ordered, limited
	// (limit <= 0 means unbounded).
	List(ctx context.Context, collection string, filters []Filter, order Ordering, limit int) ([]Record, error)

	// Create assigns the id, seq and creation/update timestamps.
	Create(ctx context.Context, collection string, doc map[string]any) (string, error)

	// Update merges top-level fields into an existing document and bumps the
	// update timestamp. A missing id is NotFound, never create-on-update.
	Update(ctx context.Context, collection, id string, partial map[string]any) error

	// Delete is idempotent.
	Delete(ctx context.Context, collection, id string) error

	// Subscribe registers a live listener. onChange runs synchronously once
	// with the current matching set, then once per affecting write, always
	// with the full ordered set and never concurrently with itself.
	Subscribe(collection string, filters []Filter, order Ordering, onChange func([]Record)) Unsubscribe

	// SubscribeOne is Subscribe scoped to a single id; onChange receives nil
	// when the record is deleted or never existed.
	SubscribeOne(collection, id string, onChange func(*Record)) Unsubscribe
}
