// Package queue implements the publishing queue: its data access contract,
// the transition engine that advances platform targets, the scheduler loop
// driving the engine, and the command surface exposed over HTTP.
package queue

import (
	"context"

	"github.com/publishq/publishqd/internal/domain"
)

// Repository defines the interface for queue data access.
//
// Get and List return deep copies; callers never observe live state.
// Update and ForEach run their callback under the repository write lock, so
// a callback sees and mutates a consistent item with no reads interleaved.
type Repository interface {
	// Insert stores a new item.
	Insert(ctx context.Context, item *domain.Item) error

	// Get returns a snapshot of the item, or ErrItemNotFound.
	Get(ctx context.Context, id string) (*domain.Item, error)

	// List returns snapshots of all items in insertion order.
	List(ctx context.Context) ([]*domain.Item, error)

	// Update applies fn to the item and returns the updated snapshot.
	// If fn returns an error the item is left unchanged.
	Update(ctx context.Context, id string, fn func(*domain.Item) error) (*domain.Item, error)

	// ForEach applies fn to every item, in insertion order, under one lock.
	ForEach(ctx context.Context, fn func(*domain.Item)) error

	// Delete removes the item, or returns ErrItemNotFound.
	Delete(ctx context.Context, id string) error
}
