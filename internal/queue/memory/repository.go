// Package memory provides the in-memory implementation of the queue repository.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/publishq/publishqd/internal/domain"
	"github.com/publishq/publishqd/internal/queue"
)

// Repository implements queue.Repository with an in-memory store.
// The queue does not survive a process restart.
type Repository struct {
	mu    sync.RWMutex
	items map[string]*domain.Item
	order []string
}

// NewRepository creates an empty in-memory repository.
func NewRepository() *Repository {
	return &Repository{
		items: make(map[string]*domain.Item),
	}
}

// Insert stores a new item keyed by its ID.
func (r *Repository) Insert(_ context.Context, item *domain.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[item.ID]; exists {
		return fmt.Errorf("queue item %s already exists", item.ID)
	}

	r.items[item.ID] = item.Clone()
	r.order = append(r.order, item.ID)
	return nil
}

// Get returns a snapshot of the item.
func (r *Repository) Get(_ context.Context, id string) (*domain.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return nil, queue.ErrItemNotFound
	}
	return item.Clone(), nil
}

// List returns snapshots of all items in insertion order.
func (r *Repository) List(_ context.Context) ([]*domain.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Item, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.items[id].Clone())
	}
	return out, nil
}

// Update applies fn to a working copy of the item and swaps it in only
// when fn succeeds, so a failed update leaves the stored item untouched.
func (r *Repository) Update(_ context.Context, id string, fn func(*domain.Item) error) (*domain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return nil, queue.ErrItemNotFound
	}

	working := item.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}

	r.items[id] = working
	return working.Clone(), nil
}

// ForEach applies fn to every stored item under the write lock.
func (r *Repository) ForEach(_ context.Context, fn func(*domain.Item)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range r.order {
		fn(r.items[id])
	}
	return nil
}

// Delete removes the item.
func (r *Repository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return queue.ErrItemNotFound
	}

	delete(r.items, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}
