// Package delivery defines the collaborator the queue uses to resolve
// publish attempts. The queue never talks to a platform directly; it asks a
// Publisher for the current outcome of a target each tick and reacts to the
// answer.
package delivery

import (
	"context"
	"fmt"

	"github.com/publishq/publishqd/internal/domain"
)

// OutcomeState describes where a publish attempt stands.
type OutcomeState string

// Outcome states.
const (
	StateInFlight  OutcomeState = "in_flight"
	StateSucceeded OutcomeState = "succeeded"
	StateFailed    OutcomeState = "failed"
)

// Outcome is the answer a publisher gives for one target on one tick.
//
// PostID and URL are set on success. Reason carries the human-readable
// failure message; Err, when set, lets the queue classify the failure
// (see IsRetryable).
type Outcome struct {
	State  OutcomeState
	PostID string
	URL    string
	Reason string
	Err    error
}

// Publisher resolves publish attempts for one platform.
//
// Resolve is polled once per tick for each target in the publishing state.
// Returning StateInFlight keeps the target publishing; a terminal state is
// consumed by the queue and must not be returned again for the same attempt.
type Publisher interface {
	Platform() domain.Platform
	Resolve(ctx context.Context, item *domain.Item, target *domain.PlatformTarget) (Outcome, error)
}

// Resolver is the lookup surface the queue engine consumes.
type Resolver interface {
	Resolve(ctx context.Context, item *domain.Item, target *domain.PlatformTarget) (Outcome, error)
}

// Registry routes targets to the publisher for their platform.
type Registry struct {
	publishers map[domain.Platform]Publisher
}

// NewRegistry creates a registry from the given publishers.
func NewRegistry(publishers ...Publisher) *Registry {
	m := make(map[domain.Platform]Publisher, len(publishers))
	for _, p := range publishers {
		m[p.Platform()] = p
	}
	return &Registry{publishers: m}
}

// Resolve delegates to the publisher registered for the target's platform.
func (r *Registry) Resolve(ctx context.Context, item *domain.Item, target *domain.PlatformTarget) (Outcome, error) {
	pub, ok := r.publishers[target.Platform]
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %s", ErrNoPublisher, target.Platform)
	}
	return pub.Resolve(ctx, item, target)
}

// Platforms returns the platforms with a registered publisher.
func (r *Registry) Platforms() []domain.Platform {
	out := make([]domain.Platform, 0, len(r.publishers))
	for _, p := range domain.AllPlatforms() {
		if _, ok := r.publishers[p]; ok {
			out = append(out, p)
		}
	}
	return out
}
