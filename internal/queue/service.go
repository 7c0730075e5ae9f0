package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/publishq/publishqd/internal/domain"
)

// EligibilityChecker vets items before they enter the queue. A non-empty
// return lists the reasons the item cannot be published.
type EligibilityChecker interface {
	Check(ctx context.Context, item *domain.Item) []string
}

// Config holds the queue settings that can be reapplied at runtime.
// Zero values fall back to the package defaults.
type Config struct {
	MaxRetries   int
	RetryDelay   time.Duration
	ReentryDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	if c.ReentryDelay <= 0 {
		c.ReentryDelay = DefaultReentryDelay
	}
	return c
}

// EnqueueInput describes a new item. The handler has already validated the
// request shape; the service owns the semantic checks.
type EnqueueInput struct {
	Title             string
	Content           string
	Tags              []string
	MediaURLs         []string
	CreatedBy         string
	Priority          domain.Priority
	Platforms         []domain.Platform
	ScheduledAt       time.Time
	EstimatedDuration int
	MaxRetries        *int
}

// RetryResult reports what a retry command did.
type RetryResult struct {
	Retried bool         `json:"retried"`
	Item    *domain.Item `json:"item,omitempty"`
}

// CancelResult reports what a cancel command did.
type CancelResult struct {
	Cancelled bool         `json:"cancelled"`
	Item      *domain.Item `json:"item,omitempty"`
}

// BulkStatus classifies the outcome of a bulk command for one item.
type BulkStatus string

// Bulk outcomes.
const (
	BulkOK       BulkStatus = "ok"
	BulkSkipped  BulkStatus = "skipped"
	BulkNotFound BulkStatus = "not_found"
)

// BulkItemResult is the per-item outcome of a bulk command.
type BulkItemResult struct {
	ID     string     `json:"id"`
	Status BulkStatus `json:"status"`
}

// BulkResult reports a bulk command outcome per requested id. Items are
// independent: one unknown id does not stop the rest.
type BulkResult struct {
	Results []BulkItemResult `json:"results"`
}

// Service is the command surface of the publishing queue. One mutex
// serializes the engine pass and every mutating command, so a command
// always observes a fully applied tick and vice versa. Reads go straight
// to the repository and return deep-copied snapshots.
type Service struct {
	repo    Repository
	engine  *Engine
	checker EligibilityChecker
	logger  *slog.Logger
	tracer  trace.Tracer
	now     func() time.Time

	mu   sync.Mutex
	cfg  Config
	view ListOptions
}

// NewService creates the queue service. The checker may be nil, in which
// case every item is eligible.
func NewService(repo Repository, engine *Engine, checker EligibilityChecker, cfg Config, logger *slog.Logger) *Service {
	s := &Service{
		repo:    repo,
		engine:  engine,
		checker: checker,
		logger:  logger,
		tracer:  otel.Tracer("publishqd/queue"),
		now:     time.Now,
	}
	s.Apply(cfg)
	return s
}

// Apply reapplies queue settings at runtime. Used both at construction and
// when the configuration file changes.
func (s *Service) Apply(cfg Config) {
	cfg = cfg.withDefaults()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	s.engine.SetPolicy(RetryPolicy{Delay: cfg.RetryDelay, ReentryDelay: cfg.ReentryDelay})
}

// Enqueue validates an item, runs the eligibility check and inserts it with
// all targets pending.
func (s *Service) Enqueue(ctx context.Context, input EnqueueInput) (*domain.Item, error) {
	ctx, span := s.tracer.Start(ctx, "queue.enqueue",
		trace.WithAttributes(attribute.Int("item.platforms", len(input.Platforms))))
	defer span.End()

	if len(input.Platforms) == 0 {
		return nil, ErrNoPlatforms
	}
	seen := make(map[domain.Platform]struct{}, len(input.Platforms))
	for _, platform := range input.Platforms {
		if !platform.IsValid() {
			return nil, fmt.Errorf("unknown platform: %q", platform)
		}
		if _, ok := seen[platform]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePlatform, platform)
		}
		seen[platform] = struct{}{}
	}

	priority := input.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	if !priority.IsValid() {
		return nil, fmt.Errorf("unknown priority: %q", priority)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	scheduledAt := input.ScheduledAt
	if scheduledAt.IsZero() {
		scheduledAt = now
	}
	maxRetries := s.cfg.MaxRetries
	if input.MaxRetries != nil {
		maxRetries = *input.MaxRetries
	}

	item := &domain.Item{
		ID:                uuid.NewString(),
		Title:             input.Title,
		Content:           input.Content,
		Tags:              input.Tags,
		MediaURLs:         input.MediaURLs,
		CreatedBy:         input.CreatedBy,
		Priority:          priority,
		ScheduledAt:       scheduledAt,
		EstimatedDuration: input.EstimatedDuration,
		MaxRetries:        maxRetries,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	for _, platform := range input.Platforms {
		item.Platforms = append(item.Platforms, domain.PlatformTarget{
			Platform:    platform,
			Status:      domain.TargetStatusPending,
			ScheduledAt: scheduledAt,
		})
	}
	span.SetAttributes(attribute.String("item.id", item.ID))

	if s.checker != nil {
		if reasons := s.checker.Check(ctx, item); len(reasons) > 0 {
			err := &ContentRejectedError{Reasons: reasons}
			span.RecordError(err)
			span.SetStatus(codes.Error, "content rejected")
			return nil, err
		}
	}

	if err := s.repo.Insert(ctx, item); err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}

	s.logger.Info("item enqueued",
		"item_id", item.ID,
		"title", item.Title,
		"platforms", len(item.Platforms),
		"scheduled_at", item.ScheduledAt,
	)
	return item, nil
}

// GetItem returns a snapshot of one item.
func (s *Service) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	return s.repo.Get(ctx, id)
}

// ListItems returns a filtered, ordered snapshot of the queue. A nil opts
// applies the stateful default view.
func (s *Service) ListItems(ctx context.Context, opts *ListOptions) ([]*domain.Item, error) {
	effective := s.View()
	if opts != nil {
		effective = *opts
	}

	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return FilterItems(items, effective), nil
}

// RetryItem puts every failed and cancelled target of an item back to
// pending with a fresh retry budget. Items with nothing to retry report
// Retried=false rather than an error.
func (s *Service) RetryItem(ctx context.Context, id string) (RetryResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retryLocked(ctx, id)
}

func (s *Service) retryLocked(ctx context.Context, id string) (RetryResult, error) {
	now := s.now()
	retried := false

	item, err := s.repo.Update(ctx, id, func(item *domain.Item) error {
		for i := range item.Platforms {
			target := &item.Platforms[i]
			switch target.Status {
			case domain.TargetStatusFailed, domain.TargetStatusCancelled:
			default:
				continue
			}
			target.Status = domain.TargetStatusPending
			target.ScheduledAt = now
			target.Error = ""
			target.FailedAt = nil
			target.RetryCount = 0
			retried = true
		}
		if !retried {
			return nil
		}

		item.RetryAttempts++
		// The item is back in play, so its completion record no longer
		// holds. It is measured again from the next dispatch.
		item.StartedAt = nil
		item.CompletedAt = nil
		item.ActualDuration = 0
		item.UpdatedAt = now
		finalizeItem(item, now)
		return nil
	})
	if err != nil {
		return RetryResult{}, err
	}

	if retried {
		s.logger.Info("item retried", "item_id", id, "retry_attempts", item.RetryAttempts)
	}
	return RetryResult{Retried: retried, Item: item}, nil
}

// CancelItem cancels every target of an item that has not yet published.
// Published targets are left alone; items with nothing to cancel report
// Cancelled=false rather than an error.
func (s *Service) CancelItem(ctx context.Context, id string) (CancelResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelLocked(ctx, id)
}

func (s *Service) cancelLocked(ctx context.Context, id string) (CancelResult, error) {
	now := s.now()
	cancelled := false

	item, err := s.repo.Update(ctx, id, func(item *domain.Item) error {
		for i := range item.Platforms {
			target := &item.Platforms[i]
			switch target.Status {
			case domain.TargetStatusPending, domain.TargetStatusPublishing, domain.TargetStatusFailed:
			default:
				continue
			}
			target.Status = domain.TargetStatusCancelled
			target.Error = ""
			target.FailedAt = nil
			cancelled = true
		}
		if !cancelled {
			return nil
		}

		item.UpdatedAt = now
		finalizeItem(item, now)
		return nil
	})
	if err != nil {
		return CancelResult{}, err
	}

	if cancelled {
		s.logger.Info("item cancelled", "item_id", id)
	}
	return CancelResult{Cancelled: cancelled, Item: item}, nil
}

// RetrySelected retries a set of items. Unknown ids are reported per item,
// not raised as an error.
func (s *Service) RetrySelected(ctx context.Context, ids []string) (BulkResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := BulkResult{Results: make([]BulkItemResult, 0, len(ids))}
	for _, id := range ids {
		res, err := s.retryLocked(ctx, id)
		switch {
		case errors.Is(err, ErrItemNotFound):
			result.Results = append(result.Results, BulkItemResult{ID: id, Status: BulkNotFound})
		case err != nil:
			return BulkResult{}, err
		case res.Retried:
			result.Results = append(result.Results, BulkItemResult{ID: id, Status: BulkOK})
		default:
			result.Results = append(result.Results, BulkItemResult{ID: id, Status: BulkSkipped})
		}
	}
	return result, nil
}

// CancelSelected cancels a set of items with the same per-item reporting as
// RetrySelected.
func (s *Service) CancelSelected(ctx context.Context, ids []string) (BulkResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := BulkResult{Results: make([]BulkItemResult, 0, len(ids))}
	for _, id := range ids {
		res, err := s.cancelLocked(ctx, id)
		switch {
		case errors.Is(err, ErrItemNotFound):
			result.Results = append(result.Results, BulkItemResult{ID: id, Status: BulkNotFound})
		case err != nil:
			return BulkResult{}, err
		case res.Cancelled:
			result.Results = append(result.Results, BulkItemResult{ID: id, Status: BulkOK})
		default:
			result.Results = append(result.Results, BulkItemResult{ID: id, Status: BulkSkipped})
		}
	}
	return result, nil
}

// DeleteItem removes an item from the queue regardless of its state.
func (s *Service) DeleteItem(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("item deleted", "item_id", id)
	return nil
}

// SetFilter updates the default view's filter. Empty values clear it.
func (s *Service) SetFilter(status domain.ItemStatus, platform domain.Platform) ListOptions {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.view.Status = status
	s.view.Platform = platform
	return s.view
}

// SetSort updates the default view's ordering. Empty restores scheduled_at.
func (s *Service) SetSort(key SortKey) ListOptions {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.view.Sort = key
	return s.view
}

// View returns the stateful default view.
func (s *Service) View() ListOptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Metrics computes the aggregated queue metrics for the given run info.
func (s *Service) Metrics(ctx context.Context, run RunInfo) (Metrics, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return Metrics{}, err
	}
	return ComputeMetrics(items, run, s.now()), nil
}

// Tick runs one engine pass over every item. The scheduler calls this on
// its interval; tests call it directly.
func (s *Service) Tick(ctx context.Context) TickResult {
	ctx, span := s.tracer.Start(ctx, "queue.tick")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var result TickResult
	err := s.repo.ForEach(ctx, func(item *domain.Item) {
		transitions, completed := s.engine.Advance(ctx, item, now)
		result.Transitions = append(result.Transitions, transitions...)
		if completed != nil {
			result.Completed = append(result.Completed, *completed)
		}
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "tick pass failed")
		s.logger.Error("tick pass failed", "error", err)
		return result
	}

	for _, tr := range result.Transitions {
		if tr.To == domain.TargetStatusFailed {
			s.logger.Warn("target failed",
				"item_id", tr.ItemID,
				"platform", tr.Platform,
				"error", tr.Error,
			)
		}
	}
	if len(result.Transitions) > 0 {
		s.logger.Debug("tick applied",
			"transitions", len(result.Transitions),
			"published", result.PublishedCount(),
			"completed", len(result.Completed),
		)
	}

	span.SetAttributes(
		attribute.Int("queue.transitions", len(result.Transitions)),
		attribute.Int("queue.completed", len(result.Completed)),
	)
	recordTickMetrics(result)
	return result
}
