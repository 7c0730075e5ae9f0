// Package simulated provides an in-memory Publisher that mimics platform
// delivery with configurable latency, failure rate and rate limiting. It is
// the default delivery backend and keeps the queue fully testable without
// network access.
package simulated

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/publishq/publishqd/internal/delivery"
	"github.com/publishq/publishqd/internal/domain"
)

// Config controls the behavior of a simulated publisher.
type Config struct {
	// SuccessRate is the probability in [0, 1] that an attempt succeeds.
	SuccessRate float64
	// MinLatencyTicks and MaxLatencyTicks bound how many polls an attempt
	// stays in flight before resolving. Both count from the first poll.
	MinLatencyTicks int
	MaxLatencyTicks int
	// RatePerSec caps how many new attempts the platform admits per second.
	// Polls for attempts denied admission report in-flight and retry on the
	// next poll.
	RatePerSec float64
	// Seed makes the latency and outcome draws reproducible. Zero seeds
	// from the wall clock.
	Seed int64
}

// Publisher simulates delivery to a single platform. An attempt is admitted
// on the first poll for an item, held in flight for a rolled number of polls
// and then resolved to a success or a failure drawn from SuccessRate. It is
// safe for concurrent use.
type Publisher struct {
	platform domain.Platform
	cfg      Config
	limiter  *rate.Limiter

	mu       sync.Mutex
	rng      *rand.Rand
	attempts map[string]*attempt
}

type attempt struct {
	remaining int
	succeed   bool
	rateLimit bool
}

var postURLTemplates = map[domain.Platform]string{
	domain.PlatformTwitter:   "https://twitter.com/i/status/%s",
	domain.PlatformFacebook:  "https://www.facebook.com/%s",
	domain.PlatformInstagram: "https://www.instagram.com/p/%s/",
	domain.PlatformLinkedIn:  "https://www.linkedin.com/feed/update/urn:li:share:%s",
	domain.PlatformTikTok:    "https://www.tiktok.com/@publishq/video/%s",
}

// NewPublisher creates a simulated publisher for the given platform.
func NewPublisher(platform domain.Platform, cfg Config) (*Publisher, error) {
	if !platform.IsValid() {
		return nil, fmt.Errorf("unknown platform: %q", platform)
	}
	if cfg.SuccessRate < 0 || cfg.SuccessRate > 1 {
		return nil, fmt.Errorf("success rate must be between 0 and 1, got %v", cfg.SuccessRate)
	}
	if cfg.MinLatencyTicks < 1 {
		return nil, fmt.Errorf("min latency must be at least 1 tick, got %d", cfg.MinLatencyTicks)
	}
	if cfg.MaxLatencyTicks < cfg.MinLatencyTicks {
		return nil, fmt.Errorf("max latency %d is below min latency %d", cfg.MaxLatencyTicks, cfg.MinLatencyTicks)
	}
	if cfg.RatePerSec <= 0 {
		return nil, fmt.Errorf("rate must be positive, got %v", cfg.RatePerSec)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	// Burst holds one second's worth of tokens so tick-based polling can
	// admit attempts at the sustained rate.
	burst := int(math.Ceil(cfg.RatePerSec))
	if burst < 1 {
		burst = 1
	}

	return &Publisher{
		platform: platform,
		cfg:      cfg,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst),
		rng:      rand.New(rand.NewSource(seed)),
		attempts: make(map[string]*attempt),
	}, nil
}

// Platform returns the platform this publisher delivers to.
func (p *Publisher) Platform() domain.Platform {
	return p.platform
}

// Resolve advances the attempt for the given item by one poll. The first
// poll admits the attempt through the rate limiter and rolls its latency and
// outcome; later polls count the latency down. A terminal outcome removes
// the attempt so a retried item starts fresh.
func (p *Publisher) Resolve(_ context.Context, item *domain.Item, _ *domain.PlatformTarget) (delivery.Outcome, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	att, ok := p.attempts[item.ID]
	if !ok {
		if !p.limiter.Allow() {
			return delivery.Outcome{State: delivery.StateInFlight}, nil
		}
		att = &attempt{
			remaining: p.rollLatency(),
			succeed:   p.rng.Float64() < p.cfg.SuccessRate,
		}
		if !att.succeed {
			att.rateLimit = p.rng.Float64() < 0.25
		}
		p.attempts[item.ID] = att
	}

	att.remaining--
	if att.remaining > 0 {
		return delivery.Outcome{State: delivery.StateInFlight}, nil
	}
	delete(p.attempts, item.ID)

	if att.succeed {
		postID := fmt.Sprintf("%d", 1_000_000_000+p.rng.Int63n(9_000_000_000))
		return delivery.Outcome{
			State:  delivery.StateSucceeded,
			PostID: postID,
			URL:    fmt.Sprintf(postURLTemplates[p.platform], postID),
		}, nil
	}

	if att.rateLimit {
		return delivery.Outcome{
			State:  delivery.StateFailed,
			Reason: "rate limited by platform",
			Err:    &delivery.RateLimitError{RetryAfter: 30 * time.Second, Message: "too many requests"},
		}, nil
	}
	return delivery.Outcome{
		State:  delivery.StateFailed,
		Reason: "platform temporarily unavailable",
		Err:    &delivery.RetryableError{Code: 503, Message: "service unavailable"},
	}, nil
}

func (p *Publisher) rollLatency() int {
	spread := p.cfg.MaxLatencyTicks - p.cfg.MinLatencyTicks
	if spread == 0 {
		return p.cfg.MinLatencyTicks
	}
	return p.cfg.MinLatencyTicks + p.rng.Intn(spread+1)
}
