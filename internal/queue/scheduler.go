package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// RunState is the lifecycle state of the scheduler loop.
type RunState string

// Run states.
const (
	RunStateStopped RunState = "stopped"
	RunStateRunning RunState = "running"
	RunStatePaused  RunState = "paused"
)

// RunInfo describes the current scheduler run for the status endpoint.
// StartedAt and the counters survive a stop and reset on the next start.
type RunInfo struct {
	State      RunState   `json:"state"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	Completed  int        `json:"items_completed"`
	LastTickAt *time.Time `json:"last_tick_at,omitempty"`
}

// Scheduler drives the queue with a single goroutine that calls the service
// tick at a fixed interval. Pausing keeps the goroutine and its timer alive
// but skips the engine pass, so item timestamps are preserved exactly.
type Scheduler struct {
	service  *Service
	logger   *slog.Logger
	interval time.Duration
	resetCh  chan time.Duration

	mu        sync.Mutex
	state     RunState
	startedAt *time.Time
	lastTick  *time.Time
	completed int
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// NewScheduler creates a stopped scheduler for the given service.
func NewScheduler(service *Service, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		service:  service,
		logger:   logger,
		interval: interval,
		resetCh:  make(chan time.Duration, 1),
		state:    RunStateStopped,
	}
}

// Start begins a new run. It fails if a run is already active.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != RunStateStopped {
		return ErrAlreadyRunning
	}

	now := time.Now()
	s.state = RunStateRunning
	s.startedAt = &now
	s.lastTick = nil
	s.completed = 0
	s.stopCh = make(chan struct{})

	s.wg.Add(1)
	go s.run(s.stopCh, s.interval)

	s.logger.Info("scheduler started", "interval", s.interval)
	return nil
}

// Pause suspends the engine passes without stopping the loop.
func (s *Scheduler) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != RunStateRunning {
		return ErrNotRunning
	}
	s.state = RunStatePaused
	s.logger.Info("scheduler paused")
	return nil
}

// Resume continues a paused run.
func (s *Scheduler) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case RunStateStopped:
		return ErrNotRunning
	case RunStateRunning:
		return ErrNotPaused
	}
	s.state = RunStateRunning
	s.logger.Info("scheduler resumed")
	return nil
}

// Stop halts the loop and waits for the goroutine to exit. Stopping an
// already stopped scheduler is a no-op. Targets that are mid-flight keep
// their status; nothing advances them until the next start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.state == RunStateStopped {
		s.mu.Unlock()
		return
	}
	s.state = RunStateStopped
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// SetInterval changes the tick interval. A running loop resets its timer;
// a stopped one picks the interval up on the next start.
func (s *Scheduler) SetInterval(interval time.Duration) {
	if interval <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if interval == s.interval {
		return
	}
	s.interval = interval
	if s.state == RunStateStopped {
		return
	}

	select {
	case <-s.resetCh:
	default:
	}
	s.resetCh <- interval
}

// State returns the current run state.
func (s *Scheduler) State() RunState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Info returns a snapshot of the current run.
func (s *Scheduler) Info() RunInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := RunInfo{State: s.state, Completed: s.completed}
	if s.startedAt != nil {
		ts := *s.startedAt
		info.StartedAt = &ts
	}
	if s.lastTick != nil {
		ts := *s.lastTick
		info.LastTickAt = &ts
	}
	return info
}

func (s *Scheduler) run(stopCh <-chan struct{}, interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case interval = <-s.resetCh:
			ticker.Reset(interval)
			s.logger.Info("tick interval changed", "interval", interval)
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	paused := s.state == RunStatePaused
	s.mu.Unlock()
	if paused {
		return
	}

	result := s.service.Tick(context.Background())

	now := time.Now()
	s.mu.Lock()
	s.lastTick = &now
	s.completed += len(result.Completed)
	s.mu.Unlock()
}
