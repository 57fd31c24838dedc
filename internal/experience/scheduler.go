package experience

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Joseda-hg/lazyday/internal/clock"
	"github.com/Joseda-hg/lazyday/internal/metrics"
	"github.com/Joseda-hg/lazyday/internal/model"
	"github.com/Joseda-hg/lazyday/internal/push"
	"github.com/Joseda-hg/lazyday/internal/trigger"
)

const DefaultInterval = 30 * time.Second

// Notifier delivers experience notifications.
type Notifier interface {
	Broadcast(ctx context.Context, n model.Notification) (push.Result, error)
	SubscriberCount() (int, error)
}

type SchedulerConfig struct {
	Interval time.Duration
	// QuietStart and QuietEnd ("HH:MM") bound a daily window in which
	// sweeps are skipped. The window may cross midnight.
	QuietStart string
	QuietEnd   string
}

type Status struct {
	Running     bool       `json:"running"`
	Subscribers int        `json:"subscribers"`
	Interval    string     `json:"interval"`
	IntervalMS  int64      `json:"intervalMs"`
	LastSweep   *time.Time `json:"lastSweep,omitempty"`
	Quiet       bool       `json:"quiet"`
}

// Scheduler periodically moves due experiences to pending and notifies.
type Scheduler struct {
	service  *Service
	notifier Notifier
	clock    clock.Clock
	logger   *slog.Logger
	metrics  *metrics.Metrics
	config   SchedulerConfig

	lifecycle sync.Mutex

	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	lastSweep *time.Time
}

func NewScheduler(service *Service, notifier Notifier, clk clock.Clock, logger *slog.Logger, m *metrics.Metrics, cfg SchedulerConfig) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		service:  service,
		notifier: notifier,
		clock:    clk,
		logger:   logger,
		metrics:  m,
		config:   cfg,
	}
}

// Start launches the sweep loop, replacing a loop that is already running.
func (s *Scheduler) Start() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.mu.Lock()
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go s.loop(ctx, done)
	s.metrics.SchedulerRunning(true)
	s.logger.Info("experience scheduler started", "interval", s.config.Interval)
}

// Stop cancels the loop and waits for an in-flight sweep to finish.
func (s *Scheduler) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.metrics.SchedulerRunning(false)
	s.logger.Info("experience scheduler stopped")
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	status := Status{
		Running:    s.cancel != nil,
		Interval:   s.config.Interval.String(),
		IntervalMS: s.config.Interval.Milliseconds(),
		LastSweep:  s.lastSweep,
	}
	s.mu.Unlock()

	status.Quiet = s.quiet(s.clock.Now())
	if s.notifier != nil {
		count, err := s.notifier.SubscriberCount()
		if err != nil {
			s.logger.Warn("could not count subscribers", "error", err)
		}
		status.Subscribers = count
	}
	return status
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.sweepAndLog(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepAndLog(ctx)
		}
	}
}

func (s *Scheduler) sweepAndLog(ctx context.Context) {
	if _, err := s.Sweep(ctx); err != nil {
		s.logger.Error("experience sweep failed", "error", err)
	}
}

// Sweep triggers every due experience once and returns how many fired.
// A failed notification for one experience does not affect the others.
func (s *Scheduler) Sweep(ctx context.Context) (int, error) {
	now := s.clock.Now()
	if s.quiet(now) {
		s.logger.Debug("notifications paused, skipping sweep", "now", now)
		return 0, nil
	}

	s.mu.Lock()
	s.lastSweep = &now
	s.mu.Unlock()
	s.metrics.Sweep()

	due, err := s.service.claimDue(now)
	if err != nil {
		return 0, err
	}
	for _, exp := range due {
		s.metrics.Triggered("sweep")
		s.notify(ctx, exp)
	}
	if len(due) > 0 {
		s.logger.Info("experiences triggered", "count", len(due))
	}
	return len(due), nil
}

// TriggerNow forces experience id into pending and notifies, ignoring its
// schedule.
func (s *Scheduler) TriggerNow(ctx context.Context, id int) (model.Experience, push.Result, error) {
	exp, err := s.service.claim(id, s.clock.Now())
	if err != nil {
		return model.Experience{}, push.Result{}, err
	}
	s.metrics.Triggered("manual")
	return exp, s.notify(ctx, exp), nil
}

func (s *Scheduler) notify(ctx context.Context, exp model.Experience) push.Result {
	if s.notifier == nil {
		return push.Result{}
	}
	result, err := s.notifier.Broadcast(ctx, NotificationFor(exp))
	if err != nil {
		s.logger.Warn("experience notification failed", "experience_id", exp.ID, "error", err)
		return result
	}
	s.logger.Debug("experience notification sent", "experience_id", exp.ID, "sent", result.Sent, "failed", result.Failed)
	return result
}

func (s *Scheduler) quiet(now time.Time) bool {
	return InQuietWindow(now, s.config.QuietStart, s.config.QuietEnd)
}

// InQuietWindow reports whether now's time of day falls in [start, end).
// An unset or empty window is never quiet.
func InQuietWindow(now time.Time, start, end string) bool {
	startHour, startMinute, ok := trigger.ParseTimeOfDay(start)
	if !ok {
		return false
	}
	endHour, endMinute, ok := trigger.ParseTimeOfDay(end)
	if !ok {
		return false
	}
	from := startHour*60 + startMinute
	to := endHour*60 + endMinute
	minute := now.Hour()*60 + now.Minute()

	switch {
	case from == to:
		return false
	case from < to:
		return minute >= from && minute < to
	default:
		return minute >= from || minute < to
	}
}
