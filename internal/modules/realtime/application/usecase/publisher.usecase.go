package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/application/port"
	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/domain"
)

var (
	// ErrPublisherRunning is returned by Start when the loop is already running.
	ErrPublisherRunning = errors.New("periodic publisher already running")
	// ErrPublisherMisconfigured is returned by Start when a dependency is missing.
	ErrPublisherMisconfigured = errors.New("periodic publisher misconfigured")
	// ErrSnapshotFetch marks a failed read from the snapshot source during a cycle.
	ErrSnapshotFetch = errors.New("snapshot fetch failed")
)

const (
	DefaultPublishInterval = 30 * time.Second
	DefaultRetryBackoff    = 10 * time.Second
	DefaultFetchTimeout    = 10 * time.Second
)

// PublisherState reports whether the refresh loop is active.
type PublisherState int32

const (
	PublisherStopped PublisherState = iota
	PublisherRunning
)

func (s PublisherState) String() string {
	if s == PublisherRunning {
		return "running"
	}
	return "stopped"
}

// PublisherConfig controls the cadence of the refresh loop.
type PublisherConfig struct {
	Interval     time.Duration
	RetryBackoff time.Duration
	FetchTimeout time.Duration
}

func DefaultPublisherConfig() PublisherConfig {
	return PublisherConfig{
		Interval:     DefaultPublishInterval,
		RetryBackoff: DefaultRetryBackoff,
		FetchTimeout: DefaultFetchTimeout,
	}
}

// DashboardSink receives the dashboard stats of every successful cycle in
// addition to the machine hub topic.
type DashboardSink interface {
	DashboardUpdated(ctx context.Context, data any) error
}

// PublisherOption customises a PeriodicPublisher.
type PublisherOption func(*PeriodicPublisher)

// WithDashboardSink forwards dashboard stats to sink, typically the notification hub.
func WithDashboardSink(sink DashboardSink) PublisherOption {
	return func(p *PeriodicPublisher) { p.dashboard = sink }
}

// WithTimer replaces time.After, mainly for tests.
func WithTimer(after func(time.Duration) <-chan time.Time) PublisherOption {
	return func(p *PeriodicPublisher) {
		if after != nil {
			p.after = after
		}
	}
}

// PeriodicPublisher pulls dashboard and machine snapshots on a fixed interval and
// pushes them through the machine hub relay. It only reads from the source and
// only writes to its sinks.
type PeriodicPublisher struct {
	cfg       PublisherConfig
	source    port.SnapshotSource
	relay     port.Relay
	dashboard DashboardSink
	after     func(time.Duration) <-chan time.Time

	mu     sync.Mutex
	state  PublisherState
	cancel context.CancelFunc
	done   chan struct{}
}

func NewPeriodicPublisher(cfg PublisherConfig, source port.SnapshotSource, relay port.Relay, opts ...PublisherOption) *PeriodicPublisher {
	defaults := DefaultPublisherConfig()
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = defaults.RetryBackoff
		if cfg.Interval > 0 && cfg.RetryBackoff >= cfg.Interval {
			cfg.RetryBackoff = cfg.Interval / 3
		}
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaults.FetchTimeout
	}
	p := &PeriodicPublisher{cfg: cfg, source: source, relay: relay, after: time.After}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns the current loop state.
func (p *PeriodicPublisher) State() PublisherState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Start launches the refresh loop. Missing dependencies fail fast and leave the
// publisher stopped.
func (p *PeriodicPublisher) Start(ctx context.Context) error {
	if err := p.validate(); err != nil {
		slog.Error("periodic publisher not started", slog.Any("error", err))
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == PublisherRunning {
		return ErrPublisherRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.state = PublisherRunning
	p.cancel = cancel
	p.done = done

	slog.Info("periodic publisher started",
		slog.Duration("interval", p.cfg.Interval),
		slog.Duration("retryBackoff", p.cfg.RetryBackoff),
		slog.Duration("fetchTimeout", p.cfg.FetchTimeout))
	go p.loop(runCtx, done)
	return nil
}

// Stop signals the loop and waits for it to exit. An in-flight cycle completes first.
func (p *PeriodicPublisher) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Run starts the loop and blocks until ctx is cancelled.
func (p *PeriodicPublisher) Run(ctx context.Context) error {
	if err := p.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	p.Stop()
	return nil
}

func (p *PeriodicPublisher) validate() error {
	switch {
	case p.source == nil:
		return fmt.Errorf("%w: snapshot source is nil", ErrPublisherMisconfigured)
	case p.relay == nil:
		return fmt.Errorf("%w: relay is nil", ErrPublisherMisconfigured)
	case p.cfg.Interval <= 0:
		return fmt.Errorf("%w: interval must be positive", ErrPublisherMisconfigured)
	case p.cfg.RetryBackoff <= 0 || p.cfg.RetryBackoff >= p.cfg.Interval:
		return fmt.Errorf("%w: retry backoff %s must be positive and shorter than interval %s",
			ErrPublisherMisconfigured, p.cfg.RetryBackoff, p.cfg.Interval)
	}
	return nil
}

func (p *PeriodicPublisher) loop(ctx context.Context, done chan struct{}) {
	defer func() {
		p.mu.Lock()
		p.state = PublisherStopped
		p.cancel = nil
		p.done = nil
		p.mu.Unlock()
		close(done)
		slog.Info("periodic publisher stopped")
	}()

	wait := p.cfg.Interval
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.after(wait):
		}

		if err := p.cycle(ctx); err != nil {
			slog.Error("periodic publish cycle failed", slog.Duration("retryIn", p.cfg.RetryBackoff), slog.Any("error", err))
			wait = p.cfg.RetryBackoff
			continue
		}
		wait = p.cfg.Interval
	}
}

// cycle publishes dashboard stats and the machine list. Both halves always run;
// their errors are joined.
func (p *PeriodicPublisher) cycle(ctx context.Context) error {
	// The fetch is not tied to the stop signal so an in-flight cycle can finish.
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.FetchTimeout)
	defer cancel()

	return errors.Join(p.publishDashboard(fetchCtx), p.publishMachines(fetchCtx))
}

func (p *PeriodicPublisher) publishDashboard(ctx context.Context) error {
	stats, err := p.source.GetDashboardStats(ctx)
	if err != nil {
		return fmt.Errorf("%w: dashboard stats: %w", ErrSnapshotFetch, err)
	}
	if stats == nil {
		return fmt.Errorf("%w: dashboard stats missing", ErrSnapshotFetch)
	}
	if err := p.relay.SendToTopic(ctx, domain.TopicDashboardUpdates, domain.EventDashboardStats, stats); err != nil {
		return fmt.Errorf("relay dashboard stats: %w", err)
	}
	if p.dashboard != nil {
		if err := p.dashboard.DashboardUpdated(ctx, stats); err != nil {
			return fmt.Errorf("relay dashboard update: %w", err)
		}
	}
	return nil
}

func (p *PeriodicPublisher) publishMachines(ctx context.Context) error {
	machines, err := p.source.GetAllMachines(ctx)
	if err != nil {
		return fmt.Errorf("%w: machines: %w", ErrSnapshotFetch, err)
	}
	if machines == nil {
		machines = []domain.MachineSummary{}
	}
	if err := p.relay.Broadcast(ctx, domain.EventMachineStatusUpdate, machines); err != nil {
		return fmt.Errorf("relay machine list: %w", err)
	}

	var errs []error
	for _, machine := range machines {
		topic := domain.MachineTopic(machine.MachineID)
		if err := p.relay.SendToTopic(ctx, topic, domain.EventMachineStatusUpdate, []domain.MachineSummary{machine}); err != nil {
			errs = append(errs, fmt.Errorf("relay %s: %w", topic, err))
		}
	}
	slog.Debug("periodic machine snapshot published", slog.Int("machines", len(machines)))
	return errors.Join(errs...)
}
