package switcher

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/studioclock/integration/internal/pkg/config"
	"github.com/studioclock/integration/internal/pkg/countdown"
	"github.com/studioclock/integration/internal/pkg/feed"
	"github.com/studioclock/integration/internal/pkg/metrics"
	"github.com/studioclock/integration/internal/pkg/model"
)

const integrationName = "switcher"

// Manager owns the switcher/DDR connection lifecycle and the aggregate
// DeviceState. The state value is immutable once published: the reducer
// copies before the first change, so readers can hold the returned pointer
// without locks.
type Manager struct {
	mu         sync.Mutex
	cfg        config.SwitcherConfig
	pats       Patterns
	state      *model.DeviceState
	runner     *feed.Runner
	logger     *zap.Logger
	now        func() time.Time
	onChange   func(*model.DeviceState)
	runnerOpts []func(*feed.Runner)
	started    bool
}

func NewManager(cfg config.SwitcherConfig, opts ...func(*Manager)) *Manager {
	m := &Manager{
		cfg:    cfg,
		state:  model.NewDeviceState(),
		logger: zap.L(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// WithClock injects the time source for deterministic tests.
func WithClock(now func() time.Time) func(*Manager) {
	return func(m *Manager) {
		m.now = now
	}
}

// OnChange registers a callback fired with every new published state.
func OnChange(f func(*model.DeviceState)) func(*Manager) {
	return func(m *Manager) {
		m.onChange = f
	}
}

// WithRunnerOptions forwards options to the underlying feed runner.
func WithRunnerOptions(opts ...func(*feed.Runner)) func(*Manager) {
	return func(m *Manager) {
		m.runnerOpts = opts
	}
}

// Start brings the integration up according to its config. Configuration
// problems surface as status=error without a retry loop; there is nothing to
// connect to until the config changes.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	cfg := m.cfg
	m.started = true
	m.mu.Unlock()

	if !cfg.Enabled {
		m.applyStatus(model.StatusIdle, nil)
		return
	}

	pats, err := compilePatterns(cfg)
	if err != nil {
		m.logger.Error("invalid switcher pattern", zap.Error(err))
		m.applyStatus(model.StatusError, err)
		return
	}
	target, err := feed.ParseTarget(cfg.Target)
	if err != nil {
		m.logger.Error("invalid switcher target", zap.Error(err))
		m.applyStatus(model.StatusError, err)
		return
	}

	m.mu.Lock()
	m.pats = pats
	m.state = model.NewDeviceState()
	opts := append([]func(*feed.Runner){feed.WithTimecodePoll()}, m.runnerOpts...)
	runner := feed.NewRunner(target, feed.Events{
		OnUpdates: m.applyUpdates,
		OnStatus:  m.applyStatus,
	}, opts...)
	m.runner = runner
	m.mu.Unlock()

	runner.Start(ctx)
}

// Stop tears the connection down and resets the aggregate: last-known
// entries are not trusted across a disable.
func (m *Manager) Stop() {
	m.mu.Lock()
	runner := m.runner
	m.runner = nil
	m.started = false
	m.mu.Unlock()
	if runner != nil {
		runner.Stop()
		return
	}
	m.applyStatus(model.StatusIdle, nil)
}

// Configure swaps in a new config. The transport is only rebuilt when the
// connection identity changed; a display-only edit keeps the connection.
func (m *Manager) Configure(ctx context.Context, cfg config.SwitcherConfig) {
	m.mu.Lock()
	old := m.cfg
	m.cfg = cfg
	runner := m.runner
	started := m.started
	m.mu.Unlock()

	if old.Identity() == cfg.Identity() && old.Enabled == cfg.Enabled {
		return
	}
	if !started {
		return
	}
	// Close-before-reopen.
	if runner != nil {
		m.mu.Lock()
		m.runner = nil
		m.mu.Unlock()
		runner.Stop()
	}
	m.Start(ctx)
}

// State returns the latest published aggregate. Callers must treat it as
// read-only.
func (m *Manager) State() *model.DeviceState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Countdown projects the active channel's remaining time at this instant.
func (m *Manager) Countdown() countdown.Projection {
	return Countdown(m.State(), m.now())
}

// Active resolves the currently on-air DDR channel.
func (m *Manager) Active() (int, bool) {
	return ActiveChannel(m.State(), m.now())
}

func (m *Manager) applyUpdates(updates []model.StateUpdate) {
	m.mu.Lock()
	next := Apply(m.state, updates, m.pats, m.now())
	changed := next != m.state
	if changed {
		m.state = next
	}
	onChange := m.onChange
	m.mu.Unlock()

	metrics.UpdatesApplied.WithLabelValues(integrationName).Add(float64(len(updates)))
	if changed && onChange != nil {
		onChange(next)
	}
}

func (m *Manager) applyStatus(status model.Status, err error) {
	m.mu.Lock()
	prev := m.state
	switch {
	case status == model.StatusIdle:
		if prev.Status != model.StatusIdle || len(prev.RemainingByDDR) > 0 || len(prev.PlayingByDDR) > 0 {
			m.state = model.NewDeviceState()
		}
	case prev.Status != status || prev.Err != errString(err):
		next := prev.Clone()
		next.Status = status
		next.Err = errString(err)
		m.state = next
	}
	changed := m.state != prev
	next := m.state
	onChange := m.onChange
	m.mu.Unlock()

	metrics.ObserveStatus(integrationName, status)
	if status == model.StatusConnecting && prev.Status == model.StatusError {
		metrics.Reconnects.WithLabelValues(integrationName).Inc()
	}
	if changed && onChange != nil {
		onChange(next)
	}
}

func compilePatterns(cfg config.SwitcherConfig) (Patterns, error) {
	pats := Patterns{}
	if cfg.RemainingPattern != "" {
		m, err := CompileTemplate(cfg.RemainingPattern)
		if err != nil {
			return Patterns{}, err
		}
		pats.Remaining = m
	}
	if cfg.PlayPattern != "" {
		m, err := CompileTemplate(cfg.PlayPattern)
		if err != nil {
			return Patterns{}, err
		}
		pats.Play = m
	}
	return pats, nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
