package feed

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/studioclock/integration/internal/pkg/model"
	"github.com/studioclock/integration/internal/pkg/protocol"
)

const (
	// DefaultBackoff is the fixed delay before a close-triggered reconnect.
	DefaultBackoff = 3 * time.Second
	// DefaultPollInterval is the cadence of the dictionary poll fallback.
	DefaultPollInterval = time.Second

	maxPollBody = 1 << 20
)

// Events is how a runner reports to its owning manager. OnUpdates delivers
// decoded batches in arrival order per connection; OnStatus reports lifecycle
// transitions. Both are called from runner goroutines.
type Events struct {
	OnUpdates func(updates []model.StateUpdate)
	OnStatus  func(status model.Status, err error)
}

// Runner drives one integration's connection lifecycle:
//
//	idle -> connecting -> listening <-> error, error -> connecting via retry
//
// Every connection close, voluntary or not, schedules a single reconnect
// after a fixed backoff. A generation token is bumped on each attempt and on
// teardown; any callback carrying a stale generation is dropped, so nothing
// can resurrect a torn-down connection. The poll fallback runs concurrently
// with the push listener and feeds the same reducer; epsilon-gated overwrites
// upstream make the dual sources idempotent.
type Runner struct {
	mu     sync.Mutex
	target Target
	events Events
	logger *zap.Logger

	factory      TransportFactory
	httpc        *http.Client
	backoff      time.Duration
	pollEvery    time.Duration
	pollTimecode bool

	running    bool
	gen        int
	conn       Transport
	retry      *time.Timer
	pollCancel context.CancelFunc
}

func NewRunner(target Target, events Events, opts ...func(*Runner)) *Runner {
	r := &Runner{
		target:    target,
		events:    events,
		logger:    zap.L(),
		factory:   WebsocketTransport,
		httpc:     &http.Client{Timeout: 5 * time.Second},
		backoff:   DefaultBackoff,
		pollEvery: DefaultPollInterval,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func WithTransportFactory(f TransportFactory) func(*Runner) {
	return func(r *Runner) {
		r.factory = f
	}
}

func WithBackoff(d time.Duration) func(*Runner) {
	return func(r *Runner) {
		r.backoff = d
	}
}

// WithPollInterval sets the dictionary poll cadence; zero disables polling.
func WithPollInterval(d time.Duration) func(*Runner) {
	return func(r *Runner) {
		r.pollEvery = d
	}
}

// WithTimecodePoll also polls the ddr_timecode dictionary key.
func WithTimecodePoll() func(*Runner) {
	return func(r *Runner) {
		r.pollTimecode = true
	}
}

func WithHTTPClient(c *http.Client) func(*Runner) {
	return func(r *Runner) {
		r.httpc = c
	}
}

// Start begins the lifecycle. Dialling happens off the caller's goroutine;
// status transitions arrive through Events.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.mu.Unlock()

	r.events.OnStatus(model.StatusConnecting, nil)
	go r.openAttempt(ctx)

	if r.pollEvery > 0 {
		pollCtx, cancel := context.WithCancel(ctx)
		r.mu.Lock()
		r.pollCancel = cancel
		r.mu.Unlock()
		go r.pollLoop(pollCtx)
	}
}

// Stop tears the connection down: pending reconnects are cleared and all
// in-flight callbacks for the old generation become no-ops.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.gen++
	if r.retry != nil {
		r.retry.Stop()
		r.retry = nil
	}
	conn := r.conn
	r.conn = nil
	cancel := r.pollCancel
	r.pollCancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close()
	}
	r.events.OnStatus(model.StatusIdle, nil)
}

// openAttempt dials one fresh transport. Close-before-reopen: any previous
// transport is closed first so there are never duplicate listeners.
func (r *Runner) openAttempt(ctx context.Context) {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.gen++
	g := r.gen
	old := r.conn
	t := r.factory(r.target, Callbacks{
		Connected: func() { r.onConnected(g) },
		Message:   func(data []byte) { r.onMessage(g, data) },
		Error:     func(err error) { r.onError(g, err) },
		Closed:    func() { r.onClosed(ctx, g) },
	})
	r.conn = t
	r.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	if err := t.Open(ctx); err != nil {
		// Transport construction error: surfaced, not retried. Retrying
		// would fail identically until config changes. A close event from
		// the attempt still goes through the general recovery path.
		r.logger.Error("failed to open push transport", zap.String("host", r.target.Host()), zap.Error(err))
		if r.guard(g) {
			r.events.OnStatus(model.StatusError, err)
		}
	}
}

func (r *Runner) guard(g int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running && g == r.gen
}

func (r *Runner) onConnected(g int) {
	if !r.guard(g) {
		return
	}
	r.logger.Debug("push transport connected", zap.String("host", r.target.Host()))
	r.events.OnStatus(model.StatusListening, nil)
}

func (r *Runner) onMessage(g int, data []byte) {
	if !r.guard(g) {
		return
	}
	updates := protocol.Decode(string(data))
	if len(updates) == 0 {
		return
	}
	r.events.OnUpdates(updates)
}

// onError surfaces a runtime error without scheduling retry; retry belongs to
// the subsequent close event, which avoids double-scheduling.
func (r *Runner) onError(g int, err error) {
	if !r.guard(g) {
		return
	}
	r.logger.Warn("push transport error", zap.String("host", r.target.Host()), zap.Error(err))
	r.events.OnStatus(model.StatusError, err)
}

func (r *Runner) onClosed(ctx context.Context, g int) {
	r.mu.Lock()
	if !r.running || g != r.gen {
		r.mu.Unlock()
		return
	}
	if r.retry != nil {
		r.retry.Stop()
	}
	r.retry = time.AfterFunc(r.backoff, func() {
		if !r.guard(g) {
			return
		}
		r.events.OnStatus(model.StatusConnecting, nil)
		r.openAttempt(ctx)
	})
	r.mu.Unlock()
}

func (r *Runner) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(r.pollEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.pollOnce(ctx)
		}
	}
}

func (r *Runner) pollOnce(ctx context.Context) {
	updates := r.fetch(ctx, DictionaryShortcutStates, protocol.Decode)
	if r.pollTimecode {
		updates = append(updates, r.fetch(ctx, DictionaryDDRTimecode, protocol.DecodeTimecode)...)
	}
	r.mu.Lock()
	running := r.running
	r.mu.Unlock()
	if !running || len(updates) == 0 {
		return
	}
	r.events.OnUpdates(updates)
}

func (r *Runner) fetch(ctx context.Context, key string, decode func(string) []model.StateUpdate) []model.StateUpdate {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.target.DictionaryURL(key), nil)
	if err != nil {
		return nil
	}
	r.target.Authorize(req)
	res, err := r.httpc.Do(req)
	if err != nil {
		r.logger.Debug("dictionary poll failed", zap.String("key", key), zap.Error(err))
		return nil
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		r.logger.Debug("dictionary poll rejected", zap.String("key", key), zap.Int("status", res.StatusCode))
		return nil
	}
	body, err := io.ReadAll(io.LimitReader(res.Body, maxPollBody))
	if err != nil {
		return nil
	}
	return decode(string(body))
}
