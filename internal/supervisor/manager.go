// Package supervisor owns the worker lifecycle: lazy creation shared by
// concurrent callers, teardown on configuration change or idleness, and
// resource sync before every query.
package supervisor

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"tsbridge/internal/engine"
	"tsbridge/internal/errors"
	"tsbridge/internal/lifecycle"
	"tsbridge/internal/slogutil"
)

// State is the lifecycle state of a manager's worker.
type State int

const (
	StateUnstarted State = iota
	StateStarting
	StateReady
	StateStale
)

func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StateStarting:
		return "starting"
	case StateReady:
		return "ready"
	case StateStale:
		return "stale"
	}
	return "unknown"
}

// DefaultsSource is the configuration a worker is created from.
type DefaultsSource interface {
	CompilerOptions() engine.CompilerOptions
	ExtraLibs() map[string]string
	OnDidChange(fn func()) lifecycle.Disposable
}

const (
	// DefaultStartTimeout bounds spawn plus acceptDefaults
	DefaultStartTimeout = 10 * time.Second
)

// Options configures a Manager.
type Options struct {
	// Language labels logs and metrics.
	Language  string
	Spawner   Spawner
	Defaults  DefaultsSource
	Documents DocumentSource
	// IdleTimeout stops an unused worker; zero disables idle shutdown.
	IdleTimeout time.Duration
	// RequestTimeout bounds every worker request; zero means no limit.
	RequestTimeout time.Duration
	StartTimeout   time.Duration
	Logger         *slog.Logger
}

// Manager owns at most one live worker per configuration epoch.
type Manager struct {
	opts   Options
	logger *slog.Logger
	group  singleflight.Group

	configSub lifecycle.Disposable

	// mu protects every field below
	mu        sync.Mutex
	state     State
	epoch     uint64
	client    *Client
	idleTimer *time.Timer
	closed    bool
}

// NewManager creates a manager and subscribes it to configuration changes.
// No worker is started until the first GetWorker.
func NewManager(opts Options) *Manager {
	if opts.StartTimeout <= 0 {
		opts.StartTimeout = DefaultStartTimeout
	}
	m := &Manager{
		opts:   opts,
		logger: slogutil.Component(opts.Logger, "supervisor").With("language", opts.Language),
	}
	m.configSub = opts.Defaults.OnDidChange(m.onConfigChange)
	return m
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// GetWorker returns a ready worker whose mirror reflects the current content
// of resources. Concurrent callers share one in-flight creation.
func (m *Manager) GetWorker(ctx context.Context, resources ...string) (*Client, error) {
	c, err := m.getClient(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.SyncResources(ctx, m.opts.Documents, resources); err != nil {
		return nil, err
	}
	return c, nil
}

func (m *Manager) getClient(ctx context.Context) (*Client, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, errors.Newf(errors.WorkerUnavailable, "%s worker manager is disposed", m.opts.Language)
	}
	if m.client != nil && m.state == StateReady {
		c := m.client
		// counts as use, so an idle check cannot stop it before the first request
		c.touch()
		m.mu.Unlock()
		return c, nil
	}
	epoch := m.epoch
	m.state = StateStarting
	m.mu.Unlock()

	ch := m.group.DoChan(strconv.FormatUint(epoch, 10), func() (interface{}, error) {
		return m.start(epoch)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Client), nil
	case <-ctx.Done():
		// the shared creation keeps going for the other callers
		return nil, errors.FromContext(ctx.Err())
	}
}

// start spawns a worker for epoch and pushes the defaults read at spawn time.
func (m *Manager) start(epoch uint64) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), m.opts.StartTimeout)
	defer cancel()

	options := m.opts.Defaults.CompilerOptions()
	extraLibs := m.opts.Defaults.ExtraLibs()

	stream, err := m.opts.Spawner.Spawn(ctx)
	recordSpawn(ctx, m.opts.Language, m.opts.Spawner.Mode(), err)
	if err != nil {
		m.resetAfterFailedStart(epoch)
		return nil, errors.New(errors.WorkerUnavailable, "spawn worker", err)
	}

	c := newClient(stream, m.opts.RequestTimeout, m.logger)
	if err := c.AcceptDefaults(ctx, options, extraLibs); err != nil {
		c.Dispose()
		m.resetAfterFailedStart(epoch)
		if errors.HasCode(err, errors.WorkerUnavailable) {
			return nil, err
		}
		return nil, errors.New(errors.WorkerUnavailable, "worker rejected defaults", err)
	}

	m.mu.Lock()
	if m.closed || m.epoch != epoch {
		if m.client == nil && !m.closed {
			m.state = StateUnstarted
		}
		m.mu.Unlock()
		c.Dispose()
		recordTeardown(ctx, m.opts.Language, "stale-start")
		m.logger.Debug("discarding worker started for an old configuration", "epoch", epoch)
		return nil, errors.Newf(errors.StaleConfiguration, "configuration changed while the %s worker was starting", m.opts.Language)
	}
	m.client = c
	m.state = StateReady
	m.armIdleLocked()
	m.mu.Unlock()

	go m.watchExit(c)
	m.logger.Info("worker ready", "worker", c.ID()[:8], "mode", m.opts.Spawner.Mode(), "epoch", epoch)
	return c, nil
}

func (m *Manager) resetAfterFailedStart(epoch uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch == epoch && m.client == nil && !m.closed {
		m.state = StateUnstarted
	}
}

// watchExit resets the manager when a worker dies on its own.
func (m *Manager) watchExit(c *Client) {
	<-c.Done()
	if c.Stale() {
		return
	}
	m.mu.Lock()
	current := m.client == c
	if current {
		m.client = nil
		m.state = StateUnstarted
		m.stopIdleLocked()
	}
	m.mu.Unlock()
	if current && c.Dispose() {
		recordTeardown(context.Background(), m.opts.Language, "exited")
		m.logger.Warn("worker exited unexpectedly", "worker", c.ID()[:8])
	}
}

// onConfigChange tears the live worker down exactly once and invalidates
// any creation still in flight.
func (m *Manager) onConfigChange() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.epoch++
	c := m.client
	m.client = nil
	if c != nil {
		m.state = StateStale
		m.stopIdleLocked()
	}
	m.mu.Unlock()

	if c == nil {
		return
	}
	if c.retire() {
		recordTeardown(context.Background(), m.opts.Language, "config-change")
		m.logger.Info("worker torn down after configuration change", "worker", c.ID()[:8])
		// a process worker may take up to its stop timeout to exit
		go c.shutdown()
	}
	m.mu.Lock()
	if m.state == StateStale {
		m.state = StateUnstarted
	}
	m.mu.Unlock()
}

func (m *Manager) armIdleLocked() {
	if m.opts.IdleTimeout <= 0 {
		return
	}
	m.stopIdleLocked()
	c := m.client
	m.idleTimer = time.AfterFunc(m.opts.IdleTimeout, func() { m.checkIdle(c) })
}

func (m *Manager) stopIdleLocked() {
	if m.idleTimer != nil {
		m.idleTimer.Stop()
		m.idleTimer = nil
	}
}

func (m *Manager) checkIdle(c *Client) {
	m.mu.Lock()
	if m.client != c || m.closed {
		m.mu.Unlock()
		return
	}
	idle := c.idleFor()
	if c.inflight.Load() > 0 || idle < m.opts.IdleTimeout {
		wait := m.opts.IdleTimeout - idle
		if wait <= 0 {
			wait = m.opts.IdleTimeout
		}
		m.idleTimer = time.AfterFunc(wait, func() { m.checkIdle(c) })
		m.mu.Unlock()
		return
	}
	m.client = nil
	m.state = StateUnstarted
	m.idleTimer = nil
	m.mu.Unlock()

	if c.Dispose() {
		recordTeardown(context.Background(), m.opts.Language, "idle")
		m.logger.Info("stopped idle worker", "worker", c.ID()[:8], "idle", idle.Round(time.Millisecond))
	}
}

// Dispose stops the worker and the configuration subscription. Later calls
// are no-ops and later GetWorker calls fail with WorkerUnavailable.
func (m *Manager) Dispose() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	c := m.client
	m.client = nil
	m.state = StateUnstarted
	m.stopIdleLocked()
	m.mu.Unlock()

	m.configSub.Dispose()
	if c != nil && c.Dispose() {
		recordTeardown(context.Background(), m.opts.Language, "dispose")
	}
}
