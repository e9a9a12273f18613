// Package daemon wires the autobright components together and runs them
// until the context is cancelled or a client asks the daemon to stop.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/autobright/autobright/internal/app"
	"github.com/autobright/autobright/internal/brightness"
	"github.com/autobright/autobright/internal/config"
	"github.com/autobright/autobright/internal/history"
	"github.com/autobright/autobright/internal/overlay"
	"github.com/autobright/autobright/internal/schedule"
	"github.com/autobright/autobright/internal/server"
	"github.com/autobright/autobright/pkg/logger"
)

var (
	// ErrAlreadyRunning is returned when Start is called on a running daemon.
	ErrAlreadyRunning = errors.New("daemon is already running")

	// ErrNotRunning is returned when Shutdown is called on a stopped daemon.
	ErrNotRunning = errors.New("daemon is not running")

	// ErrShutdownTimeout is returned when shutdown exceeds the configured timeout.
	ErrShutdownTimeout = errors.New("shutdown timed out")
)

// DefaultShutdownTimeout bounds Shutdown.
const DefaultShutdownTimeout = 10 * time.Second

// Config holds the configuration for the daemon runner.
type Config struct {
	// ConfigDir holds settings, schedules and history.
	ConfigDir string

	// DryRun replaces the hardware brightness backend with an in-memory one.
	DryRun bool

	// ShutdownTimeout is the maximum time Shutdown waits for cleanup.
	// Zero selects DefaultShutdownTimeout.
	ShutdownTimeout time.Duration

	Version   string
	Commit    string
	BuildType string
}

// Dependencies holds the external dependencies for the daemon runner.
// Nil fields select the production implementation.
type Dependencies struct {
	Fs afero.Fs

	// ListenerFactory creates the control listener; defaults to server.Listen.
	ListenerFactory func() (net.Listener, error)

	// PortFactory opens the hardware brightness port.
	PortFactory func(brightness.Options) (brightness.Port, error)

	// OverlayFactory opens the overlay backend by name.
	OverlayFactory func(name string) (overlay.Backend, error)

	// HistoryFactory opens the history recorder at path.
	HistoryFactory func(path string, l logger.Logger) history.Recorder

	Logger logger.Logger
}

// Runner manages the daemon lifecycle.
type Runner struct {
	config *Config
	deps   *Dependencies
	log    logger.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	svc     *app.Service
}

// New creates a runner. A nil config or deps selects the defaults.
func New(config *Config, deps *Dependencies) *Runner {
	cfg := applyConfigDefaults(config)
	d := applyDependencyDefaults(deps)
	return &Runner{
		config: cfg,
		deps:   d,
		log:    logger.OrNop(d.Logger),
	}
}

func applyConfigDefaults(config *Config) *Config {
	if config == nil {
		config = &Config{}
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = DefaultShutdownTimeout
	}
	return config
}

func applyDependencyDefaults(deps *Dependencies) *Dependencies {
	if deps == nil {
		deps = &Dependencies{}
	}
	if deps.Fs == nil {
		deps.Fs = afero.NewOsFs()
	}
	if deps.ListenerFactory == nil {
		deps.ListenerFactory = server.Listen
	}
	if deps.PortFactory == nil {
		deps.PortFactory = brightness.Open
	}
	if deps.OverlayFactory == nil {
		deps.OverlayFactory = overlay.OpenBackend
	}
	if deps.HistoryFactory == nil {
		deps.HistoryFactory = history.OpenOrNop
	}
	return deps
}

// Config returns the runner's configuration.
func (r *Runner) Config() *Config {
	return r.config
}

// Service returns the running service, or nil.
func (r *Runner) Service() *app.Service {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.svc
}

// Start builds every component, serves the control socket and blocks until
// ctx is cancelled, Shutdown is called or a client sends app.stop.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	parts, err := r.build()
	if err != nil {
		r.mu.Unlock()
		cancel()
		return err
	}
	if err := parts.svc.Initialize(ctx); err != nil {
		r.mu.Unlock()
		cancel()
		parts.close()
		return err
	}
	r.running = true
	r.cancel = cancel
	r.done = make(chan struct{})
	r.svc = parts.svc
	done := r.done
	r.mu.Unlock()

	srv := server.New(parts.svc, server.Options{
		Version:   r.config.Version,
		Commit:    r.config.Commit,
		BuildType: r.config.BuildType,
		Logger:    logger.WithComponent(r.log, "server"),
		OnStop:    cancel,
	})
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ctx, parts.listener) }()

	select {
	case <-ctx.Done():
	case err = <-serveErr:
		cancel()
	}

	srv.Close()
	if serr := parts.svc.Shutdown(); serr != nil && !errors.Is(serr, app.ErrNotRunning) {
		r.log.Warning("shutdown: %v", serr)
	}
	parts.close()

	r.mu.Lock()
	r.running = false
	r.svc = nil
	r.mu.Unlock()
	close(done)
	return err
}

// parts are the resources owned by one Start call.
type parts struct {
	svc      *app.Service
	hist     history.Recorder
	listener net.Listener
}

func (p *parts) close() {
	if p.listener != nil {
		_ = p.listener.Close()
	}
	_ = p.hist.Close()
}

// build opens every collaborator. Caller must hold the mutex.
func (r *Runner) build() (*parts, error) {
	dir := r.config.ConfigDir
	if dir == "" {
		var err error
		if dir, err = config.Dir(); err != nil {
			return nil, err
		}
	}
	if err := config.EnsureDir(r.deps.Fs, dir); err != nil {
		return nil, err
	}
	settings := config.Load(r.deps.Fs, dir, r.log)

	store := schedule.Open(r.deps.Fs, filepath.Join(dir, config.SchedulesFile), logger.WithComponent(r.log, "schedule"))

	backendName := settings.Backend
	if r.config.DryRun {
		backendName = brightness.BackendMemory
	}
	port, err := r.deps.PortFactory(brightness.Options{
		Backend: backendName,
		Device:  settings.BacklightDevice,
		Logger:  logger.WithComponent(r.log, "brightness"),
	})
	if err != nil {
		return nil, fmt.Errorf("brightness: %w", err)
	}
	backend, err := r.deps.OverlayFactory(settings.OverlayBackend)
	if err != nil {
		return nil, fmt.Errorf("overlay: %w", err)
	}

	p := &parts{hist: r.deps.HistoryFactory(filepath.Join(dir, config.HistoryFile), r.log)}
	p.listener, err = r.deps.ListenerFactory()
	if err != nil {
		p.close()
		return nil, err
	}
	p.svc = app.New(app.Options{
		Settings:       settings,
		Store:          store,
		Port:           port,
		OverlayBackend: backend,
		History:        p.hist,
		Logger:         r.log,
	})
	r.log.Info("config dir %s, brightness backend %q, overlay backend %q", dir, backendName, backend.Name())
	return p, nil
}

// Shutdown stops a running daemon and waits for cleanup.
// Returns ErrNotRunning if the daemon is not running and
// ErrShutdownTimeout if cleanup does not finish in time.
func (r *Runner) Shutdown() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return ErrNotRunning
	}
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	cancel()
	select {
	case <-done:
		return nil
	case <-time.After(r.config.ShutdownTimeout):
		return ErrShutdownTimeout
	}
}

// IsRunning returns true if the daemon is currently running.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}
