package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/autobright/autobright/internal/brightness"
	"github.com/autobright/autobright/internal/config"
	"github.com/autobright/autobright/internal/history"
	"github.com/autobright/autobright/internal/overlay"
	"github.com/autobright/autobright/internal/schedule"
	"github.com/autobright/autobright/internal/scheduler"
	"github.com/autobright/autobright/internal/transition"
	"github.com/autobright/autobright/pkg/logger"
)

var (
	ErrAlreadyRunning = errors.New("service already initialized")
	ErrNotRunning     = errors.New("service not initialized")
	ErrUnknownEvent   = errors.New("unknown event")
)

// Status messages.
const (
	StatusReady           = "Ready"
	StatusApplied         = "Brightness applied"
	StatusOverlayDisabled = "Overlay disabled"
)

func failedStatus(err error) string { return "Failed - " + err.Error() }

func overlayEnabledStatus(percent int) string {
	return fmt.Sprintf("Overlay enabled (%d%%)", percent)
}

// Options wire a Service to its collaborators. Store and Port are required.
type Options struct {
	Settings       config.Settings
	Store          *schedule.Store
	Port           brightness.Port
	OverlayBackend overlay.Backend
	History        history.Recorder
	Logger         logger.Logger

	// Engine and monitor tuning; zero values select the defaults.
	Engine  transition.Options
	Monitor scheduler.Options
	Overlay overlay.Options

	// OnActivate runs for every Activate event.
	OnActivate func()
}

// Service coordinates brightness, overlay and schedule.
type Service struct {
	settings   config.Settings
	store      *schedule.Store
	engine     *transition.Engine
	brightness *brightness.Controller
	overlay    *overlay.Coordinator
	monitor    *scheduler.Monitor
	history    history.Recorder
	log        logger.Logger
	onActivate func()
	observer   atomic.Pointer[func(transition.StepEvent)]

	mu          sync.Mutex
	running     bool
	stopping    bool
	ctx         context.Context
	cancel      context.CancelFunc
	status      string
	activations int
	watchers    sync.WaitGroup
}

// New builds a Service. Nothing runs until Initialize.
func New(opts Options) *Service {
	log := logger.OrNop(opts.Logger)
	s := &Service{
		settings:   opts.Settings,
		store:      opts.Store,
		history:    opts.History,
		log:        log,
		onActivate: opts.OnActivate,
		status:     StatusReady,
		ctx:        context.Background(),
	}
	if s.history == nil {
		s.history = history.Nop{}
	}

	engineOpts := opts.Engine
	engineOpts.Logger = logger.WithComponent(log, "transition")
	engineOpts.OnStep = s.emitStep
	s.engine = transition.NewEngine(engineOpts)

	s.brightness = brightness.NewController(opts.Port, s.engine, logger.WithComponent(log, "brightness"))

	backend := opts.OverlayBackend
	if backend == nil {
		backend = overlay.NewHeadless(nil)
	}
	overlayOpts := opts.Overlay
	overlayOpts.Logger = logger.WithComponent(log, "overlay")
	s.overlay = overlay.New(backend, s.engine, overlayOpts)

	monitorOpts := opts.Monitor
	monitorOpts.Logger = logger.WithComponent(log, "scheduler")
	s.monitor = scheduler.New(s.store, s.onEntryDue, monitorOpts)
	return s
}

// Initialize starts the schedule monitor. Transitions started afterwards
// are cancelled by Shutdown.
func (s *Service) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	if err := s.monitor.Initialize(ctx); err != nil {
		cancel()
		return err
	}
	s.ctx, s.cancel = ctx, cancel
	s.running = true
	s.log.Info("service started with %d schedule entries", s.store.Len())
	return nil
}

// Shutdown stops the monitor, cancels running transitions and removes the
// overlay. Each step is bounded; Shutdown does not hang on a stuck part.
func (s *Service) Shutdown() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.running = false
	s.stopping = true
	cancel := s.cancel
	s.mu.Unlock()

	if !s.monitor.Stop() {
		s.log.Warning("schedule monitor did not stop cleanly")
	}
	cancel()
	s.engine.Cancel(transition.Brightness)
	if !s.overlay.Stop() {
		s.log.Warning("overlay did not stop cleanly")
	}
	s.watchers.Wait()

	s.mu.Lock()
	s.ctx, s.cancel = context.Background(), nil
	s.stopping = false
	s.mu.Unlock()
	s.log.Info("service stopped")
	return nil
}

// Running reports whether Initialize succeeded and Shutdown was not called.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// watch registers a background watcher and returns the context ramps run
// under. It refuses once Shutdown has begun waiting on the watchers.
func (s *Service) watch() (context.Context, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		return nil, false
	}
	s.watchers.Add(1)
	return s.ctx, true
}

func (s *Service) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// SetStepObserver registers fn to receive every applied transition step.
// Passing nil removes it.
func (s *Service) SetStepObserver(fn func(transition.StepEvent)) {
	if fn == nil {
		s.observer.Store(nil)
		return
	}
	s.observer.Store(&fn)
}

func (s *Service) emitStep(ev transition.StepEvent) {
	if fn := s.observer.Load(); fn != nil {
		(*fn)(ev)
	}
}

func (s *Service) onEntryDue(e schedule.Entry) {
	s.OnScheduleTriggered(e.Time, e.Brightness, e.OverlayBrightness)
}

// OnScheduleTriggered applies a due schedule entry. It returns at once;
// both ramps run in the background.
func (s *Service) OnScheduleTriggered(at schedule.TimeOfDay, brightnessPct, overlayPct int) {
	if _, err := s.Update(ScheduleTriggered{Time: at, Brightness: brightnessPct, OverlayBrightness: overlayPct}); err != nil {
		s.log.Warning("apply %s: %v", at.Short(), err)
	}
}

// Applied holds the transitions an event started. A nil handle means the
// event did not touch that channel.
type Applied struct {
	Brightness *transition.Handle
	Overlay    *transition.Handle
}

// Wait blocks until every started transition has finished.
func (a Applied) Wait() {
	for _, h := range []*transition.Handle{a.Brightness, a.Overlay} {
		if h != nil {
			<-h.Done()
		}
	}
}

// Update dispatches ev. Schedule and manual changes follow the same
// cancellation rules: a newer change on a channel supersedes an older one.
func (s *Service) Update(ev Event) (Applied, error) {
	logger.Debug(s.log, "event: %s", ev)
	switch e := ev.(type) {
	case ScheduleTriggered:
		return s.applySchedule(e), nil
	case BrightnessChanged:
		h, err := s.applyBrightness(e.Percent, s.manualDuration(e.Duration), func(err error) {
			s.report(err, StatusApplied)
			s.record(history.Event{Source: history.SourceManual, Brightness: brightness.Clamp(e.Percent), Overlay: history.NoValue}, err)
		})
		return Applied{Brightness: h}, err
	case OverlayChanged:
		h, err := s.applyOverlay(e.Percent, s.manualDuration(e.Duration))
		s.record(history.Event{Source: history.SourceManual, Brightness: history.NoValue, Overlay: min(100, max(0, e.Percent))}, err)
		return Applied{Overlay: h}, err
	case Activate:
		s.mu.Lock()
		s.activations++
		s.mu.Unlock()
		s.log.Info("activation requested by another instance")
		if s.onActivate != nil {
			s.onActivate()
		}
		return Applied{}, nil
	default:
		return Applied{}, fmt.Errorf("%w: %T", ErrUnknownEvent, ev)
	}
}

func (s *Service) manualDuration(d time.Duration) time.Duration {
	if d < 0 {
		return s.settings.ManualTransition.Std()
	}
	return d
}

func (s *Service) applySchedule(e ScheduleTriggered) Applied {
	d := s.settings.ScheduleTransition.Std()
	s.log.Info("applying %s over %s", e, d)

	var a Applied
	a.Brightness, _ = s.applyBrightness(e.Brightness, d, func(err error) {
		s.report(err, StatusApplied)
		s.record(history.Event{
			Source:     history.SourceSchedule,
			Brightness: brightness.Clamp(e.Brightness),
			Overlay:    min(100, max(0, e.OverlayBrightness)),
		}, err)
	})
	h, err := s.applyOverlay(e.OverlayBrightness, d)
	if err != nil {
		s.log.Warning("schedule %s: overlay: %v", e.Time.Short(), err)
	}
	a.Overlay = h
	return a
}

// applyBrightness sets or ramps the hardware brightness and calls done with
// the outcome once the write or ramp has finished. done is skipped when the
// change is superseded.
func (s *Service) applyBrightness(percent int, d time.Duration, done func(error)) (*transition.Handle, error) {
	percent = brightness.Clamp(percent)
	if d <= 0 {
		err := s.brightness.Set(percent)
		if errors.Is(err, transition.ErrSuperseded) {
			return transition.Finished(err), nil
		}
		done(err)
		return transition.Finished(err), err
	}
	ctx, ok := s.watch()
	if !ok {
		return transition.Finished(transition.ErrSuperseded), nil
	}
	h := s.brightness.Ramp(ctx, percent, d)
	go func() {
		defer s.watchers.Done()
		if err := h.Wait(); err != nil {
			if !errors.Is(err, transition.ErrSuperseded) {
				done(err)
			}
			return
		}
		done(s.brightness.LastError())
	}()
	return h, nil
}

// applyOverlay turns the overlay off for 100% and above, and otherwise
// starts or updates it. With d > 0 the change fades.
func (s *Service) applyOverlay(percent int, d time.Duration) (*transition.Handle, error) {
	if percent >= 100 {
		var h *transition.Handle
		if d > 0 {
			h = s.overlay.SmoothStop(s.context(), d)
		} else {
			s.overlay.Stop()
			h = transition.Finished(nil)
		}
		s.setStatus(StatusOverlayDisabled)
		return h, nil
	}
	percent = max(0, percent)

	var h *transition.Handle
	if d > 0 {
		h = s.overlay.SmoothUpdateOpacity(s.context(), percent, d)
	} else {
		h = transition.Finished(s.overlay.Start(percent, false))
	}
	if err := h.Err(); err != nil && !errors.Is(err, transition.ErrSuperseded) {
		s.setStatus(failedStatus(err))
		return h, err
	}
	s.setStatus(overlayEnabledStatus(percent))
	return h, nil
}

func (s *Service) report(err error, ok string) {
	if err != nil {
		s.log.Warning("brightness: %v", err)
		s.setStatus(failedStatus(err))
		return
	}
	s.setStatus(ok)
}

func (s *Service) record(e history.Event, err error) {
	e.OK = err == nil
	if err != nil {
		e.Message = err.Error()
	}
	if rerr := s.history.Record(e); rerr != nil {
		s.log.Warning("history: %v", rerr)
	}
}

// StatusMessage is the outcome of the last brightness or overlay change.
func (s *Service) StatusMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Service) setStatus(msg string) {
	s.mu.Lock()
	s.status = msg
	s.mu.Unlock()
}

// Status is a snapshot of the service state.
type Status struct {
	Running        bool
	Message        string
	Brightness     brightness.Result
	OverlayRunning bool
	OverlayOpacity float64
	OverlayBackend string
	Displays       []overlay.Display
	Monitor        scheduler.State
	LastTrigger    time.Time
	NextEntry      *schedule.Entry
	NextRun        time.Time
	Entries        int
	Activations    int
}

// Status reads the hardware brightness and collects the current state.
func (s *Service) Status() Status {
	st := Status{
		Brightness:     s.Brightness(),
		OverlayRunning: s.overlay.IsRunning(),
		OverlayOpacity: s.overlay.Opacity(),
		OverlayBackend: s.overlay.Backend().Name(),
		Displays:       s.overlay.Displays(),
		Monitor:        s.monitor.State(),
		Entries:        s.store.Len(),
	}
	st.LastTrigger, _ = s.monitor.LastTrigger()
	if e, at, ok := s.monitor.Next(time.Now()); ok {
		st.NextEntry, st.NextRun = &e, at
	}
	s.mu.Lock()
	st.Running = s.running
	st.Message = s.status
	st.Activations = s.activations
	s.mu.Unlock()
	return st
}

// Brightness reads the hardware brightness.
func (s *Service) Brightness() brightness.Result {
	return brightness.ResultOf(s.brightness.Current())
}

// Schedule is the schedule store.
func (s *Service) Schedule() *schedule.Store { return s.store }

// History is the event recorder.
func (s *Service) History() history.Recorder { return s.history }

// Overlay is the overlay coordinator.
func (s *Service) Overlay() *overlay.Coordinator { return s.overlay }

// Settings is the settings the service was built with.
func (s *Service) Settings() config.Settings { return s.settings }
