package cmd

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/creachadair/jrpc2/channel"
	"github.com/spf13/afero"

	"github.com/autobright/autobright/internal/app"
	"github.com/autobright/autobright/internal/brightness"
	"github.com/autobright/autobright/internal/config"
	"github.com/autobright/autobright/internal/daemon"
	"github.com/autobright/autobright/internal/overlay"
	"github.com/autobright/autobright/internal/schedule"
	"github.com/autobright/autobright/internal/server"
	"github.com/autobright/autobright/internal/transition"
	"github.com/autobright/autobright/pkg/client"
)

type harness struct {
	svc     *app.Service
	srv     *server.Server
	mu      sync.Mutex
	stopped bool
}

// newHarness serves a real service over in-memory pipes and points the
// CLI's dialer at it.
func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{}
	h.svc = app.New(app.Options{
		Settings:       config.Defaults(),
		Store:          schedule.Open(afero.NewMemMapFs(), "/cfg/schedules.json", nil),
		Port:           brightness.NewMemory(50),
		OverlayBackend: overlay.NewHeadless(nil),
		Engine:         transition.Options{StepInterval: 5 * time.Millisecond, MinDuration: 10 * time.Millisecond},
		Overlay:        overlay.Options{StopTimeout: time.Second},
	})
	if err := h.svc.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	h.srv = server.New(h.svc, server.Options{
		Version: "test",
		OnStop: func() {
			h.mu.Lock()
			h.stopped = true
			h.mu.Unlock()
		},
	})
	ctx, cancel := context.WithCancel(context.Background())
	go h.srv.Notifier().Run(ctx)

	orig := dialDaemon
	dialDaemon = func(context.Context) (*client.Client, error) {
		sc, cc := net.Pipe()
		h.srv.ServeChannel(channel.Line(sc, sc))
		return client.New(cc), nil
	}
	t.Cleanup(func() {
		dialDaemon = orig
		cancel()
		h.srv.Close()
		_ = h.svc.Shutdown()
	})
	return h
}

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	var buf bytes.Buffer
	a := newApp(BuildArgs{Version: "test", BuildType: "dev"})
	a.Writer = &buf
	a.ErrWriter = &buf
	if err := a.Run(append([]string{"autobright"}, args...)); err != nil {
		t.Fatalf("run %v: %v", args, err)
	}
	return buf.String()
}

func assertContains(t *testing.T, out string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(out, w) {
			t.Fatalf("output %q does not contain %q", out, w)
		}
	}
}

func TestSchedule_Commands(t *testing.T) {
	h := newHarness(t)

	assertContains(t, runCLI(t, "schedule", "list"), "no schedule entries")
	assertContains(t, runCLI(t, "schedule", "add", "08:00", "80", "100"),
		"Added entry 1: 08:00:00 brightness 80% overlay 100% (enabled)")
	assertContains(t, runCLI(t, "schedule", "add", "22:30:15", "20", "40"), "Added entry 2")
	assertContains(t, runCLI(t, "schedule", "add", "08:00", "10", "100"), "schedule[add]", "already exists")

	out := runCLI(t, "schedule", "list")
	assertContains(t, out, "08:00:00", "22:30:15", " 80% ", " 40% ")
	if strings.Index(out, "08:00:00") > strings.Index(out, "22:30:15") {
		t.Fatal("entries not ordered by time")
	}

	assertContains(t, runCLI(t, "schedule", "update", "2", "21:00", "25", "50"),
		"Updated entry 2: 21:00:00 brightness 25% overlay 50%")
	assertContains(t, runCLI(t, "schedule", "toggle", "1"), "Toggled entry 1", "(disabled)")
	if e, _ := h.svc.Schedule().Get(1); e.Enabled {
		t.Fatal("entry 1 still enabled")
	}
	assertContains(t, runCLI(t, "schedule", "remove", "1"), "Removed entry 1")
	assertContains(t, runCLI(t, "schedule", "remove", "1"), "schedule[remove]", "not found")
	if got := h.svc.Schedule().Len(); got != 1 {
		t.Fatalf("store has %d entries, want 1", got)
	}
}

func TestSchedule_BadArguments(t *testing.T) {
	newHarness(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing values", []string{"schedule", "add", "08:00"}, errEntryArgs.Error()},
		{"brightness not a number", []string{"schedule", "add", "08:00", "x", "100"}, "brightness"},
		{"id not a number", []string{"schedule", "toggle", "abc"}, "numeric entry id"},
		{"bad time", []string{"schedule", "add", "8am", "50", "100"}, "invalid time of day"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertContains(t, runCLI(t, tt.args...), tt.want)
		})
	}
}

func TestBrightness_SetAndGet(t *testing.T) {
	newHarness(t)

	assertContains(t, runCLI(t, "brightness", "75", "-d", "0s"), "Brightness 75%: Brightness applied")
	assertContains(t, runCLI(t, "brightness"), "Brightness: 75%")
	assertContains(t, runCLI(t, "brightness", "150"), errPercent.Error())
	assertContains(t, runCLI(t, "brightness", "50", "--watch"), errWatchNeedsD.Error())
}

func TestBrightness_Watch(t *testing.T) {
	h := newHarness(t)

	out := runCLI(t, "brightness", "90", "-d", "50ms", "--watch")
	assertContains(t, out, "Brightness 90%")
	if strings.Contains(out, "did not finish") {
		t.Fatalf("watch timed out: %q", out)
	}
	if r := h.svc.Brightness(); r.Value != 90 {
		t.Fatalf("brightness = %d, want 90", r.Value)
	}
}

func TestOverlay_Command(t *testing.T) {
	h := newHarness(t)

	assertContains(t, runCLI(t, "overlay", "30", "-d", "0s"), "Overlay enabled (30%)")
	if !h.svc.Overlay().IsRunning() {
		t.Fatal("overlay not running")
	}
	assertContains(t, runCLI(t, "status"), "Overlay:      on, opacity 0.70 on 1 display(s) [headless]")
	assertContains(t, runCLI(t, "overlay", "100", "-d", "0s"), "Overlay disabled")
	if h.svc.Overlay().IsRunning() {
		t.Fatal("overlay still running")
	}
}

func TestStatus_Command(t *testing.T) {
	newHarness(t)

	runCLI(t, "schedule", "add", "07:00", "60", "100")
	assertContains(t, runCLI(t, "status"),
		"Daemon:       running (monitor running)",
		"Status:       Ready",
		"Brightness:   50%",
		"Schedules:    1",
		"Next:         07:00:00",
	)
}

func TestHistory_Command(t *testing.T) {
	newHarness(t)

	assertContains(t, runCLI(t, "history"), "no history yet")
}

func TestStop_Command(t *testing.T) {
	h := newHarness(t)

	assertContains(t, runCLI(t, "stop"), "Daemon stopped")
	deadline := time.Now().Add(2 * time.Second)
	for {
		h.mu.Lock()
		stopped := h.stopped
		h.mu.Unlock()
		if stopped {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("daemon stop hook not called")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestCommands_NoDaemon(t *testing.T) {
	orig := dialDaemon
	dialDaemon = func(context.Context) (*client.Client, error) {
		return nil, errors.New("connection refused")
	}
	defer func() { dialDaemon = orig }()

	assertContains(t, runCLI(t, "status"), "autobright: status[new_client]: connection refused")
	assertContains(t, runCLI(t, "schedule", "list"), "schedule[new_client]")
}

func TestRun_ActivatesExisting(t *testing.T) {
	origActivate, origStart := activateExisting, startDaemon
	defer func() { activateExisting, startDaemon = origActivate, origStart }()

	activateExisting = func(context.Context) (bool, error) { return true, nil }
	started := false
	startDaemon = func(context.Context, *daemon.Config, *daemon.Dependencies) error {
		started = true
		return nil
	}

	assertContains(t, runCLI(t, "run"), "already running")
	if started {
		t.Fatal("second instance started a daemon")
	}
}

func TestRun_StartsDaemon(t *testing.T) {
	origActivate, origStart := activateExisting, startDaemon
	defer func() { activateExisting, startDaemon = origActivate, origStart }()

	activateExisting = func(context.Context) (bool, error) { return false, nil }
	var got *daemon.Config
	startDaemon = func(_ context.Context, cfg *daemon.Config, deps *daemon.Dependencies) error {
		got = cfg
		if deps.Logger == nil {
			t.Error("daemon started without a logger")
		}
		return nil
	}

	runCLI(t, "run", "--dry-run", "--config-dir", "/tmp/ab")
	if got == nil {
		t.Fatal("daemon not started")
	}
	if !got.DryRun || got.ConfigDir != "/tmp/ab" || got.Version != currentBuild.Version {
		t.Fatalf("config %+v", got)
	}
}

func TestVersion_Command(t *testing.T) {
	var buf bytes.Buffer
	a := newApp(BuildArgs{Version: "1.0.0", BuildType: "release"})
	a.Writer = &buf
	if err := Execute([]string{"autobright", "version"}, BuildArgs{Version: "1.0.0", BuildType: "release", Commit: "abc"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if err := a.Run([]string{"autobright", "version"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	assertContains(t, buf.String(), "autobright 1.0.0-release", "abc")
}
