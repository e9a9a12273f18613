package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/autobright/autobright/pkg/logger"
)

func TestDir_Env(t *testing.T) {
	want := t.TempDir()
	t.Setenv(DirEnv, want)
	got, err := Dir()
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("Dir = %q, want %q", got, want)
	}
}

func TestDir_Default(t *testing.T) {
	t.Setenv(DirEnv, "")
	got, err := Dir()
	if err != nil {
		t.Skipf("no user config dir: %v", err)
	}
	if filepath.Base(got) != AppDirName || !filepath.IsAbs(got) {
		t.Errorf("Dir = %q", got)
	}
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	mock := logger.NewMockLogger()
	s := Load(afero.NewMemMapFs(), "/cfg", mock)
	if s != Defaults() {
		t.Errorf("Load = %+v, want defaults", s)
	}
	if len(mock.Warnings()) != 0 {
		t.Errorf("unexpected warnings %v", mock.Warnings())
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	fs := afero.NewMemMapFs()
	_ = afero.WriteFile(fs, "/cfg/settings.json", []byte(`{"manualTransition":"500ms","backend":"memory"}`), 0644)
	s := Load(fs, "/cfg", nil)
	if s.ManualTransition.Std() != 500*time.Millisecond {
		t.Errorf("ManualTransition = %v", s.ManualTransition.Std())
	}
	if s.Backend != "memory" {
		t.Errorf("Backend = %q", s.Backend)
	}
	if s.ScheduleTransition.Std() != 3*time.Second || s.OverlayBackend != "auto" {
		t.Errorf("defaults lost: %+v", s)
	}
}

func TestLoad_CorruptFile(t *testing.T) {
	tests := []struct {
		name, body string
	}{
		{"syntax", `{"backend":`},
		{"bad duration", `{"scheduleTransition":"soon"}`},
		{"negative duration", `{"scheduleTransition":"-1s"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			_ = afero.WriteFile(fs, "/cfg/settings.json", []byte(tt.body), 0644)
			mock := logger.NewMockLogger()
			if s := Load(fs, "/cfg", mock); s != Defaults() {
				t.Errorf("Load = %+v, want defaults", s)
			}
			if len(mock.Warnings()) != 1 {
				t.Errorf("warnings = %v", mock.Warnings())
			}
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	in := Defaults()
	in.ScheduleTransition = Duration(10 * time.Second)
	in.BacklightDevice = "intel_backlight"
	in.StartWithWindows = true
	if err := Save(fs, "/new/dir", in); err != nil {
		t.Fatalf("Save: %v", err)
	}
	raw, _ := afero.ReadFile(fs, "/new/dir/settings.json")
	if !strings.Contains(string(raw), `"scheduleTransition": "10s"`) {
		t.Errorf("durations should be stored as strings:\n%s", raw)
	}
	if out := Load(fs, "/new/dir", nil); out != in {
		t.Errorf("round trip: got %+v, want %+v", out, in)
	}
}
