// Package config resolves the per-user configuration directory and reads
// and writes settings.json inside it.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/autobright/autobright/pkg/logger"
)

// DirEnv overrides the default configuration directory.
const DirEnv = "AUTOBRIGHT_CONFIG_DIR"

// AppDirName is the directory created under os.UserConfigDir.
const AppDirName = "AutoScreenBrightness"

const (
	SettingsFile  = "settings.json"
	SchedulesFile = "schedules.json"
	HistoryFile   = "history.db"
)

// Dir returns the absolute configuration directory: $AUTOBRIGHT_CONFIG_DIR
// when set, otherwise AutoScreenBrightness under the user config dir.
func Dir() (string, error) {
	dir := os.Getenv(DirEnv)
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("resolve config dir: %w", err)
		}
		dir = filepath.Join(base, AppDirName)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return abs, nil
}

// EnsureDir creates dir if needed.
func EnsureDir(fsys afero.Fs, dir string) error {
	if dir == "" {
		return errors.New("config dir is empty")
	}
	return fsys.MkdirAll(dir, 0755)
}

// Duration is a time.Duration stored as a Go duration string ("3s").
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	if v < 0 {
		return fmt.Errorf("negative duration %q", b)
	}
	*d = Duration(v)
	return nil
}

// Settings is the content of settings.json.
type Settings struct {
	// ScheduleTransition is the ramp length used for schedule triggers.
	ScheduleTransition Duration `json:"scheduleTransition"`
	// ManualTransition is the ramp length for manual changes; 0 applies
	// them immediately.
	ManualTransition Duration `json:"manualTransition"`
	Backend          string   `json:"backend"`
	BacklightDevice  string   `json:"backlightDevice"`
	OverlayBackend   string   `json:"overlayBackend"`

	// Desktop shell preferences, persisted for the tray front end.
	MinimizeToTrayOnClose bool `json:"minimizeToTrayOnClose"`
	StartWithWindows      bool `json:"startWithWindows"`
	StartMinimizedToTray  bool `json:"startMinimizedToTray"`
}

// Defaults returns the settings used when no file exists.
func Defaults() Settings {
	return Settings{
		ScheduleTransition:    Duration(3 * time.Second),
		ManualTransition:      0,
		Backend:               "auto",
		OverlayBackend:        "auto",
		MinimizeToTrayOnClose: true,
	}
}

// Load reads settings.json from dir. Missing keys keep their defaults; a
// missing or undecodable file yields Defaults with a warning for the latter.
func Load(fsys afero.Fs, dir string, l logger.Logger) Settings {
	log := logger.OrNop(l)
	s := Defaults()
	data, err := afero.ReadFile(fsys, filepath.Join(dir, SettingsFile))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warning("failed to read settings, using defaults: %v", err)
		}
		return s
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return s
	}
	if err := json.Unmarshal(data, &s); err != nil {
		log.Warning("failed to decode settings, using defaults: %v", err)
		return Defaults()
	}
	return s
}

// Save writes s to settings.json in dir.
func Save(fsys afero.Fs, dir string, s Settings) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if err := EnsureDir(fsys, dir); err != nil {
		return err
	}
	path := filepath.Join(dir, SettingsFile)
	tmp := path + ".tmp"
	if err := afero.WriteFile(fsys, tmp, data, 0644); err != nil {
		return err
	}
	return fsys.Rename(tmp, path)
}
