package brightness

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// DefaultSysfsBase is where the kernel exposes backlight devices.
const DefaultSysfsBase = "/sys/class/backlight"

// Sysfs drives a kernel backlight device through its brightness and
// max_brightness attributes.
type Sysfs struct {
	fs     afero.Fs
	dir    string
	name   string
	maxRaw int
}

// NewSysfs opens the backlight device name under base. An empty name picks
// the first device in lexical order.
func NewSysfs(fs afero.Fs, base, name string) (*Sysfs, error) {
	if base == "" {
		base = DefaultSysfsBase
	}
	if name == "" {
		entries, err := afero.ReadDir(fs, base)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", base, err)
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		if len(names) == 0 {
			return nil, fmt.Errorf("%w: no devices in %s", ErrUnavailable, base)
		}
		sort.Strings(names)
		name = names[0]
	}
	s := &Sysfs{fs: fs, dir: filepath.Join(base, name), name: name}
	maxRaw, err := s.readInt("max_brightness")
	if err != nil {
		return nil, err
	}
	if maxRaw <= 0 {
		return nil, fmt.Errorf("%w: %s reports max_brightness %d", ErrUnavailable, name, maxRaw)
	}
	s.maxRaw = maxRaw
	return s, nil
}

// Name is the backlight device name.
func (s *Sysfs) Name() string { return s.name }

// Subsystem is the sysfs class, as logind expects it.
func (s *Sysfs) Subsystem() string { return filepath.Base(filepath.Dir(s.dir)) }

func (s *Sysfs) readInt(attr string) (int, error) {
	data, err := afero.ReadFile(s.fs, filepath.Join(s.dir, attr))
	if err != nil {
		return 0, fmt.Errorf("read %s/%s: %w", s.name, attr, err)
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse %s/%s: %w", s.name, attr, err)
	}
	return v, nil
}

func (s *Sysfs) Get() (int, error) {
	raw, err := s.readInt("brightness")
	if err != nil {
		return 0, err
	}
	return s.toPercent(raw), nil
}

func (s *Sysfs) Set(percent int) error {
	raw := s.toRaw(percent)
	path := filepath.Join(s.dir, "brightness")
	if err := afero.WriteFile(s.fs, path, []byte(strconv.Itoa(raw)), 0644); err != nil {
		if os.IsPermission(err) {
			return fmt.Errorf("write %s: %w (try the logind backend)", path, err)
		}
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (s *Sysfs) toRaw(percent int) int {
	return int(math.Round(float64(Clamp(percent)) / 100 * float64(s.maxRaw)))
}

func (s *Sysfs) toPercent(raw int) int {
	return Clamp(int(math.Round(float64(raw) * 100 / float64(s.maxRaw))))
}
