// Package brightness reads and writes hardware display brightness as a
// percentage and ramps it smoothly through the transition engine.
package brightness

import (
	"errors"
	"sync"
)

var (
	// ErrUnavailable is returned when no controllable display was found.
	ErrUnavailable = errors.New("brightness control unavailable")
	// ErrUnknownBackend is returned by Open for an unsupported backend name.
	ErrUnknownBackend = errors.New("unknown brightness backend")
)

// Port is the hardware brightness capability. Values are percentages in
// [0,100]; callers clamp before calling Set.
type Port interface {
	Get() (int, error)
	Set(percent int) error
}

// Clamp limits percent to [0,100].
func Clamp(percent int) int {
	return min(100, max(0, percent))
}

// Result is the boundary form of a hardware call: success flag, value and
// the failure message shown to the user.
type Result struct {
	OK      bool   `json:"ok"`
	Value   int    `json:"value"`
	Message string `json:"message,omitempty"`
}

// ResultOf converts a Go (value, error) pair into a Result.
func ResultOf(value int, err error) Result {
	if err != nil {
		return Result{OK: false, Message: err.Error()}
	}
	return Result{OK: true, Value: value}
}

// Memory is an in-process Port used for dry runs and on platforms without
// a hardware backend.
type Memory struct {
	mu    sync.Mutex
	value int
}

// NewMemory returns a Memory port holding percent.
func NewMemory(percent int) *Memory {
	return &Memory{value: Clamp(percent)}
}

func (m *Memory) Get() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.value, nil
}

func (m *Memory) Set(percent int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = Clamp(percent)
	return nil
}
