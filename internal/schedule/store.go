package schedule

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"sync"

	"github.com/spf13/afero"

	"github.com/autobright/autobright/pkg/logger"
)

// FileName is the schedule file inside the config directory.
const FileName = "schedules.json"

// Store is the in-memory schedule, ordered by time of day and written
// through to a JSON file on every mutation.
type Store struct {
	fs   afero.Fs
	path string
	log  logger.Logger

	mu      sync.RWMutex
	entries []Entry
	nextID  int
}

// Open loads the schedule at path. A missing or unreadable file yields an
// empty schedule; Open never fails.
func Open(fsys afero.Fs, path string, l logger.Logger) *Store {
	s := &Store{
		fs:     fsys,
		path:   path,
		log:    logger.OrNop(l),
		nextID: 1,
	}
	s.load()
	return s
}

// Path is the backing file.
func (s *Store) Path() string { return s.path }

func (s *Store) load() {
	s.mu.Lock()
	defer s.mu.Unlock()
	// nextID only moves forward, so ids handed out earlier in this process
	// stay retired.
	s.entries = nil

	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.Warning("failed to read schedules, starting empty: %v", err)
		}
		return
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return
	}
	var loaded []Entry
	if err := json.Unmarshal(data, &loaded); err != nil {
		s.log.Warning("failed to decode schedules, starting empty: %v", err)
		s.quarantine()
		return
	}
	s.entries = s.repair(loaded)
	s.sortLocked()
}

// quarantine moves an undecodable file aside so the next save does not
// silently destroy it.
func (s *Store) quarantine() {
	bad := s.path + ".corrupt"
	if err := s.fs.Rename(s.path, bad); err != nil {
		s.log.Warning("failed to move corrupt schedule file aside: %v", err)
		return
	}
	s.log.Warning("corrupt schedule file moved to %s", bad)
}

// repair enforces the store invariants on loaded data: valid times, one
// entry per time (first wins), clamped percentages, unique positive ids.
// Caller must hold s.mu.
func (s *Store) repair(loaded []Entry) []Entry {
	seenTime := make(map[TimeOfDay]bool, len(loaded))
	seenID := make(map[int]bool, len(loaded))
	out := make([]Entry, 0, len(loaded))
	var needID []int
	for _, e := range loaded {
		if !e.Time.Valid() {
			s.log.Warning("dropping schedule entry %d with invalid time %s", e.ID, e.Time)
			continue
		}
		if seenTime[e.Time] {
			s.log.Warning("dropping schedule entry %d: duplicate time %s", e.ID, e.Time.Short())
			continue
		}
		seenTime[e.Time] = true
		e.Brightness = min(100, max(0, e.Brightness))
		e.OverlayBrightness = min(100, max(0, e.OverlayBrightness))
		if e.ID <= 0 || seenID[e.ID] {
			needID = append(needID, len(out))
		} else {
			seenID[e.ID] = true
			s.nextID = max(s.nextID, e.ID+1)
		}
		out = append(out, e)
	}
	for _, i := range needID {
		out[i].ID = s.nextID
		s.nextID++
	}
	return out
}

func (s *Store) sortLocked() {
	sort.SliceStable(s.entries, func(i, j int) bool { return s.entries[i].Time < s.entries[j].Time })
}

// save writes the whole collection. Failures are logged, never returned:
// the in-memory schedule stays authoritative. Caller must hold s.mu.
func (s *Store) save() {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		s.log.Warning("failed to encode schedules: %v", err)
		return
	}
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		s.log.Warning("failed to save schedules: %v", err)
		return
	}
	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0644); err != nil {
		s.log.Warning("failed to save schedules: %v", err)
		return
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		s.log.Warning("failed to save schedules: %v", err)
		_ = s.fs.Remove(tmp)
	}
}

func (s *Store) indexLocked(id int) int {
	for i, e := range s.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) timeTakenLocked(t TimeOfDay, except int) bool {
	for _, e := range s.entries {
		if e.Time == t && e.ID != except {
			return true
		}
	}
	return false
}

func validate(t TimeOfDay, brightness, overlay int) error {
	if !t.Valid() {
		return fmt.Errorf("%w: time %s", ErrOutOfRange, t)
	}
	if !validPercent(brightness) {
		return fmt.Errorf("%w: brightness %d", ErrOutOfRange, brightness)
	}
	if !validPercent(overlay) {
		return fmt.Errorf("%w: overlay brightness %d", ErrOutOfRange, overlay)
	}
	return nil
}

// CanAdd reports whether no entry uses t yet.
func (s *Store) CanAdd(t TimeOfDay) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.timeTakenLocked(t, 0)
}

// Add creates an enabled entry. Callers check CanAdd first; Add enforces
// it again and returns ErrDuplicateTime.
func (s *Store) Add(t TimeOfDay, brightness, overlay int) (Entry, error) {
	if err := validate(t, brightness, overlay); err != nil {
		return Entry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timeTakenLocked(t, 0) {
		return Entry{}, fmt.Errorf("%w: %s", ErrDuplicateTime, t.Short())
	}
	e := Entry{
		ID:                s.nextID,
		Time:              t,
		Brightness:        brightness,
		OverlayBrightness: overlay,
		Enabled:           true,
	}
	s.nextID++
	s.entries = append(s.entries, e)
	s.sortLocked()
	s.save()
	return e, nil
}

// Update changes an entry's time and levels, keeping its id and state.
func (s *Store) Update(id int, t TimeOfDay, brightness, overlay int) (Entry, error) {
	if err := validate(t, brightness, overlay); err != nil {
		return Entry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return Entry{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if s.timeTakenLocked(t, id) {
		return Entry{}, fmt.Errorf("%w: %s", ErrDuplicateTime, t.Short())
	}
	s.entries[i].Time = t
	s.entries[i].Brightness = brightness
	s.entries[i].OverlayBrightness = overlay
	e := s.entries[i]
	s.sortLocked()
	s.save()
	return e, nil
}

// Remove deletes the entry with id.
func (s *Store) Remove(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	s.save()
	return nil
}

// Toggle flips the enabled flag of the entry with id.
func (s *Store) Toggle(id int) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return Entry{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	s.entries[i].Enabled = !s.entries[i].Enabled
	e := s.entries[i]
	s.save()
	return e, nil
}

// Get returns a copy of the entry with id.
func (s *Store) Get(id int) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.entries[i], true
	}
	return Entry{}, false
}

// List returns a copy of all entries ordered by time of day.
func (s *Store) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Entry(nil), s.entries...)
}

// Enabled returns the enabled entries ordered by time of day.
func (s *Store) Enabled() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if e.Enabled {
			out = append(out, e)
		}
	}
	return out
}

// Len is the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
