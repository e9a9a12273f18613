// Package scheduler runs the schedule monitor: a single goroutine that polls
// the wall clock once per second, compares the local time of day against the
// enabled schedule entries and fires a trigger callback when an entry comes
// due.
//
// An entry matches while the time of day lies in [entry, entry+30s). The
// window absorbs poll jitter; a global 60-second debounce keeps a matching
// entry from refiring on every tick of its window. The debounce is shared by
// all entries, so a second entry less than a minute after the first may be
// suppressed. The window is evaluated modulo 24 hours, so entries just before
// midnight still fire after the clock wraps.
//
// The monitor keeps no state on disk; the last trigger time is lost on
// restart.
package scheduler
