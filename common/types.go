package common

import "time"

// VersionResult is the response for system.getVersion.
type VersionResult struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildType string `json:"buildType,omitempty"`
}

// EmptyResult is returned by methods without data.
type EmptyResult struct{}

// BrightnessResult reports a hardware read or write.
type BrightnessResult struct {
	OK      bool   `json:"ok"`
	Value   int    `json:"value"`
	Message string `json:"message,omitempty"`
}

// LevelParams is the input of brightness.set and overlay.set. Duration is
// a Go duration string; empty selects the configured manual transition.
type LevelParams struct {
	Percent  int    `json:"percent"`
	Duration string `json:"duration,omitempty"`
}

// OverlayResult is the response for overlay.set.
type OverlayResult struct {
	Running bool    `json:"running"`
	Opacity float64 `json:"opacity"`
	Message string  `json:"message"`
}

// Display is one display covered by the overlay.
type Display struct {
	ID      string `json:"id"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Primary bool   `json:"primary,omitempty"`
}

// StatusResult is the response for app.status.
type StatusResult struct {
	Running        bool             `json:"running"`
	Message        string           `json:"message"`
	Brightness     BrightnessResult `json:"brightness"`
	OverlayRunning bool             `json:"overlayRunning"`
	OverlayOpacity float64          `json:"overlayOpacity"`
	OverlayBackend string           `json:"overlayBackend"`
	Displays       []Display        `json:"displays,omitempty"`
	Monitor        string           `json:"monitor"`
	LastTrigger    *time.Time       `json:"lastTrigger,omitempty"`
	NextEntry      *ScheduleEntry   `json:"nextEntry,omitempty"`
	NextRun        *time.Time       `json:"nextRun,omitempty"`
	Entries        int              `json:"entries"`
	Activations    int              `json:"activations"`
}

// ScheduleEntry is the wire form of a schedule entry. Time is HH:MM:SS.
type ScheduleEntry struct {
	ID                int    `json:"id"`
	Time              string `json:"time"`
	Brightness        int    `json:"brightness"`
	OverlayBrightness int    `json:"overlayBrightness"`
	Enabled           bool   `json:"enabled"`
}

// EntryParams is the input of schedule.add and schedule.update. ID is
// ignored by schedule.add. Time is HH:MM or HH:MM:SS.
type EntryParams struct {
	ID                int    `json:"id,omitempty"`
	Time              string `json:"time"`
	Brightness        int    `json:"brightness"`
	OverlayBrightness int    `json:"overlayBrightness"`
}

// IDParams is the input of schedule.remove and schedule.toggle.
type IDParams struct {
	ID int `json:"id"`
}

// ScheduleListResult is the response for schedule.list.
type ScheduleListResult struct {
	Entries []ScheduleEntry `json:"entries"`
}

// HistoryParams is the input of history.list.
type HistoryParams struct {
	Limit int `json:"limit,omitempty"`
}

// HistoryEvent is one history row. Brightness and Overlay are -1 when the
// event did not change them.
type HistoryEvent struct {
	ID         int64     `json:"id"`
	At         time.Time `json:"at"`
	Source     string    `json:"source"`
	Brightness int       `json:"brightness"`
	Overlay    int       `json:"overlay"`
	OK         bool      `json:"ok"`
	Message    string    `json:"message,omitempty"`
}

// HistoryResult is the response for history.list.
type HistoryResult struct {
	Events []HistoryEvent `json:"events"`
}

// StepNotification is pushed as transition.step for every applied
// transition step.
type StepNotification struct {
	Channel string  `json:"channel"`
	Value   float64 `json:"value"`
	Step    int     `json:"step"`
	Steps   int     `json:"steps"`
}
