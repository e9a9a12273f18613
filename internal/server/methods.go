package server

import (
	"context"
	"errors"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"

	"github.com/autobright/autobright/common"
	"github.com/autobright/autobright/internal/app"
	"github.com/autobright/autobright/internal/brightness"
	"github.com/autobright/autobright/internal/history"
	"github.com/autobright/autobright/internal/overlay"
	"github.com/autobright/autobright/internal/schedule"
)

func (s *Server) methodMap() handler.Map {
	return handler.Map{
		common.MethodVersion:        handler.New(s.systemGetVersion),
		common.MethodActivate:       handler.New(s.appActivate),
		common.MethodStatus:         handler.New(s.appStatus),
		common.MethodStop:           handler.New(s.appStop),
		common.MethodBrightnessGet:  handler.New(s.brightnessGet),
		common.MethodBrightnessSet:  handler.New(s.brightnessSet),
		common.MethodOverlaySet:     handler.New(s.overlaySet),
		common.MethodScheduleList:   handler.New(s.scheduleList),
		common.MethodScheduleAdd:    handler.New(s.scheduleAdd),
		common.MethodScheduleUpdate: handler.New(s.scheduleUpdate),
		common.MethodScheduleRemove: handler.New(s.scheduleRemove),
		common.MethodScheduleToggle: handler.New(s.scheduleToggle),
		common.MethodHistoryList:    handler.New(s.historyList),
	}
}

func invalidParams(msg string) error {
	return &jrpc2.Error{Code: common.CodeInvalidParams, Message: msg}
}

// scheduleError maps store errors onto JSON-RPC codes.
func scheduleError(err error) error {
	switch {
	case errors.Is(err, schedule.ErrNotFound):
		return &jrpc2.Error{Code: common.CodeNotFound, Message: err.Error()}
	case errors.Is(err, schedule.ErrDuplicateTime):
		return &jrpc2.Error{Code: common.CodeDuplicateTime, Message: err.Error()}
	case errors.Is(err, schedule.ErrOutOfRange), errors.Is(err, schedule.ErrInvalidTime):
		return invalidParams(err.Error())
	}
	return err
}

// levelParams validates percent and decodes the optional duration.
func levelParams(p *common.LevelParams) (time.Duration, error) {
	if p.Percent < 0 || p.Percent > 100 {
		return 0, invalidParams("percent must be between 0 and 100")
	}
	if p.Duration == "" {
		return app.DefaultDuration, nil
	}
	d, err := time.ParseDuration(p.Duration)
	if err != nil {
		return 0, invalidParams("invalid duration: " + err.Error())
	}
	if d < 0 {
		return 0, invalidParams("duration must not be negative")
	}
	return d, nil
}

func wireEntry(e schedule.Entry) common.ScheduleEntry {
	return common.ScheduleEntry{
		ID:                e.ID,
		Time:              e.Time.String(),
		Brightness:        e.Brightness,
		OverlayBrightness: e.OverlayBrightness,
		Enabled:           e.Enabled,
	}
}

func wireResult(r brightness.Result) common.BrightnessResult {
	return common.BrightnessResult{OK: r.OK, Value: r.Value, Message: r.Message}
}

func (s *Server) systemGetVersion(_ context.Context) (*common.VersionResult, error) {
	v := s.version
	return &v, nil
}

func (s *Server) appActivate(_ context.Context) (*common.EmptyResult, error) {
	if _, err := s.svc.Update(app.Activate{}); err != nil {
		return nil, err
	}
	return &common.EmptyResult{}, nil
}

func (s *Server) appStatus(_ context.Context) (*common.StatusResult, error) {
	st := s.svc.Status()
	res := &common.StatusResult{
		Running:        st.Running,
		Message:        st.Message,
		Brightness:     wireResult(st.Brightness),
		OverlayRunning: st.OverlayRunning,
		OverlayOpacity: st.OverlayOpacity,
		OverlayBackend: st.OverlayBackend,
		Monitor:        st.Monitor.String(),
		Entries:        st.Entries,
		Activations:    st.Activations,
	}
	for _, d := range st.Displays {
		res.Displays = append(res.Displays, common.Display{ID: d.ID, Width: d.Width, Height: d.Height, Primary: d.Primary})
	}
	if !st.LastTrigger.IsZero() {
		t := st.LastTrigger
		res.LastTrigger = &t
	}
	if st.NextEntry != nil {
		e := wireEntry(*st.NextEntry)
		t := st.NextRun
		res.NextEntry, res.NextRun = &e, &t
	}
	return res, nil
}

// appStop answers first and shuts the daemon down shortly after.
func (s *Server) appStop(_ context.Context) (*common.EmptyResult, error) {
	if s.onStop == nil {
		return nil, &jrpc2.Error{Code: jrpc2.MethodNotFound, Message: "stop is not supported by this daemon"}
	}
	s.log.Info("stop requested by client")
	time.AfterFunc(stopGrace, s.onStop)
	return &common.EmptyResult{}, nil
}

func (s *Server) brightnessGet(_ context.Context) (*common.BrightnessResult, error) {
	r := wireResult(s.svc.Brightness())
	return &r, nil
}

// brightnessSet applies a manual brightness. Immediate writes report the
// hardware outcome; ramps report the target and run in the background.
func (s *Server) brightnessSet(_ context.Context, p *common.LevelParams) (*common.BrightnessResult, error) {
	d, err := levelParams(p)
	if err != nil {
		return nil, err
	}
	if _, err := s.svc.Update(app.BrightnessChanged{Percent: p.Percent, Duration: d}); err != nil {
		return &common.BrightnessResult{OK: false, Value: p.Percent, Message: s.svc.StatusMessage()}, nil
	}
	return &common.BrightnessResult{OK: true, Value: p.Percent, Message: s.svc.StatusMessage()}, nil
}

// overlaySet enables, updates or disables the overlay. 100 disables it.
func (s *Server) overlaySet(_ context.Context, p *common.LevelParams) (*common.OverlayResult, error) {
	d, err := levelParams(p)
	if err != nil {
		return nil, err
	}
	if _, err := s.svc.Update(app.OverlayChanged{Percent: p.Percent, Duration: d}); err != nil {
		return &common.OverlayResult{Running: false, Message: s.svc.StatusMessage()}, nil
	}
	res := &common.OverlayResult{Message: s.svc.StatusMessage()}
	if p.Percent < 100 {
		res.Running = true
		res.Opacity = overlay.OpacityFor(p.Percent)
	}
	return res, nil
}

func (s *Server) scheduleList(_ context.Context) (*common.ScheduleListResult, error) {
	entries := s.svc.Schedule().List()
	res := &common.ScheduleListResult{Entries: make([]common.ScheduleEntry, 0, len(entries))}
	for _, e := range entries {
		res.Entries = append(res.Entries, wireEntry(e))
	}
	return res, nil
}

func (s *Server) scheduleAdd(_ context.Context, p *common.EntryParams) (*common.ScheduleEntry, error) {
	t, err := schedule.ParseTimeOfDay(p.Time)
	if err != nil {
		return nil, scheduleError(err)
	}
	e, err := s.svc.Schedule().Add(t, p.Brightness, p.OverlayBrightness)
	if err != nil {
		return nil, scheduleError(err)
	}
	s.log.Info("schedule added: %s", e)
	res := wireEntry(e)
	return &res, nil
}

func (s *Server) scheduleUpdate(_ context.Context, p *common.EntryParams) (*common.ScheduleEntry, error) {
	t, err := schedule.ParseTimeOfDay(p.Time)
	if err != nil {
		return nil, scheduleError(err)
	}
	e, err := s.svc.Schedule().Update(p.ID, t, p.Brightness, p.OverlayBrightness)
	if err != nil {
		return nil, scheduleError(err)
	}
	s.log.Info("schedule updated: %s", e)
	res := wireEntry(e)
	return &res, nil
}

func (s *Server) scheduleRemove(_ context.Context, p *common.IDParams) (*common.EmptyResult, error) {
	if err := s.svc.Schedule().Remove(p.ID); err != nil {
		return nil, scheduleError(err)
	}
	s.log.Info("schedule %d removed", p.ID)
	return &common.EmptyResult{}, nil
}

func (s *Server) scheduleToggle(_ context.Context, p *common.IDParams) (*common.ScheduleEntry, error) {
	e, err := s.svc.Schedule().Toggle(p.ID)
	if err != nil {
		return nil, scheduleError(err)
	}
	res := wireEntry(e)
	return &res, nil
}

func (s *Server) historyList(_ context.Context, p *common.HistoryParams) (*common.HistoryResult, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = history.DefaultLimit
	}
	events, err := s.svc.History().Recent(limit)
	if err != nil {
		return nil, err
	}
	res := &common.HistoryResult{Events: make([]common.HistoryEvent, 0, len(events))}
	for _, e := range events {
		res.Events = append(res.Events, common.HistoryEvent{
			ID:         e.ID,
			At:         e.At,
			Source:     e.Source,
			Brightness: e.Brightness,
			Overlay:    e.Overlay,
			OK:         e.OK,
			Message:    e.Message,
		})
	}
	return res, nil
}
