// Package client talks to a running autobright daemon over JSON-RPC.
package client

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"

	"github.com/autobright/autobright/common"
)

// Client is a connection to the daemon. It is safe for concurrent use.
type Client struct {
	rpc *jrpc2.Client

	mu     sync.RWMutex
	onStep func(common.StepNotification)
}

// Dial connects to the daemon's socket or pipe.
func Dial(ctx context.Context) (*Client, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, common.DefaultDialTimeout)
		defer cancel()
	}
	conn, err := dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("error connecting to daemon: %w", err)
	}
	return New(conn), nil
}

// New wraps an established connection.
func New(conn net.Conn) *Client {
	c := &Client{}
	c.rpc = jrpc2.NewClient(channel.Line(conn, conn), &jrpc2.ClientOptions{
		OnNotify: c.notify,
	})
	return c
}

func (c *Client) notify(req *jrpc2.Request) {
	if req.Method() != common.NotifyTransitionStep {
		return
	}
	c.mu.RLock()
	fn := c.onStep
	c.mu.RUnlock()
	if fn == nil {
		return
	}
	var n common.StepNotification
	if err := req.UnmarshalParams(&n); err != nil {
		return
	}
	fn(n)
}

// OnStep registers fn for transition.step notifications. fn runs on the
// client's read goroutine and must not call back into the Client.
func (c *Client) OnStep(fn func(common.StepNotification)) {
	c.mu.Lock()
	c.onStep = fn
	c.mu.Unlock()
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.rpc.Close()
}

func invoke[T any](ctx context.Context, c *Client, method string, params any) (*T, error) {
	var out T
	if err := c.rpc.CallResult(ctx, method, params, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return &out, nil
}

func durationParam(d time.Duration) string {
	if d < 0 {
		return ""
	}
	return d.String()
}

func (c *Client) Version(ctx context.Context) (*common.VersionResult, error) {
	return invoke[common.VersionResult](ctx, c, common.MethodVersion, nil)
}

// Activate asks the daemon to bring its window to the front.
func (c *Client) Activate(ctx context.Context) error {
	_, err := invoke[common.EmptyResult](ctx, c, common.MethodActivate, nil)
	return err
}

func (c *Client) Status(ctx context.Context) (*common.StatusResult, error) {
	return invoke[common.StatusResult](ctx, c, common.MethodStatus, nil)
}

// Stop asks the daemon to shut down.
func (c *Client) Stop(ctx context.Context) error {
	_, err := invoke[common.EmptyResult](ctx, c, common.MethodStop, nil)
	return err
}

func (c *Client) Brightness(ctx context.Context) (*common.BrightnessResult, error) {
	return invoke[common.BrightnessResult](ctx, c, common.MethodBrightnessGet, nil)
}

// SetBrightness changes the hardware brightness. A negative d selects the
// daemon's configured manual transition.
func (c *Client) SetBrightness(ctx context.Context, percent int, d time.Duration) (*common.BrightnessResult, error) {
	return invoke[common.BrightnessResult](ctx, c, common.MethodBrightnessSet, &common.LevelParams{
		Percent:  percent,
		Duration: durationParam(d),
	})
}

// SetOverlay changes the overlay level; 100 turns it off. A negative d
// selects the daemon's configured manual transition.
func (c *Client) SetOverlay(ctx context.Context, percent int, d time.Duration) (*common.OverlayResult, error) {
	return invoke[common.OverlayResult](ctx, c, common.MethodOverlaySet, &common.LevelParams{
		Percent:  percent,
		Duration: durationParam(d),
	})
}

func (c *Client) ListSchedule(ctx context.Context) ([]common.ScheduleEntry, error) {
	res, err := invoke[common.ScheduleListResult](ctx, c, common.MethodScheduleList, nil)
	if err != nil {
		return nil, err
	}
	return res.Entries, nil
}

func (c *Client) AddSchedule(ctx context.Context, at string, brightness, overlay int) (*common.ScheduleEntry, error) {
	return invoke[common.ScheduleEntry](ctx, c, common.MethodScheduleAdd, &common.EntryParams{
		Time:              at,
		Brightness:        brightness,
		OverlayBrightness: overlay,
	})
}

func (c *Client) UpdateSchedule(ctx context.Context, id int, at string, brightness, overlay int) (*common.ScheduleEntry, error) {
	return invoke[common.ScheduleEntry](ctx, c, common.MethodScheduleUpdate, &common.EntryParams{
		ID:                id,
		Time:              at,
		Brightness:        brightness,
		OverlayBrightness: overlay,
	})
}

func (c *Client) RemoveSchedule(ctx context.Context, id int) error {
	_, err := invoke[common.EmptyResult](ctx, c, common.MethodScheduleRemove, &common.IDParams{ID: id})
	return err
}

func (c *Client) ToggleSchedule(ctx context.Context, id int) (*common.ScheduleEntry, error) {
	return invoke[common.ScheduleEntry](ctx, c, common.MethodScheduleToggle, &common.IDParams{ID: id})
}

func (c *Client) History(ctx context.Context, limit int) ([]common.HistoryEvent, error) {
	res, err := invoke[common.HistoryResult](ctx, c, common.MethodHistoryList, &common.HistoryParams{Limit: limit})
	if err != nil {
		return nil, err
	}
	return res.Events, nil
}
