package daemon

import (
	"context"

	"github.com/autobright/autobright/pkg/client"
)

// ActivateExisting asks an already running daemon to show itself. It
// reports false when no daemon answered.
func ActivateExisting(ctx context.Context) (bool, error) {
	c, err := client.Dial(ctx)
	if err != nil {
		return false, nil
	}
	defer c.Close()
	if err := c.Activate(ctx); err != nil {
		return true, err
	}
	return true, nil
}
