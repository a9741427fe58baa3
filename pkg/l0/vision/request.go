package vision

import (
	"context"
	"time"
)

// Request sends command and polls c until the session ends, timeout
// elapses or ctx is done. The timeout is counted from this call and is
// independent from Config.Timeout; zero means only ctx bounds the wait.
//
// On success the decoded values are returned and c is reset. Every
// failure returns nil values: the session cause on Error (c is reset),
// or ctx.Err() when the wait ends first (c is left as is and may still
// reach a terminal state, so callers should Reset it).
func Request(ctx context.Context, c *Client, command string, timeout time.Duration) ([]int, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := c.SendRequest(command); err != nil {
		if c.Status() == StatusError {
			c.Reset()
		}
		return nil, err
	}

	ticker := time.NewTicker(c.conf.PollInterval)
	defer ticker.Stop()
	for c.Update(); !c.Available(); c.Update() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	defer c.Reset()
	if c.Status() == StatusDone {
		return c.values.Copy(), nil
	}
	return nil, c.Err()
}
