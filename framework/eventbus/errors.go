package eventbus

import (
	"context"
	"errors"

	"eventcore/framework/core"
)

// wrapShutdownErr turns a plain context-deadline error from a worker pool
// shutdown into a core.FrameworkError carrying the bus's standard
// shutdown-timeout code, while passing through any other error (or nil)
// unchanged.
func wrapShutdownErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return core.Wrap(err, core.ErrShutdownTimeout, "eventbus: worker pool did not drain before shutdown deadline")
	}
	return err
}
