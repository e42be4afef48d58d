package migrate

import (
	"context"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/retry"
)

const errNotReady = errors.ConstError("not ready")

// poll calls cond every interval until it reports true, timeout passes or
// ctx ends. Errors from cond are retried like a false result.
func poll(ctx context.Context, clk clock.Clock, timeout, interval time.Duration, what string, cond func() (bool, error)) error {
	err := retry.Call(retry.CallArgs{
		Func: func() error {
			ok, err := cond()
			if err != nil {
				return err
			}
			if !ok {
				return errNotReady
			}
			return nil
		},
		Attempts:    -1,
		Delay:       interval,
		MaxDuration: timeout,
		Clock:       clk,
		Stop:        ctx.Done(),
	})
	switch {
	case err == nil:
		return nil
	case retry.IsRetryStopped(err):
		return errors.Trace(ctx.Err())
	case retry.IsDurationExceeded(err):
		last := retry.LastError(err)
		if errors.Is(last, errNotReady) {
			return errors.Timeoutf("waiting for %s after %v", what, timeout)
		}
		return errors.Timeoutf("waiting for %s after %v (last error: %v)", what, timeout, last)
	}
	return errors.Trace(err)
}

// sleep waits d on clk unless ctx ends first.
func sleep(ctx context.Context, clk clock.Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-clk.After(d):
		return nil
	case <-ctx.Done():
		return errors.Trace(ctx.Err())
	}
}

// healthRank orders index health so "at least yellow" is a comparison.
func healthRank(status string) int {
	switch status {
	case "green":
		return 2
	case "yellow":
		return 1
	}
	return 0
}
