package migrate

import (
	"context"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
)

// Config carries everything a workflow needs to know about the migration
// besides the clusters themselves.
type Config struct {
	Naming     Naming
	Repository string

	// OperationTimeout bounds a single blocking snapshot or restore call.
	// Zero disables the client-side limit.
	OperationTimeout time.Duration

	// ReadyTimeout bounds polling after deletes and restores.
	ReadyTimeout time.Duration
	PollInterval time.Duration

	// Pause is the gap between two units.
	Pause time.Duration

	Clock clock.Clock
}

func DefaultConfig() Config {
	return Config{
		Naming:           DefaultNaming,
		Repository:       "backup",
		OperationTimeout: 2 * time.Hour,
		ReadyTimeout:     2 * time.Minute,
		PollInterval:     2 * time.Second,
		Pause:            2 * time.Second,
		Clock:            clock.WallClock,
	}
}

func (c Config) Validate() error {
	if c.Repository == "" {
		return errors.NotValidf("empty snapshot repository")
	}
	if c.Naming.IndexPrefix == "" || c.Naming.SnapshotPrefix == "" {
		return errors.NotValidf("empty index or snapshot prefix")
	}
	if c.PollInterval <= 0 {
		return errors.NotValidf("poll interval %v", c.PollInterval)
	}
	if c.ReadyTimeout <= 0 {
		return errors.NotValidf("ready timeout %v", c.ReadyTimeout)
	}
	if c.OperationTimeout < 0 || c.Pause < 0 {
		return errors.NotValidf("negative timeout or pause")
	}
	return nil
}

func (c Config) clock() clock.Clock {
	if c.Clock == nil {
		return clock.WallClock
	}
	return c.Clock
}

// operationContext applies OperationTimeout to one blocking call.
func (c Config) operationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.OperationTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.OperationTimeout)
}
