package migrate

import (
	"context"
	"time"

	"github.com/juju/errors"
	"github.com/sirupsen/logrus"

	"github.com/ll2l/esmigrate/dates"
	"github.com/ll2l/esmigrate/history"
)

// Workflow processes one unit and always leaves it with an outcome.
type Workflow interface {
	Process(ctx context.Context, u *Unit)
}

type AuditLog interface {
	Append(rec history.Record) error
}

// Observer is told about every finished unit together with the running
// tally.
type Observer interface {
	UnitDone(u Unit, t Tally)
}

// Runner drives a workflow over a date range, one unit at a time.
type Runner struct {
	Workflow  Workflow
	Config    Config
	Audit     AuditLog
	Log       logrus.FieldLogger
	Observers []Observer
}

// Run processes every date in order. A failed unit never stops the run;
// only ctx ending does, in which case the tally covers the units that
// finished.
func (r *Runner) Run(ctx context.Context, days []time.Time) (Tally, error) {
	var tally Tally
	log := r.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	clk := r.Config.clock()

	for i, d := range days {
		if err := ctx.Err(); err != nil {
			return tally, errors.Trace(err)
		}

		u := NewUnit(d, r.Config.Naming)
		started := clk.Now()
		log.WithField("date", dates.Format(d)).Debugf("unit %d/%d", i+1, len(days))
		r.Workflow.Process(ctx, &u)
		u.Took = clk.Now().Sub(started)
		if u.Outcome == "" {
			u.finish(OutcomeFailed, ReasonClusterError, errors.New("workflow left unit without outcome"))
		}

		if r.Audit != nil {
			if err := r.Audit.Append(u.Record()); err != nil {
				log.WithError(err).Error("cannot write audit record")
			}
		}
		tally.Add(u.Outcome)
		logUnit(log, u)
		for _, o := range r.Observers {
			o.UnitDone(u, tally)
		}

		if i < len(days)-1 {
			if err := sleep(ctx, clk, r.Config.Pause); err != nil {
				return tally, err
			}
		}
	}
	return tally, nil
}

func logUnit(log logrus.FieldLogger, u Unit) {
	entry := log.WithFields(logrus.Fields{
		"index":    u.Index,
		"snapshot": u.Snapshot,
		"outcome":  u.Outcome,
		"reason":   u.Reason,
		"took":     u.Took.Truncate(time.Millisecond),
	})
	if u.Err != nil {
		entry = entry.WithError(u.Err)
	}
	switch u.Outcome.Class() {
	case ClassFailed:
		entry.Error("unit failed")
	case ClassSkipped:
		entry.Info("unit skipped")
	default:
		if u.Outcome == OutcomeMismatch {
			entry.Warn("unit done with count mismatch")
			return
		}
		entry.Info("unit done")
	}
}
