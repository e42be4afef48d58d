package migrate

import (
	"context"

	"github.com/dustin/go-humanize"
	"github.com/juju/errors"
	"github.com/sirupsen/logrus"
)

// Importer restores one snapshot per unit into the destination and checks
// the restored document count against the source.
type Importer struct {
	Source   Counter
	Dest     RestoreTarget
	Resolver ConflictResolver
	Config   Config
	Log      logrus.FieldLogger

	// autoSkip is set for the rest of the run once the resolver answers
	// DecisionSkipAll.
	autoSkip bool
}

func NewImporter(src Counter, dst RestoreTarget, resolver ConflictResolver, cfg Config, log logrus.FieldLogger) *Importer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if resolver == nil {
		resolver = Always(DecisionSkip)
	}
	return &Importer{Source: src, Dest: dst, Resolver: resolver, Config: cfg, Log: log}
}

// SetAutoSkip skips every later conflict without asking the resolver.
func (im *Importer) SetAutoSkip(v bool) {
	im.autoSkip = v
}

func (im *Importer) AutoSkip() bool {
	return im.autoSkip
}

// Process walks CHECK_EXISTS, RESOLVE, RESTORE, WAIT_READY, VERIFY_HEALTH
// and VERIFY_COUNT for u. It always leaves u with an outcome.
func (im *Importer) Process(ctx context.Context, u *Unit) {
	log := im.Log.WithFields(logrus.Fields{"index": u.Index, "snapshot": u.Snapshot})

	exists, err := im.Dest.IndexExists(ctx, u.Index)
	if err != nil {
		u.finish(OutcomeFailed, reasonFor(err, ReasonClusterError), err)
		return
	}
	if exists && !im.clearConflict(ctx, log, u) {
		return
	}

	opCtx, cancel := im.Config.operationContext(ctx)
	info, err := im.Dest.RestoreSnapshot(opCtx, im.Config.Repository, u.Snapshot, u.Index)
	cancel()
	if err != nil {
		u.finish(OutcomeFailed, reasonFor(err, ReasonRestoreFailed), err)
		return
	}
	if info.Shards.Failed > 0 {
		u.finish(OutcomeFailed, ReasonRestoreFailed,
			errors.Errorf("restore reported %d of %d shards failed", info.Shards.Failed, info.Shards.Total))
		return
	}
	log.Infof("restored %d shards", info.Shards.Successful)

	if err := im.waitReady(ctx, u); err != nil {
		if im.interrupted(ctx, u) {
			return
		}
		log.WithError(err).Warn("restored index not settled, verifying anyway")
	}
	im.checkHealth(ctx, log, u)
	im.verifyCount(ctx, log, u)
}

// interrupted fails u when ctx ended after the restore went through.
func (im *Importer) interrupted(ctx context.Context, u *Unit) bool {
	if ctx.Err() == nil {
		return false
	}
	u.finish(OutcomeFailed, ReasonInterrupted, errors.Annotate(ctx.Err(), "verification of restored index"))
	return true
}

// clearConflict reports whether the restore may go ahead.
func (im *Importer) clearConflict(ctx context.Context, log logrus.FieldLogger, u *Unit) bool {
	if im.autoSkip {
		log.Info("destination index exists, auto-skip")
		u.finish(OutcomeSkippedPolicy, ReasonDestExists, nil)
		return false
	}

	d, err := im.Resolver.Resolve(ctx, *u)
	if err != nil {
		u.finish(OutcomeFailed, ReasonResolveFailed, err)
		return false
	}
	log.Infof("destination index exists, decision: %s", d)

	switch d {
	case DecisionOverwrite:
	case DecisionSkipAll:
		im.autoSkip = true
		fallthrough
	default:
		u.finish(OutcomeSkippedPolicy, ReasonDestExists, nil)
		return false
	}

	if err := im.Dest.DeleteIndex(ctx, u.Index); err != nil {
		u.finish(OutcomeFailed, reasonFor(err, ReasonDeleteFailed), err)
		return false
	}
	err = poll(ctx, im.Config.clock(), im.Config.ReadyTimeout, im.Config.PollInterval, u.Index+" removal",
		func() (bool, error) {
			exists, err := im.Dest.IndexExists(ctx, u.Index)
			return !exists, err
		})
	if err != nil {
		if ctx.Err() != nil {
			u.finish(OutcomeFailed, ReasonDeleteFailed, err)
			return false
		}
		log.WithError(err).Warn("deleted index still visible, restoring anyway")
	}
	return true
}

// waitReady polls until the index is at least yellow and its document
// count reads the same twice in a row.
func (im *Importer) waitReady(ctx context.Context, u *Unit) error {
	last := int64(-1)
	return poll(ctx, im.Config.clock(), im.Config.ReadyTimeout, im.Config.PollInterval, u.Index+" readiness",
		func() (bool, error) {
			status, err := im.Dest.Health(ctx, u.Index)
			if err != nil {
				return false, err
			}
			u.Health = status
			if healthRank(status) < 1 {
				return false, nil
			}
			n, err := im.Dest.Count(ctx, u.Index)
			if err != nil {
				return false, err
			}
			stable := n == last
			last = n
			return stable, nil
		})
}

// checkHealth only logs: yellow is normal on single-node clusters.
func (im *Importer) checkHealth(ctx context.Context, log logrus.FieldLogger, u *Unit) {
	status, err := im.Dest.Health(ctx, u.Index)
	if err != nil {
		log.WithError(err).Warn("cannot read index health")
		return
	}
	u.Health = status
	switch status {
	case "green":
		log.Debug("index health green")
	case "yellow":
		log.Info("index health yellow (expected without replicas)")
	default:
		log.Warnf("index health %s", status)
	}
}

// verifyCount compares against the source count read now, not at snapshot
// time, so a live source may legitimately differ.
func (im *Importer) verifyCount(ctx context.Context, log logrus.FieldLogger, u *Unit) {
	actual, err := im.Dest.Count(ctx, u.Index)
	if err != nil {
		if im.interrupted(ctx, u) {
			return
		}
		log.WithError(err).Warn("cannot count restored documents")
		u.finish(OutcomeMismatch, ReasonDestCountMissing, nil)
		return
	}
	u.Actual = actual

	expected, err := im.Source.Count(ctx, u.Index)
	if err != nil {
		if im.interrupted(ctx, u) {
			return
		}
		log.WithError(err).Warn("cannot count source documents")
		u.finish(OutcomeMismatch, ReasonSourceCountMissing, nil)
		return
	}
	u.Expected = expected

	if actual != expected {
		log.Warnf("document count mismatch: source %s, destination %s",
			humanize.Comma(expected), humanize.Comma(actual))
		u.finish(OutcomeMismatch, ReasonCountMismatch, nil)
		return
	}
	log.Infof("document count verified: %s", humanize.Comma(actual))
	u.finish(OutcomeSuccess, ReasonRestored, nil)
}
