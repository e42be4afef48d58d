package migrate

import (
	"context"

	"github.com/dustin/go-humanize"
	"github.com/juju/errors"
	"github.com/sirupsen/logrus"
)

// Exporter snapshots one source index per unit.
type Exporter struct {
	Source SnapshotSource
	Config Config
	Log    logrus.FieldLogger
}

func NewExporter(src SnapshotSource, cfg Config, log logrus.FieldLogger) *Exporter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Exporter{Source: src, Config: cfg, Log: log}
}

// Process walks CHECK_EXISTS, CHECK_SNAPSHOT_EXISTS, SNAPSHOT and VERIFY for u.
// It always leaves u with an outcome.
func (e *Exporter) Process(ctx context.Context, u *Unit) {
	log := e.Log.WithFields(logrus.Fields{"index": u.Index, "snapshot": u.Snapshot})
	repo := e.Config.Repository

	exists, err := e.Source.IndexExists(ctx, u.Index)
	if err != nil {
		u.finish(OutcomeFailed, reasonFor(err, ReasonClusterError), err)
		return
	}
	if !exists {
		log.Info("source index not found, skipping")
		u.finish(OutcomeSkippedNotFound, ReasonIndexNotFound, nil)
		return
	}

	prev, err := e.Source.GetSnapshot(ctx, repo, u.Snapshot)
	if err != nil {
		u.finish(OutcomeFailed, reasonFor(err, ReasonClusterError), err)
		return
	}
	if prev != nil {
		if prev.Succeeded() {
			log.Info("snapshot already exists, skipping")
			u.finish(OutcomeSkippedExists, ReasonSnapshotExists, nil)
			return
		}
		u.finish(OutcomeFailed, ReasonSnapshotIncomplete,
			errors.Errorf("snapshot %s exists in state %s", u.Snapshot, prev.State))
		return
	}

	count, err := e.Source.Count(ctx, u.Index)
	if err != nil {
		log.WithError(err).Warn("cannot count source documents")
	} else {
		u.Expected = count
		log.Infof("creating snapshot of %s documents", humanize.Comma(count))
	}

	opCtx, cancel := e.Config.operationContext(ctx)
	info, err := e.Source.CreateSnapshot(opCtx, repo, u.Snapshot, u.Index)
	cancel()
	if err != nil {
		u.finish(OutcomeFailed, reasonFor(err, ReasonSnapshotFailed), err)
		return
	}
	if !info.Succeeded() {
		for _, f := range info.Failures {
			log.Warnf("shard %d of %s: %s", f.ShardID, f.Index, f.Reason)
		}
		u.finish(OutcomeFailed, ReasonSnapshotFailed,
			errors.Errorf("snapshot state %s with %d of %d shards failed", info.State, info.Shards.Failed, info.Shards.Total))
		return
	}

	// The snapshot stays in the repository even if this check fails.
	check, err := e.Source.GetSnapshot(ctx, repo, u.Snapshot)
	if err != nil || !check.Succeeded() {
		if err == nil {
			err = errors.Errorf("snapshot %s not reported successful on re-check", u.Snapshot)
		}
		u.finish(OutcomeFailed, ReasonVerifyFailed, err)
		return
	}

	u.finish(OutcomeSuccess, ReasonSnapshotCreated, nil)
}

func reasonFor(err error, fallback string) string {
	if errors.Is(err, errors.Timeout) {
		return ReasonTimeout
	}
	return fallback
}
