package migrate

import (
	"strings"
	"time"

	"github.com/ll2l/esmigrate/dates"
	"github.com/ll2l/esmigrate/history"
)

// Outcome is the terminal state of one migration unit.
type Outcome string

const (
	OutcomeSuccess         Outcome = "success"
	OutcomeMismatch        Outcome = "success-with-mismatch"
	OutcomeSkippedExists   Outcome = "skipped-already-exists"
	OutcomeSkippedNotFound Outcome = "skipped-not-found"
	OutcomeSkippedPolicy   Outcome = "skipped-by-policy"
	OutcomeFailed          Outcome = "failed"
)

var outcomeTokens = map[Outcome]string{
	OutcomeSuccess:         "SUCCESS",
	OutcomeMismatch:        "SUCCESS_MISMATCH",
	OutcomeSkippedExists:   "SKIPPED_EXISTS",
	OutcomeSkippedNotFound: "SKIPPED_NOT_FOUND",
	OutcomeSkippedPolicy:   "SKIPPED_POLICY",
	OutcomeFailed:          "FAILED",
}

// Token is the outcome as written to the history log.
func (o Outcome) Token() string {
	if t, ok := outcomeTokens[o]; ok {
		return t
	}
	return strings.ToUpper(string(o))
}

// Class groups outcomes for the run tally.
type Class int

const (
	ClassFailed Class = iota
	ClassSucceeded
	ClassSkipped
)

func (o Outcome) Class() Class {
	switch o {
	case OutcomeSuccess, OutcomeMismatch:
		return ClassSucceeded
	case OutcomeSkippedExists, OutcomeSkippedNotFound, OutcomeSkippedPolicy:
		return ClassSkipped
	}
	return ClassFailed
}

// Reason codes recorded next to each outcome.
const (
	ReasonSnapshotCreated    = "snapshot_created"
	ReasonIndexNotFound      = "index_not_found"
	ReasonSnapshotExists     = "snapshot_exists"
	ReasonSnapshotIncomplete = "snapshot_incomplete"
	ReasonSnapshotFailed     = "snapshot_failed"
	ReasonVerifyFailed       = "verify_failed"
	ReasonRestored           = "restored"
	ReasonCountMismatch      = "count_mismatch"
	ReasonSourceCountMissing = "source_count_unavailable"
	ReasonDestCountMissing   = "dest_count_unavailable"
	ReasonDestExists         = "dest_exists"
	ReasonDeleteFailed       = "delete_failed"
	ReasonRestoreFailed      = "restore_failed"
	ReasonResolveFailed      = "resolve_failed"
	ReasonTimeout            = "timeout"
	ReasonClusterError       = "cluster_error"
	ReasonInterrupted        = "interrupted"
)

// Naming derives index and snapshot names from a date. Exporter and
// importer must share the same prefixes.
type Naming struct {
	IndexPrefix    string
	SnapshotPrefix string
}

var DefaultNaming = Naming{
	IndexPrefix:    "logs-",
	SnapshotPrefix: "snapshot_",
}

// Index returns prefix + YYYY-MM-DD.
func (n Naming) Index(d time.Time) string {
	return n.IndexPrefix + dates.Format(d)
}

// Snapshot returns prefix + YYYY_MM_DD.
func (n Naming) Snapshot(d time.Time) string {
	return n.SnapshotPrefix + strings.Replace(dates.Format(d), "-", "_", -1)
}

// Unit is one date's worth of work.
type Unit struct {
	Date     time.Time
	Index    string
	Snapshot string
	Expected int64
	Actual   int64
	Health   string
	Outcome  Outcome
	Reason   string
	Err      error
	Took     time.Duration
}

func NewUnit(d time.Time, n Naming) Unit {
	return Unit{
		Date:     d,
		Index:    n.Index(d),
		Snapshot: n.Snapshot(d),
	}
}

func (u *Unit) finish(o Outcome, reason string, err error) {
	u.Outcome = o
	u.Reason = reason
	u.Err = err
}

// Count is the document count worth recording for this unit.
func (u Unit) Count() int64 {
	if u.Actual > 0 {
		return u.Actual
	}
	return u.Expected
}

// Record renders the unit as its audit line.
func (u Unit) Record() history.Record {
	return history.Record{
		Outcome:  u.Outcome.Token(),
		Unit:     u.Index,
		Snapshot: u.Snapshot,
		Count:    u.Count(),
		Reason:   u.Reason,
	}
}

// Tally counts unit outcomes by class.
type Tally struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Mismatch  int `json:"mismatch"`
}

func (t *Tally) Add(o Outcome) {
	switch o.Class() {
	case ClassSucceeded:
		t.Succeeded++
		if o == OutcomeMismatch {
			t.Mismatch++
		}
	case ClassSkipped:
		t.Skipped++
	default:
		t.Failed++
	}
}

func (t Tally) Total() int {
	return t.Succeeded + t.Failed + t.Skipped
}
