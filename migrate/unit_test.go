package migrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNamingIsBitExact(t *testing.T) {
	d := day("2025-03-07")
	n := DefaultNaming

	assert.Equal(t, "logs-2025-03-07", n.Index(d))
	assert.Equal(t, "snapshot_2025_03_07", n.Snapshot(d))

	custom := Naming{IndexPrefix: "app-log-", SnapshotPrefix: "snap-"}
	assert.Equal(t, "app-log-2025-03-07", custom.Index(d))
	assert.Equal(t, "snap-2025_03_07", custom.Snapshot(d))
}

func TestNamingReproducibleAcrossUnits(t *testing.T) {
	a := NewUnit(day("2024-02-29"), DefaultNaming)
	b := NewUnit(day("2024-02-29"), DefaultNaming)
	assert.Equal(t, a.Index, b.Index)
	assert.Equal(t, a.Snapshot, b.Snapshot)
}

func TestOutcomeClassAndToken(t *testing.T) {
	cases := []struct {
		o     Outcome
		class Class
		token string
	}{
		{OutcomeSuccess, ClassSucceeded, "SUCCESS"},
		{OutcomeMismatch, ClassSucceeded, "SUCCESS_MISMATCH"},
		{OutcomeSkippedExists, ClassSkipped, "SKIPPED_EXISTS"},
		{OutcomeSkippedNotFound, ClassSkipped, "SKIPPED_NOT_FOUND"},
		{OutcomeSkippedPolicy, ClassSkipped, "SKIPPED_POLICY"},
		{OutcomeFailed, ClassFailed, "FAILED"},
	}
	for _, c := range cases {
		assert.Equal(t, c.class, c.o.Class(), c.o)
		assert.Equal(t, c.token, c.o.Token(), c.o)
	}
}

func TestUnitRecord(t *testing.T) {
	u := NewUnit(day("2025-01-01"), DefaultNaming)
	u.Expected = 720660
	u.Actual = 72012
	u.finish(OutcomeMismatch, ReasonCountMismatch, nil)

	assert.Equal(t, "SUCCESS_MISMATCH|logs-2025-01-01|snapshot_2025_01_01|72012|count_mismatch", u.Record().String())
}

func TestTallyCountsMismatchAsSuccess(t *testing.T) {
	var tally Tally
	for _, o := range []Outcome{OutcomeSuccess, OutcomeMismatch, OutcomeFailed, OutcomeSkippedPolicy, OutcomeSkippedNotFound} {
		tally.Add(o)
	}
	assert.Equal(t, Tally{Succeeded: 2, Failed: 1, Skipped: 2, Mismatch: 1}, tally)
	assert.Equal(t, 5, tally.Total())
}
