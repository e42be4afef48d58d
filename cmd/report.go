package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/juju/ansiterm"

	"github.com/ll2l/esmigrate/client"
	"github.com/ll2l/esmigrate/dates"
	"github.com/ll2l/esmigrate/migrate"
)

var outcomeColor = map[migrate.Outcome]*ansiterm.Context{
	migrate.OutcomeSuccess:         ansiterm.Foreground(ansiterm.Green),
	migrate.OutcomeMismatch:        ansiterm.Foreground(ansiterm.Yellow),
	migrate.OutcomeSkippedExists:   ansiterm.Foreground(ansiterm.BrightBlue),
	migrate.OutcomeSkippedNotFound: ansiterm.Foreground(ansiterm.BrightBlue),
	migrate.OutcomeSkippedPolicy:   ansiterm.Foreground(ansiterm.BrightBlue),
	migrate.OutcomeFailed:          ansiterm.Foreground(ansiterm.BrightRed),
}

// reporter prints one console line per finished unit.
type reporter struct {
	w     *ansiterm.Writer
	total int
	done  int
}

func newReporter(out io.Writer, total int) *reporter {
	return &reporter{w: ansiterm.NewWriter(out), total: total}
}

func (r *reporter) UnitDone(u migrate.Unit, _ migrate.Tally) {
	r.done++
	fmt.Fprintf(r.w, "[%d/%d] %s ", r.done, r.total, u.Index)
	outcomeColor[u.Outcome].Fprintf(r.w, "%s", u.Outcome.Token())

	switch {
	case u.Outcome == migrate.OutcomeMismatch && u.Reason == migrate.ReasonCountMismatch:
		fmt.Fprintf(r.w, " source %s, restored %s", humanize.Comma(u.Expected), humanize.Comma(u.Actual))
	case u.Count() > 0:
		fmt.Fprintf(r.w, " %s docs", humanize.Comma(u.Count()))
	}
	fmt.Fprintf(r.w, " (%s, %s)", u.Reason, u.Took.Round(time.Millisecond))
	if u.Err != nil {
		fmt.Fprintf(r.w, ": %v", u.Err)
	}
	fmt.Fprintln(r.w)
}

func printPlan(out io.Writer, action string, days []time.Time, n migrate.Naming, repo string) {
	w := ansiterm.NewTabWriter(out, 0, 1, 2, ' ', 0)
	fmt.Fprintf(w, "%s %d units from %s to %s, repository %q\n",
		action, len(days), dates.Format(days[0]), dates.Format(days[len(days)-1]), repo)
	fmt.Fprintln(w, "DATE\tINDEX\tSNAPSHOT")
	for _, d := range days {
		fmt.Fprintf(w, "%s\t%s\t%s\n", dates.Format(d), n.Index(d), n.Snapshot(d))
	}
	w.Flush()
}

func printTally(out io.Writer, t migrate.Tally, took time.Duration) {
	w := ansiterm.NewWriter(out)
	fmt.Fprintf(w, "\n%s units in %s: ", humanize.Comma(int64(t.Total())), took.Round(time.Second))
	outcomeColor[migrate.OutcomeSuccess].Fprintf(w, "%d succeeded", t.Succeeded)
	if t.Mismatch > 0 {
		fmt.Fprint(w, " (")
		outcomeColor[migrate.OutcomeMismatch].Fprintf(w, "%d with count mismatch", t.Mismatch)
		fmt.Fprint(w, ")")
	}
	fmt.Fprint(w, ", ")
	outcomeColor[migrate.OutcomeFailed].Fprintf(w, "%d failed", t.Failed)
	fmt.Fprint(w, ", ")
	outcomeColor[migrate.OutcomeSkippedPolicy].Fprintf(w, "%d skipped", t.Skipped)
	fmt.Fprintln(w)
}

func printIndices(out io.Writer, rows []client.IndexRow) {
	w := ansiterm.NewTabWriter(out, 0, 1, 2, ' ', 0)
	fmt.Fprintln(w, "HEALTH\tSTATUS\tINDEX\tDOCS\tSIZE")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.Health, r.Status, r.Index, r.DocsCount, r.StoreSize)
	}
	w.Flush()
}
