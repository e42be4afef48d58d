// Package history keeps the per-run audit log: one pipe-delimited line per
// migration unit outcome, OUTCOME|unit_id|snapshot_id|count|reason_code.
package history

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/juju/errors"
)

const separator = "|"

// Record is one immutable audit line.
type Record struct {
	Outcome  string    `json:"outcome"`
	Unit     string    `json:"unit"`
	Snapshot string    `json:"snapshot"`
	Count    int64     `json:"count"`
	Reason   string    `json:"reason"`
	Time     time.Time `json:"time"`
}

func (r Record) String() string {
	return strings.Join([]string{
		r.Outcome,
		r.Unit,
		r.Snapshot,
		strconv.FormatInt(r.Count, 10),
		r.Reason,
	}, separator)
}

// Parse reads a line written by Log.
func Parse(line string) (Record, error) {
	f := strings.Split(strings.TrimSpace(line), separator)
	if len(f) != 5 {
		return Record{}, errors.NotValidf("history line %q", line)
	}
	n, err := strconv.ParseInt(f[3], 10, 64)
	if err != nil {
		return Record{}, errors.NotValidf("count in history line %q", line)
	}
	return Record{Outcome: f[0], Unit: f[1], Snapshot: f[2], Count: n, Reason: f[4]}, nil
}

// ReadAll parses every line of r.
func ReadAll(r io.Reader) ([]Record, error) {
	var out []Record
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) == "" {
			continue
		}
		rec, err := Parse(sc.Text())
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, errors.Trace(sc.Err())
}

// Log appends records to a writer and remembers them for the status API.
type Log struct {
	mu      sync.Mutex
	w       io.Writer
	closer  io.Closer
	records []Record
	now     func() time.Time
}

// Create truncates path and returns a log writing to it.
func Create(path string) (*Log, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.Annotatef(err, "cannot open history log")
	}
	l := New(f)
	l.closer = f
	return l, nil
}

func New(w io.Writer) *Log {
	return &Log{w: w, now: time.Now}
}

// Append writes rec as a single line.
func (l *Log) Append(rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if rec.Time.IsZero() {
		rec.Time = l.now()
	}
	if _, err := io.WriteString(l.w, rec.String()+"\n"); err != nil {
		return errors.Annotate(err, "cannot write history record")
	}
	l.records = append(l.records, rec)
	if s, ok := l.w.(interface{ Sync() error }); ok {
		if err := s.Sync(); err != nil {
			return errors.Annotate(err, "cannot sync history log")
		}
	}
	return nil
}

// Records returns a copy of everything appended so far.
func (l *Log) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

func (l *Log) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
