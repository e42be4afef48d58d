package api

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ll2l/esmigrate/dates"
	"github.com/ll2l/esmigrate/history"
	"github.com/ll2l/esmigrate/migrate"
)

type status string

const (
	statusRunning  status = "running"
	statusFinished status = "finished"
	statusError    status = "error"
)

// UnitView is a finished unit as reported by the API.
type UnitView struct {
	Date     string `json:"date"`
	Index    string `json:"index"`
	Snapshot string `json:"snapshot"`
	Outcome  string `json:"outcome"`
	Reason   string `json:"reason"`
	Expected int64  `json:"expected_count"`
	Actual   int64  `json:"actual_count"`
	Health   string `json:"health,omitempty"`
	Error    string `json:"error,omitempty"`
	Took     string `json:"took"`
}

// Tracker follows a run and serves its progress. It is a migrate.Observer.
type Tracker struct {
	mu       sync.RWMutex
	mode     string
	total    int
	started  time.Time
	finished time.Time
	status   status
	err      string
	tally    migrate.Tally
	units    []UnitView
	history  *history.Log
}

func NewTracker(mode string, total int, h *history.Log) *Tracker {
	return &Tracker{
		mode:    mode,
		total:   total,
		started: time.Now(),
		status:  statusRunning,
		history: h,
	}
}

func (t *Tracker) UnitDone(u migrate.Unit, tally migrate.Tally) {
	v := UnitView{
		Date:     dates.Format(u.Date),
		Index:    u.Index,
		Snapshot: u.Snapshot,
		Outcome:  string(u.Outcome),
		Reason:   u.Reason,
		Expected: u.Expected,
		Actual:   u.Actual,
		Health:   u.Health,
		Took:     u.Took.Truncate(time.Millisecond).String(),
	}
	if u.Err != nil {
		v.Error = u.Err.Error()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.units = append(t.units, v)
	t.tally = tally
}

// Finish marks the run as over, with err when it was aborted.
func (t *Tracker) Finish(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.finished = time.Now()
	t.status = statusFinished
	if err != nil {
		t.status = statusError
		t.err = err.Error()
	}
}

func respondSuccess(c *gin.Context, data interface{}) {
	c.JSON(200, data)
}

func (t *Tracker) GetStatus(c *gin.Context) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	resp := gin.H{
		"mode":      t.mode,
		"status":    t.status,
		"total":     t.total,
		"processed": t.tally.Total(),
		"tally":     t.tally,
		"started":   t.started,
	}
	if !t.finished.IsZero() {
		resp["finished"] = t.finished
	}
	if t.err != "" {
		resp["error"] = t.err
	}
	respondSuccess(c, resp)
}

func (t *Tracker) GetUnits(c *gin.Context) {
	t.mu.RLock()
	units := make([]UnitView, len(t.units))
	copy(units, t.units)
	t.mu.RUnlock()

	if outcome := c.Query("outcome"); outcome != "" {
		filtered := units[:0]
		for _, u := range units {
			if u.Outcome == outcome {
				filtered = append(filtered, u)
			}
		}
		units = filtered
	}
	respondSuccess(c, units)
}

func (t *Tracker) GetHistory(c *gin.Context) {
	if t.history == nil {
		respondSuccess(c, []history.Record{})
		return
	}
	respondSuccess(c, t.history.Records())
}
