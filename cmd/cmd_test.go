package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ll2l/esmigrate/history"
)

// fakeES answers the handful of endpoints the migration touches.
type fakeES struct {
	mu           sync.Mutex
	indices      map[string]int64
	snapshots    map[string]string
	snapshotDocs map[string]int64
}

func newFakeES() *fakeES {
	return &fakeES{
		indices:      map[string]int64{},
		snapshots:    map[string]string{},
		snapshotDocs: map[string]int64{},
	}
}

func notFound(w http.ResponseWriter, typ string) {
	w.WriteHeader(http.StatusNotFound)
	fmt.Fprintf(w, `{"error":{"root_cause":[{"type":%q,"reason":"not found"}],"type":%q,"reason":"not found"},"status":404}`, typ, typ)
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case r.URL.Path == "/":
		io.WriteString(w, `{"cluster_name":"fake","version":{"number":"6.8.5"}}`)

	case parts[0] == "_snapshot" && len(parts) == 2:
		if parts[1] != "backup" {
			notFound(w, "repository_missing_exception")
			return
		}
		io.WriteString(w, `{"backup":{"type":"fs","settings":{"location":"/mnt/es_snapshots"}}}`)

	case parts[0] == "_snapshot" && len(parts) == 3 && r.Method == http.MethodGet:
		state, ok := f.snapshots[parts[2]]
		if !ok {
			io.WriteString(w, `{"snapshots":[]}`)
			return
		}
		fmt.Fprintf(w, `{"snapshots":[{"snapshot":%q,"state":%q,"shards":{"total":1,"failed":0,"successful":1}}]}`, parts[2], state)

	case parts[0] == "_snapshot" && len(parts) == 3 && r.Method == http.MethodPut:
		var body struct {
			Indices string `json:"indices"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		f.snapshots[parts[2]] = "SUCCESS"
		f.snapshotDocs[parts[2]] = f.indices[body.Indices]
		fmt.Fprintf(w, `{"snapshot":{"snapshot":%q,"indices":[%q],"state":"SUCCESS","shards":{"total":1,"failed":0,"successful":1}}}`, parts[2], body.Indices)

	case parts[0] == "_snapshot" && len(parts) == 4 && parts[3] == "_restore":
		docs, ok := f.snapshotDocs[parts[2]]
		if !ok {
			notFound(w, "snapshot_restore_exception")
			return
		}
		var body struct {
			Indices string `json:"indices"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		f.indices[body.Indices] = docs
		fmt.Fprintf(w, `{"snapshot":{"snapshot":%q,"indices":[%q],"shards":{"total":1,"failed":0,"successful":1}}}`, parts[2], body.Indices)

	case parts[0] == "_cluster" && parts[1] == "health":
		io.WriteString(w, `{"cluster_name":"fake","status":"yellow"}`)

	case parts[0] == "_cat":
		var rows []map[string]string
		for name, n := range f.indices {
			rows = append(rows, map[string]string{"health": "yellow", "status": "open", "index": name, "docs.count": fmt.Sprint(n)})
		}
		json.NewEncoder(w).Encode(rows)

	case len(parts) == 2 && parts[1] == "_count":
		n, ok := f.indices[parts[0]]
		if !ok {
			notFound(w, "index_not_found_exception")
			return
		}
		fmt.Fprintf(w, `{"count":%d}`, n)

	case len(parts) == 1 && r.Method == http.MethodHead:
		if _, ok := f.indices[parts[0]]; ok {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)

	case len(parts) == 1 && r.Method == http.MethodDelete:
		delete(f.indices, parts[0])
		io.WriteString(w, `{"acknowledged":true}`)

	default:
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, `{"error":{"type":"unexpected","reason":"%s %s"},"status":400}`, r.Method, r.URL.Path)
	}
}

func baseArgs(dir string) []string {
	return []string{
		"--config-dir", dir,
		"--log-file", filepath.Join(dir, "run.log"),
		"--history-file", filepath.Join(dir, "history.log"),
		"--pause", "1ms",
		"--poll-interval", "1ms",
		"--ready-timeout", "1s",
	}
}

func readHistory(t *testing.T, dir string) []history.Record {
	f, err := os.Open(filepath.Join(dir, "history.log"))
	require.NoError(t, err)
	defer f.Close()
	recs, err := history.ReadAll(f)
	require.NoError(t, err)
	return recs
}

func TestExportThenImport(t *testing.T) {
	srcES := newFakeES()
	srcES.indices["logs-2025-01-01"] = 720660
	srcES.indices["logs-2025-01-03"] = 12
	src := httptest.NewServer(srcES)
	defer src.Close()

	dir := t.TempDir()
	var out, errOut bytes.Buffer
	args := append([]string{"export", "--source-address", src.URL, "--start", "2025-01-01", "--end", "2025-01-03", "--yes"}, baseArgs(dir)...)
	code := Main(args, strings.NewReader(""), &out, &errOut)
	require.Equal(t, exitOK, code, errOut.String())

	recs := readHistory(t, dir)
	require.Len(t, recs, 3)
	assert.Equal(t, "SUCCESS|logs-2025-01-01|snapshot_2025_01_01|720660|snapshot_created", recs[0].String())
	assert.Equal(t, "SKIPPED_NOT_FOUND", recs[1].Outcome)
	assert.Equal(t, "SUCCESS", recs[2].Outcome)
	assert.Contains(t, out.String(), "2 succeeded")

	// Second export is a no-op.
	out.Reset()
	code = Main(args, strings.NewReader(""), &out, &errOut)
	require.Equal(t, exitOK, code, errOut.String())
	recs = readHistory(t, dir)
	assert.Equal(t, "SKIPPED_EXISTS", recs[0].Outcome)

	// The destination repository sees the same snapshot files.
	dstES := newFakeES()
	for k, v := range srcES.snapshotDocs {
		dstES.snapshotDocs[k] = v
	}
	dstES.indices["logs-2025-01-03"] = 1
	dst := httptest.NewServer(dstES)
	defer dst.Close()

	out.Reset()
	args = append([]string{"import", "--source-address", src.URL, "--dest-address", dst.URL,
		"--start", "2025-01-01", "--end", "2025-01-03", "--yes", "--no-replicate", "--on-conflict", "skip"}, baseArgs(dir)...)
	code = Main(args, strings.NewReader(""), &out, &errOut)
	assert.Equal(t, exitUnitsFailed, code, errOut.String())

	recs = readHistory(t, dir)
	require.Len(t, recs, 3)
	assert.Equal(t, "SUCCESS|logs-2025-01-01|snapshot_2025_01_01|720660|restored", recs[0].String())
	assert.Equal(t, "FAILED", recs[1].Outcome)
	assert.Equal(t, "restore_failed", recs[1].Reason)
	assert.Equal(t, "SKIPPED_POLICY", recs[2].Outcome)
	assert.EqualValues(t, 1, dstES.indices["logs-2025-01-03"])
	assert.Contains(t, out.String(), "HEALTH")
}

func TestImportPromptsOnConflict(t *testing.T) {
	srcES := newFakeES()
	srcES.indices["logs-2025-01-01"] = 5
	src := httptest.NewServer(srcES)
	defer src.Close()

	dstES := newFakeES()
	dstES.snapshotDocs["snapshot_2025_01_01"] = 5
	dstES.indices["logs-2025-01-01"] = 2
	dst := httptest.NewServer(dstES)
	defer dst.Close()

	dir := t.TempDir()
	var out, errOut bytes.Buffer
	// start, end, replication menu, confirm, conflict answer
	stdin := strings.NewReader("2025-01-01\n2025-01-01\ny\n2\nd\n")
	args := append([]string{"import", "--source-address", src.URL, "--dest-address", dst.URL}, baseArgs(dir)...)
	code := Main(args, stdin, &out, &errOut)
	require.Equal(t, exitOK, code, errOut.String())

	recs := readHistory(t, dir)
	require.Len(t, recs, 1)
	assert.Equal(t, "SUCCESS", recs[0].Outcome)
	assert.EqualValues(t, 5, dstES.indices["logs-2025-01-01"])
	assert.Contains(t, out.String(), "already exists on the destination")
}

func TestMissingRepositoryAborts(t *testing.T) {
	src := httptest.NewServer(newFakeES())
	defer src.Close()

	dir := t.TempDir()
	var out, errOut bytes.Buffer
	args := append([]string{"export", "--source-address", src.URL, "--repository", "nightly",
		"--start", "2025-01-01", "--end", "2025-01-02", "--yes"}, baseArgs(dir)...)
	code := Main(args, strings.NewReader(""), &out, &errOut)
	assert.Equal(t, exitPrecondition, code)
	assert.Contains(t, errOut.String(), `snapshot repository "nightly"`)
	assert.Empty(t, readHistory(t, dir))
}

func TestDryRunPrintsPlan(t *testing.T) {
	dir := t.TempDir()
	var out, errOut bytes.Buffer
	args := append([]string{"export", "--dry-run", "--start", "2025-12-30", "--end", "2026-01-01"}, baseArgs(dir)...)
	code := Main(args, strings.NewReader(""), &out, &errOut)
	require.Equal(t, exitOK, code, errOut.String())

	assert.Contains(t, out.String(), "export 3 units from 2025-12-30 to 2026-01-01")
	assert.Contains(t, out.String(), "logs-2026-01-01")
	assert.Contains(t, out.String(), "snapshot_2025_12_31")
	_, err := os.Stat(filepath.Join(dir, "history.log"))
	assert.True(t, os.IsNotExist(err))
}

func TestReversedRangeIsRejected(t *testing.T) {
	var out, errOut bytes.Buffer
	args := append([]string{"export", "--start", "2025-02-01", "--end", "2025-01-01"}, baseArgs(t.TempDir())...)
	assert.Equal(t, exitPrecondition, Main(args, strings.NewReader(""), &out, &errOut))
	assert.Contains(t, errOut.String(), "end before start")
}

func TestDeclinedConfirmation(t *testing.T) {
	var out, errOut bytes.Buffer
	args := append([]string{"export", "--start", "2025-01-01", "--end", "2025-01-01"}, baseArgs(t.TempDir())...)
	assert.Equal(t, exitOK, Main(args, strings.NewReader("n\n"), &out, &errOut))
	assert.Contains(t, out.String(), "aborted")
}

func TestVersionAndUnknownAction(t *testing.T) {
	var out, errOut bytes.Buffer
	assert.Equal(t, exitOK, Main([]string{"--version"}, nil, &out, &errOut))
	assert.Contains(t, out.String(), "esmigrate")

	assert.Equal(t, exitPrecondition, Main([]string{"sync"}, nil, &out, &errOut))
	assert.Contains(t, errOut.String(), "want export or import")
}
