package migrate

import (
	"context"
	"sync"
	"time"

	"github.com/juju/errors"

	"github.com/ll2l/esmigrate/client"
)

// fakeCluster is an in-memory stand-in for one Elasticsearch cluster.
type fakeCluster struct {
	mu sync.Mutex

	indices   map[string]int64
	snapshots map[string]*client.SnapshotInfo
	// snapshotDocs is what a restore of the snapshot materializes.
	snapshotDocs map[string]int64
	repos        map[string]bool
	health       string

	pingErr            error
	countErr           error
	createFailedShards int
	restoreFailed      int
	restoreErr         error
	block              bool
	afterCreate        func(*client.SnapshotInfo)

	calls []string
}

func newFakeCluster() *fakeCluster {
	return &fakeCluster{
		indices:      map[string]int64{},
		snapshots:    map[string]*client.SnapshotInfo{},
		snapshotDocs: map[string]int64{},
		repos:        map[string]bool{"backup": true},
		health:       "green",
	}
}

func (f *fakeCluster) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeCluster) called(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeCluster) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ping")
	return f.pingErr
}

func (f *fakeCluster) RepositoryExists(ctx context.Context, repository string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("repository")
	return f.repos[repository], nil
}

func (f *fakeCluster) IndexExists(ctx context.Context, index string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("exists")
	_, ok := f.indices[index]
	return ok, nil
}

func (f *fakeCluster) Count(ctx context.Context, index string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("count")
	if f.countErr != nil {
		return 0, f.countErr
	}
	n, ok := f.indices[index]
	if !ok {
		return 0, errors.NotFoundf("index %s", index)
	}
	return n, nil
}

func (f *fakeCluster) Health(ctx context.Context, index string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("health")
	return f.health, nil
}

func (f *fakeCluster) DeleteIndex(ctx context.Context, index string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("delete")
	delete(f.indices, index)
	return nil
}

func (f *fakeCluster) GetSnapshot(ctx context.Context, repository, snapshot string) (*client.SnapshotInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("get-snapshot")
	s, ok := f.snapshots[snapshot]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f *fakeCluster) waitIfBlocked(ctx context.Context, op string) error {
	if !f.block {
		return nil
	}
	<-ctx.Done()
	return errors.Timeoutf("%s", op)
}

func (f *fakeCluster) CreateSnapshot(ctx context.Context, repository, snapshot, index string) (*client.SnapshotInfo, error) {
	f.mu.Lock()
	f.record("create")
	f.mu.Unlock()
	if err := f.waitIfBlocked(ctx, "create snapshot"); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	info := &client.SnapshotInfo{
		Snapshot: snapshot,
		State:    client.StateSuccess,
		Indices:  []string{index},
		Shards:   client.ShardStats{Total: 5, Successful: 5 - f.createFailedShards, Failed: f.createFailedShards},
	}
	if f.createFailedShards > 0 {
		info.State = client.StatePartial
	}
	f.snapshots[snapshot] = info
	f.snapshotDocs[snapshot] = f.indices[index]
	if f.afterCreate != nil {
		f.afterCreate(info)
	}
	cp := *info
	return &cp, nil
}

func (f *fakeCluster) RestoreSnapshot(ctx context.Context, repository, snapshot, index string) (*client.RestoreInfo, error) {
	f.mu.Lock()
	f.record("restore")
	f.mu.Unlock()
	if err := f.waitIfBlocked(ctx, "restore snapshot"); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.restoreErr != nil {
		return nil, f.restoreErr
	}
	info := &client.RestoreInfo{
		Snapshot: snapshot,
		Indices:  []string{index},
		Shards:   client.ShardStats{Total: 5, Successful: 5 - f.restoreFailed, Failed: f.restoreFailed},
	}
	if f.restoreFailed == 0 {
		f.indices[index] = f.snapshotDocs[snapshot]
	}
	return info, nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.OperationTimeout = time.Second
	cfg.ReadyTimeout = 500 * time.Millisecond
	cfg.PollInterval = time.Millisecond
	cfg.Pause = 0
	return cfg
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}
