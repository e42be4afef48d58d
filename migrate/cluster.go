package migrate

import (
	"context"

	"github.com/ll2l/esmigrate/client"
)

// The interfaces below are the slices of *client.Client each workflow uses.

type Counter interface {
	Count(ctx context.Context, index string) (int64, error)
}

type SnapshotSource interface {
	Counter
	IndexExists(ctx context.Context, index string) (bool, error)
	GetSnapshot(ctx context.Context, repository, snapshot string) (*client.SnapshotInfo, error)
	CreateSnapshot(ctx context.Context, repository, snapshot, index string) (*client.SnapshotInfo, error)
}

type RestoreTarget interface {
	Counter
	IndexExists(ctx context.Context, index string) (bool, error)
	Health(ctx context.Context, index string) (string, error)
	DeleteIndex(ctx context.Context, index string) error
	RestoreSnapshot(ctx context.Context, repository, snapshot, index string) (*client.RestoreInfo, error)
}

type RepositoryHost interface {
	Ping(ctx context.Context) error
	RepositoryExists(ctx context.Context, repository string) (bool, error)
}

var (
	_ SnapshotSource = (*client.Client)(nil)
	_ RestoreTarget  = (*client.Client)(nil)
	_ RepositoryHost = (*client.Client)(nil)
)
