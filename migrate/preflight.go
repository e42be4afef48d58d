package migrate

import (
	"context"

	"github.com/juju/errors"
)

// CheckCluster pings the cluster and, when repository is not empty,
// requires the snapshot repository to be registered there. This tool
// never registers repositories itself.
func CheckCluster(ctx context.Context, name string, c RepositoryHost, repository string) error {
	if err := c.Ping(ctx); err != nil {
		return errors.Annotatef(err, "%s cluster", name)
	}
	if repository == "" {
		return nil
	}

	ok, err := c.RepositoryExists(ctx, repository)
	if err != nil {
		return errors.Annotatef(err, "checking repository %q on %s cluster", repository, name)
	}
	if !ok {
		return errors.NotFoundf("snapshot repository %q on %s cluster", repository, name)
	}
	return nil
}
