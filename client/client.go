package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v6"
	"github.com/elastic/go-elasticsearch/v6/esapi"
	"github.com/juju/errors"

	"github.com/ll2l/esmigrate/bookmarks"
)

const DefaultCluster = "http://localhost:9200"

// Client wraps one Elasticsearch cluster connection.
type Client struct {
	es            *elasticsearch.Client
	serverVersion string
	Alias         string
}

func NewFromParams(host, alias, user, password string) (*Client, error) {
	return NewFromBookmark(bookmarks.Bookmark{
		Addresses: []string{host},
		User:      user,
		Password:  password,
		Alias:     alias,
	})
}

func NewFromBookmark(conf bookmarks.Bookmark) (*Client, error) {
	cfg := elasticsearch.Config{
		Addresses: conf.Addresses,
	}
	if len(cfg.Addresses) == 0 {
		cfg.Addresses = []string{DefaultCluster}
	}

	if conf.User != "" && conf.Password != "" {
		cfg.Username = conf.User
		cfg.Password = conf.Password
	}

	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, errors.Annotatef(err, "cannot create client for %v", cfg.Addresses)
	}

	alias := conf.Alias
	if alias == "" {
		alias = cfg.Addresses[0]
	}
	return &Client{es: es, Alias: alias}, nil
}

// ServerVersion is empty until Ping succeeds.
func (c *Client) ServerVersion() string {
	return c.serverVersion
}

// Ping checks the cluster answers and records its version.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Info(c.es.Info.WithContext(ctx))
	if err := checkElasticResp(ctx, "ping", res, err); err != nil {
		return errors.Annotatef(err, "cluster %s is not reachable", c.Alias)
	}
	defer res.Body.Close()

	var info infoResponse
	if err := json.NewDecoder(res.Body).Decode(&info); err != nil {
		return errors.Annotate(err, "cannot decode cluster info")
	}
	c.serverVersion = info.Version.Number
	return nil
}

// Health returns the health status (green, yellow, red) of one index.
func (c *Client) Health(ctx context.Context, index string) (string, error) {
	health := c.es.Cluster.Health
	res, err := health(
		health.WithContext(ctx),
		health.WithIndex(index),
	)
	if err != nil {
		return "", wrapTransportErr(ctx, "cluster health", err)
	}
	defer res.Body.Close()

	// 408 carries a valid body with the status reached so far.
	if res.IsError() && res.StatusCode != http.StatusRequestTimeout {
		return "", errorFromBody(res)
	}

	var h healthResponse
	if err := json.NewDecoder(res.Body).Decode(&h); err != nil {
		return "", errors.Annotate(err, "cannot decode cluster health")
	}
	return h.Status, nil
}

func (c *Client) IndexExists(ctx context.Context, index string) (bool, error) {
	res, err := c.es.Indices.Exists([]string{index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, wrapTransportErr(ctx, "index exists", err)
	}
	defer drain(res)

	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	}
	return false, errors.Errorf("index exists %s: unexpected status %d", index, res.StatusCode)
}

// Count returns the number of documents in index.
func (c *Client) Count(ctx context.Context, index string) (int64, error) {
	res, err := c.es.Count(
		c.es.Count.WithContext(ctx),
		c.es.Count.WithIndex(index),
	)
	if err := checkElasticResp(ctx, "count", res, err); err != nil {
		return 0, errors.Annotatef(err, "cannot count %s", index)
	}
	defer res.Body.Close()

	var r countResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, errors.Annotate(err, "cannot decode count response")
	}
	return r.Count, nil
}

func (c *Client) DeleteIndex(ctx context.Context, index string) error {
	res, err := c.es.Indices.Delete([]string{index}, c.es.Indices.Delete.WithContext(ctx))
	if err := checkElasticResp(ctx, "delete index", res, err); err != nil {
		return errors.Annotatef(err, "cannot delete %s", index)
	}
	drain(res)
	return nil
}

// Indices lists indices matching pattern with their health and size.
func (c *Client) Indices(ctx context.Context, pattern string) ([]IndexRow, error) {
	res, err := c.es.Cat.Indices(
		c.es.Cat.Indices.WithContext(ctx),
		c.es.Cat.Indices.WithIndex(pattern),
		c.es.Cat.Indices.WithFormat("json"),
		c.es.Cat.Indices.WithS("index"),
	)
	if err := checkElasticResp(ctx, "cat indices", res, err); err != nil {
		return nil, errors.Annotatef(err, "cannot list %s", pattern)
	}
	defer res.Body.Close()

	var rows []IndexRow
	if err := json.NewDecoder(res.Body).Decode(&rows); err != nil {
		return nil, errors.Annotate(err, "cannot decode index listing")
	}
	return rows, nil
}

func (c *Client) RepositoryExists(ctx context.Context, repository string) (bool, error) {
	get := c.es.Snapshot.GetRepository
	res, err := get(
		get.WithContext(ctx),
		get.WithRepository(repository),
	)
	if err != nil {
		return false, wrapTransportErr(ctx, "get repository", err)
	}
	defer drain(res)

	switch {
	case res.StatusCode == http.StatusNotFound:
		return false, nil
	case res.IsError():
		return false, errorFromBody(res)
	}

	var repos map[string]json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&repos); err != nil {
		return false, errors.Annotate(err, "cannot decode repository listing")
	}
	_, ok := repos[repository]
	return ok, nil
}

// GetSnapshot returns the snapshot, or nil when the repository has no
// snapshot with that name.
func (c *Client) GetSnapshot(ctx context.Context, repository, snapshot string) (*SnapshotInfo, error) {
	get := c.es.Snapshot.Get
	res, err := get(repository, []string{snapshot},
		get.WithContext(ctx),
		get.WithIgnoreUnavailable(true),
	)
	if err != nil {
		return nil, wrapTransportErr(ctx, "get snapshot", err)
	}
	defer drain(res)

	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if res.IsError() {
		return nil, errorFromBody(res)
	}

	var r snapshotsResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, errors.Annotate(err, "cannot decode snapshot listing")
	}
	for i := range r.Snapshots {
		if r.Snapshots[i].Snapshot == snapshot {
			return &r.Snapshots[i], nil
		}
	}
	return nil, nil
}

// CreateSnapshot snapshots exactly one index and blocks until the cluster
// reports a terminal state or ctx ends.
func (c *Client) CreateSnapshot(ctx context.Context, repository, snapshot, index string) (*SnapshotInfo, error) {
	body, err := indexScopedBody(index)
	if err != nil {
		return nil, err
	}

	create := c.es.Snapshot.Create
	res, err := create(repository, snapshot,
		create.WithContext(ctx),
		create.WithBody(body),
		create.WithWaitForCompletion(true),
	)
	if err := checkElasticResp(ctx, "create snapshot", res, err); err != nil {
		return nil, errors.Annotatef(err, "cannot snapshot %s", index)
	}
	defer res.Body.Close()

	var r snapshotResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, errors.Annotate(err, "cannot decode snapshot response")
	}
	return &r.Snapshot, nil
}

// RestoreSnapshot restores exactly one index and blocks until done.
func (c *Client) RestoreSnapshot(ctx context.Context, repository, snapshot, index string) (*RestoreInfo, error) {
	body, err := indexScopedBody(index)
	if err != nil {
		return nil, err
	}

	restore := c.es.Snapshot.Restore
	res, err := restore(repository, snapshot,
		restore.WithContext(ctx),
		restore.WithBody(body),
		restore.WithWaitForCompletion(true),
	)
	if err := checkElasticResp(ctx, "restore snapshot", res, err); err != nil {
		return nil, errors.Annotatef(err, "cannot restore %s", snapshot)
	}
	defer res.Body.Close()

	var r restoreResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, errors.Annotate(err, "cannot decode restore response")
	}
	return &r.Snapshot, nil
}

func indexScopedBody(index string) (io.Reader, error) {
	b, err := json.Marshal(snapshotRequest{
		Indices:            index,
		IgnoreUnavailable:  true,
		IncludeGlobalState: false,
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return bytes.NewReader(b), nil
}

func drain(res *esapi.Response) {
	if res != nil && res.Body != nil {
		io.Copy(io.Discard, res.Body)
		res.Body.Close()
	}
}
