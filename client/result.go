package client

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/elastic/go-elasticsearch/v6/esapi"
	"github.com/juju/errors"
)

// Snapshot states reported by the cluster.
const (
	StateSuccess    = "SUCCESS"
	StateInProgress = "IN_PROGRESS"
	StatePartial    = "PARTIAL"
	StateFailed     = "FAILED"
)

type ShardStats struct {
	Total      int `json:"total"`
	Failed     int `json:"failed"`
	Successful int `json:"successful"`
}

type ShardFailure struct {
	Index   string `json:"index"`
	ShardID int    `json:"shard_id"`
	Reason  string `json:"reason"`
	Status  string `json:"status"`
}

type SnapshotInfo struct {
	Snapshot string         `json:"snapshot"`
	UUID     string         `json:"uuid"`
	State    string         `json:"state"`
	Indices  []string       `json:"indices"`
	Shards   ShardStats     `json:"shards"`
	Failures []ShardFailure `json:"failures"`
}

// Succeeded reports a completed snapshot with no failed shards.
func (s *SnapshotInfo) Succeeded() bool {
	return s != nil && s.State == StateSuccess && s.Shards.Failed == 0
}

type RestoreInfo struct {
	Snapshot string     `json:"snapshot"`
	Indices  []string   `json:"indices"`
	Shards   ShardStats `json:"shards"`
}

type IndexRow struct {
	Health    string `json:"health"`
	Status    string `json:"status"`
	Index     string `json:"index"`
	DocsCount string `json:"docs.count"`
	StoreSize string `json:"store.size"`
}

type snapshotRequest struct {
	Indices            string `json:"indices"`
	IgnoreUnavailable  bool   `json:"ignore_unavailable"`
	IncludeGlobalState bool   `json:"include_global_state"`
}

type snapshotResponse struct {
	Snapshot SnapshotInfo `json:"snapshot"`
}

type snapshotsResponse struct {
	Snapshots []SnapshotInfo `json:"snapshots"`
}

type restoreResponse struct {
	Snapshot RestoreInfo `json:"snapshot"`
}

type countResponse struct {
	Count int64 `json:"count"`
}

type healthResponse struct {
	ClusterName string `json:"cluster_name"`
	Status      string `json:"status"`
	TimedOut    bool   `json:"timed_out"`
}

type infoResponse struct {
	ClusterName string `json:"cluster_name"`
	Version     struct {
		Number string `json:"number"`
	} `json:"version"`
}

type elasticErrResp struct {
	Error struct {
		RootCause []struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"root_cause"`
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

func checkElasticResp(ctx context.Context, op string, res *esapi.Response, eserr error) error {
	if eserr != nil {
		return wrapTransportErr(ctx, op, eserr)
	}
	if res.IsError() {
		defer res.Body.Close()
		return errorFromBody(res)
	}
	return nil
}

// errorFromBody turns an error response into its root causes.
func errorFromBody(res *esapi.Response) error {
	var e elasticErrResp
	if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
		return errors.Errorf("%s", res.Status())
	}

	var rootCause []string
	for _, r := range e.Error.RootCause {
		rootCause = append(rootCause, r.Type+": "+r.Reason)
	}
	if len(rootCause) == 0 && e.Error.Type != "" {
		rootCause = append(rootCause, e.Error.Type+": "+e.Error.Reason)
	}
	if len(rootCause) == 0 {
		return errors.Errorf("%s", res.Status())
	}
	return errors.New(strings.Join(rootCause, "\n"))
}

// wrapTransportErr reports a client-side deadline as a timeout.
func wrapTransportErr(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return errors.Timeoutf("%s", op)
	}
	return errors.Annotatef(err, "%s", op)
}
