package restapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rechain/shardchain/internal/node"
	"github.com/rechain/shardchain/internal/restapi"
	"github.com/stretchr/testify/require"
)

func newTestSupervisor(t *testing.T) *node.Supervisor {
	t.Helper()
	sup, err := node.New(node.Config{
		RootDir:   t.TempDir(),
		NumShards: 2,
		Address:   []byte("validator-1"),
	})
	require.NoError(t, err)
	require.NoError(t, sup.Start(context.Background()))
	t.Cleanup(func() { sup.Stop() })
	return sup
}

func TestHealthEndpoint(t *testing.T) {
	srv := restapi.NewServer(newTestSupervisor(t))
	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "healthy", body["status"])
}

func TestShardHeightEndpointUnknownShard(t *testing.T) {
	srv := restapi.NewServer(newTestSupervisor(t))
	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/shards/9/height")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLatestBlockEndpointBeforeAnyCommit(t *testing.T) {
	srv := restapi.NewServer(newTestSupervisor(t))
	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/blocks/latest")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
