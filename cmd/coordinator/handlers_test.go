package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/torua/internal/cluster"
	"github.com/dreamware/torua/internal/coordinator"
	"github.com/dreamware/torua/internal/scan"
	"github.com/dreamware/torua/internal/storage"
	"github.com/dreamware/torua/internal/token"
)

const (
	hostA = "00000000-0000-0000-0000-00000000000a"
	hostB = "00000000-0000-0000-0000-00000000000b"
	hostC = "00000000-0000-0000-0000-00000000000c"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type testCluster struct {
	srv    *server
	http   *httptest.Server
	health *coordinator.HealthMonitor
}

func newTestCluster(t *testing.T, p token.Partitioner, rf int) *testCluster {
	t.Helper()
	health := coordinator.NewHealthMonitor(coordinator.HealthOptions{
		Logger:      quiet,
		Interval:    10 * time.Millisecond,
		MaxFailures: 1,
	})
	t.Cleanup(health.Stop)

	srv := newServer(coordinator.NewTokenMap(p, rf), health,
		scan.New(scan.Options{Logger: quiet, SplitsPerRange: 3, Concurrency: 4}), quiet)
	ts := httptest.NewServer(srv.routes())
	t.Cleanup(ts.Close)
	return &testCluster{srv: srv, http: ts, health: health}
}

func (c *testCluster) register(t *testing.T, h cluster.HostInfo) int {
	t.Helper()
	resp, _ := c.do(t, http.MethodPost, "/register", mustJSON(t, cluster.RegisterRequest{Host: h}))
	return resp.StatusCode
}

func (c *testCluster) do(t *testing.T, method, path, body string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, c.http.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(b)
}

func (c *testCluster) getJSON(t *testing.T, path string, out any) int {
	t.Helper()
	resp, body := c.do(t, http.MethodGet, path, "")
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.Unmarshal([]byte(body), out), body)
	}
	return resp.StatusCode
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

// fakeNode serves the storage node API from a MemoryStore.
type fakeNode struct {
	store *storage.MemoryStore
	http  *httptest.Server
}

func newFakeNode(t *testing.T, p token.Partitioner) *fakeNode {
	t.Helper()
	n := &fakeNode{store: storage.NewMemoryStore(p)}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(http.ResponseWriter, *http.Request) {})
	mux.HandleFunc("GET /store/{key...}", func(w http.ResponseWriter, r *http.Request) {
		v, err := n.store.Get(r.PathValue("key"))
		if errors.Is(err, storage.ErrKeyNotFound) {
			http.Error(w, "key not found", http.StatusNotFound)
			return
		}
		_, _ = w.Write(v)
	})
	mux.HandleFunc("PUT /store/{key...}", func(w http.ResponseWriter, r *http.Request) {
		v, _ := io.ReadAll(r.Body)
		_ = n.store.Put(r.PathValue("key"), v)
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("DELETE /store/{key...}", func(w http.ResponseWriter, r *http.Request) {
		_ = n.store.Delete(r.PathValue("key"))
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /scan", func(w http.ResponseWriter, r *http.Request) {
		start, err1 := p.Parse(r.URL.Query().Get("start"))
		end, err2 := p.Parse(r.URL.Query().Get("end"))
		if err := errors.Join(err1, err2); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, cluster.ScanResponse{Keys: n.store.ScanRange(token.NewRange(start, end))})
	})
	n.http = httptest.NewServer(mux)
	t.Cleanup(n.http.Close)
	return n
}

// threeNodeRing registers A, B and C on a Murmur3 ring:
//
//	-3e18 (A)  0 (B)  3e18 (C)
func threeNodeRing(t *testing.T, rf int) (*testCluster, map[string]*fakeNode) {
	t.Helper()
	c := newTestCluster(t, token.Murmur3, rf)
	nodes := map[string]*fakeNode{}
	for id, tok := range map[string]string{hostA: "-3000000000000000000", hostB: "0", hostC: "3000000000000000000"} {
		n := newFakeNode(t, token.Murmur3)
		nodes[id] = n
		require.Equal(t, http.StatusNoContent, c.register(t, cluster.HostInfo{ID: id, Addr: n.http.URL, Tokens: []string{tok}}))
	}
	return c, nodes
}

func TestHandleRegister(t *testing.T) {
	c := newTestCluster(t, token.Murmur3, 1)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"valid", mustJSON(t, cluster.RegisterRequest{Host: cluster.HostInfo{ID: hostA, Addr: "http://a", Tokens: []string{"1", "2"}}}), http.StatusNoContent},
		{"re-register", mustJSON(t, cluster.RegisterRequest{Host: cluster.HostInfo{ID: hostA, Addr: "http://a", Tokens: []string{"1", "3"}}}), http.StatusNoContent},
		{"bad json", "{", http.StatusBadRequest},
		{"bad id", mustJSON(t, cluster.RegisterRequest{Host: cluster.HostInfo{ID: "a", Addr: "http://a", Tokens: []string{"1"}}}), http.StatusBadRequest},
		{"bad token", mustJSON(t, cluster.RegisterRequest{Host: cluster.HostInfo{ID: hostB, Addr: "http://b", Tokens: []string{"0x10"}}}), http.StatusBadRequest},
		{"conflict", mustJSON(t, cluster.RegisterRequest{Host: cluster.HostInfo{ID: hostB, Addr: "http://b", Tokens: []string{"3"}}}), http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := c.do(t, http.MethodPost, "/register", tt.body)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}

	assert.Equal(t, []string{"1", "3"}, token.Tokens(c.srv.tokens.Ring()).Strings())

	resp, _ := c.do(t, http.MethodGet, "/register", "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHandleHosts(t *testing.T) {
	c, _ := threeNodeRing(t, 1)

	var out cluster.HostsResponse
	require.Equal(t, http.StatusOK, c.getJSON(t, "/hosts", &out))
	require.Len(t, out.Hosts, 3)
	assert.Equal(t, hostA, out.Hosts[0].Host.ID)
	assert.Equal(t, []string{"-3000000000000000000"}, out.Hosts[0].Host.Tokens)
	assert.Equal(t, "unknown", out.Hosts[0].Status)
}

func TestHandleToken(t *testing.T) {
	c := newTestCluster(t, token.Murmur3, 1)

	var out cluster.TokenResponse
	require.Equal(t, http.StatusOK, c.getJSON(t, "/token?key=hello", &out))
	assert.Equal(t, cluster.TokenResponse{Key: "hello", Token: "-3758069500696749310"}, out)

	require.Equal(t, http.StatusOK, c.getJSON(t, "/token?key=", &out))
	assert.Equal(t, "0", out.Token)

	assert.Equal(t, http.StatusBadRequest, c.getJSON(t, "/token", &out))
}

func TestHandleReplicas(t *testing.T) {
	c, _ := threeNodeRing(t, 2)

	var out cluster.ReplicasResponse
	require.Equal(t, http.StatusOK, c.getJSON(t, "/replicas?key=hello", &out))
	assert.Equal(t, "-3758069500696749310", out.Token)
	require.Len(t, out.Replicas, 2)
	// -3.76e18 falls in ]3e18, -3e18], owned by A; C is never reached
	assert.Equal(t, hostA, out.Replicas[0].ID)
	assert.Equal(t, hostB, out.Replicas[1].ID)

	assert.Equal(t, http.StatusBadRequest, c.getJSON(t, "/replicas", &out))

	empty := newTestCluster(t, token.Murmur3, 1)
	assert.Equal(t, http.StatusServiceUnavailable, empty.getJSON(t, "/replicas?key=x", &out))
}

func TestHandleReplicasPrefersHealthyHosts(t *testing.T) {
	c, nodes := threeNodeRing(t, 2)
	downAddr := nodes[hostA].http.URL
	c.health.SetCheckFunction(func(_ context.Context, addr string) error {
		if addr == downAddr {
			return errors.New("down")
		}
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.health.Start(ctx, c.srv.tokens.Hosts)

	require.Eventually(t, func() bool { return !c.health.IsHealthy(hostA) }, 2*time.Second, 10*time.Millisecond)

	var out cluster.ReplicasResponse
	require.Equal(t, http.StatusOK, c.getJSON(t, "/replicas?key=hello", &out))
	require.Len(t, out.Replicas, 2)
	assert.Equal(t, hostB, out.Replicas[0].ID)
	assert.Equal(t, hostA, out.Replicas[1].ID)

	var hosts cluster.HostsResponse
	require.Equal(t, http.StatusOK, c.getJSON(t, "/hosts", &hosts))
	assert.Equal(t, "unhealthy", hosts.Hosts[0].Status)
	assert.Equal(t, "healthy", hosts.Hosts[1].Status)
}

func TestHandleRanges(t *testing.T) {
	c, _ := threeNodeRing(t, 1)

	var out cluster.RangesResponse
	require.Equal(t, http.StatusOK, c.getJSON(t, "/ranges", &out))
	assert.Equal(t, "Murmur3Partitioner", out.Partitioner)
	assert.Equal(t, []cluster.RangeInfo{
		{Start: "3000000000000000000", End: "-3000000000000000000", Owner: hostA},
		{Start: "-3000000000000000000", End: "0", Owner: hostB},
		{Start: "0", End: "3000000000000000000", Owner: hostC},
	}, out.Ranges)

	require.Equal(t, http.StatusOK, c.getJSON(t, "/ranges?host="+hostB, &out))
	assert.Equal(t, []cluster.RangeInfo{{Start: "-3000000000000000000", End: "0", Owner: hostB}}, out.Ranges)

	assert.Equal(t, http.StatusNotFound, c.getJSON(t, "/ranges?host=00000000-0000-0000-0000-0000000000ff", &out))

	empty := newTestCluster(t, token.Random, 1)
	require.Equal(t, http.StatusOK, empty.getJSON(t, "/ranges", &out))
	assert.Equal(t, "RandomPartitioner", out.Partitioner)
	assert.Empty(t, out.Ranges)
}

func TestHandleSplit(t *testing.T) {
	c := newTestCluster(t, token.Murmur3, 1)

	split := func(start, end, n string) (int, cluster.SplitResponse) {
		q := url.Values{"start": {start}, "end": {end}, "n": {n}}
		var out cluster.SplitResponse
		code := c.getJSON(t, "/split?"+q.Encode(), &out)
		return code, out
	}

	code, out := split("0", "100", "2")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []cluster.RangeInfo{{Start: "0", End: "50"}, {Start: "50", End: "100"}}, out.Ranges)

	code, out = split("-9223372036854775808", "-9223372036854775808", "3")
	require.Equal(t, http.StatusOK, code)
	require.Len(t, out.Ranges, 3)
	assert.Equal(t, "-3074457345618258603", out.Ranges[0].End)

	tests := []struct {
		name, start, end, n string
	}{
		{"zero parts", "0", "100", "0"},
		{"empty range", "5", "5", "2"},
		{"bad token", "x", "100", "2"},
		{"bad count", "0", "100", "two"},
		{"too many parts", "-9223372036854775808", "-9223372036854775808", "1000000000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _ := split(tt.start, tt.end, tt.n)
			assert.Equal(t, http.StatusBadRequest, code)
		})
	}

	resp, _ := c.do(t, http.MethodGet, "/split?start=0&n=2", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDataRoundTrip(t *testing.T) {
	c, nodes := threeNodeRing(t, 2)

	resp, _ := c.do(t, http.MethodPut, "/data/user/42", "ada")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	// token of "user/42" decides which two nodes hold it
	_, ids, err := c.srv.tokens.ReplicasForKey([]byte("user/42"))
	require.NoError(t, err)
	require.Len(t, ids, 2)
	for id, n := range nodes {
		_, err := n.store.Get("user/42")
		if id == ids[0] || id == ids[1] {
			assert.NoError(t, err, id)
		} else {
			assert.ErrorIs(t, err, storage.ErrKeyNotFound, id)
		}
	}

	resp, body := c.do(t, http.MethodGet, "/data/user/42", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ada", body)
	assert.Equal(t, ids[0], resp.Header.Get("X-Torua-Host"))

	resp, _ = c.do(t, http.MethodDelete, "/data/user/42", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = c.do(t, http.MethodGet, "/data/user/42", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = c.do(t, http.MethodPut, "/data/", "x")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDataReadFallsBackToReplica(t *testing.T) {
	c, nodes := threeNodeRing(t, 2)

	resp, _ := c.do(t, http.MethodPut, "/data/k1", "v1")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	_, ids, err := c.srv.tokens.ReplicasForKey([]byte("k1"))
	require.NoError(t, err)
	nodes[ids[0]].http.Close()

	resp, body := c.do(t, http.MethodGet, "/data/k1", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "v1", body)
	assert.Equal(t, ids[1], resp.Header.Get("X-Torua-Host"))

	resp, _ = c.do(t, http.MethodPut, "/data/k1", "v2")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestDataWithoutHosts(t *testing.T) {
	c := newTestCluster(t, token.Murmur3, 1)
	resp, _ := c.do(t, http.MethodGet, "/data/k", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	resp, _ = c.do(t, http.MethodPut, "/data/k", "v")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHandleScan(t *testing.T) {
	c, _ := threeNodeRing(t, 2)

	var keys []string
	for i := 0; i < 60; i++ {
		key := "row-" + string(rune('a'+i%26)) + string(rune('a'+i/26))
		keys = append(keys, key)
		resp, _ := c.do(t, http.MethodPut, "/data/"+key, key)
		require.Equal(t, http.StatusNoContent, resp.StatusCode)
	}

	var out cluster.ScanResponse
	require.Equal(t, http.StatusOK, c.getJSON(t, "/scan", &out))
	// three owned ranges, three splits each, the wrapped pieces unwrapped
	assert.Equal(t, 10, out.Ranges)

	// ring order: tokens increase except once, where the scan crosses min
	p := c.srv.tokens.Partitioner()
	drops := 0
	for i := 1; i < len(out.Keys); i++ {
		if p.Hash([]byte(out.Keys[i])).Less(p.Hash([]byte(out.Keys[i-1]))) {
			drops++
		}
	}
	assert.LessOrEqual(t, drops, 1)

	got := append([]string(nil), out.Keys...)
	sort.Strings(got)
	sort.Strings(keys)
	assert.Equal(t, keys, got)
}

func TestHandleScanWithoutHosts(t *testing.T) {
	c := newTestCluster(t, token.Murmur3, 1)
	resp, _ := c.do(t, http.MethodGet, "/scan", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHandleScanFailsWhenNoReplicaAnswers(t *testing.T) {
	c, nodes := threeNodeRing(t, 1)
	nodes[hostB].http.Close()

	resp, body := c.do(t, http.MethodGet, "/scan", "")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, body, "no replica answered")
}

func TestHealthEndpoint(t *testing.T) {
	c := newTestCluster(t, token.Murmur3, 1)
	resp, _ := c.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
