package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dreamware/torua/internal/cluster"
	"github.com/dreamware/torua/internal/coordinator"
	"github.com/dreamware/torua/internal/scan"
	"github.com/dreamware/torua/internal/token"
)

const (
	maxValueSize = 1 << 20
	maxSplits    = 1 << 16
)

type server struct {
	tokens  *coordinator.TokenMap
	health  *coordinator.HealthMonitor
	scanner *scan.Scanner
	client  *http.Client
	log     *slog.Logger
}

func newServer(tokens *coordinator.TokenMap, health *coordinator.HealthMonitor, scanner *scan.Scanner, logger *slog.Logger) *server {
	return &server{
		tokens:  tokens,
		health:  health,
		scanner: scanner,
		client:  &http.Client{Timeout: 5 * time.Second},
		log:     logger,
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("GET /hosts", s.handleHosts)
	mux.HandleFunc("GET /token", s.handleToken)
	mux.HandleFunc("GET /replicas", s.handleReplicas)
	mux.HandleFunc("GET /ranges", s.handleRanges)
	mux.HandleFunc("GET /split", s.handleSplit)
	mux.HandleFunc("GET /scan", s.handleScan)
	mux.HandleFunc("GET /data/{key...}", s.handleDataGet)
	mux.HandleFunc("PUT /data/{key...}", s.handleDataWrite)
	mux.HandleFunc("DELETE /data/{key...}", s.handleDataWrite)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (s *server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req cluster.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	err := s.tokens.SetHost(req.Host)
	switch {
	case errors.Is(err, coordinator.ErrTokenConflict):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.log.Info("host registered", "host", req.Host.ID, "addr", req.Host.Addr, "tokens", len(req.Host.Tokens))
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) status(hostID string) string {
	if h := s.health.Health(hostID); h != nil {
		return string(h.Status)
	}
	return string(coordinator.StatusUnknown)
}

func (s *server) handleHosts(w http.ResponseWriter, _ *http.Request) {
	hosts := s.tokens.Hosts()
	out := cluster.HostsResponse{Hosts: make([]cluster.HostStatus, 0, len(hosts))}
	for _, h := range hosts {
		out.Hosts = append(out.Hosts, cluster.HostStatus{Host: h, Status: s.status(h.ID)})
	}
	writeJSON(w, out)
}

func (s *server) handleToken(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !q.Has("key") {
		http.Error(w, "key required", http.StatusBadRequest)
		return
	}
	key := q.Get("key")
	writeJSON(w, cluster.TokenResponse{
		Key:   key,
		Token: s.tokens.Partitioner().Hash([]byte(key)).String(),
	})
}

// replicas returns the hosts for key, healthy hosts first.
func (s *server) replicas(key string) (token.Token, []cluster.HostInfo, error) {
	t, ids, err := s.tokens.ReplicasForKey([]byte(key))
	if err != nil {
		return t, nil, err
	}
	return t, s.lookupHosts(coordinator.PreferHealthy(ids, s.health.IsHealthy)), nil
}

func (s *server) lookupHosts(ids []string) []cluster.HostInfo {
	hosts := make([]cluster.HostInfo, 0, len(ids))
	for _, id := range ids {
		if h, ok := s.tokens.Host(id); ok {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

func (s *server) handleReplicas(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !q.Has("key") {
		http.Error(w, "key required", http.StatusBadRequest)
		return
	}
	key := q.Get("key")

	t, hosts, err := s.replicas(key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, cluster.ReplicasResponse{Key: key, Token: t.String(), Replicas: hosts})
}

func rangeInfo(r token.Range, owner string) cluster.RangeInfo {
	return cluster.RangeInfo{Start: r.Start().String(), End: r.End().String(), Owner: owner}
}

func (s *server) handleRanges(w http.ResponseWriter, r *http.Request) {
	out := cluster.RangesResponse{Partitioner: s.tokens.Partitioner().Name(), Ranges: []cluster.RangeInfo{}}

	if hostID := r.URL.Query().Get("host"); hostID != "" {
		if _, ok := s.tokens.Host(hostID); !ok {
			http.Error(w, fmt.Sprintf("host %s not found", hostID), http.StatusNotFound)
			return
		}
		for _, rg := range s.tokens.HostRanges(hostID) {
			out.Ranges = append(out.Ranges, rangeInfo(rg, hostID))
		}
		writeJSON(w, out)
		return
	}

	for _, or := range s.tokens.Ranges() {
		out.Ranges = append(out.Ranges, rangeInfo(or.Range, or.Owner))
	}
	writeJSON(w, out)
}

func (s *server) parseRange(q url.Values) (token.Range, error) {
	if !q.Has("start") || !q.Has("end") {
		return token.Range{}, errors.New("start and end required")
	}
	p := s.tokens.Partitioner()
	start, err := p.Parse(q.Get("start"))
	if err != nil {
		return token.Range{}, err
	}
	end, err := p.Parse(q.Get("end"))
	if err != nil {
		return token.Range{}, err
	}
	return token.NewRange(start, end), nil
}

func (s *server) handleSplit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rg, err := s.parseRange(q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	n, err := strconv.Atoi(q.Get("n"))
	if err != nil {
		http.Error(w, "n must be an integer", http.StatusBadRequest)
		return
	}
	if n > maxSplits {
		http.Error(w, fmt.Sprintf("n must be at most %d", maxSplits), http.StatusBadRequest)
		return
	}

	parts, err := rg.SplitEvenly(n)
	switch {
	case errors.Is(err, token.ErrSplitUnsupported):
		http.Error(w, err.Error(), http.StatusNotImplemented)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	out := cluster.SplitResponse{Ranges: make([]cluster.RangeInfo, 0, len(parts))}
	for _, part := range parts {
		out.Ranges = append(out.Ranges, rangeInfo(part, ""))
	}
	writeJSON(w, out)
}

// handleScan reads every key of the ring from the hosts that own them. Each
// owned range is split and unwrapped by the scanner, and every sub-range is
// fetched from its healthiest replica.
func (s *server) handleScan(w http.ResponseWriter, r *http.Request) {
	owned := s.tokens.Ranges()
	if len(owned) == 0 {
		http.Error(w, coordinator.ErrNoHosts.Error(), http.StatusServiceUnavailable)
		return
	}
	ranges := make([]token.Range, len(owned))
	for i, or := range owned {
		ranges[i] = or.Range
	}

	plan, err := s.scanner.Plan(ranges)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var mu sync.Mutex
	results := make(map[string][]string, len(plan))
	err = s.scanner.Scan(r.Context(), ranges, func(ctx context.Context, rg token.Range) error {
		keys, err := s.scanRange(ctx, rg)
		if err != nil {
			return err
		}
		mu.Lock()
		results[rg.String()] = keys
		mu.Unlock()
		return nil
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	out := cluster.ScanResponse{Ranges: len(plan), Keys: []string{}}
	for _, rg := range plan {
		out.Keys = append(out.Keys, results[rg.String()]...)
	}
	writeJSON(w, out)
}

// scanRange asks the replicas of rg, healthy first, for its keys. Every
// token of a sub-range has the owner of its end token.
func (s *server) scanRange(ctx context.Context, rg token.Range) ([]string, error) {
	ids, err := s.tokens.ReplicasForToken(rg.End())
	if err != nil {
		return nil, err
	}

	q := url.Values{"start": {rg.Start().String()}, "end": {rg.End().String()}}
	var errs []error
	for _, h := range s.lookupHosts(coordinator.PreferHealthy(ids, s.health.IsHealthy)) {
		var resp cluster.ScanResponse
		err := cluster.GetJSON(ctx, h.Addr+"/scan?"+q.Encode(), &resp)
		if err == nil {
			return resp.Keys, nil
		}
		s.log.Warn("scan replica failed", "range", rg, "host", h.ID, "err", err)
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("no replica answered: %w", errors.Join(errs...))
}

func dataURL(h cluster.HostInfo, key string) string {
	return h.Addr + "/store/" + url.PathEscape(key)
}

// handleDataGet reads key from the first replica that answers.
func (s *server) handleDataGet(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	_, hosts, err := s.replicas(key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	for _, h := range hosts {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, dataURL(h, key), nil)
		if err != nil {
			http.Error(w, "failed to create request", http.StatusInternalServerError)
			return
		}
		resp, err := s.client.Do(req)
		if err != nil {
			s.log.Warn("read replica failed", "key", key, "host", h.ID, "err", err)
			continue
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			resp.Body.Close()
			s.log.Warn("read replica failed", "key", key, "host", h.ID, "status", resp.StatusCode)
			continue
		}

		w.Header().Set("X-Torua-Host", h.ID)
		if ct := resp.Header.Get("Content-Type"); ct != "" {
			w.Header().Set("Content-Type", ct)
		}
		w.WriteHeader(resp.StatusCode)
		_, _ = io.Copy(w, resp.Body)
		resp.Body.Close()
		return
	}
	http.Error(w, "no replica answered", http.StatusBadGateway)
}

// handleDataWrite applies a PUT or DELETE to every replica of key.
func (s *server) handleDataWrite(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		http.Error(w, "key required", http.StatusBadRequest)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxValueSize))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	_, hosts, err := s.replicas(key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	g, ctx := errgroup.WithContext(r.Context())
	for _, h := range hosts {
		g.Go(func() error {
			return s.forward(ctx, r.Method, dataURL(h, key), body)
		})
	}
	if err := g.Wait(); err != nil {
		s.log.Warn("write failed", "key", key, "method", r.Method, "err", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) forward(ctx context.Context, method, target string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: status %d", method, target, resp.StatusCode)
	}
	return nil
}
