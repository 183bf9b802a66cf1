// Command node runs a Torua storage node. It owns a set of ring tokens,
// announces them to the coordinator and serves the keys that fall in its
// ranges.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/dreamware/torua/internal/cluster"
	"github.com/dreamware/torua/internal/config"
	"github.com/dreamware/torua/internal/storage"
	"github.com/dreamware/torua/internal/token"
)

const maxValueSize = 1 << 20

// Node holds one host's data.
type Node struct {
	info        cluster.HostInfo
	partitioner token.Partitioner
	store       *storage.MemoryStore
	log         *slog.Logger
}

// NewNode creates a node for info. info.Tokens must parse with p.
func NewNode(info cluster.HostInfo, p token.Partitioner, logger *slog.Logger) *Node {
	return &Node{
		info:        info,
		partitioner: p,
		store:       storage.NewMemoryStore(p),
		log:         logger.With("host", info.ID),
	}
}

// deriveTokens places a host on the ring by hashing "<hostID>/<i>", so a
// host keeps its tokens for as long as it keeps its ID.
func deriveTokens(p token.Partitioner, hostID string, n int) []string {
	seen := make(map[string]struct{}, n)
	out := make([]string, 0, n)
	for i := 0; len(out) < n; i++ {
		s := p.Hash([]byte(fmt.Sprintf("%s/%d", hostID, i))).String()
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func (n *Node) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /info", n.handleInfo)
	mux.HandleFunc("GET /scan", n.handleScan)
	mux.HandleFunc("GET /store/{key...}", n.handleGet)
	mux.HandleFunc("PUT /store/{key...}", n.handlePut)
	mux.HandleFunc("DELETE /store/{key...}", n.handleDelete)
	return mux
}

func (n *Node) handleGet(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	value, err := n.store.Get(key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		http.Error(w, "key not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := w.Write(value); err != nil {
		n.log.Warn("write response", "key", key, "err", err)
	}
}

func (n *Node) handlePut(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		http.Error(w, "key required", http.StatusBadRequest)
		return
	}
	value, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxValueSize))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if err := n.store.Put(key, value); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	n.log.Debug("put", "key", key, "token", n.store.Token(key), "bytes", len(value))
	w.WriteHeader(http.StatusNoContent)
}

func (n *Node) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := n.store.Delete(r.PathValue("key")); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleScan answers GET /scan?start=..&end=.. with the keys of ]start, end].
func (n *Node) handleScan(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !q.Has("start") || !q.Has("end") {
		http.Error(w, "start and end required", http.StatusBadRequest)
		return
	}
	start, err := n.partitioner.Parse(q.Get("start"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	end, err := n.partitioner.Parse(q.Get("end"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	keys := n.store.ScanRange(token.NewRange(start, end))
	writeJSON(w, cluster.ScanResponse{Keys: keys})
}

func (n *Node) handleInfo(w http.ResponseWriter, _ *http.Request) {
	stats := n.store.Stats()
	writeJSON(w, cluster.InfoResponse{Host: n.info, Keys: stats.Keys, Bytes: stats.Bytes})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// register announces the node to the coordinator, retrying while it starts.
func register(ctx context.Context, coord string, info cluster.HostInfo, attempts int, wait time.Duration, logger *slog.Logger) error {
	body := cluster.RegisterRequest{Host: info}
	var lastErr error
	for i := 1; i <= attempts; i++ {
		lastErr = cluster.PostJSON(ctx, coord+"/register", body, nil)
		if lastErr == nil {
			logger.Info("registered with coordinator", "coordinator", coord, "tokens", len(info.Tokens))
			return nil
		}
		logger.Warn("register failed", "attempt", i, "err", lastErr)
		if i == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("register with %s: %w", coord, lastErr)
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	p, err := cfg.Ring.ResolvePartitioner()
	if err != nil {
		return err
	}

	id := cfg.Node.ID
	if id == "" {
		id = uuid.NewString()
		logger.Warn("node.id not set, tokens will change on restart", "id", id)
	}
	info := cluster.HostInfo{
		ID:         id,
		Addr:       cfg.Node.Addr,
		Datacenter: cfg.Node.Datacenter,
		Tokens:     deriveTokens(p, id, cfg.Node.NumTokens),
	}
	node := NewNode(info, p, logger)

	srv := &http.Server{
		Addr:              cfg.Node.Listen,
		Handler:           node.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("node listening", "listen", cfg.Node.Listen, "addr", info.Addr, "partitioner", p.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if err := register(ctx, cfg.Node.Coordinator, info, 10, 400*time.Millisecond, logger); err != nil {
		_ = srv.Close()
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			logger.Info("node stopped before registering")
			return nil
		}
		return err
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("node stopped")
	return nil
}

func main() {
	configPath := flag.String("config", os.Getenv("TORUA_CONFIG"), "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	logger, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		slog.Error("logger", "err", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("node failed", "err", err)
		os.Exit(1)
	}
}
