package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dreamware/torua/internal/cluster"
)

// HealthStatus is the last known state of a host.
type HealthStatus string

const (
	StatusUnknown   HealthStatus = "unknown"
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// HostHealth tracks the probes of one host.
type HostHealth struct {
	LastCheck        time.Time    `json:"last_check"`
	LastHealthy      time.Time    `json:"last_healthy"`
	HostID           string       `json:"host_id"`
	Status           HealthStatus `json:"status"`
	ConsecutiveFails int          `json:"consecutive_fails"`
}

// CheckFunc probes a host address and returns nil when the host is up.
type CheckFunc func(ctx context.Context, addr string) error

// HealthOptions configures a HealthMonitor. Zero fields take defaults.
type HealthOptions struct {
	Logger      *slog.Logger
	Interval    time.Duration
	Timeout     time.Duration
	MaxFailures int
}

const (
	defaultHealthInterval = 5 * time.Second
	defaultHealthTimeout  = 2 * time.Second
	defaultMaxFailures    = 3
)

// HealthMonitor periodically probes every host of the token map. Replica
// lists are reordered with its IsHealthy verdict so that requests go to live
// hosts first; hosts stay on the ring while down because ownership does not
// change when a host is unreachable.
//
// All methods are safe for concurrent use.
type HealthMonitor struct {
	hosts     map[string]*HostHealth
	client    *http.Client
	checkFunc CheckFunc
	onDown    func(hostID string)
	log       *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	wg        sync.WaitGroup
	stopped   bool

	interval    time.Duration
	timeout     time.Duration
	maxFailures int
}

// NewHealthMonitor creates a monitor. Call Start to begin probing.
//
// Example:
//
//	monitor := NewHealthMonitor(HealthOptions{Interval: 5 * time.Second, Logger: logger})
//	go monitor.Start(ctx, tokenMap.Hosts)
//	defer monitor.Stop()
func NewHealthMonitor(opts HealthOptions) *HealthMonitor {
	if opts.Interval <= 0 {
		opts.Interval = defaultHealthInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultHealthTimeout
	}
	if opts.MaxFailures <= 0 {
		opts.MaxFailures = defaultMaxFailures
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &HealthMonitor{
		hosts:       make(map[string]*HostHealth),
		client:      &http.Client{Timeout: opts.Timeout},
		log:         opts.Logger.With("component", "health"),
		ctx:         ctx,
		cancel:      cancel,
		interval:    opts.Interval,
		timeout:     opts.Timeout,
		maxFailures: opts.MaxFailures,
	}
}

// OnDown registers a callback run, on its own goroutine, when a host crosses
// the failure threshold.
func (h *HealthMonitor) OnDown(fn func(hostID string)) {
	h.mu.Lock()
	h.onDown = fn
	h.mu.Unlock()
}

// SetCheckFunction replaces the HTTP probe.
func (h *HealthMonitor) SetCheckFunction(fn CheckFunc) {
	h.mu.Lock()
	h.checkFunc = fn
	h.mu.Unlock()
}

// Start probes the hosts returned by provider once immediately and then on
// every tick. It blocks until ctx is done or Stop is called, and returns at
// once if Stop has already been called.
func (h *HealthMonitor) Start(ctx context.Context, provider func() []cluster.HostInfo) {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.wg.Add(1)
	h.mu.Unlock()
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.log.Info("health monitor started", "interval", h.interval, "max_failures", h.maxFailures)
	h.checkAll(ctx, provider())

	for {
		select {
		case <-ticker.C:
			h.checkAll(ctx, provider())
		case <-ctx.Done():
			h.log.Info("health monitor stopping", "reason", ctx.Err())
			return
		case <-h.ctx.Done():
			h.log.Info("health monitor stopping", "reason", "stopped")
			return
		}
	}
}

// Stop cancels Start and waits for it to return.
func (h *HealthMonitor) Stop() {
	h.mu.Lock()
	h.stopped = true
	h.mu.Unlock()
	h.cancel()
	h.wg.Wait()
}

// checkAll probes hosts and forgets hosts no longer on the ring.
func (h *HealthMonitor) checkAll(ctx context.Context, hosts []cluster.HostInfo) {
	current := make(map[string]struct{}, len(hosts))
	for _, host := range hosts {
		current[host.ID] = struct{}{}
		h.check(ctx, host)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id := range h.hosts {
		if _, ok := current[id]; !ok {
			delete(h.hosts, id)
			h.log.Info("host no longer monitored", "host", id)
		}
	}
}

func (h *HealthMonitor) check(ctx context.Context, host cluster.HostInfo) {
	h.mu.Lock()
	state, ok := h.hosts[host.ID]
	if !ok {
		now := time.Now()
		state = &HostHealth{HostID: host.ID, Status: StatusUnknown, LastCheck: now, LastHealthy: now}
		h.hosts[host.ID] = state
	}
	probe := h.checkFunc
	h.mu.Unlock()

	if probe == nil {
		probe = h.httpCheck
	}

	probeCtx, cancel := context.WithTimeout(ctx, h.timeout)
	err := probe(probeCtx, host.Addr)
	cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	state.LastCheck = time.Now()
	if err == nil {
		if state.Status == StatusUnhealthy {
			h.log.Info("host recovered", "host", host.ID, "addr", host.Addr)
		}
		state.Status = StatusHealthy
		state.ConsecutiveFails = 0
		state.LastHealthy = state.LastCheck
		return
	}

	state.ConsecutiveFails++
	h.log.Warn("health check failed",
		"host", host.ID, "addr", host.Addr,
		"attempt", state.ConsecutiveFails, "max", h.maxFailures, "err", err)

	if state.ConsecutiveFails < h.maxFailures || state.Status == StatusUnhealthy {
		return
	}
	state.Status = StatusUnhealthy
	h.log.Error("host marked unhealthy", "host", host.ID, "failures", state.ConsecutiveFails)
	if h.onDown != nil {
		go h.onDown(host.ID)
	}
}

// httpCheck issues GET <addr>/health. Bare host:port addresses are treated
// as http.
func (h *HealthMonitor) httpCheck(ctx context.Context, addr string) error {
	url := addr
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "http://" + url
	}
	if !strings.HasSuffix(url, "/health") {
		url = strings.TrimRight(url, "/") + "/health"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("health request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health status %d", resp.StatusCode)
	}
	return nil
}

// Health returns a copy of the state of hostID, or nil if it has never been
// probed.
func (h *HealthMonitor) Health(hostID string) *HostHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()

	state, ok := h.hosts[hostID]
	if !ok {
		return nil
	}
	cp := *state
	return &cp
}

// AllHealth returns a copy of every tracked host's state.
func (h *HealthMonitor) AllHealth() map[string]HostHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[string]HostHealth, len(h.hosts))
	for id, state := range h.hosts {
		out[id] = *state
	}
	return out
}

// IsHealthy reports whether the last probes of hostID succeeded. Hosts that
// are unknown or still below the failure threshold count as healthy, so a
// fresh ring is usable before the first tick.
func (h *HealthMonitor) IsHealthy(hostID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	state, ok := h.hosts[hostID]
	return !ok || state.Status != StatusUnhealthy
}
