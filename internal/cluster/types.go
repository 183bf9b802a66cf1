package cluster

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidHost is returned by HostInfo.Validate.
var ErrInvalidHost = errors.New("invalid host")

// HostInfo describes a cluster host and the ring tokens it owns, in the
// string form reported by cluster metadata.
type HostInfo struct {
	ID         string   `json:"id"`
	Addr       string   `json:"addr"`
	Datacenter string   `json:"datacenter,omitempty"`
	Tokens     []string `json:"tokens"`
}

// Validate checks that the host has a UUID host ID, an address and at least
// one token.
func (h HostInfo) Validate() error {
	if _, err := uuid.Parse(h.ID); err != nil {
		return fmt.Errorf("%w: host id %q: %v", ErrInvalidHost, h.ID, err)
	}
	if h.Addr == "" {
		return fmt.Errorf("%w: missing addr", ErrInvalidHost)
	}
	if len(h.Tokens) == 0 {
		return fmt.Errorf("%w: host %s announces no tokens", ErrInvalidHost, h.ID)
	}
	return nil
}

// HostStatus is a host together with its last health verdict.
type HostStatus struct {
	Host   HostInfo `json:"host"`
	Status string   `json:"status"`
}

type HostsResponse struct {
	Hosts []HostStatus `json:"hosts"`
}

type RegisterRequest struct {
	Host HostInfo `json:"host"`
}

// TokenResponse is the token of a partition key.
type TokenResponse struct {
	Key   string `json:"key"`
	Token string `json:"token"`
}

// ReplicasResponse lists the hosts owning a key, preferred host first.
type ReplicasResponse struct {
	Key      string     `json:"key"`
	Token    string     `json:"token"`
	Replicas []HostInfo `json:"replicas"`
}

// RangeInfo is a token range ]start, end] in string form.
type RangeInfo struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Owner string `json:"owner,omitempty"`
}

type RangesResponse struct {
	Partitioner string      `json:"partitioner"`
	Ranges      []RangeInfo `json:"ranges"`
}

// SplitResponse lists the sub-ranges of a split range, in ring order.
type SplitResponse struct {
	Ranges []RangeInfo `json:"ranges"`
}

// ScanResponse lists the keys read from a range, in ring order.
type ScanResponse struct {
	Ranges int      `json:"ranges,omitempty"`
	Keys   []string `json:"keys"`
}

// InfoResponse describes a storage node.
type InfoResponse struct {
	Host  HostInfo `json:"host"`
	Keys  int      `json:"keys"`
	Bytes int      `json:"bytes"`
}

var httpClient = &http.Client{Timeout: 5 * time.Second}

func PostJSON(ctx context.Context, url string, body any, out any) error {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %s: %d", url, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func GetJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %s: %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
