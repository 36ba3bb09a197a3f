// Package directory pulls member badge records from the membership server
// into the local tag store.
package directory

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"badger/store"
	"badger/tag"
)

// Config holds membership server settings. An empty URL disables syncing.
type Config struct {
	URL      string `yaml:"url"`
	Resource string `yaml:"resource"`
	CAFile   string `yaml:"ca_file"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Entry is one member as served by the membership API.
type Entry struct {
	RawTagID string `json:"raw_tag_id"`
	Member   string `json:"member"`
	Nickname string `json:"nickname"`
	Plan     string `json:"plan"`
	Allowed  string `json:"allowed"`
}

// Record converts e to a store record. The raw tag id is the decimal form
// of a 4-byte UID.
func (e Entry) Record() (store.Record, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(e.RawTagID), 10, 32)
	if err != nil {
		return store.Record{}, fmt.Errorf("raw tag id %q: %w", e.RawTagID, err)
	}

	name := e.Nickname
	if name == "" {
		name = e.Member
	}
	return store.Record{Tag: tag.FromUint32(uint32(n)), Name: name, Comment: e.Plan}, nil
}

// Client fetches the member list.
type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
}

// New creates a Client. Returns nil if no URL is configured.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	transport := &http.Transport{}
	if cfg.CAFile != "" {
		caCert, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read CA cert: %w", err)
		}
		pool := x509.NewCertPool()
		pool.AppendCertsFromPEM(caCert)
		transport.TLSClientConfig = &tls.Config{RootCAs: pool}
	}

	return &Client{
		cfg:  cfg,
		http: &http.Client{Transport: transport, Timeout: 30 * time.Second},
		log:  slog.Default().With("component", "directory"),
	}, nil
}

// Fetch downloads the member list.
func (c *Client) Fetch(ctx context.Context) ([]Entry, error) {
	url := fmt.Sprintf("%s/api/v1/resources/%s/acl", strings.TrimRight(c.cfg.URL, "/"), c.cfg.Resource)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.cfg.Username != "" {
		req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: %s", url, resp.Status)
	}

	var items []Entry
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode JSON: %w", err)
	}
	return items, nil
}

// Sync fetches the member list and upserts every usable entry into s.
// Returns the number of records written.
func (c *Client) Sync(ctx context.Context, s store.Store) (int, error) {
	items, err := c.Fetch(ctx)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, item := range items {
		rec, err := item.Record()
		if err != nil {
			c.log.Debug("skip entry", "member", item.Member, "error", err)
			continue
		}
		if err := s.Upsert(rec); err != nil {
			return n, fmt.Errorf("store %s: %w", rec.Tag, err)
		}
		n++
	}
	c.log.Info("synced", "records", n, "entries", len(items))
	return n, nil
}
