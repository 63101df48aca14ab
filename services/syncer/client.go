// Package syncer keeps the desktop client usable without a connection: requests go
// through a local cache and mutations are queued until the API is reachable again.
package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/offline"
)

const (
	metaToken    = "token"
	metaLastSync = "last_sync"
)

var (
	// ErrQueued is returned with the optimistic Response of a mutation made offline.
	ErrQueued = errors.New("offline: change queued")
	// ErrOffline is returned when the API is unreachable and nothing local can serve the request.
	ErrOffline = errors.New("offline: api unreachable")
)

// APIError is a non 2xx answer of the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

func IsAPIError(err error) (*APIError, bool) {
	apiErr, ok := errors.Cause(err).(*APIError)
	return apiErr, ok
}

type Response struct {
	Status    int             `json:"status"`
	Body      json.RawMessage `json:"body,omitempty"`
	FromCache bool            `json:"from_cache"`
}

// Client talks to the API on behalf of the desktop app.
type Client struct {
	baseURL      string
	subdomain    string
	tenantHeader string
	httpClient   *http.Client
	store        offline.Store
	policies     *offline.PolicyTable
	logger       core.Logger

	mu     sync.RWMutex
	online bool
	token  string
}

func NewClient(conf *core.Config, store offline.Store, policies *offline.PolicyTable, logger core.Logger) *Client {
	return &Client{
		baseURL:      strings.TrimRight(conf.Offline.APIBaseURL, "/"),
		subdomain:    conf.Offline.Subdomain,
		tenantHeader: conf.Server.TenantHeader,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		store:        store,
		policies:     policies,
		logger:       logger,
		online:       true,
	}
}

func (c *Client) Online() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.online
}

func (c *Client) setOnline(online bool) {
	c.mu.Lock()
	changed := c.online != online
	c.online = online
	c.mu.Unlock()
	if changed {
		c.logger.Info(fmt.Sprintf("syncer: online=%t", online))
	}
}

// SetToken sets the bearer token of the next requests and keeps it for the next sessions.
func (c *Client) SetToken(ctx context.Context, token string) error {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	return errors.Wrap(c.store.SetMeta(ctx, metaToken, token), "saving token")
}

// LoadToken restores the token saved by SetToken.
func (c *Client) LoadToken(ctx context.Context) error {
	token, err := c.store.Meta(ctx, metaToken)
	if err != nil {
		return errors.Wrap(err, "loading token")
	}
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	return nil
}

// send performs one request. A transport failure is returned as is; a non 2xx status
// comes back as a Response and an *APIError.
func (c *Client) send(ctx context.Context, method, path string, body []byte) (Response, error) {
	var rdr io.Reader
	if len(body) > 0 {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return Response{}, errors.Wrap(err, "building request")
	}
	req.Header.Set("Accept", "application/json")
	if rdr != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.subdomain != "" && c.tenantHeader != "" {
		req.Header.Set(c.tenantHeader, c.subdomain)
	}
	c.mu.RLock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.RUnlock()

	res, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return Response{}, err
	}
	resp := Response{Status: res.StatusCode}
	if json.Valid(data) {
		resp.Body = data
	}
	if res.StatusCode >= http.StatusBadRequest {
		var msg struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(data, &msg)
		if msg.Message == "" {
			msg.Message = http.StatusText(res.StatusCode)
		}
		return resp, &APIError{Status: res.StatusCode, Message: msg.Message}
	}
	return resp, nil
}

// unreachable tells transport failures apart from API answers and cancellations.
func unreachable(ctx context.Context, err error) bool {
	if err == nil || ctx.Err() != nil {
		return false
	}
	_, isAPI := IsAPIError(err)
	return !isAPI
}

func recordPath(path string) string {
	resource, id := offline.Resource(path)
	if id == "" {
		return ""
	}
	return "/api/" + resource + "/" + id
}

// Do sends a request through the cache. Online, successful answers refresh the cache.
// Offline, cached GETs are served from the local store and mutations of queueable
// endpoints are applied to the cache and queued, with ErrQueued.
func (c *Client) Do(ctx context.Context, method, path string, body interface{}) (Response, error) {
	method = strings.ToUpper(method)
	var data []byte
	if body != nil {
		var err error
		if raw, ok := body.(json.RawMessage); ok {
			data = raw
		} else if data, err = json.Marshal(body); err != nil {
			return Response{}, errors.Wrap(err, "encoding body")
		}
	}
	policy := c.policies.Lookup(method, path)

	res, err := c.send(ctx, method, path, data)
	if unreachable(ctx, err) {
		c.logger.Debug(fmt.Sprintf("syncer: %s %s: %v", method, path, err))
		c.setOnline(false)
		return c.doOffline(ctx, method, path, data, policy)
	}
	if err != nil {
		return res, err
	}
	c.setOnline(true)
	if policy.Cacheable {
		if err = c.cacheResponse(ctx, method, path, res); err != nil {
			c.logger.Error(fmt.Sprintf("syncer: caching %s: %v", path, err), err)
		}
	}
	return res, nil
}

// cacheResponse stores a successful answer under the paths it is readable from.
func (c *Client) cacheResponse(ctx context.Context, method, path string, res Response) error {
	resource, _ := offline.Resource(path)
	now := core.Now()
	switch method {
	case http.MethodGet:
		if err := c.store.PutCache(ctx, offline.CacheEntry{Path: path, Resource: resource, Body: res.Body, UpdatedAt: now}); err != nil {
			return err
		}
		return c.cacheRecords(ctx, resource, res.Body)
	case http.MethodDelete:
		if rp := recordPath(path); rp == path {
			return c.store.DeleteCache(ctx, rp)
		}
		return nil
	default:
		return c.cacheRecords(ctx, resource, res.Body)
	}
}

// cacheRecords caches each object of body carrying an id under its record path.
func (c *Client) cacheRecords(ctx context.Context, resource string, body json.RawMessage) error {
	if len(body) == 0 || resource == "" {
		return nil
	}
	var items []json.RawMessage
	if body[0] == '[' {
		if err := json.Unmarshal(body, &items); err != nil {
			return nil
		}
	} else {
		items = []json.RawMessage{body}
	}
	now := core.Now()
	for _, item := range items {
		var rec struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(item, &rec); err != nil || rec.ID == "" {
			continue
		}
		entry := offline.CacheEntry{Path: "/api/" + resource + "/" + rec.ID, Resource: resource, Body: item, UpdatedAt: now}
		if err := c.store.PutCache(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) doOffline(ctx context.Context, method, path string, data []byte, policy offline.Policy) (Response, error) {
	if method == http.MethodGet {
		if !policy.Cacheable {
			return Response{}, ErrOffline
		}
		entry, err := c.store.GetCache(ctx, path)
		if err != nil {
			if core.IsNotFound(err) {
				return Response{}, ErrOffline
			}
			return Response{}, errors.Wrap(err, "reading cache")
		}
		return Response{Status: http.StatusOK, Body: entry.Body, FromCache: true}, nil
	}

	if !policy.Queue {
		return Response{}, ErrOffline
	}
	resource, id := offline.Resource(path)
	change := offline.Change{Method: method, Path: path, Resource: resource, ResourceID: id, Body: data}

	rp := recordPath(path)
	var base map[string]interface{}
	if rp != "" {
		entry, err := c.store.GetCache(ctx, rp)
		switch {
		case err == nil:
			change.Base = entry.Body
			if base, err = offline.Decode(entry.Body); err != nil {
				return Response{}, errors.Wrap(err, "decoding cached record")
			}
		case !core.IsNotFound(err):
			return Response{}, errors.Wrap(err, "reading cache")
		}
	}

	if _, err := c.store.Enqueue(ctx, change); err != nil {
		return Response{}, errors.Wrap(err, "queuing change")
	}

	res := Response{Status: http.StatusAccepted, Body: data}
	if rp == "" {
		return res, ErrQueued
	}
	if method == http.MethodDelete && rp == path {
		if err := c.store.DeleteCache(ctx, rp); err != nil {
			return res, errors.Wrap(err, "updating cache")
		}
		return Response{Status: http.StatusAccepted}, ErrQueued
	}
	if base != nil && (method == http.MethodPut || method == http.MethodPatch) {
		local, err := offline.Decode(data)
		if err != nil {
			return res, ErrQueued // the server will reject it on sync
		}
		for k, v := range local {
			base[k] = v
		}
		optimistic, err := json.Marshal(base)
		if err != nil {
			return res, errors.Wrap(err, "encoding record")
		}
		entry := offline.CacheEntry{Path: rp, Resource: resource, Body: optimistic, UpdatedAt: core.Now()}
		if err = c.store.PutCache(ctx, entry); err != nil {
			return res, errors.Wrap(err, "updating cache")
		}
		res.Body = optimistic
	}
	return res, ErrQueued
}

// Ping checks the API is reachable.
func (c *Client) Ping(ctx context.Context) bool {
	_, err := c.send(ctx, http.MethodGet, "/health", nil)
	if ctx.Err() != nil {
		return c.Online()
	}
	online := !unreachable(ctx, err)
	c.setOnline(online)
	return online
}
