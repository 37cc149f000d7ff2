// Package lemmy is a small client for the parts of the Lemmy v3 HTTP API the
// community cache needs.
package lemmy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MrSnakeDoc/lemcache/internal/domain"
	"github.com/MrSnakeDoc/lemcache/internal/utils"
)

// API is what the sync actions need from an instance.
type API interface {
	GetCommunity(ctx context.Context, p GetCommunityParams) (*domain.GetCommunityResponse, error)
	FollowCommunity(ctx context.Context, p FollowCommunityParams) (*domain.CommunityResponse, error)
	BlockCommunity(ctx context.Context, p BlockCommunityParams) (*domain.BlockCommunityResponse, error)
	ListCommunities(ctx context.Context, p ListCommunitiesParams) (*domain.ListCommunitiesResponse, error)
	GetSite(ctx context.Context) (*domain.GetSiteResponse, error)
}

type GetCommunityParams struct {
	ID   int64         // used when Name is empty
	Name domain.Handle // "name@instance"
}

type FollowCommunityParams struct {
	CommunityID int64 `json:"community_id"`
	Follow      bool  `json:"follow"`
}

type BlockCommunityParams struct {
	CommunityID int64 `json:"community_id"`
	Block       bool  `json:"block"`
}

type ListCommunitiesParams struct {
	Type  domain.ListingType
	Sort  domain.SortType
	Limit int
	Page  int
}

// Options configures an HTTPClient.
type Options struct {
	JWT       string        // bearer token, empty for anonymous requests
	Timeout   time.Duration // per-request timeout (default 10s)
	UserAgent string
	HTTP      *http.Client // optional, overrides Timeout
}

// HTTPClient talks to one instance over HTTPS.
type HTTPClient struct {
	base      *url.URL
	jwt       string
	userAgent string
	http      *http.Client
}

var _ API = (*HTTPClient)(nil)

// New builds a client for instance, given either as a bare host
// ("lemmy.world") or as a base URL ("http://localhost:8536").
func New(instance string, opts Options) (*HTTPClient, error) {
	base, err := baseURL(instance)
	if err != nil {
		return nil, err
	}

	hc := opts.HTTP
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}

	ua := opts.UserAgent
	if ua == "" {
		ua = "lemcache"
	}

	return &HTTPClient{
		base:      base,
		jwt:       opts.JWT,
		userAgent: ua,
		http:      hc,
	}, nil
}

func baseURL(instance string) (*url.URL, error) {
	instance = strings.TrimSpace(instance)
	if instance == "" {
		return nil, errors.New("lemmy: empty instance")
	}
	if !strings.Contains(instance, "://") {
		instance = "https://" + instance
	}
	u, err := url.Parse(instance)
	if err != nil {
		return nil, fmt.Errorf("lemmy: invalid instance %q: %w", instance, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("lemmy: invalid instance %q: no host", instance)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/api/v3"
	return u, nil
}

// Instance returns the host the client talks to.
func (c *HTTPClient) Instance() string {
	return c.base.Hostname()
}

func (c *HTTPClient) GetCommunity(ctx context.Context, p GetCommunityParams) (*domain.GetCommunityResponse, error) {
	q := url.Values{}
	switch {
	case p.Name != "":
		q.Set("name", p.Name.String())
	case p.ID != 0:
		q.Set("id", strconv.FormatInt(p.ID, 10))
	default:
		return nil, errors.New("lemmy: get community needs a name or an id")
	}

	var out domain.GetCommunityResponse
	if err := c.do(ctx, http.MethodGet, "/community", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) FollowCommunity(ctx context.Context, p FollowCommunityParams) (*domain.CommunityResponse, error) {
	var out domain.CommunityResponse
	if err := c.do(ctx, http.MethodPost, "/community/follow", nil, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) BlockCommunity(ctx context.Context, p BlockCommunityParams) (*domain.BlockCommunityResponse, error) {
	var out domain.BlockCommunityResponse
	if err := c.do(ctx, http.MethodPost, "/community/block", nil, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) ListCommunities(ctx context.Context, p ListCommunitiesParams) (*domain.ListCommunitiesResponse, error) {
	q := url.Values{}
	if p.Type != "" {
		q.Set("type_", string(p.Type))
	}
	if p.Sort != "" {
		q.Set("sort", string(p.Sort))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}

	var out domain.ListCommunitiesResponse
	if err := c.do(ctx, http.MethodGet, "/community/list", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) GetSite(ctx context.Context) (*domain.GetSiteResponse, error) {
	var out domain.GetSiteResponse
	if err := c.do(ctx, http.MethodGet, "/site", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do sends one request and decodes a 2xx JSON body into out.
func (c *HTTPClient) do(ctx context.Context, method, path string, q url.Values, body, out any) error {
	u := *c.base
	u.Path += path
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("lemmy %s %s: encode body: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("lemmy %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.jwt != "" {
		req.Header.Set("Authorization", "Bearer "+c.jwt)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("lemmy %s %s: %w", method, path, err)
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(method, path, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("lemmy %s %s: decode response: %w", method, path, err)
	}
	return nil
}
