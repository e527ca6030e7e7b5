package searchclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/matst80/slask-rulecontext/pkg/cache"
	"github.com/matst80/slask-rulecontext/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	noRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "searchclient_requests_total",
		Help: "The total number of search requests sent to the backend",
	})
	noCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "searchclient_cache_hits_total",
		Help: "The total number of searches answered from cache",
	})
)

// Client runs searches against an HTTP search endpoint.
type Client struct {
	Endpoint string
	HTTP     *http.Client
	Cache    *cache.Cache
	CacheTTL time.Duration
	Logger   *zap.Logger
}

func New(endpoint string) *Client {
	return &Client{
		Endpoint: endpoint,
		HTTP:     &http.Client{Timeout: 10 * time.Second},
		CacheTTL: time.Minute,
		Logger:   zap.NewNop(),
	}
}

func (c *Client) url(state *types.SearchState) string {
	return c.Endpoint + "?" + state.Values().Encode()
}

func (c *Client) Search(ctx context.Context, state *types.SearchState) (*types.SearchResults, error) {
	url := c.url(state)
	if c.Cache == nil {
		return c.fetch(ctx, url)
	}
	var result types.SearchResults
	var fetchErr error
	hit, err := cache.NewHelper[types.SearchResults](c.Cache).Handle(ctx, url, &result, func() (types.SearchResults, error) {
		res, err := c.fetch(ctx, url)
		if err != nil {
			fetchErr = err
			return types.SearchResults{}, err
		}
		return *res, nil
	}, c.CacheTTL)
	if hit {
		noCacheHits.Inc()
		return &result, nil
	}
	if fetchErr != nil {
		return nil, fetchErr
	}
	if err != nil {
		c.Logger.Warn("unable to cache search result", zap.Error(err))
	}
	return &result, nil
}

func (c *Client) fetch(ctx context.Context, url string) (*types.SearchResults, error) {
	noRequests.Inc()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("searchclient: %s returned %d: %s", c.Endpoint, res.StatusCode, body)
	}
	var result types.SearchResults
	if err := sonic.ConfigDefault.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("searchclient: decoding response: %w", err)
	}
	c.Logger.Debug("search", zap.String("url", url), zap.Int("hits", result.NbHits))
	return &result, nil
}
