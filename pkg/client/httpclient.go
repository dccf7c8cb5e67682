package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/bluele/gcache"
	"github.com/go-resty/resty/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rycus86/bahnapi/pkg/config"
)

const (
	PlanCacheTTL    = time.Hour
	ChangesCacheTTL = 30 * time.Second
	StationCacheTTL = 12 * time.Hour

	cacheSize = 1024
	userAgent = "bahnapi/0.1.0 (https://github.com/rycus86/bahnapi)"
)

var (
	downloadCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bahnapi_http_download_count",
		Help: "Number of times an API endpoint was downloaded (uncached)",
	}, []string{"endpoint"})
	cachedCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bahnapi_http_cached_count",
		Help: "Number of times an API endpoint returned a cached response",
	}, []string{"endpoint"})
	errorCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bahnapi_http_error_count",
		Help: "Number of times an API endpoint returned an error",
	}, []string{"endpoint"})
	requestSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bahnapi_http_request_seconds",
		Help:    "Time spent on uncached API requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
)

func init() {
	prometheus.MustRegister(downloadCount, cachedCount, errorCount, requestSeconds)
}

type HttpClient struct {
	rest   *resty.Client
	cache  gcache.Cache
	logger *slog.Logger
}

// NewHttpClient returns ErrAuthentication when the settings carry no credentials.
func NewHttpClient(settings config.Settings) (*HttpClient, error) {
	if !settings.HasCredentials() {
		return nil, fmt.Errorf("%w: DB client id and API key must be configured or set via %s / %s",
			ErrAuthentication, config.ClientIDEnv, config.APIKeyEnv)
	}

	baseURL := settings.BaseURL
	if baseURL == "" {
		baseURL = config.DefaultBaseURL
	}

	timeout := settings.Timeout
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}

	rest := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetTransport(newTransport(settings.ClientID, settings.APIKey))

	return &HttpClient{
		rest:   rest,
		cache:  gcache.New(cacheSize).LRU().Build(),
		logger: slog.Default().With("component", "client"),
	}, nil
}

func (c *HttpClient) FetchPlan(ctx context.Context, eva, date, hour string) ([]byte, error) {
	path := fmt.Sprintf("/plan/%s/%s/%s", url.PathEscape(eva), date, hour)
	return c.cachedGet(ctx, "plan", path, PlanCacheTTL)
}

func (c *HttpClient) FetchFullChanges(ctx context.Context, eva string) ([]byte, error) {
	return c.cachedGet(ctx, "fchg", "/fchg/"+url.PathEscape(eva), ChangesCacheTTL)
}

func (c *HttpClient) FetchRecentChanges(ctx context.Context, eva string) ([]byte, error) {
	return c.cachedGet(ctx, "rchg", "/rchg/"+url.PathEscape(eva), ChangesCacheTTL)
}

func (c *HttpClient) FetchStation(ctx context.Context, pattern string) ([]byte, error) {
	return c.cachedGet(ctx, "station", "/station/"+url.PathEscape(pattern), StationCacheTTL)
}

// Purge drops every cached response.
func (c *HttpClient) Purge() {
	c.cache.Purge()
}

func (c *HttpClient) cachedGet(ctx context.Context, endpoint, path string, ttl time.Duration) ([]byte, error) {
	if cached, err := c.cache.Get(path); err == nil {
		cachedCount.With(prometheus.Labels{"endpoint": endpoint}).Inc()
		c.logger.Debug("serving cached response", "path", path)
		return cached.([]byte), nil
	}

	payload, err := c.get(ctx, endpoint, path)
	if err != nil {
		errorCount.With(prometheus.Labels{"endpoint": endpoint}).Inc()
		c.logger.Warn("request failed", "path", path, "error", err)
		return nil, err
	}

	if err := c.cache.SetWithExpire(path, payload, ttl); err != nil {
		c.logger.Warn("failed to cache response", "path", path, "error", err)
	}

	downloadCount.With(prometheus.Labels{"endpoint": endpoint}).Inc()
	c.logger.Debug("downloaded response", "path", path, "bytes", len(payload))

	return payload, nil
}

func (c *HttpClient) get(ctx context.Context, endpoint, path string) ([]byte, error) {
	start := time.Now()
	defer func() { requestSeconds.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	response, err := c.rest.R().SetContext(ctx).Get(path)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: GET %s: %v", ErrTimeout, path, err)
		}
		return nil, fmt.Errorf("%w: GET %s: %v", ErrBahnAPI, path, err)
	}

	if response.StatusCode() >= 400 {
		return nil, newStatusError(response.StatusCode(), response.Body())
	}

	return response.Body(), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

type apiTransport struct {
	ClientID  string
	ApiKey    string
	UserAgent string

	next http.RoundTripper
}

func (t *apiTransport) RoundTrip(request *http.Request) (*http.Response, error) {
	// RoundTrippers must not modify the caller's request
	request = request.Clone(request.Context())

	request.Header.Set("User-Agent", t.UserAgent)
	request.Header.Set("Accept", "application/xml")
	request.Header.Set("DB-Client-Id", t.ClientID)
	request.Header.Set("DB-Api-Key", t.ApiKey)

	return t.next.RoundTrip(request)
}

func newTransport(clientID, apiKey string) http.RoundTripper {
	return &apiTransport{
		ClientID:  clientID,
		ApiKey:    apiKey,
		UserAgent: userAgent,
		next:      http.DefaultTransport,
	}
}
