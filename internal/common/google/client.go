// Package google wraps the Places, Routes and Weather REST APIs used by the
// assistant's tools.
package google

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	httpclient "versailles-assistant/internal/common/http"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sony/gobreaker"
)

var (
	ErrNoPlaces           = errors.New("NO_PLACES_FOUND")
	ErrNoRoute            = errors.New("NO_ROUTE_FOUND")
	ErrInsufficientPlaces = errors.New("INSUFFICIENT_PLACES")
	ErrInvalidDays        = errors.New("INVALID_FORECAST_DAYS")
	ErrUpstream           = errors.New("GOOGLE_API_ERROR")
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

type Config struct {
	APIKey     string
	PlacesURL  string
	RoutesURL  string
	WeatherURL string
	Latitude   float64
	Longitude  float64
	CacheSize  int
	CacheTTL   time.Duration
}

// Client is safe for concurrent use. Place lookups are memoized so route
// computations that revisit the same names do not re-query Places.
type Client struct {
	config  Config
	http    *httpclient.Client
	breaker *gobreaker.CircuitBreaker
	places  *expirable.LRU[string, Place]
	logger  Logger
}

func NewClient(cfg Config, http *httpclient.Client, log Logger) *Client {
	size := cfg.CacheSize
	if size <= 0 {
		size = 256
	}

	return &Client{
		config: cfg,
		http:   http,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "google",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				log.Warn("circuit breaker state change", map[string]interface{}{
					"breaker": name,
					"from":    from.String(),
					"to":      to.String(),
				})
			},
		}),
		places: expirable.NewLRU[string, Place](size, nil, cfg.CacheTTL),
		logger: log,
	}
}

func (c *Client) endpoint(base, path string) string {
	return strings.TrimRight(base, "/") + path
}

func (c *Client) post(ctx context.Context, url, fieldMask string, payload interface{}) ([]byte, error) {
	headers := map[string]string{
		"X-Goog-Api-Key":   c.config.APIKey,
		"X-Goog-FieldMask": fieldMask,
	}
	return c.call(func() ([]byte, error) {
		return c.http.PostJSON(ctx, url, headers, payload)
	})
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	return c.call(func() ([]byte, error) {
		return c.http.GetBytes(ctx, url, nil)
	})
}

func (c *Client) call(fn func() ([]byte, error)) ([]byte, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return result.([]byte), nil
}
