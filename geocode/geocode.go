// Package geocode resolves free-form addresses to coordinates for the query
// entry points. Routing itself never geocodes.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/mohamedthameursassi/saferoute/routeerr"
)

// Place is a geocoding result.
type Place struct {
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	DisplayName string  `json:"displayName,omitempty"`
}

// Geocoder resolves an address to a single place.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (Place, error)
}

type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration

	// CacheSize and CacheTTL size the result cache. CacheSize <= 0 disables it.
	CacheSize int
	CacheTTL  time.Duration

	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Nominatim queries an OpenStreetMap Nominatim server.
type Nominatim struct {
	base    *url.URL
	agent   string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	cache   *expirable.LRU[string, Place]
	logger  *zap.Logger
}

func NewNominatim(cfg Config) (*Nominatim, error) {
	if cfg.BaseURL == "" {
		return nil, routeerr.Errorf(routeerr.InvalidInput, routeerr.StageGeocode, "new geocoder", "base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, routeerr.New(routeerr.InvalidInput, routeerr.StageGeocode, "new geocoder", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	agent := cfg.UserAgent
	if agent == "" {
		agent = "saferoute"
	}

	n := &Nominatim{base: base, agent: agent, client: client, logger: logger}
	n.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "nominatim",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("geocoder circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		// An address that matches nothing is an answer, not an outage.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, routeerr.ErrUnresolvableEndpoint)
		},
	})
	if cfg.CacheSize > 0 {
		n.cache = expirable.NewLRU[string, Place](cfg.CacheSize, nil, cfg.CacheTTL)
	}
	return n, nil
}

type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (n *Nominatim) Geocode(ctx context.Context, address string) (Place, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return Place{}, routeerr.Errorf(routeerr.InvalidInput, routeerr.StageGeocode, "geocode", "empty address")
	}
	key := strings.ToLower(address)
	if n.cache != nil {
		if p, ok := n.cache.Get(key); ok {
			return p, nil
		}
	}

	res, err := n.breaker.Execute(func() (interface{}, error) {
		return n.search(ctx, address)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return Place{}, routeerr.New(routeerr.Unavailable, routeerr.StageGeocode, "geocode", err)
		}
		return Place{}, err
	}

	p := res.(Place)
	if n.cache != nil {
		n.cache.Add(key, p)
	}
	n.logger.Debug("geocoded address", zap.String("address", address), zap.Float64("lat", p.Lat), zap.Float64("lon", p.Lon))
	return p, nil
}

func (n *Nominatim) search(ctx context.Context, address string) (Place, error) {
	u := *n.base
	u.Path += "/search"
	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "jsonv2")
	q.Set("limit", "1")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Place{}, routeerr.New(routeerr.Internal, routeerr.StageGeocode, "build request", err)
	}
	req.Header.Set("User-Agent", n.agent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return Place{}, routeerr.New(routeerr.Unavailable, routeerr.StageGeocode, "search", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Place{}, routeerr.Errorf(routeerr.Unavailable, routeerr.StageGeocode, "search", "geocoder returned %s", resp.Status)
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return Place{}, routeerr.New(routeerr.Unavailable, routeerr.StageGeocode, "decode response", err)
	}
	if len(results) == 0 {
		return Place{}, routeerr.Errorf(routeerr.UnresolvableEndpoint, routeerr.StageGeocode, "geocode", "no match for %q", address)
	}

	lat, errLat := strconv.ParseFloat(results[0].Lat, 64)
	lon, errLon := strconv.ParseFloat(results[0].Lon, 64)
	if errLat != nil || errLon != nil {
		return Place{}, routeerr.Errorf(routeerr.Unavailable, routeerr.StageGeocode, "decode response", "bad coordinates %q, %q", results[0].Lat, results[0].Lon)
	}
	return Place{Lat: lat, Lon: lon, DisplayName: results[0].DisplayName}, nil
}

// Static is a fixed address book, used for tests and offline runs.
type Static map[string]Place

func (s Static) Geocode(_ context.Context, address string) (Place, error) {
	if p, ok := s[strings.ToLower(strings.TrimSpace(address))]; ok {
		return p, nil
	}
	return Place{}, routeerr.New(routeerr.UnresolvableEndpoint, routeerr.StageGeocode, "geocode", fmt.Errorf("no match for %q", address))
}
