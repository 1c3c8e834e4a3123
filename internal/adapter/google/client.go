package google

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/venue-map/internal/domain"
	"github.com/couchcryptid/venue-map/internal/observability"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// Client searches the Google Places Nearby Search API.
type Client struct {
	key        string
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// Options tune the outbound side of the client.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64 // requests per second
	Burst     int
}

// NewClient creates a places client. The key is captured once; an empty key
// makes every search fail with domain.ErrProviderUnavailable.
func NewClient(key string, opts Options, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if metrics != nil {
		if key != "" {
			metrics.ProviderConfigured.Set(1)
		} else {
			metrics.ProviderConfigured.Set(0)
		}
	}
	return &Client{
		key:        key,
		httpClient: &http.Client{Timeout: opts.Timeout},
		baseURL:    opts.BaseURL,
		limiter:    rate.NewLimiter(rate.Limit(opts.RateLimit), opts.Burst),
		metrics:    metrics,
		logger:     logger,
	}
}

// Configured reports whether a credential was provided.
func (c *Client) Configured() bool { return c.key != "" }

// CheckReadiness reports the proxy as ready only with a credential.
func (c *Client) CheckReadiness(_ context.Context) error {
	if !c.Configured() {
		return domain.ErrProviderUnavailable
	}
	return nil
}

// SearchPlaces returns the places around q's center matching its category filter.
func (c *Client) SearchPlaces(ctx context.Context, q domain.GeoQuery) ([]domain.Place, error) {
	if c.key == "" {
		return nil, domain.ErrProviderUnavailable
	}
	q = q.WithDefaults()

	params := url.Values{
		"location": {fmt.Sprintf("%f,%f", q.Lat, q.Lng)},
		"radius":   {strconv.Itoa(q.RadiusMeters)},
		"type":     {q.Categories},
		"key":      {c.key},
	}
	fullURL := c.baseURL + "/nearbysearch/json?" + params.Encode()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &domain.NetworkError{Op: "places rate limit", Err: err}
	}

	start := time.Now()
	body, status, err := c.doRequest(ctx, fullURL)
	if c.metrics != nil {
		c.metrics.ProviderAPIDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &domain.ProviderError{
			StatusCode: status,
			Status:     gjson.GetBytes(body, "status").String(),
			Message:    gjson.GetBytes(body, "error_message").String(),
		}
	}
	return parseResponse(body, c.logger)
}

func (c *Client) doRequest(ctx context.Context, fullURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, &domain.NetworkError{Op: "places nearby request", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, &domain.NetworkError{Op: "read places response", Err: err}
	}
	return body, resp.StatusCode, nil
}

// parseResponse maps the provider payload onto domain places. Provider
// statuses other than OK and ZERO_RESULTS are errors even on HTTP 200.
func parseResponse(body []byte, logger *slog.Logger) ([]domain.Place, error) {
	if !gjson.ValidBytes(body) {
		return nil, &domain.ProviderError{StatusCode: http.StatusOK, Message: "invalid JSON response"}
	}
	root := gjson.ParseBytes(body)

	switch status := root.Get("status").String(); status {
	case "OK":
	case "ZERO_RESULTS":
		return []domain.Place{}, nil
	case "REQUEST_DENIED":
		return nil, fmt.Errorf("%w: %s", domain.ErrProviderUnavailable, root.Get("error_message").String())
	default:
		return nil, &domain.ProviderError{
			StatusCode: http.StatusOK,
			Status:     status,
			Message:    root.Get("error_message").String(),
		}
	}

	results := root.Get("results").Array()
	places := make([]domain.Place, 0, len(results))
	for _, r := range results {
		lat, lng := r.Get("geometry.location.lat"), r.Get("geometry.location.lng")
		if lat.Type != gjson.Number || lng.Type != gjson.Number {
			logger.Debug("dropping place without coordinates", "place_id", r.Get("place_id").String())
			continue
		}
		p := domain.Place{
			ExternalID:     r.Get("place_id").String(),
			Name:           r.Get("name").String(),
			Lat:            lat.Float(),
			Lng:            lng.Float(),
			Address:        r.Get("vicinity").String(),
			Rating:         r.Get("rating").Float(),
			Types:          []string{},
			PhotoRef:       r.Get("photos.0.photo_reference").String(),
			BusinessStatus: r.Get("business_status").String(),
		}
		if !domain.ValidCoordinate(p.Lat, p.Lng) || p.ExternalID == "" {
			logger.Debug("dropping malformed place", "place_id", p.ExternalID)
			continue
		}
		if pl := r.Get("price_level"); pl.Exists() {
			v := int(pl.Int())
			p.PriceLevel = &v
		}
		if open := r.Get("opening_hours.open_now"); open.IsBool() {
			v := open.Bool()
			p.OpenNow = &v
		}
		for _, t := range r.Get("types").Array() {
			p.Types = append(p.Types, t.String())
		}
		places = append(places, p)
	}
	return places, nil
}
