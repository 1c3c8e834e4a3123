// Package supabase reads venues, venue stats and reviews from a Supabase
// project through its PostgREST interface.
package supabase

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/venue-map/internal/domain"
	"github.com/tidwall/gjson"
)

const (
	venueColumns  = "id,name,lat,lng,address,price_range,category,photos,description,created_by"
	statsColumns  = "venue_id,avg_rating,reviews_count"
	reviewColumns = "comment,rating,created_at"
)

// Store is a read-only venue store backed by Supabase REST.
type Store struct {
	baseURL    string
	apiKey     string
	venueLimit int
	httpClient *http.Client
}

// NewStore creates a store for the project at baseURL.
func NewStore(baseURL, apiKey string, venueLimit int, timeout time.Duration) (*Store, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("supabase URL is required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("supabase API key is required")
	}
	return &Store{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		venueLimit: venueLimit,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// ListVenues returns up to the configured limit of venues, ordered by name.
func (s *Store) ListVenues(ctx context.Context) ([]domain.Venue, error) {
	params := url.Values{
		"select": {venueColumns},
		"order":  {"name.asc"},
		"limit":  {strconv.Itoa(s.venueLimit)},
	}
	rows, err := s.get(ctx, "venues", params)
	if err != nil {
		return nil, err
	}

	venues := make([]domain.Venue, 0, len(rows))
	for _, r := range rows {
		v := domain.Venue{
			ID:          r.Get("id").String(),
			Name:        r.Get("name").String(),
			Lat:         number(r.Get("lat")),
			Lng:         number(r.Get("lng")),
			Address:     r.Get("address").String(),
			Category:    r.Get("category").String(),
			PriceRange:  r.Get("price_range").String(),
			Description: r.Get("description").String(),
			CreatedBy:   r.Get("created_by").String(),
		}
		for _, p := range r.Get("photos").Array() {
			v.Photos = append(v.Photos, p.String())
		}
		venues = append(venues, v)
	}
	return venues, nil
}

// ListVenueStats returns the aggregate rating rows.
func (s *Store) ListVenueStats(ctx context.Context) ([]domain.VenueStats, error) {
	rows, err := s.get(ctx, "venue_stats", url.Values{"select": {statsColumns}})
	if err != nil {
		return nil, err
	}
	stats := make([]domain.VenueStats, 0, len(rows))
	for _, r := range rows {
		stats = append(stats, domain.VenueStats{
			VenueID:      r.Get("venue_id").String(),
			AvgRating:    r.Get("avg_rating").Float(),
			ReviewsCount: int(r.Get("reviews_count").Int()),
		})
	}
	return stats, nil
}

// RecentReviews returns the newest reviews of a venue, newest first.
func (s *Store) RecentReviews(ctx context.Context, venueID string, limit int) ([]domain.ReviewSummary, error) {
	params := url.Values{
		"select":   {reviewColumns},
		"venue_id": {"eq." + venueID},
		"order":    {"created_at.desc"},
		"limit":    {strconv.Itoa(limit)},
	}
	rows, err := s.get(ctx, "reviews", params)
	if err != nil {
		return nil, err
	}
	reviews := make([]domain.ReviewSummary, 0, len(rows))
	for _, r := range rows {
		rv := domain.ReviewSummary{
			Rating:  int(r.Get("rating").Int()),
			Comment: r.Get("comment").String(),
		}
		// Rows arrive already ordered; an unparsable created_at leaves the
		// review in place with a zero CreatedAt.
		if created, err := time.Parse(time.RFC3339Nano, r.Get("created_at").String()); err == nil {
			rv.CreatedAt = created
		}
		reviews = append(reviews, rv)
	}
	return reviews, nil
}

func (s *Store) get(ctx context.Context, table string, params url.Values) ([]gjson.Result, error) {
	reqURL := fmt.Sprintf("%s/rest/v1/%s?%s", s.baseURL, table, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &domain.NetworkError{Op: "query " + table, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.NetworkError{Op: "read " + table, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("query %s: status %d: %s", table, resp.StatusCode, gjson.GetBytes(body, "message").String())
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("query %s: invalid JSON response", table)
	}
	return gjson.ParseBytes(body).Array(), nil
}

// number returns a pointer to a numeric JSON value, nil for anything else.
func number(r gjson.Result) *float64 {
	if r.Type != gjson.Number {
		return nil
	}
	v := r.Float()
	return &v
}
