package domain

import (
	"fmt"
	"math"
	"strings"
)

// Defaults applied by the proxy when a geo-search request omits them.
const (
	DefaultRadiusMeters = 5000
	DefaultCategories   = "restaurant|bar"
)

// GeoQuery is the geo-search request accepted by the places proxy.
// It is built fresh for every resolution cycle.
type GeoQuery struct {
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	RadiusMeters int     `json:"radius"`
	Categories   string  `json:"type"` // pipe-delimited, e.g. "restaurant|bar|night_club"
}

// WithDefaults fills in the radius and category filter when unset.
func (q GeoQuery) WithDefaults() GeoQuery {
	if q.RadiusMeters <= 0 {
		q.RadiusMeters = DefaultRadiusMeters
	}
	if strings.TrimSpace(q.Categories) == "" {
		q.Categories = DefaultCategories
	}
	return q
}

// CategoryList splits the category filter into its individual tags.
func (q GeoQuery) CategoryList() []string {
	var out []string
	for _, c := range strings.Split(q.Categories, "|") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// Validate reports whether the query center is a usable WGS-84 coordinate.
func (q GeoQuery) Validate() error {
	if !ValidCoordinate(q.Lat, q.Lng) {
		return fmt.Errorf("invalid center %v,%v", q.Lat, q.Lng)
	}
	if q.RadiusMeters < 0 {
		return fmt.Errorf("invalid radius %d", q.RadiusMeters)
	}
	return nil
}

// ValidCoordinate reports whether lat/lng are finite and inside WGS-84 bounds.
func ValidCoordinate(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
