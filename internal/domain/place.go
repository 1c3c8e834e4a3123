package domain

import "time"

// Place is a normalized result from the external geo-places provider.
// Places are never persisted; each one is consumed by a single resolution.
type Place struct {
	ExternalID     string   `json:"id"`
	Name           string   `json:"name"`
	Lat            float64  `json:"lat"`
	Lng            float64  `json:"lng"`
	Address        string   `json:"address"`
	Rating         float64  `json:"rating"`
	PriceLevel     *int     `json:"price_level,omitempty"`
	Types          []string `json:"types"`
	PhotoRef       string   `json:"photo_reference,omitempty"`
	BusinessStatus string   `json:"business_status,omitempty"`
	OpenNow        *bool    `json:"open_now,omitempty"`
}

// Venue is a user-created record held by the local venue store.
// Lat and Lng are nil when the stored value is missing or not numeric.
type Venue struct {
	ID          string
	Name        string
	Lat         *float64
	Lng         *float64
	Address     string
	Category    string
	PriceRange  string
	Description string
	Photos      []string
	CreatedBy   string
}

// VenueStats holds the aggregate rating for one venue. A venue with no
// stats row has no ratings yet; that is different from a zero average.
type VenueStats struct {
	VenueID      string
	AvgRating    float64
	ReviewsCount int
}

// ReviewSummary is the lazily loaded popup detail for a venue.
type ReviewSummary struct {
	Rating    int
	Comment   string
	CreatedAt time.Time
}
