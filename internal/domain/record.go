package domain

import (
	"time"

	"github.com/google/uuid"
)

// RecordKind tells which source a resolved record came from.
type RecordKind string

const (
	KindPlace RecordKind = "place"
	KindVenue RecordKind = "venue"
)

// Source identifies which branch produced a ResolvedSet.
type Source string

const (
	SourcePlaces Source = "places"
	SourceVenues Source = "venues"
	SourceNone   Source = "none"
)

// Record is one entry of a ResolvedSet, either an external place or a
// local venue joined with its stats. ID is the record identity used to key
// markers.
type Record struct {
	ID           string
	Kind         RecordKind
	Name         string
	Lat          float64
	Lng          float64
	Address      string
	Category     string
	Rating       *float64 // nil when no rating is known
	ReviewsCount *int
	PriceLevel   *int
	PriceRange   string
	Photos       []string
}

// Valid reports whether the record can be placed on a map.
func (r Record) Valid() bool {
	return r.ID != "" && ValidCoordinate(r.Lat, r.Lng)
}

// ResolvedSet is the record list chosen for one resolution cycle.
type ResolvedSet struct {
	Source         Source
	Records        []Record
	FallbackReason string // why the provider branch was abandoned, empty when it won
	ResolvedAt     time.Time
}

// EmptySet is the result of a resolution where every branch failed.
func EmptySet(reason string) ResolvedSet {
	return ResolvedSet{Source: SourceNone, FallbackReason: reason, ResolvedAt: clock.Now()}
}

// PlacesToSet converts provider places into a ResolvedSet, dropping entries
// without usable coordinates. It returns the number of dropped entries.
func PlacesToSet(places []Place) (ResolvedSet, int) {
	records := make([]Record, 0, len(places))
	skipped := 0
	for _, p := range places {
		r := Record{
			ID:         p.ExternalID,
			Kind:       KindPlace,
			Name:       p.Name,
			Lat:        p.Lat,
			Lng:        p.Lng,
			Address:    p.Address,
			PriceLevel: p.PriceLevel,
		}
		rating := p.Rating
		r.Rating = &rating
		if p.PhotoRef != "" {
			r.Photos = []string{p.PhotoRef}
		}
		if len(p.Types) > 0 {
			r.Category = p.Types[0]
		}
		if !r.Valid() {
			skipped++
			continue
		}
		records = append(records, r)
	}
	return ResolvedSet{Source: SourcePlaces, Records: records, ResolvedAt: clock.Now()}, skipped
}

// JoinVenueStats joins venues with their stats by venue id. Venues without
// numeric coordinates are skipped, as are repeated venue ids. When stats
// hold the same venue id twice, the first row wins.
func JoinVenueStats(venues []Venue, stats []VenueStats) (ResolvedSet, int) {
	byVenue := make(map[string]VenueStats, len(stats))
	for _, s := range stats {
		if _, dup := byVenue[s.VenueID]; dup {
			continue
		}
		byVenue[s.VenueID] = s
	}

	records := make([]Record, 0, len(venues))
	seen := make(map[string]struct{}, len(venues))
	skipped := 0
	for _, v := range venues {
		if v.Lat == nil || v.Lng == nil {
			skipped++
			continue
		}
		if _, dup := seen[v.ID]; dup {
			skipped++
			continue
		}
		r := Record{
			ID:         v.ID,
			Kind:       KindVenue,
			Name:       v.Name,
			Lat:        *v.Lat,
			Lng:        *v.Lng,
			Address:    v.Address,
			Category:   v.Category,
			PriceRange: v.PriceRange,
			Photos:     v.Photos,
		}
		if !r.Valid() {
			skipped++
			continue
		}
		if s, ok := byVenue[v.ID]; ok {
			avg, n := s.AvgRating, s.ReviewsCount
			r.Rating = &avg
			r.ReviewsCount = &n
		}
		seen[v.ID] = struct{}{}
		records = append(records, r)
	}
	return ResolvedSet{Source: SourceVenues, Records: records, ResolvedAt: clock.Now()}, skipped
}

// ResolutionEvent summarizes one resolution cycle for downstream analytics.
type ResolutionEvent struct {
	ID             string    `json:"id"`
	Source         Source    `json:"source"`
	Query          GeoQuery  `json:"query"`
	RecordCount    int       `json:"record_count"`
	SkippedCount   int       `json:"skipped_count"`
	FallbackReason string    `json:"fallback_reason,omitempty"`
	DurationMillis int64     `json:"duration_ms"`
	ResolvedAt     time.Time `json:"resolved_at"`
}

// NewResolutionEvent builds the event for a finished resolution.
func NewResolutionEvent(q GeoQuery, set ResolvedSet, skipped int, took time.Duration) ResolutionEvent {
	return ResolutionEvent{
		ID:             uuid.NewString(),
		Source:         set.Source,
		Query:          q,
		RecordCount:    len(set.Records),
		SkippedCount:   skipped,
		FallbackReason: set.FallbackReason,
		DurationMillis: took.Milliseconds(),
		ResolvedAt:     set.ResolvedAt,
	}
}
