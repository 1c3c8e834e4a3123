// Package domain models the records that flow through map place discovery.
//
// # Sources
//
// Two independent sources answer "what venues exist near here":
//
//	Places   external geo-places provider (Google Places Nearby Search),
//	         reached through the places proxy. Ephemeral, never stored.
//	Venues   user-created records in the local venue store, joined with
//	         the venue_stats aggregate (avg_rating, reviews_count).
//
// The provider wins whenever it returns at least one place. Otherwise the
// local venues are used, unfiltered by radius, and joined with their stats.
// Provider places are not enriched with local stats.
//
// # Record identity
//
// Every resolved entry becomes a [Record] whose ID is the provider place_id
// or the local venue id. Markers are keyed by that ID, so a set must never
// contain the same ID twice. [JoinVenueStats] enforces this for the local
// branch.
//
// # Malformed records
//
// A record whose latitude or longitude is missing, non-numeric, non-finite
// or outside WGS-84 bounds is skipped. Skips are counted, never raised.
//
// # Ratings
//
// A nil Record.Rating means no rating is known and renders as "-". For
// venues this is the case when no venue_stats row exists. Provider places
// always carry a rating; the provider's missing rating is reported as 0.
package domain
