package mapview

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/couchcryptid/venue-map/internal/domain"
)

// NoComments is shown in place of an empty review list.
const NoComments = "No comments yet"

// PopupContent is the popup bound to one marker. Comments is nil while the
// lazy detail has not been loaded.
type PopupContent struct {
	Title      string
	RatingLine string
	Address    string
	DetailsURL string
	Comments   []string
}

func popupFor(r domain.Record) PopupContent {
	return PopupContent{
		Title:      r.Name,
		RatingLine: ratingLine(r),
		Address:    r.Address,
		DetailsURL: "/place/" + url.PathEscape(r.ID),
	}
}

// ratingLine renders "4.3/5 (12 reviews) · $$", or "-" for the rating when
// none is known.
func ratingLine(r domain.Record) string {
	line := "-"
	if r.Rating != nil {
		line = fmt.Sprintf("%.1f/5", *r.Rating)
		if r.Kind == domain.KindVenue && r.ReviewsCount != nil {
			line += fmt.Sprintf(" (%d reviews)", *r.ReviewsCount)
		}
	}
	if price := priceLabel(r); price != "" {
		line += " · " + price
	}
	return line
}

func priceLabel(r domain.Record) string {
	if r.PriceLevel != nil && *r.PriceLevel > 0 {
		return strings.Repeat("$", *r.PriceLevel)
	}
	return r.PriceRange
}

func commentLines(reviews []domain.ReviewSummary) []string {
	if len(reviews) == 0 {
		return []string{NoComments}
	}
	lines := make([]string, 0, len(reviews))
	for _, rv := range reviews {
		lines = append(lines, fmt.Sprintf("%d/5 — %s", rv.Rating, rv.Comment))
	}
	return lines
}
