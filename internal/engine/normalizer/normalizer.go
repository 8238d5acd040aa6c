// Package normalizer maps raw upstream records into canonical events.
package normalizer

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/hejijunhao/aftershock/internal/model"
)

var (
	// ErrMissingID is returned for records without an identity.
	ErrMissingID = errors.New("normalizer: record has no _id")
	// ErrBadCoordinates is returned when geojson.coordinates is not a [lon, lat] pair.
	ErrBadCoordinates = errors.New("normalizer: coordinates must be [lon, lat]")
)

// Normalize converts one upstream record into an Event. Airport distances
// arrive in meters and leave in kilometers rounded to one decimal; this is
// the only place that conversion happens.
func Normalize(r model.Record) (model.Event, error) {
	id := strings.TrimSpace(r.ID)
	if id == "" {
		return model.Event{}, ErrMissingID
	}
	if len(r.GeoJSON.Coordinates) < 2 {
		return model.Event{}, fmt.Errorf("%w: record %s has %d values", ErrBadCoordinates, id, len(r.GeoJSON.Coordinates))
	}
	if r.Depth < 0 || math.IsNaN(r.Depth) {
		return model.Event{}, fmt.Errorf("normalizer: record %s has invalid depth %v", id, r.Depth)
	}

	airports := make([]model.Airport, 0, len(r.Location.Airports))
	for _, ap := range r.Location.Airports {
		airports = append(airports, model.Airport{
			Name:       text(ap.Name),
			Code:       strings.TrimSpace(ap.Code),
			DistanceKM: MetersToKM(ap.Distance),
		})
	}

	return model.Event{
		ID:          id,
		Title:       text(r.Title),
		Date:        strings.TrimSpace(r.Date),
		DateTime:    strings.TrimSpace(r.DateTime),
		Magnitude:   r.Mag,
		Depth:       r.Depth,
		Coordinates: model.Coordinates{r.GeoJSON.Coordinates[0], r.GeoJSON.Coordinates[1]},
		ClosestCity: text(r.Location.ClosestCity.Name),
		Airports:    airports,
	}, nil
}

// NormalizeBatch normalizes up to limit records, preserving their order.
// Records that fail are skipped; their errors are joined in the result.
func NormalizeBatch(records []model.Record, limit int) ([]model.Event, error) {
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	events := make([]model.Event, 0, len(records))
	var errs []error
	for _, r := range records {
		e, err := Normalize(r)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		events = append(events, e)
	}
	return events, errors.Join(errs...)
}

// MetersToKM converts meters to kilometers rounded to one decimal.
func MetersToKM(meters float64) float64 {
	return math.Round(meters/100) / 10
}

// text trims and NFC-normalizes free text. Upstream mixes precomposed and
// decomposed Turkish letters, which would otherwise compare unequal.
func text(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// turkeyTime is the fixed +03:00 offset used by the feed for naive timestamps.
var turkeyTime = time.FixedZone("TRT", 3*60*60)

var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006.01.02 15:04:05",
}

// ParseDateTime parses an upstream date_time value. Naive timestamps are
// taken to be in Turkey time. A trailing "Z" after an explicit offset, as
// produced by the feed simulator, is ignored.
func ParseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "Z") && len(s) > 6 {
		if trimmed := s[:len(s)-1]; hasOffset(trimmed) {
			s = trimmed
		}
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, turkeyTime); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("normalizer: unsupported date_time %q", s)
}

func hasOffset(s string) bool {
	if len(s) < 6 {
		return false
	}
	tail := s[len(s)-6:]
	return (tail[0] == '+' || tail[0] == '-') && tail[3] == ':'
}
