// Package markers turns raw merchant records into map markers.
package markers

import (
	"math"
	"strconv"
	"strings"

	"github.com/mohammed-shakir/merchant-map/internal/core/model"
)

// ParseCoord trims the text and parses it as a finite float.
func ParseCoord(text string) (float64, bool) {
	v := strings.TrimSpace(text)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Validate keeps the records whose latitude and longitude both parse, in
// input order. Records that fail are dropped without error.
func Validate(records []model.Record) []model.Marker {
	out := make([]model.Marker, 0, len(records))
	for _, r := range records {
		lat, ok := ParseCoord(string(r.Lat))
		if !ok {
			continue
		}
		lng, ok := ParseCoord(string(r.Long))
		if !ok {
			continue
		}
		out = append(out, model.Marker{Record: r, Position: model.LatLng{Lat: lat, Lng: lng}})
	}
	return out
}

// CountInvalid reports how many records Validate would drop.
func CountInvalid(records []model.Record) int {
	n := 0
	for _, r := range records {
		if _, ok := ParseCoord(string(r.Lat)); !ok {
			n++
			continue
		}
		if _, ok := ParseCoord(string(r.Long)); !ok {
			n++
		}
	}
	return n
}
