// Package model defines core domain types shared across the service.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Record is one merchant row from the static collection. Coordinates are
// kept as the raw text found in the source.
type Record struct {
	ID          int       `json:"member_id"`
	Name        string    `json:"fname"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Lat         CoordText `json:"lat"`
	Long        CoordText `json:"long"`
	LastLoginAt string    `json:"last_login_at"`
}

// CoordText holds coordinate text as stored. JSON numbers are accepted and
// kept in their literal form so parsing stays in one place.
type CoordText string

func (c *CoordText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*c = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("coordinate text: %w", err)
		}
		*c = CoordText(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("coordinate text: %w", err)
	}
	*c = CoordText(n.String())
	return nil
}

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p LatLng) String() string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lng, 'f', -1, 64)
}

// Marker is a record whose coordinates parsed to finite numbers.
type Marker struct {
	Record
	Position LatLng `json:"position"`
}

// Recenter asks the map to fly to Target.
type Recenter struct {
	Target   LatLng        `json:"target"`
	Zoom     int           `json:"zoom"`
	Duration time.Duration `json:"-"`
	Seq      uint64        `json:"seq"`
}

func (r Recenter) MarshalJSON() ([]byte, error) {
	type alias Recenter
	return json.Marshal(struct {
		alias
		DurationSeconds float64 `json:"duration_seconds"`
	}{alias: alias(r), DurationSeconds: r.Duration.Seconds()})
}

type Viewport struct {
	Center LatLng `json:"center"`
	Zoom   int    `json:"zoom"`
}
