// Package overlay holds the manually entered map location and the search
// form that produces it.
package overlay

import (
	"errors"
	"time"

	"github.com/mohammed-shakir/merchant-map/internal/core/model"
	"github.com/mohammed-shakir/merchant-map/internal/markers"
)

const (
	RecenterZoom     = 13
	RecenterDuration = 1500 * time.Millisecond
)

var ErrInvalidCoordinates = errors.New("invalid latitude or longitude")

// InvalidInputMessage is shown to the user when a submission is rejected.
const InvalidInputMessage = "Please enter valid numbers for Latitude and Longitude"

type Form struct {
	Open bool   `json:"open"`
	Lat  string `json:"lat"`
	Lng  string `json:"lng"`
}

type Overlay struct {
	form   Form
	active *model.LatLng
}

func New() *Overlay { return &Overlay{} }

func (o *Overlay) OpenForm() { o.form.Open = true }

// CloseForm hides the form; typed text is kept for the next open.
func (o *Overlay) CloseForm() { o.form.Open = false }

func (o *Overlay) Form() Form { return o.form }

func (o *Overlay) Active() (model.LatLng, bool) {
	if o.active == nil {
		return model.LatLng{}, false
	}
	return *o.active, true
}

// Submit parses both fields. On success the active location is replaced,
// the fields are cleared, the form closes and a recenter instruction is
// returned. On failure nothing but the typed text changes and the form stays
// open.
func (o *Overlay) Submit(latText, lngText string) (model.Recenter, error) {
	lat, okLat := markers.ParseCoord(latText)
	lng, okLng := markers.ParseCoord(lngText)
	if !okLat || !okLng {
		o.form = Form{Open: true, Lat: latText, Lng: lngText}
		return model.Recenter{}, ErrInvalidCoordinates
	}

	p := model.LatLng{Lat: lat, Lng: lng}
	o.active = &p
	o.form = Form{}
	return model.Recenter{Target: p, Zoom: RecenterZoom, Duration: RecenterDuration}, nil
}
