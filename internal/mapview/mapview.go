// Package mapview decides which pins the map shows and where it looks.
package mapview

import (
	"github.com/mohammed-shakir/merchant-map/internal/core/model"
)

const (
	PinRecord = "record"
	PinManual = "manual"
)

// ManualPinLabel is the popup text of the searched-for pin.
const ManualPinLabel = "Manual Location"

// Zoom levels the tile layer serves.
const (
	MinZoom = 0
	MaxZoom = 20
)

type Options struct {
	Center  model.LatLng
	Zoom    int
	TileURL string
}

// DefaultOptions frames the whole of Indonesia.
func DefaultOptions() Options {
	return Options{
		Center:  model.LatLng{Lat: -2.5, Lng: 118},
		Zoom:    5,
		TileURL: "https://{s}.basemaps.cartocdn.com/light_all/{z}/{x}/{y}{r}.png",
	}
}

type Pin struct {
	Kind     string        `json:"kind"`
	Position model.LatLng  `json:"position"`
	Marker   *model.Marker `json:"marker,omitempty"`
}

type View struct {
	Viewport    model.Viewport  `json:"viewport"`
	TileURL     string          `json:"tile_url"`
	ShowAllPins bool            `json:"show_all_pins"`
	Pins        []Pin           `json:"pins"`
	Recenter    *model.Recenter `json:"recenter,omitempty"`
	LayoutEpoch uint64          `json:"layout_epoch"`
}

type MapView struct {
	opts        Options
	showAllPins bool
	recenter    *model.Recenter
	seq         uint64
	layoutEpoch uint64
}

// New uses DefaultOptions for a zero Options. Otherwise the center is taken
// as given, including (0,0), an empty tile URL falls back to the default and
// the zoom is clamped to [MinZoom, MaxZoom].
func New(opts Options) *MapView {
	def := DefaultOptions()
	if opts == (Options{}) {
		opts = def
	}
	if opts.TileURL == "" {
		opts.TileURL = def.TileURL
	}
	opts.Zoom = min(max(opts.Zoom, MinZoom), MaxZoom)
	return &MapView{opts: opts, showAllPins: true}
}

func (m *MapView) ShowAllPins() bool { return m.showAllPins }

func (m *MapView) TogglePins() { m.showAllPins = !m.showAllPins }

// Recenter queues a fly-to. Each call gets a new sequence number so a client
// animates once per submission even when the target repeats.
func (m *MapView) Recenter(r model.Recenter) model.Recenter {
	m.seq++
	r.Seq = m.seq
	m.recenter = &r
	return r
}

// Relayout marks the map container as resized.
func (m *MapView) Relayout() { m.layoutEpoch++ }

func (m *MapView) LayoutEpoch() uint64 { return m.layoutEpoch }

// Effective applies the display precedence: an active manual location hides
// every record pin regardless of the toggle.
func (m *MapView) Effective(ms []model.Marker, manual model.LatLng, hasManual bool) []Pin {
	if hasManual {
		return []Pin{{Kind: PinManual, Position: manual}}
	}
	if !m.showAllPins {
		return []Pin{}
	}
	out := make([]Pin, 0, len(ms))
	for i := range ms {
		mk := ms[i]
		out = append(out, Pin{Kind: PinRecord, Position: mk.Position, Marker: &mk})
	}
	return out
}

func (m *MapView) Render(ms []model.Marker, manual model.LatLng, hasManual bool) View {
	v := View{
		Viewport:    model.Viewport{Center: m.opts.Center, Zoom: m.opts.Zoom},
		TileURL:     m.opts.TileURL,
		ShowAllPins: m.showAllPins,
		Pins:        m.Effective(ms, manual, hasManual),
		LayoutEpoch: m.layoutEpoch,
	}
	if m.recenter != nil {
		rc := *m.recenter
		v.Recenter = &rc
	}
	return v
}
