package mapview

import (
	"fmt"
	"sort"

	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/merchant-map/internal/core/model"
)

type Cluster struct {
	Cell     string       `json:"cell,omitempty"`
	Position model.LatLng `json:"position"`
	Count    int          `json:"count"`
	IDs      []int        `json:"ids,omitempty"`
	Manual   bool         `json:"manual,omitempty"`
}

func validateRes(res int) error {
	if res < 0 || res > 15 {
		return fmt.Errorf("invalid H3 resolution %d (must be 0..15)", res)
	}
	return nil
}

// ClusterPins buckets record pins by H3 cell at res. Each cluster sits on the
// mean position of its members. Manual pins pass through unclustered and
// come first; record clusters are sorted by cell for determinism.
func ClusterPins(pins []Pin, res int) ([]Cluster, error) {
	if err := validateRes(res); err != nil {
		return nil, err
	}

	type acc struct {
		sumLat, sumLng float64
		n              int
		ids            []int
	}
	var out []Cluster
	byCell := make(map[h3.Cell]*acc)

	for _, p := range pins {
		if p.Kind == PinManual {
			out = append(out, Cluster{Position: p.Position, Count: 1, Manual: true})
			continue
		}
		cell, err := h3.LatLngToCell(h3.LatLng{Lat: p.Position.Lat, Lng: p.Position.Lng}, res)
		if err != nil {
			return nil, fmt.Errorf("h3 cell for %s: %w", p.Position, err)
		}
		a := byCell[cell]
		if a == nil {
			a = &acc{}
			byCell[cell] = a
		}
		a.sumLat += p.Position.Lat
		a.sumLng += p.Position.Lng
		a.n++
		if p.Marker != nil {
			a.ids = append(a.ids, p.Marker.ID)
		}
	}

	cells := make([]h3.Cell, 0, len(byCell))
	for c := range byCell {
		cells = append(cells, c)
	}
	sort.Slice(cells, func(i, j int) bool { return cells[i].String() < cells[j].String() })

	for _, c := range cells {
		a := byCell[c]
		out = append(out, Cluster{
			Cell:     c.String(),
			Position: model.LatLng{Lat: a.sumLat / float64(a.n), Lng: a.sumLng / float64(a.n)},
			Count:    a.n,
			IDs:      a.ids,
		})
	}
	return out, nil
}
