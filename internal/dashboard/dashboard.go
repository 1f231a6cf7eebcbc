// Package dashboard composes the sidebar, the pagination controller, the
// manual location overlay and the map into one per-viewer state bundle.
package dashboard

import (
	"github.com/mohammed-shakir/merchant-map/internal/core/model"
	"github.com/mohammed-shakir/merchant-map/internal/core/observability"
	"github.com/mohammed-shakir/merchant-map/internal/mapview"
	"github.com/mohammed-shakir/merchant-map/internal/markers"
	"github.com/mohammed-shakir/merchant-map/internal/overlay"
	"github.com/mohammed-shakir/merchant-map/internal/pagination"
	"github.com/mohammed-shakir/merchant-map/internal/sidebar"
)

type Options struct {
	PageSize int
	Map      mapview.Options
}

type SearchView struct {
	Form   overlay.Form  `json:"form"`
	Manual *model.LatLng `json:"manual,omitempty"`
}

type View struct {
	SidebarOpen bool         `json:"sidebar_open"`
	Sidebar     sidebar.View `json:"sidebar"`
	Map         mapview.View `json:"map"`
	Search      SearchView   `json:"search"`
}

// Shell is the layout root. It is not safe for concurrent use.
type Shell struct {
	records     []model.Record
	pager       *pagination.Controller
	side        *sidebar.Sidebar
	over        *overlay.Overlay
	mapView     *mapview.MapView
	sidebarOpen bool
}

// New builds a shell over records, which it treats as read-only and may
// share with other shells.
func New(records []model.Record, opts Options) (*Shell, error) {
	pager, err := pagination.New(len(records), opts.PageSize)
	if err != nil {
		return nil, err
	}
	return &Shell{
		records:     records,
		pager:       pager,
		side:        sidebar.New(),
		over:        overlay.New(),
		mapView:     mapview.New(opts.Map),
		sidebarOpen: true,
	}, nil
}

func (s *Shell) SidebarOpen() bool { return s.sidebarOpen }

// ToggleSidebar leaves pagination and map state alone; the map is only asked
// to re-measure its container.
func (s *Shell) ToggleSidebar() {
	s.sidebarOpen = !s.sidebarOpen
	s.mapView.Relayout()
}

func (s *Shell) ToggleMenu() { s.side.ToggleMenu() }
func (s *Shell) CloseMenu()  { s.side.CloseMenu() }

func (s *Shell) SetPageSize(n int) error { return s.side.Select(s.pager, n) }

func (s *Shell) NextPage()      { s.pager.NextPage() }
func (s *Shell) PrevPage()      { s.pager.PrevPage() }
func (s *Shell) GoToPage(p int) { s.pager.GoTo(p) }

func (s *Shell) TogglePins() { s.mapView.TogglePins() }

func (s *Shell) OpenSearch()  { s.over.OpenForm() }
func (s *Shell) CloseSearch() { s.over.CloseForm() }

// SubmitSearch applies a manual location and queues the fly-to on success.
func (s *Shell) SubmitSearch(latText, lngText string) (model.Recenter, error) {
	rc, err := s.over.Submit(latText, lngText)
	observability.IncSearch(err == nil)
	if err != nil {
		return model.Recenter{}, err
	}
	return s.mapView.Recenter(rc), nil
}

// Visible is the current page of records.
func (s *Shell) Visible() []model.Record {
	return pagination.Visible(s.pager, s.records)
}

// Pins derives markers from the visible page and applies display precedence.
func (s *Shell) Pins() []mapview.Pin {
	manual, ok := s.over.Active()
	return s.mapView.Effective(markers.Validate(s.Visible()), manual, ok)
}

// View renders one consistent snapshot. Markers are derived fresh on every
// call.
func (s *Shell) View() View {
	visible := s.Visible()
	manual, hasManual := s.over.Active()

	sv := SearchView{Form: s.over.Form()}
	if hasManual {
		m := manual
		sv.Manual = &m
	}

	return View{
		SidebarOpen: s.sidebarOpen,
		Sidebar:     s.side.Render(s.pager, visible),
		Map:         s.mapView.Render(markers.Validate(visible), manual, hasManual),
		Search:      sv,
	}
}
