// Package sidebar renders the merchant list panel.
package sidebar

import (
	"strconv"
	"strings"
	"time"

	"github.com/mohammed-shakir/merchant-map/internal/core/model"
	"github.com/mohammed-shakir/merchant-map/internal/pagination"
)

type Item struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	LastLogin string `json:"last_login"`
}

type Option struct {
	Size     int    `json:"size"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

type View struct {
	TotalMerchants int      `json:"total_merchants"`
	Items          []Item   `json:"items"`
	PageSize       int      `json:"page_size"`
	PageSizeLabel  string   `json:"page_size_label"`
	Options        []Option `json:"options"`
	MenuOpen       bool     `json:"menu_open"`
	Page           int      `json:"page"`
	TotalPages     int      `json:"total_pages"`
	PrevDisabled   bool     `json:"prev_disabled"`
	NextDisabled   bool     `json:"next_disabled"`
}

// Sidebar only owns whether the page-size menu is open.
type Sidebar struct {
	menuOpen bool
}

func New() *Sidebar { return &Sidebar{} }

func (s *Sidebar) MenuOpen() bool { return s.menuOpen }

func (s *Sidebar) ToggleMenu() { s.menuOpen = !s.menuOpen }

// CloseMenu handles a click outside the dropdown.
func (s *Sidebar) CloseMenu() { s.menuOpen = false }

// Select closes the menu and hands the size to the controller.
func (s *Sidebar) Select(c *pagination.Controller, size int) error {
	if err := c.SetPageSize(size); err != nil {
		return err
	}
	s.menuOpen = false
	return nil
}

func Label(size int) string {
	if size == pagination.RemoveAll {
		return "Remove all"
	}
	return "Show " + strconv.Itoa(size)
}

func (s *Sidebar) Render(c *pagination.Controller, visible []model.Record) View {
	items := make([]Item, 0, len(visible))
	for _, r := range visible {
		items = append(items, Item{
			ID:        r.ID,
			Name:      r.Name,
			Email:     r.Email,
			Phone:     r.Phone,
			LastLogin: FormatLogin(r.LastLoginAt),
		})
	}

	sizes := pagination.Sizes()
	opts := make([]Option, 0, len(sizes))
	for _, n := range sizes {
		opts = append(opts, Option{Size: n, Label: Label(n), Selected: n == c.PageSize()})
	}

	return View{
		TotalMerchants: c.Total(),
		Items:          items,
		PageSize:       c.PageSize(),
		PageSizeLabel:  Label(c.PageSize()),
		Options:        opts,
		MenuOpen:       s.menuOpen,
		Page:           c.Page(),
		TotalPages:     c.TotalPages(),
		PrevDisabled:   !c.HasPrev(),
		NextDisabled:   !c.HasNext(),
	}
}

var loginLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.DateTime,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	time.DateOnly,
}

// FormatLogin renders a last-login timestamp as a date. Text that matches
// none of the known layouts is shown as is.
func FormatLogin(raw string) string {
	v := strings.TrimSpace(raw)
	if v == "" {
		return ""
	}
	for _, layout := range loginLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format("02/01/2006")
		}
	}
	return raw
}
