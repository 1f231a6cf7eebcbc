// Package web renders the single dashboard page. All further interaction
// goes through the JSON API and redraws from the returned view.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/mohammed-shakir/merchant-map/internal/dashboard"
	"github.com/mohammed-shakir/merchant-map/internal/mapview"
	"github.com/mohammed-shakir/merchant-map/internal/overlay"
)

//go:embed templates/*.html
var files embed.FS

type Page struct {
	tmpl *template.Template
}

type pageData struct {
	Title        string
	View         dashboard.View
	InvalidInput string
	ManualLabel  string
}

func New() (*Page, error) {
	t, err := template.New("dashboard.html").ParseFS(files, "templates/dashboard.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Page{tmpl: t}, nil
}

func (p *Page) Render(w io.Writer, v dashboard.View) error {
	return p.tmpl.Execute(w, pageData{
		Title:        "Merchant Map",
		View:         v,
		InvalidInput: overlay.InvalidInputMessage,
		ManualLabel:  mapview.ManualPinLabel,
	})
}
