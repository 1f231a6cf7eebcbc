package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/merchant-map/internal/cache/keys"
	"github.com/mohammed-shakir/merchant-map/internal/core/middleware"
	"github.com/mohammed-shakir/merchant-map/internal/core/observability"
	"github.com/mohammed-shakir/merchant-map/internal/dashboard"
	"github.com/mohammed-shakir/merchant-map/internal/mapview"
	"github.com/mohammed-shakir/merchant-map/internal/overlay"
	"github.com/mohammed-shakir/merchant-map/internal/pagination"
	"github.com/mohammed-shakir/merchant-map/internal/records"
	"github.com/mohammed-shakir/merchant-map/internal/session"
)

const maxBody = 4 << 10

// PageRenderer writes the HTML dashboard for a view.
type PageRenderer interface {
	Render(w io.Writer, v dashboard.View) error
}

type Handler struct {
	logger     *slog.Logger
	sessions   *session.Store
	records    *records.Store
	page       PageRenderer
	clusterRes int
}

func NewHandler(logger *slog.Logger, sessions *session.Store, recs *records.Store, page PageRenderer, clusterRes int) *Handler {
	return &Handler{logger: logger, sessions: sessions, records: recs, page: page, clusterRes: clusterRes}
}

// Mount registers the dashboard routes. Routes that touch per-viewer state
// run behind the session middleware.
func (h *Handler) Mount(r chi.Router, sessionMW func(http.Handler) http.Handler) {
	r.Get("/api/records", h.instrument("/api/records", h.getRecords))

	r.Group(func(r chi.Router) {
		r.Use(sessionMW)

		r.Get("/", h.instrument("/", h.getPage))
		r.Get("/api/view", h.instrument("/api/view", h.getView))
		r.Get("/api/markers", h.instrument("/api/markers", h.getMarkers))

		r.Post("/api/page-size", h.instrument("/api/page-size", h.postPageSize))
		r.Post("/api/page", h.instrument("/api/page", h.postPage))
		r.Post("/api/page/next", h.instrument("/api/page/next", h.event(func(s *dashboard.Shell) { s.NextPage() })))
		r.Post("/api/page/prev", h.instrument("/api/page/prev", h.event(func(s *dashboard.Shell) { s.PrevPage() })))

		r.Post("/api/sidebar/toggle", h.instrument("/api/sidebar/toggle", h.event(func(s *dashboard.Shell) { s.ToggleSidebar() })))
		r.Post("/api/sidebar/menu/toggle", h.instrument("/api/sidebar/menu/toggle", h.event(func(s *dashboard.Shell) { s.ToggleMenu() })))
		r.Post("/api/sidebar/menu/close", h.instrument("/api/sidebar/menu/close", h.event(func(s *dashboard.Shell) { s.CloseMenu() })))

		r.Post("/api/pins/toggle", h.instrument("/api/pins/toggle", h.event(func(s *dashboard.Shell) { s.TogglePins() })))

		r.Post("/api/search/open", h.instrument("/api/search/open", h.event(func(s *dashboard.Shell) { s.OpenSearch() })))
		r.Post("/api/search/close", h.instrument("/api/search/close", h.event(func(s *dashboard.Shell) { s.CloseSearch() })))
		r.Post("/api/search", h.instrument("/api/search", h.postSearch))
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func (h *Handler) instrument(route string, fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		fn(sw, r)
		observability.ObserveHTTP(r.Method, route, sw.code, time.Since(start).Seconds())
	}
}

// withShell runs fn on the request's session shell and renders the
// resulting view. A non-nil error from fn is mapped to a status code and
// the view is still returned so the client can redraw.
func (h *Handler) withShell(w http.ResponseWriter, r *http.Request, fn func(*dashboard.Shell) error) {
	id := middleware.SessionID(r.Context())

	var (
		view   dashboard.View
		actErr error
	)
	err := h.sessions.With(id, func(s *dashboard.Shell) error {
		actErr = fn(s)
		view = s.View()
		return nil
	})
	if errors.Is(err, session.ErrNotFound) {
		// expired between middleware and handler
		http.Error(w, "session expired", http.StatusConflict)
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "session access failed", "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if actErr != nil {
		status, msg := classify(actErr)
		if status >= http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "dashboard event failed", "err", actErr)
		} else {
			h.logger.DebugContext(r.Context(), "dashboard event rejected", "err", actErr)
		}
		writeJSON(w, status, errorBody{Error: msg, View: &view})
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type errorBody struct {
	Error string          `json:"error"`
	View  *dashboard.View `json:"view,omitempty"`
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, overlay.ErrInvalidCoordinates):
		return http.StatusUnprocessableEntity, overlay.InvalidInputMessage
	case errors.Is(err, pagination.ErrUnsupportedPageSize):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

var errBadRequest = errors.New("bad request")

func (h *Handler) event(fn func(*dashboard.Shell)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.withShell(w, r, func(s *dashboard.Shell) error {
			fn(s)
			return nil
		})
	}
}

func (h *Handler) getPage(w http.ResponseWriter, r *http.Request) {
	id := middleware.SessionID(r.Context())
	var view dashboard.View
	if err := h.sessions.With(id, func(s *dashboard.Shell) error {
		view = s.View()
		return nil
	}); err != nil {
		http.Error(w, "session expired", http.StatusConflict)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.page.Render(w, view); err != nil {
		h.logger.ErrorContext(r.Context(), "render page failed", "err", err)
	}
}

func (h *Handler) getView(w http.ResponseWriter, r *http.Request) {
	id := middleware.SessionID(r.Context())
	var view dashboard.View
	if err := h.sessions.With(id, func(s *dashboard.Shell) error {
		view = s.View()
		return nil
	}); err != nil {
		http.Error(w, "session expired", http.StatusConflict)
		return
	}
	b, err := json.Marshal(view)
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	writeWithETag(w, r, b)
}

func (h *Handler) getRecords(w http.ResponseWriter, r *http.Request) {
	writeWithETag(w, r, h.records.JSON())
}

type markersResponse struct {
	Pins     []mapview.Pin     `json:"pins,omitempty"`
	Clusters []mapview.Cluster `json:"clusters,omitempty"`
}

func (h *Handler) getMarkers(w http.ResponseWriter, r *http.Request) {
	res, cluster, err := parseClusterRes(r, h.clusterRes)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var pins []mapview.Pin
	if err := h.sessions.With(middleware.SessionID(r.Context()), func(s *dashboard.Shell) error {
		pins = s.Pins()
		return nil
	}); err != nil {
		http.Error(w, "session expired", http.StatusConflict)
		return
	}

	if !cluster {
		writeJSON(w, http.StatusOK, markersResponse{Pins: pins})
		return
	}
	cl, err := mapview.ClusterPins(pins, res)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, markersResponse{Clusters: cl})
}

// cluster=true uses the configured resolution; cluster_res=n overrides it.
func parseClusterRes(r *http.Request, def int) (int, bool, error) {
	q := r.URL.Query()
	if raw := strings.TrimSpace(q.Get("cluster_res")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return 0, false, fmt.Errorf("invalid cluster_res: %w", err)
		}
		if n < 0 || n > 15 {
			return 0, false, fmt.Errorf("invalid cluster_res %d (must be 0..15)", n)
		}
		return n, true, nil
	}
	switch strings.ToLower(strings.TrimSpace(q.Get("cluster"))) {
	case "1", "true", "yes":
		return def, true, nil
	}
	return 0, false, nil
}

type pageSizeReq struct {
	Size *int `json:"size"`
}

func (h *Handler) postPageSize(w http.ResponseWriter, r *http.Request) {
	var req pageSizeReq
	if err := decodeBody(r, &req); err != nil {
		h.withShell(w, r, func(*dashboard.Shell) error { return err })
		return
	}
	h.withShell(w, r, func(s *dashboard.Shell) error {
		if req.Size == nil {
			return fmt.Errorf("%w: missing size", errBadRequest)
		}
		return s.SetPageSize(*req.Size)
	})
}

type pageReq struct {
	Page *int `json:"page"`
}

func (h *Handler) postPage(w http.ResponseWriter, r *http.Request) {
	var req pageReq
	if err := decodeBody(r, &req); err != nil {
		h.withShell(w, r, func(*dashboard.Shell) error { return err })
		return
	}
	h.withShell(w, r, func(s *dashboard.Shell) error {
		if req.Page == nil {
			return fmt.Errorf("%w: missing page", errBadRequest)
		}
		s.GoToPage(*req.Page)
		return nil
	})
}

type searchReq struct {
	Lat string `json:"lat"`
	Lng string `json:"lng"`
}

func (h *Handler) postSearch(w http.ResponseWriter, r *http.Request) {
	var req searchReq
	if err := decodeBody(r, &req); err != nil {
		h.withShell(w, r, func(*dashboard.Shell) error { return err })
		return
	}
	h.withShell(w, r, func(s *dashboard.Shell) error {
		_, err := s.SubmitSearch(req.Lat, req.Lng)
		return err
	})
}

// decodeBody accepts JSON or a urlencoded form.
func decodeBody(r *http.Request, v any) error {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			return fmt.Errorf("%w: %v", errBadRequest, err)
		}
		return decodeForm(r, v)
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid json: %v", errBadRequest, err)
	}
	return nil
}

func decodeForm(r *http.Request, v any) error {
	switch t := v.(type) {
	case *searchReq:
		t.Lat = r.PostForm.Get("lat")
		t.Lng = r.PostForm.Get("lng")
	case *pageSizeReq:
		if raw := r.PostForm.Get("size"); raw != "" {
			n, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil {
				return fmt.Errorf("%w: invalid size", errBadRequest)
			}
			t.Size = &n
		}
	case *pageReq:
		if raw := r.PostForm.Get("page"); raw != "" {
			n, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil {
				return fmt.Errorf("%w: invalid page", errBadRequest)
			}
			t.Page = &n
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeWithETag(w http.ResponseWriter, r *http.Request, b []byte) {
	etag := `"` + keys.Fingerprint(b) + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}
