package session

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mohammed-shakir/merchant-map/internal/core/model"
	"github.com/mohammed-shakir/merchant-map/internal/core/observability"
	"github.com/mohammed-shakir/merchant-map/internal/dashboard"
	"github.com/mohammed-shakir/merchant-map/internal/mapview"
	"github.com/mohammed-shakir/merchant-map/internal/metrics"
)

func factory(n int) Factory {
	recs := make([]model.Record, n)
	for i := range recs {
		recs[i] = model.Record{ID: i + 1, Lat: "-6.2", Long: "106.8"}
	}
	return func() (*dashboard.Shell, error) {
		return dashboard.New(recs, dashboard.Options{PageSize: 10, Map: mapview.DefaultOptions()})
	}
}

func TestCreateAndWith_IsolatesSessions(t *testing.T) {
	s := NewStore(8, time.Minute, factory(30))
	a, err := s.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	b, _ := s.Create()
	if a == b {
		t.Fatal("duplicate ids")
	}

	_ = s.With(a, func(sh *dashboard.Shell) error {
		sh.NextPage()
		return nil
	})

	var pa, pb int
	_ = s.With(a, func(sh *dashboard.Shell) error { pa = sh.View().Sidebar.Page; return nil })
	_ = s.With(b, func(sh *dashboard.Shell) error { pb = sh.View().Sidebar.Page; return nil })
	if pa != 2 || pb != 1 {
		t.Fatalf("pages a=%d b=%d", pa, pb)
	}
	if s.Len() != 2 {
		t.Fatalf("len=%d", s.Len())
	}
}

func TestWith_UnknownAndErrorPassThrough(t *testing.T) {
	s := NewStore(8, time.Minute, factory(1))
	if err := s.With("nope", func(*dashboard.Shell) error { return nil }); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v want ErrNotFound", err)
	}
	id, _ := s.Create()
	boom := errors.New("boom")
	if err := s.With(id, func(*dashboard.Shell) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}
}

func TestEnsure(t *testing.T) {
	s := NewStore(8, time.Minute, factory(1))
	id, created, err := s.Ensure("")
	if err != nil || !created || id == "" {
		t.Fatalf("Ensure empty: id=%q created=%v err=%v", id, created, err)
	}
	same, created, _ := s.Ensure(id)
	if same != id || created {
		t.Fatalf("Ensure existing: %q created=%v", same, created)
	}
	other, created, _ := s.Ensure("stale-id")
	if other == "stale-id" || !created {
		t.Fatalf("Ensure stale: %q created=%v", other, created)
	}
}

func TestFactoryError(t *testing.T) {
	s := NewStore(8, time.Minute, func() (*dashboard.Shell, error) {
		return nil, errors.New("no data")
	})
	if _, err := s.Create(); err == nil {
		t.Fatal("expected factory error")
	}
	if s.Len() != 0 {
		t.Fatalf("len=%d", s.Len())
	}
}

func TestBoundedAndExpiring(t *testing.T) {
	s := NewStore(2, 50*time.Millisecond, factory(1))
	first, _ := s.Create()
	_, _ = s.Create()
	_, _ = s.Create()
	if s.Len() != 2 {
		t.Fatalf("len=%d want 2", s.Len())
	}
	if err := s.With(first, func(*dashboard.Shell) error { return nil }); !errors.Is(err, ErrNotFound) {
		t.Fatalf("oldest session not evicted: %v", err)
	}

	id, _ := s.Create()
	time.Sleep(150 * time.Millisecond)
	if err := s.With(id, func(*dashboard.Shell) error { return nil }); !errors.Is(err, ErrNotFound) {
		t.Fatalf("idle session not expired: %v", err)
	}
}

func TestWith_SerializesPerSession(t *testing.T) {
	s := NewStore(8, time.Minute, factory(10000))
	id, _ := s.Create()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.With(id, func(sh *dashboard.Shell) error {
				sh.NextPage()
				return nil
			})
		}()
	}
	wg.Wait()

	var page int
	_ = s.With(id, func(sh *dashboard.Shell) error { page = sh.View().Sidebar.Page; return nil })
	if page != 51 {
		t.Fatalf("page=%d want 51", page)
	}
}

func TestActiveSessionsGauge_TracksLen(t *testing.T) {
	p := metrics.Init(metrics.Config{})
	observability.Init(p.Registerer(), true)

	waitGauge := func(want int) {
		t.Helper()
		line := fmt.Sprintf("dashboard_sessions_active %d", want)
		deadline := time.Now().Add(2 * time.Second)
		for {
			rr := httptest.NewRecorder()
			p.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
			if strings.Contains(rr.Body.String(), line+"\n") {
				return
			}
			if time.Now().After(deadline) {
				t.Fatalf("gauge never reached %d", want)
			}
			time.Sleep(10 * time.Millisecond)
		}
	}

	s := NewStore(8, 100*time.Millisecond, factory(1))
	a, _ := s.Create()
	_, _ = s.Create()
	waitGauge(2)

	// renewals do not count as new sessions
	for range 3 {
		_ = s.With(a, func(*dashboard.Shell) error { return nil })
	}
	waitGauge(2)

	// expiry drains the gauge to zero, never below
	waitGauge(0)
	if s.Len() != 0 {
		t.Fatalf("len=%d", s.Len())
	}
}
