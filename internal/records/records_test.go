package records

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/xuri/excelize/v2"

	"github.com/mohammed-shakir/merchant-map/internal/cache/keys"
	"github.com/mohammed-shakir/merchant-map/internal/cache/redisstore"
	"github.com/mohammed-shakir/merchant-map/internal/core/model"
	"github.com/mohammed-shakir/merchant-map/internal/core/observability"
	"github.com/mohammed-shakir/merchant-map/internal/dashboard"
	"github.com/mohammed-shakir/merchant-map/internal/mapview"
	"github.com/mohammed-shakir/merchant-map/internal/metrics"
)

const sample = `[
 {"member_id":1,"fname":"Warung Sari","email":"sari@x.id","phone":"0811","lat":"  -6.2 ","long":"106.8","last_login_at":"2024-05-01 10:00:00"},
 {"member_id":2,"fname":"Toko Abadi","email":"abadi@x.id","phone":"0812","lat":"abc","long":"115.2","last_login_at":"2024-05-02"}
]`

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestFileSource_JSON(t *testing.T) {
	p := filepath.Join(t.TempDir(), "koordinat.json")
	if err := os.WriteFile(p, []byte(sample), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	st, err := Load(context.Background(), discard(), FileSource{Path: p})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if st.Len() != 2 || st.Source() != "file" {
		t.Fatalf("len=%d source=%s", st.Len(), st.Source())
	}
	if st.All()[0].Lat != "  -6.2 " {
		t.Fatalf("lat text altered: %q", st.All()[0].Lat)
	}
	if st.Fingerprint() == "" || len(st.JSON()) == 0 {
		t.Fatal("fingerprint/payload missing")
	}
}

func TestFileSource_Errors(t *testing.T) {
	ctx := context.Background()
	if _, err := Load(ctx, discard(), FileSource{Path: filepath.Join(t.TempDir(), "nope.json")}); err == nil {
		t.Fatal("expected error for missing file")
	}
	p := filepath.Join(t.TempDir(), "bad.json")
	_ = os.WriteFile(p, []byte(`{"not":"an array"}`), 0o600)
	if _, err := Load(ctx, discard(), FileSource{Path: p}); err == nil {
		t.Fatal("expected decode error")
	}
	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := (FileSource{Path: p}).Load(cctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v want canceled", err)
	}
}

func TestFingerprint_ChangesWithContent(t *testing.T) {
	a, _ := NewStore("file", []model.Record{{ID: 1}})
	b, _ := NewStore("file", []model.Record{{ID: 2}})
	c, _ := NewStore("file", nil)
	if a.Fingerprint() == b.Fingerprint() {
		t.Fatal("fingerprints should differ")
	}
	if string(c.JSON()) != "[]" {
		t.Fatalf("empty payload=%s", c.JSON())
	}
}

func TestXLSX_RoundTrip(t *testing.T) {
	recs, err := DecodeJSON(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	p := filepath.Join(t.TempDir(), "merchants.xlsx")
	if err := WriteXLSX(p, recs, ""); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}

	st, err := Load(context.Background(), discard(), FileSource{Path: p})
	if err != nil {
		t.Fatalf("Load xlsx: %v", err)
	}
	if st.Len() != 2 {
		t.Fatalf("len=%d", st.Len())
	}
	got := st.All()[1]
	if got.ID != 2 || got.Name != "Toko Abadi" || got.Lat != "abc" || got.LastLoginAt != "2024-05-02" {
		t.Fatalf("row=%+v", got)
	}
}

func TestReadXLSX_HeaderOrderAndSkips(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	rows := [][]interface{}{
		{"LAT", "Long", "member_id", "fname"},
		{"-6.2", "106.8", 7, "Kios"},
		{"-6.3", "106.9", "n/a", "No id"},
		{"-6.4"},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &r); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	recs, skipped, err := ReadXLSX(f, "")
	if err != nil {
		t.Fatalf("ReadXLSX: %v", err)
	}
	if len(recs) != 1 || skipped != 2 {
		t.Fatalf("recs=%d skipped=%d", len(recs), skipped)
	}
	if recs[0].ID != 7 || recs[0].Lat != "-6.2" || recs[0].Email != "" {
		t.Fatalf("rec=%+v", recs[0])
	}
}

func TestReadXLSX_MissingColumn(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	hdr := []interface{}{"member_id", "lat"}
	_ = f.SetSheetRow("Sheet1", "A1", &hdr)
	if _, _, err := ReadXLSX(f, "Sheet1"); !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("err=%v want ErrMissingColumn", err)
	}
}

func TestRedisSource_PublishThenLoad(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	rc, err := redisstore.New(ctx, mr.Addr())
	if err != nil {
		t.Fatalf("redis: %v", err)
	}
	defer rc.Close()

	recs, _ := DecodeJSON(strings.NewReader(sample))
	key := keys.Dataset("bali")
	if err := Publish(ctx, rc, key, recs); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	st, err := Load(ctx, discard(), RedisSource{Client: rc, Key: key})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if st.Len() != 2 || st.Source() != "redis" || st.All()[0].Name != "Warung Sari" {
		t.Fatalf("store=%+v", st.All())
	}

	_, err = Load(ctx, discard(), RedisSource{Client: rc, Key: keys.Dataset("missing")})
	if !errors.Is(err, redisstore.ErrNotFound) {
		t.Fatalf("err=%v want ErrNotFound", err)
	}
}

func TestFileSource_XLSXReportsSkippedRows(t *testing.T) {
	f := excelize.NewFile()
	rows := [][]interface{}{
		{"member_id", "fname", "lat", "long"},
		{1, "Kios", "-6.2", "106.8"},
		{"", "No id", "-6.3", "106.9"},
		{"abc", "Bad id", "-6.4", "107.0"},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &r); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	p := filepath.Join(t.TempDir(), "skips.xlsx")
	if err := f.SaveAs(p); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	_ = f.Close()

	b, err := (FileSource{Path: p}).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(b.Records) != 1 || b.Skipped != 2 {
		t.Fatalf("records=%d skipped=%d", len(b.Records), b.Skipped)
	}

	var logs strings.Builder
	st, err := Load(context.Background(), slog.New(slog.NewTextHandler(&logs, nil)), FileSource{Path: p})
	if err != nil {
		t.Fatalf("Load store: %v", err)
	}
	if st.Skipped() != 2 {
		t.Fatalf("store skipped=%d", st.Skipped())
	}
	if !strings.Contains(logs.String(), "skipped=2") {
		t.Fatalf("skip not logged: %s", logs.String())
	}
}

func TestLoad_InvalidCoordinatesCountedOnce(t *testing.T) {
	p := metrics.Init(metrics.Config{})
	observability.Init(p.Registerer(), true)

	path := filepath.Join(t.TempDir(), "koordinat.json")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	st, err := Load(context.Background(), discard(), FileSource{Path: path})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	sh, err := dashboard.New(st.All(), dashboard.Options{PageSize: 10, Map: mapview.DefaultOptions()})
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	for range 5 {
		_ = sh.View()
		_ = sh.Pins()
	}

	rr := httptest.NewRecorder()
	p.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rr.Body.String(), `records_invalid_coordinates{source="file"} 1`+"\n") {
		t.Fatalf("gauge should count the bad row once; got:\n%s", rr.Body.String())
	}
}
