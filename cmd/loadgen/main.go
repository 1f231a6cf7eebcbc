// Command loadgen drives a running dashboard with many concurrent viewers.
// Each viewer holds its own session and fires a Zipf-weighted mix of
// dashboard events, so the common interactions dominate the way they do
// for real users.
package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mohammed-shakir/merchant-map/internal/core/httpclient"
)

type Config struct {
	BaseURL         string
	Viewers         int
	Duration        time.Duration
	ZipfS           float64
	ZipfV           float64
	OutputPrefix    string
	RequestTimeout  time.Duration
	AppendTimestamp bool
}

func loadConfig() Config {
	var cfg Config
	flag.StringVar(&cfg.BaseURL, "target", "http://localhost:8090", "Dashboard base URL")
	flag.IntVar(&cfg.Viewers, "viewers", 32, "Concurrent viewers, one session each")
	flag.DurationVar(&cfg.Duration, "duration", 60*time.Second, "Test duration")
	flag.Float64Var(&cfg.ZipfS, "zipf-s", 1.3, "Zipf parameter s (>1)")
	flag.Float64Var(&cfg.ZipfV, "zipf-v", 1.0, "Zipf parameter v (>=1)")
	flag.StringVar(&cfg.OutputPrefix, "out", "results/loadgen", "Output file prefix (JSON/CSV)")
	flag.DurationVar(&cfg.RequestTimeout, "timeout", 10*time.Second, "Per-request timeout")
	flag.BoolVar(&cfg.AppendTimestamp, "append-ts", true, "Append timestamp to output prefix")
	flag.Parse()
	return cfg
}

type action struct {
	Name   string
	Method string
	Path   string
	Body   func(r *rand.Rand) any
}

// ordered from most to least common
var actions = []action{
	{Name: "view", Method: http.MethodGet, Path: "/api/view"},
	{Name: "next", Method: http.MethodPost, Path: "/api/page/next"},
	{Name: "prev", Method: http.MethodPost, Path: "/api/page/prev"},
	{Name: "markers", Method: http.MethodGet, Path: "/api/markers"},
	{Name: "search", Method: http.MethodPost, Path: "/api/search", Body: func(r *rand.Rand) any {
		// roughly Indonesia; one in ten submissions is deliberately malformed
		if r.Intn(10) == 0 {
			return map[string]string{"lat": "north", "lng": "east"}
		}
		return map[string]string{
			"lat": fmt.Sprintf("%.5f", -10+r.Float64()*15),
			"lng": fmt.Sprintf("%.5f", 95+r.Float64()*46),
		}
	}},
	{Name: "page_size", Method: http.MethodPost, Path: "/api/page-size", Body: func(r *rand.Rand) any {
		sizes := []int{0, 10, 50, 100}
		return map[string]int{"size": sizes[r.Intn(len(sizes))]}
	}},
	{Name: "pins", Method: http.MethodPost, Path: "/api/pins/toggle"},
	{Name: "sidebar", Method: http.MethodPost, Path: "/api/sidebar/toggle"},
	{Name: "clusters", Method: http.MethodGet, Path: "/api/markers?cluster=true"},
}

// request result (one sample per request)
type sample struct {
	Timestamp time.Time
	Latency   time.Duration
	Status    int
	ErrorMsg  string
	Viewer    int
	Action    string
}

type actionStats struct {
	Count int64   `json:"count"`
	P50Ms float64 `json:"p50_ms"`
	P95Ms float64 `json:"p95_ms"`
}

type summary struct {
	StartTime     time.Time              `json:"start"`
	EndTime       time.Time              `json:"end"`
	DurationSec   float64                `json:"duration_sec"`
	TotalRequests int64                  `json:"total"`
	SuccessCount  int64                  `json:"success"`
	ErrorCount    int64                  `json:"errors"`
	ThroughputRPS float64                `json:"throughput_rps"`
	P50Ms         float64                `json:"p50_ms"`
	P95Ms         float64                `json:"p95_ms"`
	P99Ms         float64                `json:"p99_ms"`
	Viewers       int                    `json:"viewers"`
	ZipfS         float64                `json:"zipf_s"`
	ZipfV         float64                `json:"zipf_v"`
	BaseURL       string                 `json:"target"`
	Actions       map[string]actionStats `json:"actions"`
}

type aggregatedResult struct {
	total    int64
	success  int64
	errors   int64
	latMs    []float64
	byAction map[string][]float64
}

// ok reports whether a response counts as success. A 422 on a malformed
// search is the expected outcome, not an error.
func ok(s sample) bool {
	if s.ErrorMsg != "" {
		return false
	}
	return (s.Status >= 200 && s.Status < 300) || s.Status == http.StatusUnprocessableEntity
}

func main() {
	cfg := loadConfig()
	if cfg.Viewers <= 0 {
		log.Fatalf("viewers must be > 0")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.OutputPrefix), 0o750); err != nil {
		log.Fatalf("mkdir results: %v", err)
	}
	prefix := cfg.OutputPrefix
	if cfg.AppendTimestamp {
		prefix = fmt.Sprintf("%s_%s", prefix, time.Now().UTC().Format("20060102_150405Z"))
	}
	base := strings.TrimRight(cfg.BaseURL, "/")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	csvPath := prefix + "_samples.csv"
	jsonPath := prefix + "_summary.json"
	csvFile, err := os.Create(filepath.Clean(csvPath))
	if err != nil {
		log.Printf("open csv: %v", err)
		return
	}
	defer func() { _ = csvFile.Close() }()

	samplesChan := make(chan sample, 4096)
	resultsChan := make(chan aggregatedResult, 1)
	go collect(csv.NewWriter(csvFile), samplesChan, resultsChan)

	startTime := time.Now()
	log.Printf("loadgen start target=%s dur=%s viewers=%d zipf(s=%.2f,v=%.2f)",
		base, cfg.Duration, cfg.Viewers, cfg.ZipfS, cfg.ZipfV)

	seed := time.Now().UnixNano()
	tr := httpclient.NewTransport()
	var wg sync.WaitGroup
	wg.Add(cfg.Viewers)
	for id := range cfg.Viewers {
		go func(id int) {
			defer wg.Done()
			client, err := httpclient.NewViewer(tr, cfg.RequestTimeout)
			if err != nil {
				log.Printf("viewer %d: %v", id, err)
				return
			}
			r := rand.New(rand.NewSource(seed + int64(id) + 1))
			zipf := rand.NewZipf(r, cfg.ZipfS, cfg.ZipfV, uint64(len(actions)-1))
			if zipf == nil {
				log.Printf("viewer %d: invalid zipf parameters s=%.2f v=%.2f", id, cfg.ZipfS, cfg.ZipfV)
				return
			}

			// the first request opens the session
			fire(ctx, client, base, actions[0], r, id, samplesChan)
			for ctx.Err() == nil {
				fire(ctx, client, base, actions[zipf.Uint64()], r, id, samplesChan)
			}
		}(id)
	}

	go func() {
		wg.Wait()
		close(samplesChan)
	}()

	agg := <-resultsChan
	endTime := time.Now()
	elapsed := endTime.Sub(startTime).Seconds()

	sort.Float64s(agg.latMs)
	runSummary := summary{
		StartTime:     startTime.UTC(),
		EndTime:       endTime.UTC(),
		DurationSec:   elapsed,
		TotalRequests: agg.total,
		SuccessCount:  agg.success,
		ErrorCount:    agg.errors,
		ThroughputRPS: float64(agg.total) / elapsed,
		P50Ms:         percentile(agg.latMs, 50),
		P95Ms:         percentile(agg.latMs, 95),
		P99Ms:         percentile(agg.latMs, 99),
		Viewers:       cfg.Viewers,
		ZipfS:         cfg.ZipfS,
		ZipfV:         cfg.ZipfV,
		BaseURL:       base,
		Actions:       make(map[string]actionStats, len(agg.byAction)),
	}
	for name, lat := range agg.byAction {
		sort.Float64s(lat)
		runSummary.Actions[name] = actionStats{Count: int64(len(lat)), P50Ms: percentile(lat, 50), P95Ms: percentile(lat, 95)}
	}

	if jsonFile, err := os.Create(filepath.Clean(jsonPath)); err == nil {
		enc := json.NewEncoder(jsonFile)
		enc.SetIndent("", "  ")
		_ = enc.Encode(runSummary)
		_ = jsonFile.Close()
	}

	log.Printf("done: total=%d succ=%d err=%d thr=%.2f rps p50=%.1fms p95=%.1fms p99=%.1fms",
		agg.total, agg.success, agg.errors, runSummary.ThroughputRPS, runSummary.P50Ms, runSummary.P95Ms, runSummary.P99Ms)
	log.Printf("wrote %s and %s", jsonPath, csvPath)
}

func fire(ctx context.Context, c *http.Client, base string, a action, r *rand.Rand, viewer int, out chan<- sample) {
	var body io.Reader
	if a.Body != nil {
		b, _ := json.Marshal(a.Body(r))
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, a.Method, base+a.Path, body)
	if err != nil {
		return
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.Do(req)
	s := sample{Timestamp: start, Latency: time.Since(start), Viewer: viewer, Action: a.Name}
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.ErrorMsg = err.Error()
	} else {
		s.Status = resp.StatusCode
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		if !ok(s) {
			s.ErrorMsg = fmt.Sprintf("status=%d", resp.StatusCode)
		}
	}

	select {
	case out <- s:
	case <-ctx.Done():
	}
}

func collect(w *csv.Writer, in <-chan sample, out chan<- aggregatedResult) {
	_ = w.Write([]string{"timestamp", "latency_ms", "status", "error", "viewer", "action"})
	agg := aggregatedResult{latMs: make([]float64, 0, 1<<16), byAction: map[string][]float64{}}
	for s := range in {
		agg.total++
		ms := float64(s.Latency.Microseconds()) / 1000.0
		if ok(s) {
			agg.success++
			agg.latMs = append(agg.latMs, ms)
			agg.byAction[s.Action] = append(agg.byAction[s.Action], ms)
		} else {
			agg.errors++
		}
		_ = w.Write([]string{
			s.Timestamp.UTC().Format(time.RFC3339Nano),
			fmt.Sprintf("%.3f", ms),
			fmt.Sprintf("%d", s.Status),
			s.ErrorMsg,
			fmt.Sprintf("%d", s.Viewer),
			s.Action,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		log.Printf("csv flush error: %v", err)
	}
	out <- agg
}

func percentile(sortedValues []float64, p float64) float64 {
	if len(sortedValues) == 0 {
		return math.NaN()
	}
	if p <= 0 {
		return sortedValues[0]
	}
	if p >= 100 {
		return sortedValues[len(sortedValues)-1]
	}
	k := (p / 100.0) * float64(len(sortedValues)-1)
	f := math.Floor(k)
	i := int(f)
	if i >= len(sortedValues)-1 {
		return sortedValues[len(sortedValues)-1]
	}
	d := k - f
	return sortedValues[i]*(1-d) + sortedValues[i+1]*d
}
