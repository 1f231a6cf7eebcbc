package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// ReadinessReporter reports whether the record collection is loaded.
type ReadinessReporter interface {
	Readiness() (ready bool, records int, source string)
}

// Check tests a backing dependency, such as the Redis record source.
type Check struct {
	Name string
	Run  func(ctx context.Context) error
}

const checkTimeout = 2 * time.Second

func Readiness(rr ReadinessReporter, checks ...Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		type resp struct {
			Status  string            `json:"status"`
			Records int               `json:"records"`
			Source  string            `json:"source,omitempty"`
			Failing map[string]string `json:"failing,omitempty"`
		}
		ready, n, src := rr.Readiness()
		out := resp{Status: "not_ready"}

		if ready && len(checks) > 0 {
			ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
			for _, c := range checks {
				if err := c.Run(ctx); err != nil {
					if out.Failing == nil {
						out.Failing = map[string]string{}
					}
					out.Failing[c.Name] = err.Error()
					ready = false
				}
			}
			cancel()
		}

		if ready {
			out.Status = "ready"
			out.Records = n
			out.Source = src
		}
		w.Header().Set("Content-Type", "application/json")
		if !ready {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(out)
	}
}
