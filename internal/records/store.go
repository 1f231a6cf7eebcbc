// Package records loads the static merchant collection once at startup and
// serves it read-only afterwards.
package records

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mohammed-shakir/merchant-map/internal/cache/keys"
	"github.com/mohammed-shakir/merchant-map/internal/core/model"
	"github.com/mohammed-shakir/merchant-map/internal/core/observability"
	"github.com/mohammed-shakir/merchant-map/internal/markers"
)

// Batch is one full read of a source. Skipped counts rows the source could
// not turn into a record.
type Batch struct {
	Records []model.Record
	Skipped int
}

// Source yields the full collection in one call.
type Source interface {
	Name() string
	Load(ctx context.Context) (Batch, error)
}

// Store is immutable after construction and safe for concurrent readers.
type Store struct {
	records     []model.Record
	payload     []byte
	fingerprint string
	source      string
	skipped     int
}

func NewStore(source string, recs []model.Record) (*Store, error) {
	if recs == nil {
		recs = []model.Record{}
	}
	payload, err := json.Marshal(recs)
	if err != nil {
		return nil, fmt.Errorf("encode records: %w", err)
	}
	return &Store{
		records:     recs,
		payload:     payload,
		fingerprint: keys.Fingerprint(payload),
		source:      source,
	}, nil
}

// Load reads src once and wraps the result in a Store.
func Load(ctx context.Context, logger *slog.Logger, src Source) (*Store, error) {
	start := time.Now()
	b, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load records from %s: %w", src.Name(), err)
	}
	st, err := NewStore(src.Name(), b.Records)
	if err != nil {
		return nil, err
	}
	st.skipped = b.Skipped
	observability.SetRecordsLoaded(src.Name(), st.Len())
	observability.SetRecordsSkipped(src.Name(), b.Skipped)
	invalid := markers.CountInvalid(st.records)
	observability.SetInvalidCoordinates(src.Name(), invalid)
	if b.Skipped > 0 {
		logger.Warn("rows skipped without a numeric member_id", "source", src.Name(), "skipped", b.Skipped)
	}
	if st.Len() == 0 {
		logger.Warn("record collection is empty", "source", src.Name())
	}
	logger.Info("records loaded",
		"source", src.Name(),
		"count", st.Len(),
		"skipped", b.Skipped,
		"invalid_coordinates", invalid,
		"fingerprint", st.Fingerprint(),
		"took", time.Since(start).String())
	return st, nil
}

// All returns the shared backing slice; callers must not modify it.
func (s *Store) All() []model.Record { return s.records }

func (s *Store) Len() int { return len(s.records) }

func (s *Store) Fingerprint() string { return s.fingerprint }

func (s *Store) Source() string { return s.source }

// Skipped is the number of source rows dropped while loading.
func (s *Store) Skipped() int { return s.skipped }

// JSON is the encoded collection, computed once.
func (s *Store) JSON() []byte { return s.payload }

// Readiness reports ready once a collection has been loaded, even an empty one.
func (s *Store) Readiness() (bool, int, string) {
	if s == nil {
		return false, 0, ""
	}
	return true, len(s.records), s.source
}
