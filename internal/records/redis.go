package records

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/mohammed-shakir/merchant-map/internal/cache"
	"github.com/mohammed-shakir/merchant-map/internal/core/model"
)

// RedisSource reads a collection published by Publish.
type RedisSource struct {
	Client cache.Reader
	Key    string
}

func (r RedisSource) Name() string { return "redis" }

func (r RedisSource) Load(ctx context.Context) (Batch, error) {
	b, err := r.Client.Get(ctx, r.Key)
	if err != nil {
		return Batch{}, err
	}
	recs, err := DecodeJSON(bytes.NewReader(b))
	return Batch{Records: recs}, err
}

// Publish stores recs under key with no expiry, replacing any earlier
// collection.
func Publish(ctx context.Context, c cache.Writer, key string, recs []model.Record) error {
	if recs == nil {
		recs = []model.Record{}
	}
	b, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	return c.Set(ctx, key, b, 0)
}
