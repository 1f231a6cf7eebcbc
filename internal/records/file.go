package records

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mohammed-shakir/merchant-map/internal/core/model"
)

// FileSource reads a .json array or an .xlsx workbook.
type FileSource struct {
	Path  string
	Sheet string
}

func (f FileSource) Name() string { return "file" }

func (f FileSource) Load(ctx context.Context) (Batch, error) {
	if err := ctx.Err(); err != nil {
		return Batch{}, err
	}
	switch strings.ToLower(filepath.Ext(f.Path)) {
	case ".xlsx", ".xlsm":
		recs, skipped, err := ReadXLSXFile(f.Path, f.Sheet)
		return Batch{Records: recs, Skipped: skipped}, err
	default:
		fh, err := os.Open(f.Path)
		if err != nil {
			return Batch{}, fmt.Errorf("open %s: %w", f.Path, err)
		}
		defer fh.Close()
		recs, err := DecodeJSON(fh)
		return Batch{Records: recs}, err
	}
}

// DecodeJSON reads an ordered array of records. No schema validation beyond
// field types is done.
func DecodeJSON(r io.Reader) ([]model.Record, error) {
	var recs []model.Record
	dec := json.NewDecoder(r)
	if err := dec.Decode(&recs); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	if recs == nil {
		recs = []model.Record{}
	}
	return recs, nil
}
