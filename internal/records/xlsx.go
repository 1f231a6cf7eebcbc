package records

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mohammed-shakir/merchant-map/internal/core/model"
)

var columns = []string{"member_id", "fname", "email", "phone", "lat", "long", "last_login_at"}

var ErrMissingColumn = errors.New("missing column")

// ReadXLSXFile reads records from the named sheet (the first sheet when
// empty). The first row is a header naming the JSON fields; column order is
// free. Rows without a numeric member_id are skipped and counted.
func ReadXLSXFile(path, sheet string) ([]model.Record, int, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()
	return ReadXLSX(f, sheet)
}

func ReadXLSX(f *excelize.File, sheet string) ([]model.Record, int, error) {
	if sheet == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return nil, 0, errors.New("workbook has no sheets")
		}
		sheet = list[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, 0, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return []model.Record{}, 0, nil
	}

	idx := make(map[string]int, len(columns))
	for i, h := range rows[0] {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range []string{"member_id", "lat", "long"} {
		if _, ok := idx[c]; !ok {
			return nil, 0, fmt.Errorf("sheet %q: %w %q", sheet, ErrMissingColumn, c)
		}
	}

	cell := func(row []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	out := make([]model.Record, 0, len(rows)-1)
	skipped := 0
	for _, row := range rows[1:] {
		id, err := strconv.Atoi(strings.TrimSpace(cell(row, "member_id")))
		if err != nil {
			skipped++
			continue
		}
		out = append(out, model.Record{
			ID:          id,
			Name:        cell(row, "fname"),
			Email:       cell(row, "email"),
			Phone:       cell(row, "phone"),
			Lat:         model.CoordText(cell(row, "lat")),
			Long:        model.CoordText(cell(row, "long")),
			LastLoginAt: cell(row, "last_login_at"),
		})
	}
	return out, skipped, nil
}

// WriteXLSX writes recs to a new workbook at path using the same header
// layout ReadXLSX expects.
func WriteXLSX(path string, recs []model.Record, sheet string) error {
	if sheet == "" {
		sheet = "Merchants"
	}
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheet)
	if err != nil {
		return err
	}
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return err
	}

	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}
	for i, r := range recs {
		cellName, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{r.ID, r.Name, r.Email, r.Phone, string(r.Lat), string(r.Long), r.LastLoginAt}
		if err := sw.SetRow(cellName, row); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}

	f.SetActiveSheet(index)
	if sheet != "Sheet1" {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}
