package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/common"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/model"
)

// XLSXSource reads one worksheet of a workbook. Cells are read raw so date
// cells arrive as day serials.
type XLSXSource struct {
	path    string
	sheet   string
	columns Columns
}

// NewXLSXSource returns a source for sheet of the workbook at path.
func NewXLSXSource(path, sheet string, cols Columns) *XLSXSource {
	if sheet == "" {
		sheet = DefaultSheet
	}
	return &XLSXSource{path: path, sheet: sheet, columns: cols.withDefaults()}
}

// Load implements service.TransactionSource.
func (s *XLSXSource) Load(ctx context.Context) ([]model.RawTransaction, model.SourceSchema, error) {
	name := fmt.Sprintf("%s[%s]", s.path, s.sheet)

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, model.SourceSchema{}, common.DataLoadError(name, err)
	}
	defer func() { _ = f.Close() }()

	records, err := f.GetRows(s.sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, model.SourceSchema{}, common.DataLoadError(name, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, model.SourceSchema{}, err
	}
	if len(records) == 0 {
		return nil, model.SourceSchema{}, common.DataLoadError(name, errors.New("sheet is empty"))
	}

	h, err := newHeaderMap(name, records[0], s.columns)
	if err != nil {
		return nil, model.SourceSchema{}, err
	}

	rows := make([]model.RawTransaction, 0, len(records)-1)
	for n, record := range records[1:] {
		if blank(record) {
			continue
		}
		rows = append(rows, h.row(record, n+1))
	}
	return rows, h.schema(name), nil
}
