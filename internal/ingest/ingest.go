// Package ingest loads raw transaction rows from CSV files, XLSX workbooks
// and SQL databases.
package ingest

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/common"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/model"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/service"
)

// Source kinds.
const (
	KindCSV  = "csv"
	KindXLSX = "xlsx"
	KindSQL  = "sql"
)

// DefaultSheet is the worksheet read from XLSX workbooks.
const DefaultSheet = "retails"

// Columns maps canonical fields to header names in the source.
type Columns struct {
	Entity    string `mapstructure:"entity"`
	OrderDate string `mapstructure:"order_date"`
	ShipDate  string `mapstructure:"ship_date"`
	Quantity  string `mapstructure:"quantity"`
	UnitPrice string `mapstructure:"unit_price"`
	Amount    string `mapstructure:"amount"`
	Profit    string `mapstructure:"profit"`
}

// DefaultColumns returns the header names of the retail export.
func DefaultColumns() Columns {
	return Columns{
		Entity:    "City",
		OrderDate: "Order Date",
		ShipDate:  "Ship Date",
		Quantity:  "QtyOrdered",
		UnitPrice: "Unit Price",
		Amount:    "Sales",
		Profit:    "Profit",
	}
}

// withDefaults fills empty names from DefaultColumns.
func (c Columns) withDefaults() Columns {
	d := DefaultColumns()
	pick := func(v, fallback string) string {
		if strings.TrimSpace(v) == "" {
			return fallback
		}
		return v
	}
	return Columns{
		Entity:    pick(c.Entity, d.Entity),
		OrderDate: pick(c.OrderDate, d.OrderDate),
		ShipDate:  pick(c.ShipDate, d.ShipDate),
		Quantity:  pick(c.Quantity, d.Quantity),
		UnitPrice: pick(c.UnitPrice, d.UnitPrice),
		Amount:    pick(c.Amount, d.Amount),
		Profit:    pick(c.Profit, d.Profit),
	}
}

// Options selects and configures a source.
type Options struct {
	// Kind is csv, xlsx or sql. Empty infers it from the Path extension.
	Kind     string  `mapstructure:"kind"`
	Path     string  `mapstructure:"path"`
	Sheet    string  `mapstructure:"sheet"`
	Encoding string  `mapstructure:"encoding"`
	Driver   string  `mapstructure:"driver"`
	DSN      string  `mapstructure:"dsn"`
	Query    string  `mapstructure:"query"`
	Columns  Columns `mapstructure:"columns"`
}

// New builds the source described by opts.
func New(opts Options) (service.TransactionSource, error) {
	kind := strings.ToLower(opts.Kind)
	if kind == "" {
		switch strings.ToLower(filepath.Ext(opts.Path)) {
		case ".csv", ".txt":
			kind = KindCSV
		case ".xlsx", ".xlsm":
			kind = KindXLSX
		default:
			return nil, fmt.Errorf("%w: cannot infer input kind from %q", common.ErrInvalidConfig, opts.Path)
		}
	}

	switch kind {
	case KindCSV:
		src, err := NewCSVSource(opts.Path, opts.Encoding, opts.Columns)
		if err != nil {
			return nil, err
		}
		return src, nil
	case KindXLSX:
		return NewXLSXSource(opts.Path, opts.Sheet, opts.Columns), nil
	case KindSQL:
		src, err := NewSQLSource(opts.Driver, opts.DSN, opts.Query)
		if err != nil {
			return nil, err
		}
		return src, nil
	default:
		return nil, fmt.Errorf("%w: unknown input kind %q", common.ErrInvalidConfig, opts.Kind)
	}
}

// headerMap resolves column positions from a header row.
type headerMap struct {
	entity, order, ship, qty, price, amount, profit int
}

func newHeaderMap(source string, header []string, cols Columns) (headerMap, error) {
	pos := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if _, dup := pos[name]; !dup {
			pos[name] = i
		}
	}

	var missing []string
	required := func(name string) int {
		i, ok := pos[name]
		if !ok {
			missing = append(missing, name)
			return -1
		}
		return i
	}
	optional := func(name string) int {
		if i, ok := pos[name]; ok {
			return i
		}
		return -1
	}

	h := headerMap{
		entity: required(cols.Entity),
		order:  required(cols.OrderDate),
		qty:    required(cols.Quantity),
		price:  required(cols.UnitPrice),
		amount: required(cols.Amount),
		ship:   optional(cols.ShipDate),
		profit: optional(cols.Profit),
	}
	if len(missing) > 0 {
		return headerMap{}, common.DataLoadError(source, fmt.Errorf("missing columns: %s", strings.Join(missing, ", ")))
	}
	return h, nil
}

func (h headerMap) schema(name string) model.SourceSchema {
	return model.SourceSchema{Name: name, HasProfit: h.profit >= 0, HasShipDate: h.ship >= 0}
}

// row converts one record. Short records read as empty trailing cells.
func (h headerMap) row(record []string, n int) model.RawTransaction {
	cell := func(i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}
	return model.RawTransaction{
		EntityID:  cell(h.entity),
		OrderDate: cell(h.order),
		ShipDate:  cell(h.ship),
		Quantity:  cell(h.qty),
		UnitPrice: cell(h.price),
		Amount:    cell(h.amount),
		Profit:    cell(h.profit),
		Row:       n,
	}
}

func blank(record []string) bool {
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
