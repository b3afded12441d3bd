package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"slices"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // postgres driver
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver

	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/common"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/model"
)

// DefaultQuery is used when no query is configured. Any query must alias
// its columns to entity_id, order_date, quantity, unit_price and amount,
// plus optionally ship_date and profit.
const DefaultQuery = `SELECT entity_id, order_date, ship_date, quantity, unit_price, amount, profit FROM transactions`

type sqlRow struct {
	EntityID  sql.NullString `db:"entity_id"`
	OrderDate sql.NullString `db:"order_date"`
	ShipDate  sql.NullString `db:"ship_date"`
	Quantity  sql.NullString `db:"quantity"`
	UnitPrice sql.NullString `db:"unit_price"`
	Amount    sql.NullString `db:"amount"`
	Profit    sql.NullString `db:"profit"`
}

// SQLSource runs a query against a postgres or sqlite3 database.
type SQLSource struct {
	driver string
	dsn    string
	query  string
}

// NewSQLSource checks the driver name and returns a source.
func NewSQLSource(driver, dsn, query string) (*SQLSource, error) {
	if driver != "postgres" && driver != "sqlite3" {
		return nil, fmt.Errorf("%w: unsupported sql driver %q", common.ErrInvalidConfig, driver)
	}
	if dsn == "" {
		return nil, fmt.Errorf("%w: input.dsn is required for sql input", common.ErrMissingConfig)
	}
	if query == "" {
		query = DefaultQuery
	}
	return &SQLSource{driver: driver, dsn: dsn, query: query}, nil
}

// Load implements service.TransactionSource.
func (s *SQLSource) Load(ctx context.Context) ([]model.RawTransaction, model.SourceSchema, error) {
	name := s.driver + " query"

	db, err := sqlx.Open(s.driver, s.dsn)
	if err != nil {
		return nil, model.SourceSchema{}, common.DataLoadError(name, err)
	}
	defer func() { _ = db.Close() }()

	rows, err := db.Unsafe().QueryxContext(ctx, s.query)
	if err != nil {
		return nil, model.SourceSchema{}, common.DataLoadError(name, err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, model.SourceSchema{}, common.DataLoadError(name, err)
	}
	var missing []string
	for _, c := range []string{"entity_id", "order_date", "quantity", "unit_price", "amount"} {
		if !slices.Contains(cols, c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, model.SourceSchema{}, common.DataLoadError(name, fmt.Errorf("query lacks columns %v", missing))
	}
	schema := model.SourceSchema{
		Name:        name,
		HasProfit:   slices.Contains(cols, "profit"),
		HasShipDate: slices.Contains(cols, "ship_date"),
	}

	var out []model.RawTransaction
	for n := 1; rows.Next(); n++ {
		var r sqlRow
		if err := rows.StructScan(&r); err != nil {
			return nil, model.SourceSchema{}, common.DataLoadError(name, fmt.Errorf("row %d: %w", n, err))
		}
		out = append(out, model.RawTransaction{
			EntityID:  r.EntityID.String,
			OrderDate: r.OrderDate.String,
			ShipDate:  r.ShipDate.String,
			Quantity:  r.Quantity.String,
			UnitPrice: r.UnitPrice.String,
			Amount:    r.Amount.String,
			Profit:    r.Profit.String,
			Row:       n,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, model.SourceSchema{}, common.DataLoadError(name, err)
	}
	return out, schema, nil
}
