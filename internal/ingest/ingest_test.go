package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/common"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/model"
)

const retailCSV = "City,Order Date,QtyOrdered,Unit Price,Sales,Profit,Ship Date\n" +
	"Boston,2023-01-05,2,10.5,21,3.2,2023-01-07\n" +
	"Denver,44927,1,99,99,-4,\n" +
	"\n" +
	"Austin,01/15/2023,3,5,15\n"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestCSVSource_Load(t *testing.T) {
	src, err := NewCSVSource(writeFile(t, "retail.csv", "\xEF\xBB\xBF"+retailCSV), "", Columns{})
	require.NoError(t, err)

	rows, schema, err := src.Load(context.Background())
	require.NoError(t, err)

	assert.True(t, schema.HasProfit)
	assert.True(t, schema.HasShipDate)
	require.Len(t, rows, 3)

	assert.Equal(t, model.RawTransaction{
		EntityID: "Boston", OrderDate: "2023-01-05", ShipDate: "2023-01-07",
		Quantity: "2", UnitPrice: "10.5", Amount: "21", Profit: "3.2", Row: 1,
	}, rows[0])
	assert.Equal(t, "44927", rows[1].OrderDate)
	assert.Equal(t, "-4", rows[1].Profit)

	// Short row: trailing cells are empty.
	assert.Equal(t, "Austin", rows[2].EntityID)
	assert.Empty(t, rows[2].Profit)
	assert.Empty(t, rows[2].ShipDate)
	assert.Equal(t, 3, rows[2].Row, "blank lines are skipped by the reader")
}

func TestCSVSource_CustomColumnsWithoutOptional(t *testing.T) {
	content := "store,day,n,price,total\nS1,2023-02-01,1,4,4\n"
	cols := Columns{Entity: "store", OrderDate: "day", Quantity: "n", UnitPrice: "price", Amount: "total"}

	src, err := NewCSVSource(writeFile(t, "custom.csv", content), "utf-8", cols)
	require.NoError(t, err)

	rows, schema, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.False(t, schema.HasProfit)
	assert.False(t, schema.HasShipDate)
	assert.Equal(t, "S1", rows[0].EntityID)
}

func TestCSVSource_ShiftJIS(t *testing.T) {
	content := "City,Order Date,QtyOrdered,Unit Price,Sales\n東京,2023-03-01,1,500,500\n"
	encoded, _, err := transform.String(japanese.ShiftJIS.NewEncoder(), content)
	require.NoError(t, err)

	src, err := NewCSVSource(writeFile(t, "sjis.csv", encoded), "shift_jis", Columns{})
	require.NoError(t, err)

	rows, _, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "東京", rows[0].EntityID)
}

func TestCSVSource_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "empty file", content: ""},
		{name: "missing required column", content: "City,Order Date,Sales\nBoston,2023-01-05,21\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := NewCSVSource(writeFile(t, "bad.csv", tt.content), "", Columns{})
			require.NoError(t, err)
			_, _, err = src.Load(context.Background())
			assert.ErrorIs(t, err, common.ErrDataLoad)
		})
	}

	src, err := NewCSVSource(filepath.Join(t.TempDir(), "absent.csv"), "", Columns{})
	require.NoError(t, err)
	_, _, err = src.Load(context.Background())
	assert.ErrorIs(t, err, common.ErrDataLoad)
}

func TestEncoding(t *testing.T) {
	enc, err := Encoding("")
	require.NoError(t, err)
	assert.Nil(t, enc)

	for _, name := range []string{"shift_jis", "Windows-1252", "latin1"} {
		enc, err := Encoding(name)
		require.NoError(t, err, name)
		assert.NotNil(t, enc, name)
	}

	_, err = Encoding("ebcdic")
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestXLSXSource_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "retail.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", DefaultSheet))
	require.NoError(t, f.SetSheetRow(DefaultSheet, "A1", &[]any{"City", "Order Date", "QtyOrdered", "Unit Price", "Sales", "Profit"}))
	require.NoError(t, f.SetSheetRow(DefaultSheet, "A2", &[]any{"Boston", 44927, 2, 10.5, 21, 3}))
	require.NoError(t, f.SetSheetRow(DefaultSheet, "A3", &[]any{"Denver", 44928, 1, 99, 99}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	rows, schema, err := NewXLSXSource(path, "", Columns{}).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, schema.HasProfit)
	assert.False(t, schema.HasShipDate)

	assert.Equal(t, "Boston", rows[0].EntityID)
	assert.Equal(t, "44927", rows[0].OrderDate)
	assert.Equal(t, "10.5", rows[0].UnitPrice)
	assert.Empty(t, rows[1].Profit)

	_, _, err = NewXLSXSource(path, "missing", Columns{}).Load(context.Background())
	assert.ErrorIs(t, err, common.ErrDataLoad)
}

func TestSQLSource_Load(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "tx.db")
	db, err := sqlx.Open("sqlite3", dsn)
	require.NoError(t, err)
	db.MustExec(`CREATE TABLE orders (city TEXT, ordered TEXT, qty INTEGER, price REAL, sales REAL, profit REAL)`)
	db.MustExec(`INSERT INTO orders VALUES ('Boston', '2023-01-05', 2, 10.5, 21, 3.25), ('Denver', '2023-01-06', 1, 99, 99, NULL)`)
	require.NoError(t, db.Close())

	query := `SELECT city AS entity_id, ordered AS order_date, qty AS quantity, price AS unit_price,
		sales AS amount, profit FROM orders ORDER BY city`
	src, err := NewSQLSource("sqlite3", dsn, query)
	require.NoError(t, err)

	rows, schema, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, schema.HasProfit)
	assert.False(t, schema.HasShipDate)

	assert.Equal(t, "Boston", rows[0].EntityID)
	assert.Equal(t, "2", rows[0].Quantity)
	assert.Equal(t, "10.5", rows[0].UnitPrice)
	assert.Equal(t, "3.25", rows[0].Profit)
	assert.Empty(t, rows[1].Profit)

	bad, err := NewSQLSource("sqlite3", dsn, `SELECT city AS entity_id FROM orders`)
	require.NoError(t, err)
	_, _, err = bad.Load(context.Background())
	assert.ErrorIs(t, err, common.ErrDataLoad)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		want    any
		wantErr error
	}{
		{name: "csv by extension", opts: Options{Path: "in.csv"}, want: &CSVSource{}},
		{name: "xlsx by extension", opts: Options{Path: "in.xlsx"}, want: &XLSXSource{}},
		{name: "explicit sql", opts: Options{Kind: "sql", Driver: "sqlite3", DSN: "x.db"}, want: &SQLSource{}},
		{name: "unknown extension", opts: Options{Path: "in.parquet"}, wantErr: common.ErrInvalidConfig},
		{name: "bad driver", opts: Options{Kind: "sql", Driver: "mysql", DSN: "x"}, wantErr: common.ErrInvalidConfig},
		{name: "missing dsn", opts: Options{Kind: "sql", Driver: "postgres"}, wantErr: common.ErrMissingConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := New(tt.opts)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, src)
		})
	}
}
