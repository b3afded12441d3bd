package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/common"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/model"
)

func raw(entity, date, qty, price, amount, profit string) model.RawTransaction {
	return model.RawTransaction{
		EntityID:  entity,
		OrderDate: date,
		Quantity:  qty,
		UnitPrice: price,
		Amount:    amount,
		Profit:    profit,
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAggregate_SumsPerEntityAndDay(t *testing.T) {
	rows := []model.RawTransaction{
		raw("Austin", "2023-01-01", "1", "0.1", "0.1", "1"),
		raw("Austin", "2023-01-01 14:30:00", "1", "0.2", "0.2", "2"),
		raw("Austin", "2023-01-05", "1", "0.3", "0.3", "0"),
		raw("Boston", "01/02/2023", "1", "0.25", "0.25", "0.5"),
	}
	schema := model.SourceSchema{Name: "test", HasProfit: true}

	out, st, err := Aggregate(rows, schema, Options{})
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.Equal(t, "Austin", out[0].EntityID)
	assert.Equal(t, day(2023, time.January, 1), out[0].Date)
	assert.Equal(t, 0.3, out[0].TotalAmount)
	assert.Equal(t, 3.0, out[0].TotalProfit)

	assert.Equal(t, "Austin", out[1].EntityID)
	assert.Equal(t, day(2023, time.January, 5), out[1].Date)

	assert.Equal(t, "Boston", out[2].EntityID)
	assert.Equal(t, day(2023, time.January, 2), out[2].Date)
	assert.Equal(t, 0.25, out[2].TotalAmount)

	assert.Equal(t, 4, st.RowsIn)
	assert.Equal(t, 4, st.RowsKept)
	assert.Equal(t, 3, st.Groups)

	for _, a := range out {
		assert.Greater(t, a.TotalAmount, 0.0)
	}
}

func TestAggregate_DropsInvalidRows(t *testing.T) {
	rows := []model.RawTransaction{
		raw("", "2023-01-01", "1", "1", "10", ""),
		raw("A", "2023-01-01", "0", "1", "10", ""),
		raw("A", "2023-01-01", "1", "-1", "10", ""),
		raw("A", "2023-01-01", "1", "1", "abc", ""),
		raw("A", "not a date", "1", "1", "10", ""),
		raw("A", "2023-01-02", "1", "1", "10", ""),
	}

	out, st, err := Aggregate(rows, model.SourceSchema{Name: "test"}, Options{})
	require.NoError(t, err)
	require.Len(t, out, 1)

	assert.Equal(t, 1, st.MissingEntity)
	assert.Equal(t, 3, st.NonPositive)
	assert.Equal(t, 1, st.BadDate)
	assert.Equal(t, 1, st.RowsKept)
	assert.Equal(t, 0.0, out[0].TotalProfit)
}

func TestAggregate_OutOfRangeSerialIsDropped(t *testing.T) {
	rows := []model.RawTransaction{
		raw("A", "44927", "1", "1", "10", ""),
		raw("A", "1e20", "1", "1", "10", ""),
		raw("B", "44930", "1", "1", "10", ""),
		raw("B", "99999999", "1", "1", "10", ""),
	}

	out, st, err := Aggregate(rows, model.SourceSchema{Name: "test"}, Options{})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 2, st.BadDate)
	for _, r := range out {
		assert.Equal(t, 2023, r.Date.Year(), r.EntityID)
	}
}

func TestAggregate_ProfitCoercion(t *testing.T) {
	tests := []struct {
		name      string
		profit    string
		hasProfit bool
		want      float64
		clipped   int
	}{
		{name: "positive kept", profit: "2.5", hasProfit: true, want: 2.5},
		{name: "negative clipped", profit: "-5", hasProfit: true, want: 0, clipped: 1},
		{name: "unparsable becomes zero", profit: "n/a", hasProfit: true, want: 0},
		{name: "no profit column", profit: "9", hasProfit: false, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := []model.RawTransaction{raw("A", "2023-03-01", "1", "4", "4", tt.profit)}
			out, st, err := Aggregate(rows, model.SourceSchema{Name: "test", HasProfit: tt.hasProfit}, Options{})
			require.NoError(t, err)
			require.Len(t, out, 1)
			assert.Equal(t, tt.want, out[0].TotalProfit)
			assert.Equal(t, tt.clipped, st.ProfitClipped)
		})
	}
}

func TestAggregate_RemovesOutliers(t *testing.T) {
	rows := []model.RawTransaction{
		raw("A", "2023-01-01", "1", "10", "10", ""),
		raw("A", "2023-01-02", "1", "11", "11", ""),
		raw("A", "2023-01-03", "1", "12", "12", ""),
		raw("A", "2023-01-04", "1", "13", "13", ""),
		raw("A", "2023-01-05", "1", "1000", "1000", ""),
	}

	out, st, err := Aggregate(rows, model.SourceSchema{Name: "test"}, Options{})
	require.NoError(t, err)
	assert.Len(t, out, 4)
	assert.Equal(t, 1, st.AmountOutlier)
	for _, a := range out {
		assert.Less(t, a.TotalAmount, 1000.0)
	}
}

func TestAggregate_QuantityFenceUsesSurvivors(t *testing.T) {
	rows := []model.RawTransaction{
		raw("A", "2023-01-01", "2", "5", "10", ""),
		raw("A", "2023-01-02", "2", "5", "10", ""),
		raw("A", "2023-01-03", "2", "5", "10", ""),
		raw("A", "2023-01-04", "2", "5", "10", ""),
		raw("A", "2023-01-05", "50", "0.2", "10", ""),
	}

	out, st, err := Aggregate(rows, model.SourceSchema{Name: "test"}, Options{})
	require.NoError(t, err)
	assert.Len(t, out, 4)
	assert.Equal(t, 0, st.AmountOutlier)
	assert.Equal(t, 1, st.QtyOutlier)
}

func TestAggregate_ShipDateMustParse(t *testing.T) {
	good := raw("A", "2023-01-01", "1", "1", "1", "")
	good.ShipDate = "2023-01-03"
	bad := raw("A", "2023-01-02", "1", "1", "1", "")
	bad.ShipDate = "soon"

	out, st, err := Aggregate([]model.RawTransaction{good, bad}, model.SourceSchema{Name: "test", HasShipDate: true}, Options{})
	require.NoError(t, err)
	assert.Len(t, out, 1)
	assert.Equal(t, 1, st.BadDate)

	// without a ship date column the cell is ignored
	out, _, err = Aggregate([]model.RawTransaction{good, bad}, model.SourceSchema{Name: "test"}, Options{})
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestAggregate_Errors(t *testing.T) {
	_, _, err := Aggregate(nil, model.SourceSchema{Name: "empty"}, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrDataLoad)

	rows := []model.RawTransaction{raw("A", "2023-01-01", "0", "1", "1", "")}
	_, st, err := Aggregate(rows, model.SourceSchema{Name: "filtered"}, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrDataLoad)
	assert.Equal(t, 1, st.NonPositive)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		cell    string
		want    time.Time
		wantErr bool
	}{
		{name: "serial", cell: "44927", want: day(2023, time.January, 1)},
		{name: "serial with time", cell: "44927.5", want: time.Date(2023, time.January, 1, 12, 0, 0, 0, time.UTC)},
		{name: "iso date", cell: "2023-06-15", want: day(2023, time.June, 15)},
		{name: "rfc3339", cell: "2023-06-15T08:00:00Z", want: time.Date(2023, time.June, 15, 8, 0, 0, 0, time.UTC)},
		{name: "us slashes", cell: "6/15/2023", want: day(2023, time.June, 15)},
		{name: "month name", cell: "Jun 15, 2023", want: day(2023, time.June, 15)},
		{name: "padded", cell: "  2023-06-15 ", want: day(2023, time.June, 15)},
		{name: "compact", cell: "20240115", want: day(2024, time.January, 15)},
		{name: "last serial", cell: "2958465", want: day(9999, time.December, 31)},
		{name: "compact invalid month", cell: "20241315", wantErr: true},
		{name: "serial too large", cell: "1e20", wantErr: true},
		{name: "serial zero", cell: "0", wantErr: true},
		{name: "negative serial", cell: "-5", wantErr: true},
		{name: "past year 9999", cell: "2958466", wantErr: true},
		{name: "infinite", cell: "Inf", wantErr: true},
		{name: "empty", cell: "", wantErr: true},
		{name: "garbage", cell: "yesterday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.cell)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, common.ErrInvalidDate)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestDay(t *testing.T) {
	in := time.Date(2023, time.May, 7, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, day(2023, time.May, 7), Day(in))
}
