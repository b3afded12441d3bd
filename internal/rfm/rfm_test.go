package rfm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/common"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/model"
)

func agg(entity string, d time.Time, amount, profit float64) model.AggregatedTransaction {
	return model.AggregatedTransaction{EntityID: entity, Date: d, TotalAmount: amount, TotalProfit: profit}
}

func date(m time.Month, d int) time.Time {
	return time.Date(2023, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSummarize(t *testing.T) {
	rows := []model.AggregatedTransaction{
		agg("B", date(time.January, 10), 40, 4),
		agg("A", date(time.January, 1), 100, 10),
		agg("A", date(time.January, 11), 20, 2),
		agg("A", date(time.January, 21), 40, 3),
		agg("B", date(time.January, 31), 60, 1),
		agg("C", date(time.January, 15), 75, 5),
	}
	end := ObservationEnd(rows)
	assert.Equal(t, date(time.January, 31), end)

	recs, err := Summarize(rows, end)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	a := recs[0]
	assert.Equal(t, "A", a.EntityID)
	assert.Equal(t, 2.0, a.Frequency)
	assert.Equal(t, 20.0, a.Recency)
	assert.Equal(t, 30.0, a.T)
	assert.Equal(t, 30.0, a.MonetaryValue)
	assert.Equal(t, 15.0, a.ProfitAdjusted)

	b := recs[1]
	assert.Equal(t, "B", b.EntityID)
	assert.Equal(t, 1.0, b.Frequency)
	assert.Equal(t, 21.0, b.Recency)
	assert.Equal(t, 21.0, b.T)
	assert.Equal(t, 60.0, b.MonetaryValue)

	c := recs[2]
	assert.Equal(t, "C", c.EntityID)
	assert.Zero(t, c.Frequency)
	assert.Zero(t, c.Recency)
	assert.Zero(t, c.MonetaryValue)
	assert.Equal(t, 16.0, c.T)
	assert.Equal(t, 5.0, c.ProfitAdjusted)

	for _, r := range recs {
		assert.LessOrEqual(t, r.Recency, r.T, r.EntityID)
		assert.GreaterOrEqual(t, r.Frequency, 0.0)
		assert.GreaterOrEqual(t, r.MonetaryValue, 0.0)
	}
}

func TestSummarize_SingleTransaction(t *testing.T) {
	rows := []model.AggregatedTransaction{agg("solo", date(time.March, 3), 12.5, 0)}

	recs, err := Summarize(rows, ObservationEnd(rows))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Zero(t, recs[0].Frequency)
	assert.Zero(t, recs[0].Recency)
	assert.Zero(t, recs[0].MonetaryValue)
	assert.Zero(t, recs[0].T)
}

func TestSummarize_Empty(t *testing.T) {
	_, err := Summarize(nil, time.Time{})
	assert.ErrorIs(t, err, common.ErrNoEntities)
}

func TestActivityStats(t *testing.T) {
	rows := []model.AggregatedTransaction{
		agg("A", date(time.January, 1), 10, 0),
		agg("A", date(time.January, 2), 30, 0),
		agg("B", date(time.January, 1), 5, 0),
	}

	got := ActivityStats(rows)
	require.Len(t, got, 2)
	assert.Equal(t, Activity{EntityID: "A", Count: 2, MeanAmount: 20}, got[0])
	assert.Equal(t, Activity{EntityID: "B", Count: 1, MeanAmount: 5}, got[1])
}
