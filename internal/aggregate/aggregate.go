// Package aggregate cleans raw transaction rows and groups them to one row
// per entity and calendar day.
package aggregate

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/common"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/model"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/stats"
)

// DefaultFence is the Tukey multiplier applied to the interquartile range.
const DefaultFence = 1.5

// Options tunes cleaning.
type Options struct {
	// Fence multiplies the IQR when computing outlier bounds. Zero means DefaultFence.
	Fence float64
}

// Stats counts what happened to the input rows.
type Stats struct {
	RowsIn        int `json:"rows_in"`
	MissingEntity int `json:"missing_entity"`
	NonPositive   int `json:"non_positive"`
	AmountOutlier int `json:"amount_outliers"`
	QtyOutlier    int `json:"quantity_outliers"`
	BadDate       int `json:"bad_date"`
	ProfitClipped int `json:"profit_clipped"`
	RowsKept      int `json:"rows_kept"`
	Groups        int `json:"groups"`
}

type cleanRow struct {
	orderDate time.Time
	entity    string
	order     string
	ship      string
	amount    decimal.Decimal
	profit    decimal.Decimal
	amountF   float64
	quantity  float64
}

// Aggregate validates rows, removes outliers, parses dates and sums amount
// and profit per (entity, day). The result is sorted by entity then date.
func Aggregate(rows []model.RawTransaction, schema model.SourceSchema, opts Options) ([]model.AggregatedTransaction, Stats, error) {
	st := Stats{RowsIn: len(rows)}
	if len(rows) == 0 {
		return nil, st, common.DataLoadError(schema.Name, errors.New("source has no rows"))
	}

	fence := opts.Fence
	if fence <= 0 {
		fence = DefaultFence
	}

	// Step 1: drop rows without entity or with non-positive quantity, price or amount
	kept := make([]cleanRow, 0, len(rows))
	for _, r := range rows {
		entity := strings.TrimSpace(r.EntityID)
		if entity == "" {
			st.MissingEntity++
			continue
		}
		qty, okQty := positiveFloat(r.Quantity)
		_, okPrice := positiveFloat(r.UnitPrice)
		amount, okAmount := positiveDecimal(r.Amount)
		if !okQty || !okPrice || !okAmount {
			st.NonPositive++
			continue
		}

		// Step 2: profit is coerced, never a reason to drop a row
		profit := decimal.Zero
		if schema.HasProfit {
			if p, err := parseDecimal(r.Profit); err == nil {
				profit = p
			}
			if profit.IsNegative() {
				profit = decimal.Zero
				st.ProfitClipped++
			}
		}

		kept = append(kept, cleanRow{
			entity:   entity,
			order:    r.OrderDate,
			ship:     r.ShipDate,
			amount:   amount,
			amountF:  amount.InexactFloat64(),
			profit:   profit,
			quantity: qty,
		})
	}

	// Step 3: IQR fences, amount first, then quantity on the survivors
	before := len(kept)
	kept = dropOutliers(kept, fence, func(r cleanRow) float64 { return r.amountF })
	st.AmountOutlier = before - len(kept)

	before = len(kept)
	kept = dropOutliers(kept, fence, func(r cleanRow) float64 { return r.quantity })
	st.QtyOutlier = before - len(kept)

	// Step 4: dates
	dated := kept[:0]
	for _, r := range kept {
		ts, err := ParseDate(r.order)
		if err != nil {
			st.BadDate++
			continue
		}
		if schema.HasShipDate {
			if _, err := ParseDate(r.ship); err != nil {
				st.BadDate++
				continue
			}
		}
		r.orderDate = ts
		dated = append(dated, r)
	}
	st.RowsKept = len(dated)

	if len(dated) == 0 {
		return nil, st, common.DataLoadError(schema.Name, errors.New("no rows survived cleaning"))
	}

	// Step 5: group by entity and calendar day
	out := group(dated)
	st.Groups = len(out)
	return out, st, nil
}

type groupKey struct {
	date   time.Time
	entity string
}

type groupSum struct {
	amount decimal.Decimal
	profit decimal.Decimal
}

func group(rows []cleanRow) []model.AggregatedTransaction {
	sums := make(map[groupKey]*groupSum)
	for _, r := range rows {
		k := groupKey{entity: r.entity, date: Day(r.orderDate)}
		s, ok := sums[k]
		if !ok {
			s = &groupSum{amount: decimal.Zero, profit: decimal.Zero}
			sums[k] = s
		}
		s.amount = s.amount.Add(r.amount)
		s.profit = s.profit.Add(r.profit)
	}

	out := make([]model.AggregatedTransaction, 0, len(sums))
	for k, s := range sums {
		out = append(out, model.AggregatedTransaction{
			EntityID:    k.entity,
			Date:        k.date,
			TotalAmount: s.amount.InexactFloat64(),
			TotalProfit: s.profit.InexactFloat64(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EntityID != out[j].EntityID {
			return out[i].EntityID < out[j].EntityID
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

func dropOutliers(rows []cleanRow, fence float64, value func(cleanRow) float64) []cleanRow {
	if len(rows) == 0 {
		return rows
	}
	vals := make([]float64, len(rows))
	for i, r := range rows {
		vals[i] = value(r)
	}
	lower, upper := stats.IQRFence(vals, fence)

	out := make([]cleanRow, 0, len(rows))
	for i, r := range rows {
		if vals[i] >= lower && vals[i] <= upper {
			out = append(out, r)
		}
	}
	return out
}

func parseDecimal(cell string) (decimal.Decimal, error) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty numeric cell")
	}
	return decimal.NewFromString(s)
}

func positiveDecimal(cell string) (decimal.Decimal, bool) {
	d, err := parseDecimal(cell)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}

func positiveFloat(cell string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil || !(f > 0) {
		return 0, false
	}
	return f, true
}
