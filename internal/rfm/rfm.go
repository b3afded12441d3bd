// Package rfm summarizes aggregated transactions into recency, frequency and
// monetary records.
package rfm

import (
	"sort"
	"time"

	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/common"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/model"
)

const day = 24 * time.Hour

// ObservationEnd returns the latest date across all rows.
func ObservationEnd(rows []model.AggregatedTransaction) time.Time {
	var end time.Time
	for _, r := range rows {
		if r.Date.After(end) {
			end = r.Date
		}
	}
	return end
}

type history struct {
	first, last time.Time
	dates       map[time.Time]float64
	profit      float64
}

// Summarize builds one record per entity, sorted by entity id. Recency and T
// are whole days; the monetary value averages repeat days only.
func Summarize(rows []model.AggregatedTransaction, end time.Time) ([]model.RFMRecord, error) {
	if len(rows) == 0 {
		return nil, common.ErrNoEntities
	}

	byEntity := make(map[string]*history)
	for _, r := range rows {
		h, ok := byEntity[r.EntityID]
		if !ok {
			h = &history{first: r.Date, last: r.Date, dates: make(map[time.Time]float64)}
			byEntity[r.EntityID] = h
		}
		if r.Date.Before(h.first) {
			h.first = r.Date
		}
		if r.Date.After(h.last) {
			h.last = r.Date
		}
		h.dates[r.Date] += r.TotalAmount
		h.profit += r.TotalProfit
	}

	records := make([]model.RFMRecord, 0, len(byEntity))
	for id, h := range byEntity {
		rec := model.RFMRecord{
			EntityID:       id,
			Frequency:      float64(len(h.dates) - 1),
			Recency:        days(h.last.Sub(h.first)),
			T:              days(end.Sub(h.first)),
			ProfitAdjusted: h.profit,
		}
		if rec.Frequency > 0 {
			var sum float64
			for d, amt := range h.dates {
				if d.Equal(h.first) {
					continue
				}
				sum += amt
			}
			rec.MonetaryValue = sum / rec.Frequency
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].EntityID < records[j].EntityID })
	return records, nil
}

// Activity is the per-entity transaction count and mean daily amount.
type Activity struct {
	EntityID   string
	Count      int
	MeanAmount float64
}

// ActivityStats counts aggregated rows per entity, sorted by entity id.
func ActivityStats(rows []model.AggregatedTransaction) []Activity {
	type acc struct {
		n   int
		sum float64
	}
	m := make(map[string]*acc)
	for _, r := range rows {
		a, ok := m[r.EntityID]
		if !ok {
			a = &acc{}
			m[r.EntityID] = a
		}
		a.n++
		a.sum += r.TotalAmount
	}

	out := make([]Activity, 0, len(m))
	for id, a := range m {
		out = append(out, Activity{EntityID: id, Count: a.n, MeanAmount: a.sum / float64(a.n)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out
}

func days(d time.Duration) float64 {
	return float64(d / day)
}
