// Package report turns a run result into output tables and writes them.
package report

import (
	"math"
	"sort"
	"strconv"

	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/model"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/pipeline"
)

// Table names.
const (
	TablePredictions = "clv_predictions"
	TableSegments    = "segment_analysis"
	TableTop         = "top_customers"
	TableChurnRisk   = "top_churn_risk"
	TableOffers      = "nbo_recommendations"
	TableUplift      = "uplift_results"
	TableForecast    = "forecast_results"
)

// Options sizes the ranked tables.
type Options struct {
	TopCustomers int
	TopChurn     int
}

// DefaultOptions returns the top 10 by CLV and top 20 by churn risk.
func DefaultOptions() Options {
	return Options{TopCustomers: 10, TopChurn: 20}
}

// Tables builds every table the result supports, in a fixed order.
func Tables(res *pipeline.Result, opts Options) []model.Table {
	table := res.Table
	tables := []model.Table{entityTable(TablePredictions, table, table.Entities)}

	if len(res.Profiles) > 0 {
		t := model.Table{
			Name:   TableSegments,
			Header: []string{"cluster", "count", "recency", "frequency", "monetary_value", "profit_adjusted", "CLV"},
		}
		for _, p := range res.Profiles {
			t.Rows = append(t.Rows, []string{
				strconv.Itoa(p.Cluster), strconv.Itoa(p.Count),
				num(p.Recency), num(p.Frequency), num(p.MonetaryValue), num(p.ProfitAdjusted), num(p.CLV),
			})
		}
		tables = append(tables, t)
	}

	if table.Capabilities.Has(model.CapPrediction) {
		top := ranked(table.Entities, func(e model.ScoredEntity) float64 { return e.CLV }, opts.TopCustomers)
		tables = append(tables, entityTable(TableTop, table, top))
	}
	if table.Capabilities.Has(model.CapChurn) {
		top := ranked(table.Entities, func(e model.ScoredEntity) float64 { return e.ChurnProbability }, opts.TopChurn)
		tables = append(tables, entityTable(TableChurnRisk, table, top))
	}

	if res.Offers != nil {
		t := model.Table{
			Name:   TableOffers,
			Header: []string{"customer_id", "recency", "CLV", "offer_score", "recommended_product"},
		}
		for _, o := range res.Offers {
			t.Rows = append(t.Rows, []string{o.EntityID, num(o.Recency), num(o.CLV), num(o.Score), o.Product})
		}
		tables = append(tables, t)
	}

	if res.Uplift != nil {
		t := model.Table{
			Name:   TableUplift,
			Header: []string{"customer_id", "response", "uplift", "treatment_group", "CLV"},
		}
		for _, r := range res.Uplift.Rows {
			t.Rows = append(t.Rows, []string{r.EntityID, strconv.Itoa(r.Response), num(r.Uplift), string(r.Arm), num(r.CLV)})
		}
		tables = append(tables, t)
	}

	if res.Forecast != nil {
		t := model.Table{
			Name:   TableForecast,
			Header: []string{"customer_id", "date", "historical_clv", "forecast_clv"},
		}
		for _, p := range res.Forecast {
			t.Rows = append(t.Rows, []string{
				p.EntityID, p.Date.Format("2006-01-02"),
				strconv.FormatInt(p.Historical, 10), strconv.FormatInt(p.Forecast, 10),
			})
		}
		tables = append(tables, t)
	}
	return tables
}

type column struct {
	name     string
	requires model.Capability
	cell     func(model.ScoredEntity) string
}

var entityColumns = []column{
	{"customer_id", model.CapRFM, func(e model.ScoredEntity) string { return e.EntityID }},
	{"frequency", model.CapRFM, func(e model.ScoredEntity) string { return num(e.Frequency) }},
	{"recency", model.CapRFM, func(e model.ScoredEntity) string { return num(e.Recency) }},
	{"T", model.CapRFM, func(e model.ScoredEntity) string { return num(e.T) }},
	{"monetary_value", model.CapRFM, func(e model.ScoredEntity) string { return num(e.MonetaryValue) }},
	{"profit_adjusted", model.CapRFM, func(e model.ScoredEntity) string { return num(e.ProfitAdjusted) }},
	{"predicted_purchases", model.CapPrediction, func(e model.ScoredEntity) string { return num(e.PredictedPurchases) }},
	{"prob_alive", model.CapPrediction, func(e model.ScoredEntity) string { return num(e.ProbAlive) }},
	{"expected_avg_value", model.CapPrediction, func(e model.ScoredEntity) string { return num(e.ExpectedAvgValue) }},
	{"CLV", model.CapPrediction, func(e model.ScoredEntity) string { return num(e.CLV) }},
	{"cluster", model.CapCluster, func(e model.ScoredEntity) string { return strconv.Itoa(e.Cluster) }},
	{"churn_probability", model.CapChurn, func(e model.ScoredEntity) string { return num(e.ChurnProbability) }},
	{"CLV_ml", model.CapCLVML, func(e model.ScoredEntity) string { return num(e.CLVML) }},
	{"uplift", model.CapUplift, func(e model.ScoredEntity) string { return num(e.Uplift) }},
	{"offer_score", model.CapOffer, func(e model.ScoredEntity) string { return num(e.OfferScore) }},
	{"recommended_offer", model.CapOffer, func(e model.ScoredEntity) string { return e.RecommendedOffer }},
}

// entityTable renders rows with the columns the table's capabilities allow.
func entityTable(name string, table *model.ScoredTable, rows []model.ScoredEntity) model.Table {
	var cols []column
	for _, c := range entityColumns {
		if table.Capabilities.Has(c.requires) {
			cols = append(cols, c)
		}
	}

	t := model.Table{Name: name, Header: make([]string, len(cols)), Rows: make([][]string, len(rows))}
	for i, c := range cols {
		t.Header[i] = c.name
	}
	for i, e := range rows {
		row := make([]string, len(cols))
		for j, c := range cols {
			row[j] = c.cell(e)
		}
		t.Rows[i] = row
	}
	return t
}

// ranked returns the n entities with the largest key, stable on ties.
func ranked(entities []model.ScoredEntity, key func(model.ScoredEntity) float64, n int) []model.ScoredEntity {
	sorted := make([]model.ScoredEntity, len(entities))
	copy(sorted, entities)
	sort.SliceStable(sorted, func(i, j int) bool { return key(sorted[i]) > key(sorted[j]) })
	if n >= 0 && n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// num formats a float in its shortest form; non-finite values are empty.
func num(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
