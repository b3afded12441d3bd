package report

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/model"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/pipeline"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/scorers"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/segment"
)

func sampleResult(n int) *pipeline.Result {
	records := make([]model.RFMRecord, n)
	for i := range records {
		records[i] = model.RFMRecord{EntityID: fmt.Sprintf("c%02d", i), Frequency: float64(i), Recency: float64(i), T: 30}
	}
	table := model.NewScoredTable(records, true)
	for i := range table.Entities {
		table.Entities[i].CLV = float64(i * 10)
		table.Entities[i].ChurnProbability = 1 - float64(i)/float64(n)
		table.Entities[i].Cluster = i % 2
	}
	table.Add(model.CapPrediction | model.CapCluster | model.CapChurn)

	res := &pipeline.Result{RunID: "r1"}
	res.Table = table
	res.Profiles = []segment.Profile{{Cluster: 0, Count: 2, CLV: 5.5}, {Cluster: 1, Count: 1, CLV: math.NaN()}}
	res.Offers = []scorers.Offer{{EntityID: "c01", Recency: 1, CLV: 10, Score: 500, Product: scorers.OfferPremium}}
	res.Uplift = &scorers.UpliftResult{Rows: []scorers.UpliftRow{{EntityID: "c00", Response: 1, Uplift: 0.125, Arm: scorers.ArmTreatment, CLV: 0}}}
	res.Forecast = []scorers.ForecastPoint{{EntityID: "c01", Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Historical: 10, Forecast: 11}}
	res.Segments = segment.Report{Method: segment.MethodGMM, BIC: []float64{10, math.Inf(1)}}
	res.ScorerFailures = []pipeline.ScorerFailure{{Scorer: "ml_clv", Err: fmt.Errorf("boom")}}
	return res
}

func byName(tables []model.Table) map[string]model.Table {
	m := make(map[string]model.Table, len(tables))
	for _, t := range tables {
		m[t.Name] = t
	}
	return m
}

func TestTables(t *testing.T) {
	tables := byName(Tables(sampleResult(25), DefaultOptions()))

	require.Contains(t, tables, TablePredictions)
	pred := tables[TablePredictions]
	assert.Equal(t, 25, pred.Len())
	assert.Contains(t, pred.Header, "churn_probability")
	assert.NotContains(t, pred.Header, "CLV_ml", "column appears only with its capability")
	assert.NotContains(t, pred.Header, "uplift")
	assert.Equal(t, "customer_id", pred.Header[0])

	top := tables[TableTop]
	require.Equal(t, 10, top.Len())
	assert.Equal(t, "c24", top.Rows[0][0])
	assert.Equal(t, "c15", top.Rows[9][0])

	churn := tables[TableChurnRisk]
	require.Equal(t, 20, churn.Len())
	assert.Equal(t, "c00", churn.Rows[0][0])

	seg := tables[TableSegments]
	require.Equal(t, 2, seg.Len())
	assert.Equal(t, "5.5", seg.Rows[0][6])
	assert.Equal(t, "", seg.Rows[1][6], "NaN renders empty")

	assert.Equal(t, []string{"c01", "1", "10", "500", "Premium Bundle"}, tables[TableOffers].Rows[0])
	assert.Equal(t, []string{"customer_id", "response", "uplift", "treatment_group", "CLV"}, tables[TableUplift].Header)
	assert.Equal(t, []string{"c00", "1", "0.125", "Treatment", "0"}, tables[TableUplift].Rows[0])
	assert.Equal(t, []string{"c01", "2024-03-01", "10", "11"}, tables[TableForecast].Rows[0])
}

func TestTables_WithoutOptionalScorers(t *testing.T) {
	res := sampleResult(3)
	res.Table.Capabilities = model.CapRFM | model.CapPrediction | model.CapCluster
	res.Offers, res.Uplift, res.Forecast = nil, nil, nil

	tables := byName(Tables(res, Options{TopCustomers: 10, TopChurn: 20}))
	assert.NotContains(t, tables, TableChurnRisk)
	assert.NotContains(t, tables, TableOffers)
	assert.NotContains(t, tables, TableUplift)
	assert.Equal(t, 3, tables[TableTop].Len())
}

func TestCSVWriter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "results")
	tables := Tables(sampleResult(4), DefaultOptions())
	require.NoError(t, NewCSVWriter(dir).WriteTables(context.Background(), tables))

	f, err := os.Open(filepath.Join(dir, TableForecast+".csv"))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"customer_id", "date", "historical_clv", "forecast_clv"},
		{"c01", "2024-03-01", "10", "11"},
	}, records)

	for _, tbl := range tables {
		assert.FileExists(t, filepath.Join(dir, tbl.Name+".csv"))
	}
}

func TestCSVWriter_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewCSVWriter(t.TempDir()).WriteTables(ctx, Tables(sampleResult(2), DefaultOptions()))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExportJSON_RunReport(t *testing.T) {
	path := TimestampedFilename(filepath.Join(t.TempDir(), "runs"), "run", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	assert.Equal(t, "run_20240102_030405.json", filepath.Base(path))

	require.NoError(t, ExportJSON(path, NewRunReport(sampleResult(3))))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, []any{10.0, nil}, decoded["segment_bic"])
	assert.Equal(t, map[string]any{"ml_clv": "boom"}, decoded["scorer_failures"])
}
