package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/ingest"
)

func TestRetailRows(t *testing.T) {
	rows := RetailRows(6)
	assert.Equal(t, rows, RetailRows(6), "deterministic")

	cities := map[string]bool{}
	for i, r := range rows {
		cities[r.EntityID] = true
		assert.Equal(t, i+1, r.Row)
	}
	assert.Len(t, cities, 6)
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.csv")
	rows := RetailRows(3)
	WriteCSV(t, path, rows)

	src, err := ingest.New(ingest.Options{Path: path})
	require.NoError(t, err)
	got, schema, err := src.Load(context.Background())
	require.NoError(t, err)

	assert.True(t, schema.HasProfit)
	assert.False(t, schema.HasShipDate)
	require.Len(t, got, len(rows))
	assert.Equal(t, rows[0].EntityID, got[0].EntityID)
	assert.Equal(t, rows[len(rows)-1].Amount, got[len(got)-1].Amount)
}
