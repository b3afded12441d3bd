// Package testutil provides shared test data for the scoring packages.
package testutil

import (
	"encoding/csv"
	"fmt"
	"math/rand/v2"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/model"
)

// LastDay is the final order date used by RetailRows.
var LastDay = time.Date(2023, time.December, 31, 0, 0, 0, 0, time.UTC)

// RetailRows generates transactions for n cities over 2023. Every third
// city stops buying after the first 200 days, the others buy again on
// LastDay, so churn labels carry both classes. The output is deterministic.
func RetailRows(n int) []model.RawTransaction {
	rng := rand.New(rand.NewPCG(7, 7))
	base := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)

	var rows []model.RawTransaction
	for c := 0; c < n; c++ {
		city := fmt.Sprintf("city-%02d", c)
		span := 365
		if c%3 == 0 {
			span = 200
		}
		for j := 0; j < 4+c%6; j++ {
			qty := 1 + rng.IntN(3)
			price := 10 + rng.Float64()*10
			amount := float64(qty) * price
			rows = append(rows, model.RawTransaction{
				EntityID:  city,
				OrderDate: base.AddDate(0, 0, rng.IntN(span)).Format("2006-01-02"),
				Quantity:  strconv.Itoa(qty),
				UnitPrice: strconv.FormatFloat(price, 'f', 2, 64),
				Amount:    strconv.FormatFloat(amount, 'f', 2, 64),
				Profit:    strconv.FormatFloat(amount*0.2, 'f', 2, 64),
				Row:       len(rows) + 1,
			})
		}
		if c%3 != 0 {
			rows = append(rows, model.RawTransaction{
				EntityID: city, OrderDate: LastDay.Format("2006-01-02"),
				Quantity: "2", UnitPrice: "15", Amount: "30", Profit: "6", Row: len(rows) + 1,
			})
		}
	}
	return rows
}

// WriteCSV writes rows to path under the default column headers.
func WriteCSV(t *testing.T, path string, rows []model.RawTransaction) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	records := [][]string{{"City", "Order Date", "QtyOrdered", "Unit Price", "Sales", "Profit"}}
	for _, r := range rows {
		records = append(records, []string{r.EntityID, r.OrderDate, r.Quantity, r.UnitPrice, r.Amount, r.Profit})
	}
	if err := w.WriteAll(records); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}
