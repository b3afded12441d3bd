// Package model defines the records that flow through a scoring run.
package model

import (
	"time"
)

// RawTransaction is one row as delivered by a transaction source.
// Numeric and date cells stay textual until the aggregator coerces them.
type RawTransaction struct {
	EntityID  string
	OrderDate string
	ShipDate  string
	Quantity  string
	UnitPrice string
	Amount    string
	Profit    string
	Row       int // 1-based position in the source, for diagnostics
}

// SourceSchema describes which optional columns a source carried.
type SourceSchema struct {
	Name        string
	HasProfit   bool
	HasShipDate bool
}

// Transaction is a cleaned, typed transaction.
type Transaction struct {
	Timestamp time.Time
	EntityID  string
	Amount    float64
	Profit    float64
}

// AggregatedTransaction is the sum of all transactions of one entity on one calendar day.
type AggregatedTransaction struct {
	Date        time.Time
	EntityID    string
	TotalAmount float64
	TotalProfit float64
}
