package model

// RFMRecord summarizes one entity's purchase history.
// Recency and T are in days; Frequency counts repeat purchase days only.
type RFMRecord struct {
	EntityID       string  `json:"customer_id"`
	Frequency      float64 `json:"frequency"`
	Recency        float64 `json:"recency"`
	T              float64 `json:"T"`
	MonetaryValue  float64 `json:"monetary_value"`
	ProfitAdjusted float64 `json:"profit_adjusted"`
}

// InValidMask reports whether the record can feed the monetary model.
func (r RFMRecord) InValidMask() bool {
	return r.Frequency > 0 && r.MonetaryValue > 0
}
