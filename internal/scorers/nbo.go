package scorers

import (
	"sort"

	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/model"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/stats"
)

// Offer names.
const (
	OfferPremium  = "Premium Bundle"
	OfferStandard = "Standard Plan"
)

// Offer is one next-best-offer recommendation.
type Offer struct {
	EntityID string  `json:"customer_id"`
	Recency  float64 `json:"recency"`
	CLV      float64 `json:"CLV"`
	Score    float64 `json:"offer_score"`
	Product  string  `json:"recommended_product"`
}

// NextBestOffer scores entities by CLV*100/(recency+1) and recommends the
// premium offer to those strictly above the premiumQuantile of scores.
// The result is sorted by score, highest first.
func NextBestOffer(table *model.ScoredTable, premiumQuantile float64) ([]Offer, error) {
	if err := table.Require("next best offer", model.CapPrediction); err != nil {
		return nil, err
	}

	scores := make([]float64, table.Len())
	for i, e := range table.Entities {
		scores[i] = e.CLV * (100 / (e.Recency + 1))
	}
	cut := stats.Quantile(scores, premiumQuantile)

	offers := make([]Offer, table.Len())
	for i := range table.Entities {
		e := &table.Entities[i]
		product := OfferStandard
		if scores[i] > cut {
			product = OfferPremium
		}
		e.OfferScore = scores[i]
		e.RecommendedOffer = product
		offers[i] = Offer{EntityID: e.EntityID, Recency: e.Recency, CLV: e.CLV, Score: scores[i], Product: product}
	}
	table.Add(model.CapOffer)

	sort.SliceStable(offers, func(i, j int) bool { return offers[i].Score > offers[j].Score })
	return offers, nil
}
