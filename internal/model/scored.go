package model

import (
	"fmt"
	"strings"

	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/common"
)

// Capability names a group of columns populated on a ScoredTable.
type Capability uint16

const (
	// CapRFM marks recency, frequency, T, monetary_value.
	CapRFM Capability = 1 << iota
	// CapProfit marks profit_adjusted as coming from a real profit column.
	CapProfit
	// CapPrediction marks predicted purchases, prob_alive, expected value and CLV.
	CapPrediction
	// CapCluster marks cluster labels.
	CapCluster
	// CapChurn marks churn_probability.
	CapChurn
	// CapCLVML marks the supervised CLV estimate.
	CapCLVML
	// CapUplift marks uplift scores.
	CapUplift
	// CapOffer marks offer_score and the recommended offer.
	CapOffer
)

var capabilityNames = []struct {
	c    Capability
	name string
}{
	{CapRFM, "rfm"},
	{CapProfit, "profit"},
	{CapPrediction, "prediction"},
	{CapCluster, "cluster"},
	{CapChurn, "churn"},
	{CapCLVML, "clv_ml"},
	{CapUplift, "uplift"},
	{CapOffer, "offer"},
}

// Has reports whether every capability in want is set.
func (c Capability) Has(want Capability) bool {
	return c&want == want
}

func (c Capability) String() string {
	var parts []string
	for _, n := range capabilityNames {
		if c&n.c != 0 {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// SchemaMismatchError is returned when a consumer needs columns a table lacks.
type SchemaMismatchError struct {
	Consumer string
	Missing  Capability
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("%s requires columns %s", e.Consumer, e.Missing)
}

func (e *SchemaMismatchError) Unwrap() error {
	return common.ErrSchemaMismatch
}

// ScoredEntity is an RFM record extended with derived scores.
type ScoredEntity struct {
	RFMRecord
	PredictedPurchases float64
	ProbAlive          float64
	ExpectedAvgValue   float64
	CLV                float64
	Cluster            int

	ChurnProbability float64
	CLVML            float64
	Uplift           float64
	OfferScore       float64
	RecommendedOffer string
}

// ScoredTable is the per-entity output of a run together with its capabilities.
type ScoredTable struct {
	Entities     []ScoredEntity
	Capabilities Capability
}

// NewScoredTable seeds a table from RFM records.
func NewScoredTable(records []RFMRecord, hasProfit bool) *ScoredTable {
	entities := make([]ScoredEntity, len(records))
	for i, r := range records {
		entities[i] = ScoredEntity{RFMRecord: r}
	}
	caps := CapRFM
	if hasProfit {
		caps |= CapProfit
	}
	return &ScoredTable{Entities: entities, Capabilities: caps}
}

// Len returns the number of entities.
func (t *ScoredTable) Len() int {
	return len(t.Entities)
}

// Require checks that the table carries want, on behalf of consumer.
func (t *ScoredTable) Require(consumer string, want Capability) error {
	if t.Capabilities.Has(want) {
		return nil
	}
	return &SchemaMismatchError{Consumer: consumer, Missing: want &^ t.Capabilities}
}

// Add marks capabilities as populated.
func (t *ScoredTable) Add(c Capability) {
	t.Capabilities |= c
}

// Column extracts one numeric column.
func (t *ScoredTable) Column(get func(ScoredEntity) float64) []float64 {
	out := make([]float64, len(t.Entities))
	for i, e := range t.Entities {
		out[i] = get(e)
	}
	return out
}

// Index maps entity ids to row positions.
func (t *ScoredTable) Index() map[string]int {
	idx := make(map[string]int, len(t.Entities))
	for i, e := range t.Entities {
		idx[e.EntityID] = i
	}
	return idx
}
