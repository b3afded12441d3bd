package scorers

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/common"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/ensemble"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/model"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/stats"
)

// Arm is the simulated campaign group of an entity.
type Arm string

// Campaign arms.
const (
	ArmTreatment Arm = "Treatment"
	ArmControl   Arm = "Control"
)

// UpliftOptions configures the two-model uplift scorer. The assignment
// and response are simulated: treatment with probability TreatShare, and
// a response when CLV beats the median or with probability NoiseShare.
type UpliftOptions struct {
	TreatShare float64
	NoiseShare float64
	Forest     ensemble.ForestOptions
	TopN       int
	Seed       uint64
}

// DefaultUpliftOptions returns an even split, 20% noise and 100 trees per arm.
func DefaultUpliftOptions(seed uint64) UpliftOptions {
	return UpliftOptions{
		TreatShare: 0.5,
		NoiseShare: 0.2,
		Forest:     ensemble.ForestOptions{Trees: 100, Seed: seed},
		TopN:       20,
		Seed:       seed,
	}
}

// UpliftRow is one line of the uplift table.
type UpliftRow struct {
	EntityID string  `json:"customer_id"`
	Response int     `json:"response"`
	Uplift   float64 `json:"uplift"`
	Arm      Arm     `json:"treatment_group"`
	CLV      float64 `json:"CLV"`
}

// UpliftResult holds the per-entity table and the top-N comparison.
type UpliftResult struct {
	Rows      []UpliftRow `json:"rows"`
	Features  []string    `json:"features"`
	TopSum    float64     `json:"top_sum"`
	RandomSum float64     `json:"random_sum"`
}

// Improvement is the top-N uplift minus a random N.
func (r *UpliftResult) Improvement() float64 {
	return r.TopSum - r.RandomSum
}

// Uplift fits one forest per arm and scores every entity with
// P(response | treated) - P(response | control), rounded to 3 decimals.
func Uplift(table *model.ScoredTable, opts UpliftOptions) (*UpliftResult, error) {
	if err := table.Require("uplift", model.CapPrediction); err != nil {
		return nil, err
	}
	n := table.Len()
	if n == 0 {
		return nil, common.ErrNoEntities
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed))
	arms := make([]Arm, n)
	for i := range arms {
		arms[i] = ArmControl
		if rng.Float64() < opts.TreatShare {
			arms[i] = ArmTreatment
		}
	}
	clv := table.Column(func(e model.ScoredEntity) float64 { return e.CLV })
	median := stats.Median(clv)
	y := make([]float64, n)
	for i := range y {
		if clv[i] > median || rng.Float64() < opts.NoiseShare {
			y[i] = 1
		}
	}

	features := Available(table, UpliftFeatures)
	X := Matrix(table, features)

	var treated, control []int
	for i, a := range arms {
		if a == ArmTreatment {
			treated = append(treated, i)
		} else {
			control = append(control, i)
		}
	}

	fit := func(arm Arm, rows []int) (*ensemble.Forest, error) {
		if len(rows) == 0 {
			return nil, fmt.Errorf("%w: %s group is empty", common.ErrDegenerateInput, arm)
		}
		Xa, ya := subset(X, y, rows)
		f, err := ensemble.FitForest(Xa, ya, opts.Forest)
		if err != nil {
			return nil, fmt.Errorf("%s group: %w", arm, err)
		}
		return f, nil
	}
	treatModel, err := fit(ArmTreatment, treated)
	if err != nil {
		return nil, err
	}
	controlModel, err := fit(ArmControl, control)
	if err != nil {
		return nil, err
	}

	res := &UpliftResult{Features: Names(features), Rows: make([]UpliftRow, n)}
	for i, x := range X {
		u := math.RoundToEven((treatModel.Probability(x)-controlModel.Probability(x))*1000) / 1000
		table.Entities[i].Uplift = u
		res.Rows[i] = UpliftRow{
			EntityID: table.Entities[i].EntityID,
			Response: int(y[i]),
			Uplift:   u,
			Arm:      arms[i],
			CLV:      clv[i],
		}
	}
	table.Add(model.CapUplift)

	res.TopSum, res.RandomSum = topVersusRandom(res.Rows, opts.TopN, rand.New(rand.NewPCG(opts.Seed, opts.Seed+1)))
	return res, nil
}

func topVersusRandom(rows []UpliftRow, topN int, rng *rand.Rand) (top, random float64) {
	if topN <= 0 {
		topN = 20
	}
	k := min(topN, len(rows))

	sorted := make([]float64, len(rows))
	for i, r := range rows {
		sorted[i] = r.Uplift
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
	for _, u := range sorted[:k] {
		top += u
	}
	for _, i := range rng.Perm(len(rows))[:k] {
		random += rows[i].Uplift
	}
	return top, random
}
