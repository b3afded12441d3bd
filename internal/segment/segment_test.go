package segment

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/common"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/model"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/stats"
)

func table(points [][3]float64) *model.ScoredTable {
	records := make([]model.RFMRecord, len(points))
	for i, p := range points {
		records[i] = model.RFMRecord{
			EntityID:      string(rune('a' + i)),
			Recency:       p[0],
			Frequency:     p[1],
			MonetaryValue: p[2],
			T:             p[0] + 10,
		}
	}
	return model.NewScoredTable(records, false)
}

// blobs draws two well separated groups of n points each around c1 and c2.
func blobs(n int, c1, c2 [3]float64, seed uint64) [][]float64 {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	X := make([][]float64, 0, 2*n)
	for _, c := range [][3]float64{c1, c2} {
		for i := 0; i < n; i++ {
			X = append(X, []float64{
				c[0] + rng.NormFloat64(),
				c[1] + rng.NormFloat64(),
				c[2] + rng.NormFloat64(),
			})
		}
	}
	return X
}

func TestScaler(t *testing.T) {
	X := [][]float64{{1, 5}, {3, 5}, {5, 5}}
	Z, s := Standardize(X)

	assert.Equal(t, []float64{3, 5}, s.Mean)
	assert.InDelta(t, math.Sqrt(8.0/3), s.Scale[0], 1e-12)
	assert.Equal(t, 1.0, s.Scale[1], "constant column keeps unit scale")

	var sum, sq float64
	for _, row := range Z {
		sum += row[0]
		sq += row[0] * row[0]
		assert.Zero(t, row[1])
	}
	assert.InDelta(t, 0, sum, 1e-12)
	assert.InDelta(t, 1, sq/3, 1e-12)

	// input untouched
	assert.Equal(t, []float64{1, 5}, X[0])
}

func TestKMeans_ThreePointsTwoClusters(t *testing.T) {
	tbl := table([][3]float64{{10, 5, 100}, {20, 10, 200}, {30, 15, 300}})

	rep, err := Segment(tbl, Options{NClusters: 2, Seed: 42}, nil)
	require.NoError(t, err)
	assert.Equal(t, MethodKMeans, rep.Method)
	assert.Equal(t, 2, rep.Clusters)
	assert.True(t, tbl.Capabilities.Has(model.CapCluster))

	labels := make([]int, tbl.Len())
	for i, e := range tbl.Entities {
		labels[i] = e.Cluster
	}
	assert.Equal(t, 2, stats.Distinct(labels))
}

func TestKMeans_Deterministic(t *testing.T) {
	X := blobs(25, [3]float64{0, 0, 0}, [3]float64{4, 4, 4}, 7)
	opts := DefaultKMeansOptions(3, 42)

	first, err := KMeans(X, opts)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := KMeans(X, opts)
		require.NoError(t, err)
		assert.Equal(t, first.Labels, again.Labels)
		assert.Equal(t, first.Inertia, again.Inertia)
	}
}

func TestKMeans_SeparatesBlobs(t *testing.T) {
	X := blobs(20, [3]float64{0, 0, 0}, [3]float64{20, 20, 20}, 3)

	c, err := KMeans(X, DefaultKMeansOptions(2, 42))
	require.NoError(t, err)
	for i := 1; i < 20; i++ {
		assert.Equal(t, c.Labels[0], c.Labels[i])
		assert.Equal(t, c.Labels[20], c.Labels[20+i])
	}
	assert.NotEqual(t, c.Labels[0], c.Labels[20])
}

func TestKMeans_InvalidK(t *testing.T) {
	X := [][]float64{{1}, {2}}
	tests := []struct {
		name string
		k    int
	}{
		{name: "zero", k: 0},
		{name: "more clusters than points", k: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := KMeans(X, DefaultKMeansOptions(tt.k, 42))
			assert.ErrorIs(t, err, common.ErrDegenerateInput)
		})
	}
}

func TestSegment_CapsKAtEntityCount(t *testing.T) {
	tbl := table([][3]float64{{1, 1, 1}, {50, 2, 80}})
	rep, err := Segment(tbl, Options{NClusters: 4, Seed: 42}, nil)
	require.NoError(t, err)
	assert.True(t, rep.Capped)
	assert.Equal(t, 2, rep.K)
}

func TestElbowCurve(t *testing.T) {
	X := blobs(15, [3]float64{0, 0, 0}, [3]float64{6, 1, 3}, 11)

	curve, err := ElbowCurve(X, 1, 7, DefaultKMeansOptions(1, 42))
	require.NoError(t, err)
	require.Len(t, curve, 7)
	for i := 1; i < len(curve); i++ {
		assert.LessOrEqual(t, curve[i], curve[i-1], "k=%d", i+1)
	}
}

func TestElbowCurve_Ranges(t *testing.T) {
	X := [][]float64{{0}, {1}, {2}}

	curve, err := ElbowCurve(X, 2, 3, DefaultKMeansOptions(2, 42))
	require.NoError(t, err)
	assert.Len(t, curve, 2)
	assert.InDelta(t, 0, curve[1], 1e-12)

	_, err = ElbowCurve(X, 3, 2, DefaultKMeansOptions(1, 42))
	assert.ErrorIs(t, err, common.ErrInvalidConfig)

	_, err = ElbowCurve(X, 1, 5, DefaultKMeansOptions(1, 42))
	assert.ErrorIs(t, err, common.ErrDegenerateInput)
}

func TestElbow_CapsKMaxAtEntityCount(t *testing.T) {
	tbl := table([][3]float64{{10, 5, 100}, {20, 10, 200}, {30, 15, 300}})

	curve, err := Elbow(tbl, 1, 7, 42)
	require.NoError(t, err)
	require.Len(t, curve, 3)
	assert.InDelta(t, 0, curve[2], 1e-12)

	_, err = Elbow(tbl, 4, 7, 42)
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestSelectGMM_PrefersTwoBlobs(t *testing.T) {
	X := blobs(40, [3]float64{0, 0, 0}, [3]float64{10, 10, 10}, 5)

	sel, err := SelectGMM(X, DefaultGMMOptions(4, 42))
	require.NoError(t, err)
	assert.Equal(t, 2, sel.K())
	assert.Len(t, sel.BIC, 4)
	assert.Equal(t, 2, stats.Distinct(sel.Labels))
	assert.NotEqual(t, sel.Labels[0], sel.Labels[40])
}

func TestSelectGMM_CapsComponentsAtN(t *testing.T) {
	X := [][]float64{{0, 0, 0}, {1, 1, 1}, {5, 5, 5}}
	sel, err := SelectGMM(X, DefaultGMMOptions(7, 42))
	require.NoError(t, err)
	assert.Len(t, sel.BIC, 3)
	assert.Len(t, sel.Labels, 3)
}

func TestMixture_NumParams(t *testing.T) {
	m := &Mixture{Weights: []float64{0.5, 0.5}}
	// 2*3 means, 2*6 covariance terms, 1 free weight
	assert.Equal(t, 19, m.NumParams(3))
}

func TestSegment_GMM(t *testing.T) {
	points := make([][3]float64, 0, 30)
	for _, row := range blobs(15, [3]float64{5, 1, 20}, [3]float64{60, 9, 400}, 9) {
		points = append(points, [3]float64{row[0], row[1], row[2]})
	}
	tbl := table(points)

	rep, err := Segment(tbl, Options{AutoGMM: true, MaxComponents: 3, Seed: 42}, nil)
	require.NoError(t, err)
	assert.Equal(t, MethodGMM, rep.Method)
	assert.Len(t, rep.BIC, 3)
	assert.GreaterOrEqual(t, rep.Clusters, 1)
}

func TestProfiles(t *testing.T) {
	tbl := table([][3]float64{{10, 1, 100}, {20, 3, 300}, {90, 0, 0}})
	tbl.Entities[0].Cluster = 1
	tbl.Entities[1].Cluster = 1
	tbl.Entities[2].Cluster = 0
	tbl.Entities[0].CLV = 10
	tbl.Entities[1].CLV = 30

	_, err := Profiles(tbl)
	assert.ErrorIs(t, err, common.ErrSchemaMismatch)

	tbl.Add(model.CapCluster)
	got, err := Profiles(tbl)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, Profile{Cluster: 0, Count: 1, Recency: 90}, got[0])
	assert.Equal(t, Profile{Cluster: 1, Count: 2, Recency: 15, Frequency: 2, MonetaryValue: 200, CLV: 20}, got[1])
}
