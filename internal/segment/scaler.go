package segment

import (
	"gonum.org/v1/gonum/stat"
)

// Scaler standardizes features to zero mean and unit population variance.
type Scaler struct {
	Mean  []float64
	Scale []float64
}

// FitScaler learns per-column mean and population standard deviation.
// Columns without variance keep a scale of 1.
func FitScaler(X [][]float64) *Scaler {
	if len(X) == 0 {
		return &Scaler{}
	}
	d := len(X[0])
	s := &Scaler{Mean: make([]float64, d), Scale: make([]float64, d)}
	col := make([]float64, len(X))
	for j := 0; j < d; j++ {
		for i, row := range X {
			col[i] = row[j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		s.Mean[j] = mean
		if std > 0 {
			s.Scale[j] = std
		} else {
			s.Scale[j] = 1
		}
	}
	return s
}

// Transform returns a standardized copy of X.
func (s *Scaler) Transform(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		z := make([]float64, len(row))
		for j, v := range row {
			z[j] = (v - s.Mean[j]) / s.Scale[j]
		}
		out[i] = z
	}
	return out
}

// Standardize fits a scaler on X and transforms it.
func Standardize(X [][]float64) ([][]float64, *Scaler) {
	s := FitScaler(X)
	return s.Transform(X), s
}
