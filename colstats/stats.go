package colstats

import (
	"fmt"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Row holds the summary of one input column. NObs is never rounded.
type Row struct {
	Name   string  `json:"name"`
	NObs   int     `json:"n_obs"`
	Mean   float64 `json:"mean"`
	SD     float64 `json:"sd"`
	Min    float64 `json:"min"`
	Q1     float64 `json:"Q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"Q3"`
	Max    float64 `json:"max"`
	Places int     `json:"-"`
}

// Table is the result of Compute, one row per input column in input order.
type Table struct {
	Rows []Row
}

// Compute summarizes every column of a column-major matrix. It either returns
// a row for every column or an error; no partial tables are produced.
func Compute(columns [][]float64, names []string, opts ...Option) (*Table, error) {
	o := newOptions(opts)
	if err := validate(columns, names, o.nonFinite); err != nil {
		return nil, err
	}

	n := len(columns)
	rows := make([]Row, n)
	g := new(errgroup.Group)
	g.SetLimit(o.parallelism)
	for i := range columns {
		i := i
		g.Go(func() error {
			rows[i] = summarize(columns[i], o.precision(i, n))
			rows[i].Name = names[i]
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Table{Rows: rows}, nil
}

// ComputeMatrix is Compute over the columns of a gonum matrix.
func ComputeMatrix(m mat.Matrix, names []string, opts ...Option) (*Table, error) {
	r, c := m.Dims()
	columns := make([][]float64, c)
	for j := 0; j < c; j++ {
		columns[j] = mat.Col(make([]float64, r), j, m)
	}
	return Compute(columns, names, opts...)
}

func validate(columns [][]float64, names []string, policy NonFinitePolicy) error {
	if len(columns) == 0 {
		return fmt.Errorf("%w: matrix has no columns", ErrInvalidInput)
	}
	if len(names) != len(columns) {
		return fmt.Errorf("%w: %d column names for %d columns", ErrInvalidInput, len(names), len(columns))
	}
	rows := len(columns[0])
	for i, col := range columns {
		if len(col) == 0 {
			return fmt.Errorf("%w: column %d (%q) is empty", ErrInvalidInput, i, names[i])
		}
		if len(col) != rows {
			return fmt.Errorf("%w: column %d (%q) has %d rows, expected %d", ErrInvalidInput, i, names[i], len(col), rows)
		}
		if policy == PropagateNonFinite {
			continue
		}
		for j, v := range col {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: column %d (%q) row %d is %v", ErrNonFiniteValue, i, names[i], j, v)
			}
		}
	}
	return nil
}

func summarize(col []float64, places int) Row {
	row := Row{NObs: len(col), Places: places}
	if hasNonFinite(col) {
		nan := math.NaN()
		row.Mean, row.SD, row.Min, row.Q1, row.Median, row.Q3, row.Max = nan, nan, nan, nan, nan, nan, nan
		return row
	}

	sorted := append([]float64(nil), col...)
	sort.Float64s(sorted)

	mean, sd := stat.MeanStdDev(col, nil)
	row.Mean = Round(mean, places)
	row.SD = Round(sd, places)
	row.Min = Round(floats.Min(col), places)
	row.Max = Round(floats.Max(col), places)
	row.Median = Round(Median(sorted), places)
	row.Q1 = Round(Quantile(sorted, 0.25), places)
	row.Q3 = Round(Quantile(sorted, 0.75), places)
	return row
}

func hasNonFinite(col []float64) bool {
	for _, v := range col {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}

// Quantile returns the p-quantile of an ascending slice by linear
// interpolation between the order statistics at floor and ceil of (N-1)*p.
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 || math.IsNaN(p) || p < 0 || p > 1 {
		return math.NaN()
	}
	h := float64(n-1) * p
	lo := math.Floor(h)
	hi := math.Ceil(h)
	a, b := sorted[int(lo)], sorted[int(hi)]
	return a + (h-lo)*(b-a)
}

// Median returns the middle value of an ascending slice, or the mean of the
// two middle values when the length is even.
func Median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2.0
}

// Round scales value by 10^places, rounds half away from zero, and scales
// back. The scaling happens in binary floating point: 2.005*100 is exactly
// 200.5 and rounds up to 2.01, while 1.005*100 is 100.49999999999999 and
// rounds down to 1.00.
func Round(value float64, places int) float64 {
	return scalar.Round(value, places)
}
