package colstats

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidInput reports a matrix or name list that cannot be summarized.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNonFiniteValue reports a NaN or infinite value under RejectNonFinite.
	ErrNonFiniteValue = errors.New("non-finite value")
)

// PrecisionRule returns the number of decimal places for column i of n.
type PrecisionRule func(i, n int) int

// LastColumnWhole rounds the last column to whole numbers and every other
// column to two decimal places. A single column counts as the last one.
func LastColumnWhole(i, n int) int {
	if i == n-1 {
		return 0
	}
	return 2
}

// FixedPrecision rounds every column to the same number of places.
func FixedPrecision(places int) PrecisionRule {
	return func(int, int) int { return places }
}

// PerColumnPrecision assigns places by column position. Columns past the end
// of the list reuse its last entry; an empty list means two places.
func PerColumnPrecision(places ...int) PrecisionRule {
	p := append([]int(nil), places...)
	return func(i, _ int) int {
		if len(p) == 0 {
			return 2
		}
		if i >= len(p) {
			return p[len(p)-1]
		}
		return p[i]
	}
}

// NonFinitePolicy decides what happens to columns holding NaN or ±Inf.
type NonFinitePolicy int

const (
	// RejectNonFinite fails the whole call with ErrNonFiniteValue.
	RejectNonFinite NonFinitePolicy = iota
	// PropagateNonFinite reports NaN for every statistic of the column.
	PropagateNonFinite
)

func (p NonFinitePolicy) String() string {
	switch p {
	case RejectNonFinite:
		return "reject"
	case PropagateNonFinite:
		return "propagate"
	default:
		return fmt.Sprintf("NonFinitePolicy(%d)", int(p))
	}
}

// ParseNonFinitePolicy accepts "reject" or "propagate", case-insensitively.
func ParseNonFinitePolicy(s string) (NonFinitePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reject":
		return RejectNonFinite, nil
	case "propagate":
		return PropagateNonFinite, nil
	default:
		return RejectNonFinite, fmt.Errorf("unknown non-finite policy %q", s)
	}
}

type options struct {
	precision   PrecisionRule
	nonFinite   NonFinitePolicy
	parallelism int
}

// Option configures Compute.
type Option func(*options)

// WithPrecision replaces the default LastColumnWhole rule.
func WithPrecision(rule PrecisionRule) Option {
	return func(o *options) {
		if rule != nil {
			o.precision = rule
		}
	}
}

// WithNonFinite sets how columns holding NaN or ±Inf are handled.
func WithNonFinite(policy NonFinitePolicy) Option {
	return func(o *options) { o.nonFinite = policy }
}

// WithParallelism summarizes up to k columns at once. Values below 1 mean 1.
func WithParallelism(k int) Option {
	return func(o *options) { o.parallelism = k }
}

func newOptions(opts []Option) options {
	o := options{
		precision:   LastColumnWhole,
		nonFinite:   RejectNonFinite,
		parallelism: 1,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.parallelism < 1 {
		o.parallelism = 1
	}
	return o
}
