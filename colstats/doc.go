// Package colstats computes per-column descriptive statistics for an
// in-memory numeric matrix: count, mean, sample standard deviation, min,
// first quartile, median, third quartile and max.
//
// Quartiles use linear interpolation between order statistics (rank
// h = (N-1)p). Results are rounded per column according to a PrecisionRule;
// the default, LastColumnWhole, rounds the last column to whole numbers and
// every other column to two decimal places.
package colstats
