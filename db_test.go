package main

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cell(pos int, row int64, v float64) matrixCell {
	return matrixCell{position: pos, row: row, value: sql.NullFloat64{Float64: v, Valid: true}}
}

func nullCell(pos int, row int64) matrixCell {
	return matrixCell{position: pos, row: row}
}

func TestBuildColumns(t *testing.T) {
	cells := []matrixCell{
		cell(3, 0, 1), cell(3, 1, 2),
		cell(7, 0, 10), cell(7, 1, 20),
	}
	got, err := buildColumns([]int{3, 7}, cells)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 2}, {10, 20}}, got)
}

func TestBuildColumnsKeepsPositionOrder(t *testing.T) {
	cells := []matrixCell{cell(1, 1, 5), cell(2, 1, 6)}
	got, err := buildColumns([]int{2, 1}, cells)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{6}, {5}}, got)
}

func TestBuildColumnsEmptyColumn(t *testing.T) {
	got, err := buildColumns([]int{0, 1}, []matrixCell{cell(0, 0, 1)})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1}, nil}, got)
}

func TestBuildColumnsUnknownPosition(t *testing.T) {
	_, err := buildColumns([]int{0}, []matrixCell{cell(9, 0, 1)})
	assert.ErrorContains(t, err, "unknown column position 9")
}

func TestBuildColumnsRejectsNull(t *testing.T) {
	cells := []matrixCell{nullCell(0, 0), cell(0, 1, 2), cell(1, 0, 5), cell(1, 1, 6)}
	_, err := buildColumns([]int{0, 1}, cells)
	assert.ErrorContains(t, err, "NULL value at column position 0 row_index 0")

	// The same row NULL in every column must not be compacted away.
	cells = []matrixCell{cell(0, 0, 1), nullCell(0, 1), cell(1, 0, 5), nullCell(1, 1)}
	_, err = buildColumns([]int{0, 1}, cells)
	assert.ErrorContains(t, err, "NULL value at column position 0 row_index 1")
}

func TestBuildColumnsRejectsRowGaps(t *testing.T) {
	cells := []matrixCell{cell(0, 0, 1), cell(0, 2, 3)}
	_, err := buildColumns([]int{0}, cells)
	assert.ErrorContains(t, err, "column position 0 jumps from row_index 0 to 2")

	cells = []matrixCell{cell(0, 0, 1), cell(0, 1, 2), cell(1, 1, 5), cell(1, 2, 6)}
	_, err = buildColumns([]int{0, 1}, cells)
	assert.ErrorContains(t, err, "column position 1 starts at row_index 1, expected 0")
}
