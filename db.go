package main

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"colstats_worker/colstats"
)

// store is the persistence the worker needs for one analysis.
type store interface {
	AnalysisExists(ctx context.Context, id int64) (bool, error)
	FetchMatrix(ctx context.Context, id int64) (names []string, columns [][]float64, err error)
	InsertColumnStats(ctx context.Context, id int64, table *colstats.Table, durationSeconds, memoryBytes float64) error
}

type pgStore struct {
	db *sql.DB
}

func openStore(ctx context.Context, dsn string) (*pgStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database not reachable: %w", err)
	}
	return &pgStore{db: db}, nil
}

func (s *pgStore) Close() error {
	return s.db.Close()
}

func (s *pgStore) AnalysisExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM analyses WHERE id = $1)", id).Scan(&exists)
	return exists, err
}

type matrixCell struct {
	position int
	row      int64
	value    sql.NullFloat64
}

func (s *pgStore) FetchMatrix(ctx context.Context, id int64) ([]string, [][]float64, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT position, name FROM analysis_columns WHERE analysis_id = $1 ORDER BY position ASC", id)
	if err != nil {
		return nil, nil, err
	}
	var positions []int
	var names []string
	for rows.Next() {
		var pos int
		var name string
		if err := rows.Scan(&pos, &name); err != nil {
			rows.Close()
			return nil, nil, err
		}
		positions = append(positions, pos)
		names = append(names, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	const q = `
SELECT position, row_index, value
FROM analysis_values
WHERE analysis_id = $1
ORDER BY position ASC, row_index ASC`

	rows, err = s.db.QueryContext(ctx, q, id)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	var cells []matrixCell
	for rows.Next() {
		var c matrixCell
		if err := rows.Scan(&c.position, &c.row, &c.value); err != nil {
			return nil, nil, err
		}
		cells = append(cells, c)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	columns, err := buildColumns(positions, cells)
	if err != nil {
		return nil, nil, err
	}
	return names, columns, nil
}

// buildColumns groups cells, ordered by position then row_index, into one
// column per position in the order the positions are given. Every column
// must hold a non-NULL value for each row_index from the first column's
// first row onwards, with no gaps.
func buildColumns(positions []int, cells []matrixCell) ([][]float64, error) {
	index := make(map[int]int, len(positions))
	for i, pos := range positions {
		index[pos] = i
	}
	columns := make([][]float64, len(positions))
	next := make([]int64, len(positions))
	started := make([]bool, len(positions))
	var firstRow int64
	haveFirst := false
	for _, c := range cells {
		i, ok := index[c.position]
		if !ok {
			return nil, fmt.Errorf("value for unknown column position %d", c.position)
		}
		if !c.value.Valid {
			return nil, fmt.Errorf("NULL value at column position %d row_index %d", c.position, c.row)
		}
		if !haveFirst {
			firstRow, haveFirst = c.row, true
		}
		if !started[i] {
			if c.row != firstRow {
				return nil, fmt.Errorf("column position %d starts at row_index %d, expected %d", c.position, c.row, firstRow)
			}
			started[i] = true
		} else if c.row != next[i] {
			return nil, fmt.Errorf("column position %d jumps from row_index %d to %d", c.position, next[i]-1, c.row)
		}
		next[i] = c.row + 1
		columns[i] = append(columns[i], c.value.Float64)
	}
	return columns, nil
}

func (s *pgStore) InsertColumnStats(ctx context.Context, id int64, table *colstats.Table, durationSeconds, memoryBytes float64) error {
	const q = `
INSERT INTO column_stats
  (analysis_id, position, name, n_obs, mean, sd, min, q1, median, q3, max, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NOW())
`
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i, r := range table.Rows {
		if _, err := tx.ExecContext(ctx, q,
			id, i, r.Name, r.NObs,
			r.Mean, r.SD, r.Min, r.Q1, r.Median, r.Q3, r.Max,
		); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO column_stats_runs (analysis_id, duration, memory, created_at) VALUES ($1,$2,$3,NOW())",
		id, durationSeconds, memoryBytes,
	); err != nil {
		return err
	}
	return tx.Commit()
}
