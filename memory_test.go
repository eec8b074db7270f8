package main

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"colstats_worker/colstats"
)

func TestMeasurePeakResidentMemoryTracksPeak(t *testing.T) {
	readings := []float64{100, 180, 120}
	var mu sync.Mutex

	rssBytesFunc = func() float64 {
		mu.Lock()
		defer mu.Unlock()
		if len(readings) == 0 {
			return 120
		}
		v := readings[0]
		readings = readings[1:]
		return v
	}
	t.Cleanup(func() { rssBytesFunc = rssBytes })

	want := &colstats.Table{}
	table, duration, peak, err := measurePeakResidentMemory(func() (*colstats.Table, float64, error) {
		time.Sleep(4 * samplingInterval)
		return want, 0.25, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 0.25, duration)
	assert.Equal(t, 180.0, peak)
	assert.Same(t, want, table)
}

func TestMeasurePeakResidentMemoryHandlesZeroBaseline(t *testing.T) {
	rssBytesFunc = func() float64 { return 0 }
	t.Cleanup(func() { rssBytesFunc = rssBytes })

	_, _, peak, err := measurePeakResidentMemory(func() (*colstats.Table, float64, error) {
		return nil, 0, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 0.0, peak)
}

func TestMeasurePeakResidentMemoryPassesError(t *testing.T) {
	rssBytesFunc = func() float64 { return 64 }
	t.Cleanup(func() { rssBytesFunc = rssBytes })

	boom := errors.New("boom")
	table, _, peak, err := measurePeakResidentMemory(func() (*colstats.Table, float64, error) {
		return nil, 0, boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Nil(t, table)
	assert.Equal(t, 64.0, peak)
}

func TestRSSBytesReadsCurrentProcess(t *testing.T) {
	assert.GreaterOrEqual(t, rssBytes(), 0.0)
}

func TestParseRSS(t *testing.T) {
	assert.Equal(t, 3.0*4096, parseRSS("5000 3 2 1 0 4 0\n", 1, 4096))
	assert.Equal(t, 2048.0*1024, parseRSS("  2048\n", 0, 1024))
	assert.Zero(t, parseRSS("", 0, 1024))
	assert.Zero(t, parseRSS("5000", 1, 4096))
	assert.Zero(t, parseRSS("abc def", 1, 4096))
}
