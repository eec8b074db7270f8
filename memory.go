package main

import (
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"colstats_worker/colstats"
)

const samplingInterval = 10 * time.Millisecond

var rssBytesFunc = rssBytes

// measurePeakResidentMemory runs fn while sampling RSS and returns fn's
// results along with the highest reading seen.
func measurePeakResidentMemory(fn func() (*colstats.Table, float64, error)) (*colstats.Table, float64, float64, error) {
	baseline := rssBytesFunc()
	peak := baseline

	stop := make(chan struct{})
	var wg sync.WaitGroup
	var mu sync.Mutex
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(samplingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				current := rssBytesFunc()
				mu.Lock()
				if current > peak {
					peak = current
				}
				mu.Unlock()
			case <-stop:
				return
			}
		}
	}()

	table, duration, err := fn()
	close(stop)
	wg.Wait()

	if current := rssBytesFunc(); current > peak {
		peak = current
	}
	return table, duration, peak, err
}

// rssBytes reports the resident set size of this process: the second field
// of /proc/self/statm on Linux, otherwise the kilobyte figure from ps.
func rssBytes() float64 {
	if runtime.GOOS == "linux" {
		if data, err := os.ReadFile("/proc/self/statm"); err == nil {
			if v := parseRSS(string(data), 1, float64(os.Getpagesize())); v > 0 {
				return v
			}
		}
	}
	out, err := exec.Command("ps", "-o", "rss=", "-p", strconv.Itoa(os.Getpid())).Output()
	if err != nil {
		return 0
	}
	return parseRSS(string(out), 0, 1024)
}

// parseRSS reads the unsigned integer in whitespace-separated field of text
// and scales it to bytes. Unparseable input yields 0.
func parseRSS(text string, field int, unit float64) float64 {
	fields := strings.Fields(text)
	if len(fields) <= field {
		return 0
	}
	n, err := strconv.ParseUint(fields[field], 10, 64)
	if err != nil {
		return 0
	}
	return float64(n) * unit
}
