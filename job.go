package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
)

type sidekiqJob struct {
	Class string            `json:"class"`
	Args  []json.RawMessage `json:"args"`
	Queue string            `json:"queue"`
	JID   string            `json:"jid"`
}

var errSkipJob = errors.New("job class not handled")

// decodeJob parses a queue payload and returns the analysis id it refers to.
// Jobs whose class is not in classes are reported with errSkipJob.
func decodeJob(payload string, classes []string) (sidekiqJob, int64, error) {
	var job sidekiqJob
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		return job, 0, fmt.Errorf("invalid job json: %w", err)
	}
	if !slices.Contains(classes, job.Class) {
		return job, 0, fmt.Errorf("%w: %s", errSkipJob, job.Class)
	}
	if len(job.Args) == 0 {
		return job, 0, errors.New("job missing analysis id")
	}
	id, err := parseInt64(job.Args[0])
	if err != nil {
		return job, 0, fmt.Errorf("job analysis id: %w", err)
	}
	if id <= 0 {
		return job, 0, fmt.Errorf("job analysis id must be positive, got %d", id)
	}
	return job, id, nil
}

// parseInt64 extracts an int64 from a Sidekiq payload argument that may be encoded
// either as a JSON number or as a quoted string.
func parseInt64(raw json.RawMessage) (int64, error) {
	var asNumber int64
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return asNumber, nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		if asString == "" {
			return 0, fmt.Errorf("empty string")
		}
		return strconv.ParseInt(asString, 10, 64)
	}

	return 0, fmt.Errorf("unsupported arg: %s", string(raw))
}
