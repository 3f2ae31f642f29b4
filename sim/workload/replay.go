package workload

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/cachestudy/cachesim/sim"
)

// Replay is a RequestSource over a recorded request stream, so the exact
// arrivals of one run can be replayed under another policy.
type Replay struct {
	requests []sim.Request
	next     int
}

// NewReplay replays requests, which must be in non-decreasing arrival order.
func NewReplay(requests []sim.Request) (*Replay, error) {
	for i := 1; i < len(requests); i++ {
		if requests[i].ArrivalTime < requests[i-1].ArrivalTime {
			return nil, fmt.Errorf("request %d arrives at %d, before its predecessor at %d",
				i, requests[i].ArrivalTime, requests[i-1].ArrivalTime)
		}
	}
	return &Replay{requests: requests}, nil
}

// Next returns the next recorded request.
func (r *Replay) Next() (sim.Request, bool) {
	if r.next >= len(r.requests) {
		return sim.Request{}, false
	}
	req := r.requests[r.next]
	r.next++
	return req, true
}

// Len returns the number of recorded requests.
func (r *Replay) Len() int {
	return len(r.requests)
}

// LoadReplay reads a per-request records CSV. Only the timestamp (seconds)
// and key columns are used; the outcome columns of the recorded run are
// ignored. Request IDs are reassigned in file order.
func LoadReplay(fsys billy.Filesystem, name string) (*Replay, error) {
	data, err := util.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("reading replay %s: %w", name, err)
	}
	reader := csv.NewReader(bytes.NewReader(data))

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading replay header: %w", err)
	}
	tsCol, keyCol := -1, -1
	for i, col := range header {
		switch col {
		case "timestamp":
			tsCol = i
		case "key":
			keyCol = i
		}
	}
	if tsCol < 0 || keyCol < 0 {
		return nil, fmt.Errorf("replay header %v lacks timestamp or key column", header)
	}

	var requests []sim.Request
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading replay row: %w", err)
		}
		seconds, err := strconv.ParseFloat(row[tsCol], 64)
		if err != nil || math.IsNaN(seconds) || seconds < 0 || !(seconds*sim.TicksPerSecond < math.MaxInt64) {
			return nil, fmt.Errorf("replay row %d: invalid timestamp %q", len(requests)+1, row[tsCol])
		}
		key, err := strconv.Atoi(row[keyCol])
		if err != nil || key < 0 {
			return nil, fmt.Errorf("replay row %d: invalid key %q", len(requests)+1, row[keyCol])
		}
		requests = append(requests, sim.Request{
			ID:          int64(len(requests) + 1),
			Key:         key,
			ArrivalTime: int64(math.Round(seconds * sim.TicksPerSecond)),
		})
	}
	return NewReplay(requests)
}
