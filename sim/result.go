package sim

import (
	"sort"

	"gopkg.in/yaml.v3"
)

// topKeys bounds the per-key section of a Summary.
const topKeys = 10

// Counters are the aggregate outcome counts of a run, or of one key.
type Counters struct {
	Requests         int `yaml:"requests"`
	Hits             int `yaml:"hits"`
	MissRecompute    int `yaml:"miss_recompute"`
	MissWaited       int `yaml:"miss_waited"`
	ServedStale      int `yaml:"served_stale"`
	Recomputes       int `yaml:"recomputes"`
	ConcurrentMisses int `yaml:"concurrent_misses"` // recomputes started while one was in flight for the key
	StampedeEvents   int `yaml:"stampede_events"`   // windows with more than one recompute
	Windows          int `yaml:"windows"`
	StaleSets        int `yaml:"stale_sets"`
	Expirations      int `yaml:"expirations"`
	Extensions       int `yaml:"extensions"`
	BackendFailures  int `yaml:"backend_failures"`
	FailedRequests   int `yaml:"failed_requests"`
	Pending          int `yaml:"pending"`
}

// HitRate returns the share of requests answered from a valid entry.
func (c Counters) HitRate() float64 {
	if c.Requests == 0 {
		return 0
	}
	return float64(c.Hits) / float64(c.Requests)
}

func (c *Counters) countOutcome(o Outcome) {
	c.Requests++
	switch o {
	case OutcomeHit:
		c.Hits++
	case OutcomeMissRecompute:
		c.MissRecompute++
	case OutcomeMissWaited:
		c.MissWaited++
	case OutcomeServedStale:
		c.ServedStale++
	}
}

// Sample is one bucket of the run's time series. Requests and their response
// times are bucketed by arrival time, recomputes by submission time.
type Sample struct {
	Start            int64 `yaml:"start"`
	Requests         int   `yaml:"requests"`
	Hits             int   `yaml:"hits"`
	MissRecompute    int   `yaml:"miss_recompute"`
	MissWaited       int   `yaml:"miss_waited"`
	ServedStale      int   `yaml:"served_stale"`
	Recomputes       int   `yaml:"recomputes"`
	ConcurrentMisses int   `yaml:"concurrent_misses"`
	// ticks, one per successfully answered request that arrived in the bucket
	ResponseTimes []int64 `yaml:"-"`
}

// ResponseTime summarizes the bucket's response times in milliseconds. The
// zero Distribution means no request arriving in the bucket was answered.
func (s Sample) ResponseTime() Distribution {
	return NewDistribution(ticksToMillis(s.ResponseTimes))
}

// HitRate returns the share of the bucket's requests that hit.
func (s Sample) HitRate() float64 {
	if s.Requests == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Requests)
}

// Result is the outcome of one run. It is owned by the caller once Run returns.
type Result struct {
	Counters
	Keys          map[int]*Counters
	Series        []Sample
	ResponseTimes []int64 // ticks, one per successfully answered request
	Horizon       int64
	Clock         int64 // time of the last processed event
}

func newResult(horizon, interval int64) *Result {
	buckets := int((horizon + interval - 1) / interval)
	series := make([]Sample, max(buckets, 1))
	for i := range series {
		series[i].Start = int64(i) * interval
	}
	return &Result{
		Keys:    make(map[int]*Counters),
		Series:  series,
		Horizon: horizon,
	}
}

func (r *Result) key(k int) *Counters {
	c, ok := r.Keys[k]
	if !ok {
		c = &Counters{}
		r.Keys[k] = c
	}
	return c
}

func (r *Result) sample(t int64) *Sample {
	if len(r.Series) == 1 {
		return &r.Series[0]
	}
	interval := r.Series[1].Start
	i := int(t / interval)
	if i >= len(r.Series) {
		i = len(r.Series) - 1
	}
	return &r.Series[i]
}

// KeySummary is the per-key section of a Summary.
type KeySummary struct {
	Key      int `yaml:"key"`
	Counters `yaml:",inline"`
}

// Summary is the deterministic, serializable view of a Result written to the
// journal.
type Summary struct {
	Counters     `yaml:",inline"`
	HitRate      float64      `yaml:"hit_rate"`
	ResponseTime Distribution `yaml:"response_time_ms"`
	HotKeys      []KeySummary `yaml:"hot_keys,omitempty"`
}

// Summary builds the serializable view of r. HotKeys lists the most requested
// keys, ties broken by key.
func (r *Result) Summary() Summary {
	hot := make([]KeySummary, 0, len(r.Keys))
	for k, c := range r.Keys {
		hot = append(hot, KeySummary{Key: k, Counters: *c})
	}
	sort.Slice(hot, func(i, j int) bool {
		if hot[i].Requests != hot[j].Requests {
			return hot[i].Requests > hot[j].Requests
		}
		return hot[i].Key < hot[j].Key
	})
	if len(hot) > topKeys {
		hot = hot[:topKeys]
	}
	return Summary{
		Counters:     r.Counters,
		HitRate:      r.HitRate(),
		ResponseTime: NewDistribution(ticksToMillis(r.ResponseTimes)),
		HotKeys:      hot,
	}
}

// YAML returns the Summary encoded as YAML.
func (s Summary) YAML() ([]byte, error) {
	return yaml.Marshal(s)
}
