package sim

import (
	"math/rand/v2"
	"sort"

	"github.com/sirupsen/logrus"
)

// Decision is the cache model's classification of one request.
type Decision struct {
	Outcome   Outcome
	Recompute bool // a recompute must be submitted to the backend
	Stampede  bool // the recompute joins an open recompute window for the key
	Extended  bool // the hit extended the entry's expiry
	Expired   bool // the request was the first to observe the current value expired
}

// Completion is what a finished or failed recompute releases.
type Completion struct {
	Waiters  []*waiter
	StaleSet bool             // an older read overwrote a fresher value
	Window   *RecomputeWindow // non-nil when the recompute window closed
}

// Cache is the simulated key-value store. It is owned by the event loop and is
// not safe for concurrent use.
type Cache struct {
	policy     string
	ttl        int64
	grace      int64
	extend     bool
	extendInc  int64
	extendMax  int64
	extendProb float64

	entries map[int]*Entry
	rng     *rand.Rand
}

// NewCache creates an empty cache model. rng drives the TTL-extension coin flip.
func NewCache(p Params, rng *rand.Rand) *Cache {
	return &Cache{
		policy:     p.Policy(),
		ttl:        p.TTL(),
		grace:      p.StaleGrace(),
		extend:     p.ExtensionEnabled(),
		extendInc:  p.ExtensionIncrement(),
		extendMax:  p.ExtensionMax(),
		extendProb: p.ExtensionProbability(),
		entries:    make(map[int]*Entry),
		rng:        rng,
	}
}

// Prefill writes a value for every key in [0, population) with an expiry drawn
// uniformly from [0, ttl), so that a run starts from a warm cache whose keys
// expire at staggered times.
func (c *Cache) Prefill(population int, rng *rand.Rand) {
	for key := 0; key < population; key++ {
		c.entries[key] = &Entry{
			Key:       key,
			HasValue:  true,
			ExpiresAt: rng.Int64N(c.ttl),
		}
	}
	logrus.Debugf("Cache prefilled with %d keys", population)
}

// Entry returns the entry for key, if the key was ever touched.
func (c *Cache) Entry(key int) (*Entry, bool) {
	e, ok := c.entries[key]
	return e, ok
}

// Len returns the number of entries in the cache model.
func (c *Cache) Len() int {
	return len(c.entries)
}

// State returns the state of key at now.
func (c *Cache) State(key int, now int64) EntryState {
	e, ok := c.entries[key]
	if !ok {
		return StateAbsent
	}
	return e.state(now, c.grace)
}

// Lookup classifies req against the entry for its key and updates the entry's
// bookkeeping: in-flight marks, recompute windows and TTL extension.
func (c *Cache) Lookup(req Request, now int64) Decision {
	e, ok := c.entries[req.Key]
	if !ok {
		e = &Entry{Key: req.Key}
		c.entries[req.Key] = e
	}

	var d Decision
	if e.HasValue && now >= e.ExpiresAt && !e.expirySeen {
		e.expirySeen = true
		d.Expired = true
	}

	switch e.state(now, c.grace) {
	case StateValid:
		d.Outcome = OutcomeHit
		d.Extended = c.extendExpiry(e, now)
	case StateStale:
		// stale-while-revalidate: serve the old value, refresh in the background
		d.Outcome = OutcomeServedStale
		d.Recompute = true
	case StateRecomputing:
		switch {
		case c.policy == PolicyNone:
			d.Outcome = OutcomeMissRecompute
			d.Recompute = true
		case c.policy == PolicyStaleWhileRevalidate && e.hasStale(now, c.grace):
			d.Outcome = OutcomeServedStale
		default:
			d.Outcome = OutcomeMissWaited
		}
	default:
		d.Outcome = OutcomeMissRecompute
		d.Recompute = true
	}

	if d.Recompute {
		d.Stampede = e.window != nil
		if e.window == nil {
			e.window = &window{start: now}
		}
		e.window.recomputes++
		e.InFlight++
	}
	if e.window != nil {
		e.window.requests++
	}
	return d
}

// extendExpiry pushes the expiry of a hit entry forward by the configured
// increment, never past now + max.
func (c *Cache) extendExpiry(e *Entry, now int64) bool {
	if !c.extend {
		return false
	}
	if c.extendProb < 1 && c.rng.Float64() >= c.extendProb {
		return false
	}
	next := min(e.ExpiresAt+c.extendInc, now+c.extendMax)
	if next <= e.ExpiresAt {
		return false
	}
	e.ExpiresAt = next
	return true
}

// Wait queues w on the entry for key until the in-flight recompute resolves.
func (c *Cache) Wait(key int, w *waiter) {
	e := c.entries[key]
	e.waiters = append(e.waiters, w)
}

// Complete stores the value produced by a recompute whose backend read started
// at startedAt, and releases every request queued on the entry.
func (c *Cache) Complete(key int, startedAt, now int64) Completion {
	e := c.entries[key]
	e.InFlight--

	var comp Completion
	if e.HasValue && startedAt < e.ComputedAt {
		comp.StaleSet = true
		logrus.Debugf("Stale set on key %d: read at %d overwrites value read at %d", key, startedAt, e.ComputedAt)
	}
	e.HasValue = true
	e.ComputedAt = startedAt
	e.InsertedAt = now
	e.ExpiresAt = now + c.ttl
	e.expirySeen = false

	comp.Waiters = e.waiters
	e.waiters = nil
	comp.Window = e.closeWindow(now, false)
	return comp
}

// Fail drops one in-flight recompute for key. Queued requests are released,
// unserved, only when no other recompute remains in flight.
func (c *Cache) Fail(key int, now int64) Completion {
	e := c.entries[key]
	e.InFlight--
	if e.InFlight > 0 {
		return Completion{}
	}
	comp := Completion{Waiters: e.waiters}
	e.waiters = nil
	comp.Window = e.closeWindow(now, true)
	return comp
}

// OpenWindows returns the recompute windows still open at now, ordered by key.
// The windows stay open.
func (c *Cache) OpenWindows(now int64) []*RecomputeWindow {
	var open []*RecomputeWindow
	for _, e := range c.entries {
		if e.window == nil {
			continue
		}
		open = append(open, &RecomputeWindow{
			Key:        e.Key,
			Start:      e.window.start,
			End:        now,
			Requests:   e.window.requests,
			Recomputes: e.window.recomputes,
		})
	}
	sort.Slice(open, func(i, j int) bool { return open[i].Key < open[j].Key })
	return open
}

func (e *Entry) closeWindow(now int64, failed bool) *RecomputeWindow {
	if e.window == nil {
		return nil
	}
	w := &RecomputeWindow{
		Key:        e.Key,
		Start:      e.window.start,
		End:        now,
		Requests:   e.window.requests,
		Recomputes: e.window.recomputes,
		Failed:     failed,
	}
	e.window = nil
	return w
}
