package sim

import (
	"github.com/sirupsen/logrus"

	"github.com/cachestudy/cachesim/sim/trace"
)

// Option configures a Simulator.
type Option func(*Simulator)

// WithTrace records requests, windows and recomputes into st at the
// verbosity of its level.
func WithTrace(st *trace.SimulationTrace) Option {
	return func(s *Simulator) {
		s.trace = st
	}
}

// Simulator is the discrete-event loop of one run. It pulls requests lazily
// from its source, classifies each one against the cache model and schedules
// backend recomputes. A Simulator is single use and not safe for concurrent use.
type Simulator struct {
	params  Params
	source  RequestSource
	rng     *PartitionedRNG
	cache   *Cache
	backend *Backend
	events  *EventHeap
	trace   *trace.SimulationTrace

	clock      int64
	horizon    int64
	seq        uint64
	nextJobID  int64
	unresolved int
	result     *Result
}

// NewSimulator creates a simulator for p fed by src.
func NewSimulator(p Params, src RequestSource, opts ...Option) *Simulator {
	rng := NewPartitionedRNG(p.Seed())
	s := &Simulator{
		params:  p,
		source:  src,
		rng:     rng,
		cache:   NewCache(p, rng.ForSubsystem(SubsystemCache)),
		backend: NewBackend(p, rng.ForSubsystem(SubsystemBackend)),
		events:  NewEventHeap(),
		horizon: p.Horizon(),
		result:  newResult(p.Horizon(), p.SampleInterval()),
	}
	for _, opt := range opts {
		opt(s)
	}
	if p.Prefill() {
		s.cache.Prefill(p.Population(), rng.ForSubsystem(SubsystemPrefill))
	}
	return s
}

// Cache returns the simulator's cache model.
func (s *Simulator) Cache() *Cache {
	return s.cache
}

// Clock returns the current simulated time in ticks.
func (s *Simulator) Clock() int64 {
	return s.clock
}

// Schedule pushes ev into the event queue.
func (s *Simulator) Schedule(ev Event) {
	s.events.Schedule(ev)
}

func (s *Simulator) base(t int64, typ EventType) BaseEvent {
	s.seq++
	return BaseEvent{timestamp: t, seq: s.seq, eventType: typ}
}

// Run processes events until the request source is exhausted and no events
// remain, or until the next event lies beyond the horizon.
func (s *Simulator) Run() *Result {
	logrus.Infof("Starting run: %s", s.params.Caption())
	s.scheduleNextArrival()
	for s.events.Len() > 0 {
		if s.events.Peek().Timestamp() > s.horizon {
			break
		}
		ev := s.events.PopNext()
		s.clock = ev.Timestamp()
		ev.Execute(s)
	}
	s.finish()
	logrus.Infof("Run finished at %d ticks: %d requests, %d hits, %d recomputes, %d concurrent misses",
		s.clock, s.result.Requests, s.result.Hits, s.result.Recomputes, s.result.ConcurrentMisses)
	return s.result
}

func (s *Simulator) scheduleNextArrival() {
	req, ok := s.source.Next()
	if !ok {
		return
	}
	// Arrivals count only strictly before the horizon, whatever the source.
	if req.ArrivalTime >= s.horizon {
		logrus.Debugf("Request %d arrives at %d ticks, at or past the horizon %d; stopping arrivals", req.ID, req.ArrivalTime, s.horizon)
		return
	}
	if req.ArrivalTime < s.clock {
		logrus.Warnf("Request %d arrives at %d ticks, before the clock at %d; delivering it now", req.ID, req.ArrivalTime, s.clock)
		req.ArrivalTime = s.clock
	}
	s.Schedule(&ArrivalEvent{
		BaseEvent: s.base(req.ArrivalTime, EventTypeArrival),
		Request:   req,
	})
}

func (s *Simulator) handleArrival(req Request) {
	now := s.clock
	d := s.cache.Lookup(req, now)

	key := s.result.key(req.Key)
	sample := s.result.sample(now)
	s.result.countOutcome(d.Outcome)
	key.countOutcome(d.Outcome)
	sample.Requests++
	switch d.Outcome {
	case OutcomeHit:
		sample.Hits++
	case OutcomeMissRecompute:
		sample.MissRecompute++
	case OutcomeMissWaited:
		sample.MissWaited++
	case OutcomeServedStale:
		sample.ServedStale++
	}
	if d.Expired {
		s.result.Expirations++
		key.Expirations++
	}
	if d.Extended {
		s.result.Extensions++
		key.Extensions++
	}
	if d.Stampede {
		s.result.ConcurrentMisses++
		key.ConcurrentMisses++
		sample.ConcurrentMisses++
		logrus.Debugf("Concurrent miss on key %d at %d ticks", req.Key, now)
	}

	w := &waiter{req: req, record: -1}
	if s.trace.RecordsRequests() {
		w.record = s.trace.RecordRequest(trace.RequestRecord{
			RequestID:  req.ID,
			Key:        req.Key,
			Arrival:    req.ArrivalTime,
			Outcome:    d.Outcome.String(),
			ResolvedAt: -1,
		})
	}
	s.unresolved++

	var owner *waiter
	switch d.Outcome {
	case OutcomeHit, OutcomeServedStale:
		s.resolve(w, false)
	case OutcomeMissWaited:
		s.cache.Wait(req.Key, w)
	case OutcomeMissRecompute:
		owner = w
	}
	if d.Recompute {
		s.submit(req.Key, owner)
	}
}

// submit hands a recompute of key to the backend. owner is the request that
// waits on this particular recompute, nil for background refreshes.
func (s *Simulator) submit(key int, owner *waiter) {
	now := s.clock
	s.nextJobID++
	job := &Recompute{ID: s.nextJobID, Key: key, owner: owner}

	s.result.Recomputes++
	s.result.key(key).Recomputes++
	s.result.sample(now).Recomputes++

	doneAt, started := s.backend.Submit(job, now)
	if started {
		s.scheduleDone(job, doneAt)
		return
	}
	logrus.Debugf("Recompute %d for key %d queued at backend (%d queued)", job.ID, key, s.backend.Queued())
	if timeout := s.backend.Timeout(); timeout > 0 {
		s.Schedule(&BackendTimeoutEvent{
			BaseEvent: s.base(now+timeout, EventTypeBackendTimeout),
			Job:       job,
		})
	}
}

func (s *Simulator) scheduleDone(job *Recompute, doneAt int64) {
	s.Schedule(&RecomputeDoneEvent{
		BaseEvent: s.base(doneAt, EventTypeRecomputeDone),
		Job:       job,
	})
}

func (s *Simulator) completeRecompute(job *Recompute) {
	now := s.clock
	comp := s.cache.Complete(job.Key, job.StartedAt, now)
	if comp.StaleSet {
		s.result.StaleSets++
		s.result.key(job.Key).StaleSets++
	}
	if job.owner != nil {
		s.resolve(job.owner, false)
	}
	for _, w := range comp.Waiters {
		s.resolve(w, false)
	}
	s.closeWindow(comp.Window, false)
	s.recordRecompute(job, false, comp.StaleSet)

	if next, doneAt, ok := s.backend.Release(now); ok {
		s.scheduleDone(next, doneAt)
	}
}

func (s *Simulator) failRecompute(job *Recompute) {
	s.result.BackendFailures++
	s.result.key(job.Key).BackendFailures++

	comp := s.cache.Fail(job.Key, s.clock)
	if job.owner != nil {
		s.resolve(job.owner, true)
	}
	for _, w := range comp.Waiters {
		s.resolve(w, true)
	}
	s.closeWindow(comp.Window, false)
	s.recordRecompute(job, true, false)
}

// resolve answers w at the current clock. Response time covers the wait for
// the value plus one cache access.
func (s *Simulator) resolve(w *waiter, failed bool) {
	s.unresolved--
	rt := s.clock - w.req.ArrivalTime + s.params.CacheLatency()
	if failed {
		s.result.FailedRequests++
		s.result.key(w.req.Key).FailedRequests++
	} else {
		s.result.ResponseTimes = append(s.result.ResponseTimes, rt)
		sample := s.result.sample(w.req.ArrivalTime)
		sample.ResponseTimes = append(sample.ResponseTimes, rt)
	}
	if w.record >= 0 {
		s.trace.Resolve(w.record, s.clock, rt, failed)
	}
}

func (s *Simulator) closeWindow(w *RecomputeWindow, open bool) {
	if w == nil {
		return
	}
	s.result.Windows++
	key := s.result.key(w.Key)
	key.Windows++
	if w.Recomputes > 1 {
		s.result.StampedeEvents++
		key.StampedeEvents++
		logrus.Debugf("Stampede on key %d: %d recomputes for %d requests", w.Key, w.Recomputes, w.Requests)
	}
	if s.trace.RecordsWindows() {
		s.trace.RecordWindow(trace.WindowRecord{
			Key:        w.Key,
			Start:      w.Start,
			End:        w.End,
			Requests:   w.Requests,
			Recomputes: w.Recomputes,
			Failed:     w.Failed,
			Open:       open,
		})
	}
}

func (s *Simulator) recordRecompute(job *Recompute, failed, staleSet bool) {
	if !s.trace.RecordsWindows() {
		return
	}
	s.trace.RecordRecompute(trace.RecomputeRecord{
		JobID:       job.ID,
		Key:         job.Key,
		RequestedAt: job.RequestedAt,
		StartedAt:   job.StartedAt,
		FinishedAt:  s.clock,
		Failed:      failed,
		StaleSet:    staleSet,
	})
}

// finish accounts for windows still open and requests still waiting when the
// loop stops.
func (s *Simulator) finish() {
	for _, w := range s.cache.OpenWindows(s.clock) {
		s.closeWindow(w, true)
	}
	s.result.Pending = s.unresolved
	s.result.Clock = s.clock
	if s.result.Pending > 0 {
		logrus.Debugf("%d requests still waiting at the horizon", s.result.Pending)
	}
}
