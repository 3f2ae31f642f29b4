package sim

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Recompute is one backend read issued to refresh a key.
type Recompute struct {
	ID          int64
	Key         int
	RequestedAt int64
	StartedAt   int64 // -1 while queued
	owner       *waiter
	queued      bool
}

// Background reports whether no request waits on the recompute's own result,
// as with a stale-while-revalidate refresh.
func (r *Recompute) Background() bool {
	return r.owner == nil
}

// Backend is the simulated origin that recomputes values. It serves at most
// capacity reads at once (0 means unlimited) and queues the rest in FIFO order.
type Backend struct {
	capacity int
	timeout  int64

	latencyMin  int64
	latencyMean int64
	sigma       float64
	lognormal   distuv.LogNormal

	busy  int
	queue RecomputeQueue
}

// NewBackend creates a backend. rng drives the latency samples.
func NewBackend(p Params, rng *rand.Rand) *Backend {
	sigma := p.BackendLatencySigma()
	return &Backend{
		capacity:    p.BackendCapacity(),
		timeout:     p.BackendTimeout(),
		latencyMin:  p.BackendLatencyMin(),
		latencyMean: p.BackendLatencyMean(),
		sigma:       sigma,
		// mu = -sigma²/2 gives the multiplier a mean of 1
		lognormal: distuv.LogNormal{Mu: -sigma * sigma / 2, Sigma: sigma, Src: rng},
	}
}

// Latency samples one recompute duration in ticks:
// min + (mean - min) · X with X lognormal of mean 1.
func (b *Backend) Latency() int64 {
	if b.sigma == 0 {
		return b.latencyMean
	}
	x := b.lognormal.Rand()
	d := float64(b.latencyMin) + float64(b.latencyMean-b.latencyMin)*x
	return max(1, int64(math.Round(d)))
}

// Timeout returns the queueing timeout in ticks, 0 when disabled.
func (b *Backend) Timeout() int64 {
	return b.timeout
}

// Submit hands job to the backend at now. When a slot is free the job starts
// and doneAt is its completion time; otherwise it is queued and started is false.
func (b *Backend) Submit(job *Recompute, now int64) (doneAt int64, started bool) {
	job.RequestedAt = now
	if b.capacity > 0 && b.busy >= b.capacity {
		job.StartedAt = -1
		job.queued = true
		b.queue.Enqueue(job)
		return 0, false
	}
	return b.start(job, now), true
}

func (b *Backend) start(job *Recompute, now int64) int64 {
	b.busy++
	job.queued = false
	job.StartedAt = now
	return now + b.Latency()
}

// Release frees the slot held by a finished job and starts the oldest queued
// job, if any.
func (b *Backend) Release(now int64) (next *Recompute, doneAt int64, ok bool) {
	b.busy--
	next = b.queue.Dequeue()
	if next == nil {
		return nil, 0, false
	}
	return next, b.start(next, now), true
}

// Expire removes job from the queue. It returns false when the job has
// already started.
func (b *Backend) Expire(job *Recompute) bool {
	if !job.queued || !b.queue.Remove(job) {
		return false
	}
	job.queued = false
	return true
}

// Busy returns the number of recomputes currently running.
func (b *Backend) Busy() int {
	return b.busy
}

// Queued returns the number of recomputes waiting for a slot.
func (b *Backend) Queued() int {
	return b.queue.Len()
}
