package trace

// TraceLevel controls the verbosity of run tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelWindows captures recompute windows and backend recomputes.
	TraceLevelWindows TraceLevel = "windows"
	// TraceLevelRequests additionally captures every request.
	TraceLevelRequests TraceLevel = "requests"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:     true,
	TraceLevelWindows:  true,
	TraceLevelRequests: true,
	"":                 true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// SimulationTrace collects records during a cache simulation.
type SimulationTrace struct {
	Config     TraceConfig
	Requests   []RequestRecord
	Windows    []WindowRecord
	Recomputes []RecomputeRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config:     config,
		Requests:   make([]RequestRecord, 0),
		Windows:    make([]WindowRecord, 0),
		Recomputes: make([]RecomputeRecord, 0),
	}
}

// RecordsRequests reports whether per-request records are collected.
func (st *SimulationTrace) RecordsRequests() bool {
	return st != nil && st.Config.Level == TraceLevelRequests
}

// RecordsWindows reports whether window and recompute records are collected.
func (st *SimulationTrace) RecordsWindows() bool {
	return st != nil && (st.Config.Level == TraceLevelWindows || st.Config.Level == TraceLevelRequests)
}

// RecordRequest appends a request record and returns its index, which stays
// valid for Resolve.
func (st *SimulationTrace) RecordRequest(record RequestRecord) int {
	st.Requests = append(st.Requests, record)
	return len(st.Requests) - 1
}

// Resolve marks the request record at index as answered at clock.
func (st *SimulationTrace) Resolve(index int, clock, responseTime int64, failed bool) {
	if index < 0 || index >= len(st.Requests) {
		return
	}
	r := &st.Requests[index]
	r.ResolvedAt = clock
	r.ResponseTime = responseTime
	r.Failed = failed
}

// RecordWindow appends a recompute window record.
func (st *SimulationTrace) RecordWindow(record WindowRecord) {
	st.Windows = append(st.Windows, record)
}

// RecordRecompute appends a backend recompute record.
func (st *SimulationTrace) RecordRecompute(record RecomputeRecord) {
	st.Recomputes = append(st.Recomputes, record)
}
