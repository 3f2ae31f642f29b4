package sim

import (
	"math"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// TicksPerSecond is the resolution of the simulated clock (1 tick = 1µs).
const TicksPerSecond = 1_000_000

// Ticks converts a duration to simulated clock ticks.
func Ticks(d time.Duration) int64 {
	return d.Microseconds()
}

// Stampede policies.
const (
	PolicyNone                 = "none"
	PolicyWait                 = "wait"
	PolicyStaleWhileRevalidate = "stale-while-revalidate"
)

// Arrival processes.
const (
	ArrivalPoisson  = "poisson"
	ArrivalUniform  = "uniform"
	ArrivalConstant = "constant"
	ArrivalGamma    = "gamma"
	ArrivalWeibull  = "weibull"
)

// Key popularity distributions.
const (
	KeysUniform = "uniform"
	KeysZipf    = "zipf"
	KeysPareto  = "pareto"
	KeysHotspot = "hotspot"
)

var (
	validPolicies = map[string]bool{
		PolicyNone: true, PolicyWait: true, PolicyStaleWhileRevalidate: true,
	}
	validArrivals = map[string]bool{
		ArrivalPoisson: true, ArrivalUniform: true, ArrivalConstant: true, ArrivalGamma: true, ArrivalWeibull: true,
	}
	validKeyDistributions = map[string]bool{
		KeysUniform: true, KeysZipf: true, KeysPareto: true, KeysHotspot: true,
	}
)

// IsValidPolicy reports whether name is a recognized stampede policy.
func IsValidPolicy(name string) bool { return validPolicies[name] }

// IsValidArrival reports whether name is a recognized arrival process.
func IsValidArrival(name string) bool { return validArrivals[name] }

// IsValidKeyDistribution reports whether name is a recognized key popularity model.
func IsValidKeyDistribution(name string) bool { return validKeyDistributions[name] }

// TTLExtension configures the "keep hot keys alive" mitigation.
type TTLExtension struct {
	Enabled     bool          `yaml:"enabled"`
	Increment   time.Duration `yaml:"increment"`
	Max         time.Duration `yaml:"max"`
	Probability float64       `yaml:"probability"`
}

// BackendConfig describes the simulated origin that recomputes values.
type BackendConfig struct {
	LatencyMin   time.Duration `yaml:"latency_min"`
	LatencyMean  time.Duration `yaml:"latency_mean"`
	LatencySigma float64       `yaml:"latency_sigma"`
	Capacity     int           `yaml:"capacity"`
	Timeout      time.Duration `yaml:"timeout"`
}

// Config is the serializable form of a parameter set. It is the shape of the
// YAML config file and of the parameter block embedded in journal entries.
type Config struct {
	Seed     int64         `yaml:"seed"`
	Duration time.Duration `yaml:"duration"`

	Rate      float64 `yaml:"rate"`
	Arrival   string  `yaml:"arrival"`
	ArrivalCV float64 `yaml:"arrival_cv,omitempty"`

	Population      int     `yaml:"population"`
	KeyDistribution string  `yaml:"key_distribution"`
	ZipfS           float64 `yaml:"zipf_s,omitempty"`
	ParetoAlpha     float64 `yaml:"pareto_alpha,omitempty"`
	ParetoScale     float64 `yaml:"pareto_scale,omitempty"`
	HotShare        float64 `yaml:"hot_share,omitempty"`

	TTL          time.Duration `yaml:"ttl"`
	Policy       string        `yaml:"policy"`
	StaleGrace   time.Duration `yaml:"stale_grace"`
	TTLExtension TTLExtension  `yaml:"ttl_extension"`
	Prefill      bool          `yaml:"prefill"`
	CacheLatency time.Duration `yaml:"cache_latency"`

	Backend BackendConfig `yaml:"backend"`

	SampleInterval time.Duration `yaml:"sample_interval"`
}

// DefaultConfig returns the parameter set used when neither a config file nor
// flags override a field.
func DefaultConfig() Config {
	return Config{
		Seed:            42,
		Duration:        60 * time.Second,
		Rate:            10,
		Arrival:         ArrivalPoisson,
		Population:      1000,
		KeyDistribution: KeysZipf,
		ZipfS:           1.1,
		ParetoAlpha:     0.25,
		ParetoScale:     12.5,
		HotShare:        0.5,
		TTL:             5 * time.Second,
		Policy:          PolicyNone,
		TTLExtension:    TTLExtension{Probability: 1},
		CacheLatency:    time.Millisecond,
		Backend: BackendConfig{
			LatencyMin:   250 * time.Millisecond,
			LatencyMean:  500 * time.Millisecond,
			LatencySigma: 0.25,
		},
		SampleInterval: time.Second,
	}
}

// Params is the validated, immutable parameter set of one run. Build it with
// NewParams; the zero value is not usable.
type Params struct {
	cfg Config
}

// NewParams validates cfg and freezes it into a Params. Every violation is
// reported as a ConfigurationError naming the offending field.
func NewParams(cfg Config) (Params, error) {
	if err := cfg.Validate(); err != nil {
		return Params{}, err
	}
	return Params{cfg: cfg}, nil
}

// Validate checks every field of the config.
func (c Config) Validate() error {
	if math.IsNaN(c.Rate) || math.IsInf(c.Rate, 0) || c.Rate <= 0 {
		return ConfigurationErrorf("rate must be a positive finite number, got %v", c.Rate)
	}
	if Ticks(c.Duration) < 1 {
		return ConfigurationErrorf("duration must be at least one tick (1µs), got %s", c.Duration)
	}
	if Ticks(c.TTL) < 1 {
		return ConfigurationErrorf("ttl must be at least one tick (1µs), got %s", c.TTL)
	}
	if c.Population < 1 {
		return ConfigurationErrorf("population must be at least 1, got %d", c.Population)
	}
	if !validArrivals[c.Arrival] {
		return ConfigurationErrorf("unknown arrival %q; valid: poisson, uniform, constant, gamma, weibull", c.Arrival)
	}
	if (c.Arrival == ArrivalGamma || c.Arrival == ArrivalWeibull) && !(c.ArrivalCV > 0) {
		return ConfigurationErrorf("arrival_cv must be positive for %s arrivals, got %v", c.Arrival, c.ArrivalCV)
	}
	if err := c.validateKeys(); err != nil {
		return err
	}
	if !validPolicies[c.Policy] {
		return ConfigurationErrorf("unknown policy %q; valid: none, wait, stale-while-revalidate", c.Policy)
	}
	if c.StaleGrace < 0 {
		return ConfigurationErrorf("stale_grace must be non-negative, got %s", c.StaleGrace)
	}
	if c.Policy == PolicyStaleWhileRevalidate && Ticks(c.StaleGrace) < 1 {
		return ConfigurationErrorf("stale_grace must be at least one tick (1µs) for policy %q, got %s", c.Policy, c.StaleGrace)
	}
	if err := c.TTLExtension.validate(c.TTL); err != nil {
		return err
	}
	if c.CacheLatency < 0 {
		return ConfigurationErrorf("cache_latency must be non-negative, got %s", c.CacheLatency)
	}
	if err := c.Backend.validate(); err != nil {
		return err
	}
	if Ticks(c.SampleInterval) < 1 {
		return ConfigurationErrorf("sample_interval must be at least one tick (1µs), got %s", c.SampleInterval)
	}
	return nil
}

func (c Config) validateKeys() error {
	switch c.KeyDistribution {
	case KeysUniform:
	case KeysZipf:
		if !(c.ZipfS > 1) {
			return ConfigurationErrorf("zipf_s must be greater than 1, got %v", c.ZipfS)
		}
	case KeysPareto:
		if !(c.ParetoAlpha > 0) || !(c.ParetoScale > 0) {
			return ConfigurationErrorf("pareto_alpha and pareto_scale must be positive, got %v and %v", c.ParetoAlpha, c.ParetoScale)
		}
	case KeysHotspot:
		if !(c.HotShare > 0) || c.HotShare > 1 {
			return ConfigurationErrorf("hot_share must be in (0, 1], got %v", c.HotShare)
		}
	default:
		return ConfigurationErrorf("unknown key_distribution %q; valid: uniform, zipf, pareto, hotspot", c.KeyDistribution)
	}
	return nil
}

func (e TTLExtension) validate(ttl time.Duration) error {
	if !e.Enabled {
		return nil
	}
	if Ticks(e.Increment) < 1 {
		return ConfigurationErrorf("ttl_extension.increment must be at least one tick (1µs) when enabled, got %s", e.Increment)
	}
	if e.Max < ttl {
		return ConfigurationErrorf("ttl_extension.max (%s) must be at least ttl (%s)", e.Max, ttl)
	}
	if !(e.Probability > 0) || e.Probability > 1 {
		return ConfigurationErrorf("ttl_extension.probability must be in (0, 1], got %v", e.Probability)
	}
	return nil
}

func (b BackendConfig) validate() error {
	if Ticks(b.LatencyMean) < 1 {
		return ConfigurationErrorf("backend.latency_mean must be at least one tick (1µs), got %s", b.LatencyMean)
	}
	if b.LatencyMin < 0 || b.LatencyMin > b.LatencyMean {
		return ConfigurationErrorf("backend.latency_min must be in [0, latency_mean], got %s", b.LatencyMin)
	}
	if math.IsNaN(b.LatencySigma) || b.LatencySigma < 0 {
		return ConfigurationErrorf("backend.latency_sigma must be non-negative, got %v", b.LatencySigma)
	}
	if b.Capacity < 0 {
		return ConfigurationErrorf("backend.capacity must be non-negative, got %d", b.Capacity)
	}
	if b.Timeout < 0 {
		return ConfigurationErrorf("backend.timeout must be non-negative, got %s", b.Timeout)
	}
	if b.Timeout > 0 && Ticks(b.Timeout) < 1 {
		return ConfigurationErrorf("backend.timeout must be zero or at least one tick (1µs), got %s", b.Timeout)
	}
	return nil
}

// Config returns a copy of the underlying config.
func (p Params) Config() Config { return p.cfg }

func (p Params) Seed() int64             { return p.cfg.Seed }
func (p Params) Horizon() int64          { return Ticks(p.cfg.Duration) }
func (p Params) Rate() float64           { return p.cfg.Rate }
func (p Params) Arrival() string         { return p.cfg.Arrival }
func (p Params) ArrivalCV() float64      { return p.cfg.ArrivalCV }
func (p Params) Population() int         { return p.cfg.Population }
func (p Params) KeyDistribution() string { return p.cfg.KeyDistribution }
func (p Params) ZipfS() float64          { return p.cfg.ZipfS }
func (p Params) ParetoAlpha() float64    { return p.cfg.ParetoAlpha }
func (p Params) ParetoScale() float64    { return p.cfg.ParetoScale }
func (p Params) HotShare() float64       { return p.cfg.HotShare }
func (p Params) TTL() int64              { return Ticks(p.cfg.TTL) }
func (p Params) Policy() string          { return p.cfg.Policy }
func (p Params) Prefill() bool           { return p.cfg.Prefill }
func (p Params) CacheLatency() int64     { return Ticks(p.cfg.CacheLatency) }
func (p Params) SampleInterval() int64   { return Ticks(p.cfg.SampleInterval) }

// StaleGrace is the grace window in ticks. Only stale-while-revalidate serves
// stale values, so every other policy sees zero.
func (p Params) StaleGrace() int64 {
	if p.cfg.Policy != PolicyStaleWhileRevalidate {
		return 0
	}
	return Ticks(p.cfg.StaleGrace)
}

// ExtensionEnabled reports whether hits extend the expiry of their entry.
func (p Params) ExtensionEnabled() bool        { return p.cfg.TTLExtension.Enabled }
func (p Params) ExtensionIncrement() int64     { return Ticks(p.cfg.TTLExtension.Increment) }
func (p Params) ExtensionMax() int64           { return Ticks(p.cfg.TTLExtension.Max) }
func (p Params) ExtensionProbability() float64 { return p.cfg.TTLExtension.Probability }

func (p Params) BackendLatencyMin() int64     { return Ticks(p.cfg.Backend.LatencyMin) }
func (p Params) BackendLatencyMean() int64    { return Ticks(p.cfg.Backend.LatencyMean) }
func (p Params) BackendLatencySigma() float64 { return p.cfg.Backend.LatencySigma }
func (p Params) BackendCapacity() int         { return p.cfg.Backend.Capacity }
func (p Params) BackendTimeout() int64        { return Ticks(p.cfg.Backend.Timeout) }

// MarshalYAML serializes the parameter set through its config form.
func (p Params) MarshalYAML() (any, error) {
	return p.cfg, nil
}

// String renders the parameter set as YAML, the form embedded in the journal.
func (p Params) String() string {
	out, err := yaml.Marshal(p.cfg)
	if err != nil {
		return err.Error()
	}
	return strings.TrimRight(string(out), "\n")
}

// Caption is a one-line digest of the parameters that shape a run, used to
// label plots and console output.
func (p Params) Caption() string {
	var b strings.Builder
	b.WriteString("policy=" + p.cfg.Policy)
	b.WriteString(" seed=" + formatInt(p.cfg.Seed))
	b.WriteString(" rate=" + formatFloat(p.cfg.Rate) + "/s")
	b.WriteString(" ttl=" + p.cfg.TTL.String())
	if p.cfg.Policy == PolicyStaleWhileRevalidate {
		b.WriteString(" grace=" + p.cfg.StaleGrace.String())
	}
	if p.cfg.TTLExtension.Enabled {
		b.WriteString(" ext=+" + p.cfg.TTLExtension.Increment.String() + "/max " + p.cfg.TTLExtension.Max.String())
	} else {
		b.WriteString(" ext=off")
	}
	b.WriteString(" keys=" + formatInt(int64(p.cfg.Population)) + "(" + p.cfg.KeyDistribution + ")")
	b.WriteString(" duration=" + p.cfg.Duration.String())
	return b.String()
}

func formatInt(v int64) string { return strconv.FormatInt(v, 10) }

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
