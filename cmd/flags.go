package cmd

import (
	"bytes"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/cachestudy/cachesim/sim"
)

var (
	// Parameter set flags. Explicitly set flags override the config file.
	configPath      string        // YAML parameter set
	seed            int64         // Seed for every RNG subsystem
	duration        time.Duration // Simulated horizon
	rate            float64       // Requests per second
	arrival         string        // Arrival process
	arrivalCV       float64       // Inter-arrival coefficient of variation (gamma, weibull)
	population      int           // Number of distinct keys
	keyDist         string        // Key popularity model
	zipfS           float64       // Zipf exponent
	paretoAlpha     float64       // Pareto shape
	paretoScale     float64       // Pareto scale
	hotShare        float64       // Share of traffic sent to the hot key
	ttl             time.Duration // Time a computed value stays valid
	policy          string        // Miss handling policy
	staleGrace      time.Duration // How long an expired value may be served stale
	extEnabled      bool          // Extend expiry on hits
	extIncrement    time.Duration // Expiry extension per hit
	extMax          time.Duration // Upper bound on expiry, relative to now
	extProb         float64       // Probability a hit extends expiry
	prefill         bool          // Start from a warm cache
	cacheLatency    time.Duration // Lookup cost added to every response
	backendMin      time.Duration // Lower bound on recompute latency
	backendMean     time.Duration // Mean recompute latency
	backendSigma    float64       // Lognormal shape of recompute latency
	backendCapacity int           // Concurrent recomputes, 0 for unlimited
	backendTimeout  time.Duration // Queue timeout, 0 for none
	sampleInterval  time.Duration // Time-series bucket width
	logLevel        string        // Log verbosity level
	journalPath     string        // Append-only run journal
	plotPath        string        // PNG plot destination
	recordsPath     string        // Per-request CSV destination
	traceLevel      string        // Trace verbosity
	replayPath      string        // Records CSV to replay
)

// registerParamFlags attaches the parameter set flags to fs with defaults from
// sim.DefaultConfig.
func registerParamFlags(fs *pflag.FlagSet) {
	d := sim.DefaultConfig()
	fs.StringVar(&configPath, "config", "", "YAML parameter set; explicitly set flags override it")
	fs.Int64Var(&seed, "seed", d.Seed, "Seed for request generation, latencies and extension coin flips")
	fs.DurationVar(&duration, "duration", d.Duration, "Simulated time horizon")
	fs.Float64Var(&rate, "rate", d.Rate, "Requests arrival per second")
	fs.StringVar(&arrival, "arrival", d.Arrival, "Arrival process (poisson, uniform, constant, gamma, weibull)")
	fs.Float64Var(&arrivalCV, "arrival-cv", d.ArrivalCV, "Inter-arrival coefficient of variation for gamma and weibull arrivals")
	fs.IntVar(&population, "population", d.Population, "Number of distinct keys")
	fs.StringVar(&keyDist, "key-dist", d.KeyDistribution, "Key popularity (uniform, zipf, pareto, hotspot)")
	fs.Float64Var(&zipfS, "zipf-s", d.ZipfS, "Zipf exponent, greater than 1")
	fs.Float64Var(&paretoAlpha, "pareto-alpha", d.ParetoAlpha, "Pareto shape")
	fs.Float64Var(&paretoScale, "pareto-scale", d.ParetoScale, "Pareto scale")
	fs.Float64Var(&hotShare, "hot-share", d.HotShare, "Share of requests sent to key 0 (hotspot)")
	fs.DurationVar(&ttl, "ttl", d.TTL, "Time a computed value stays valid")
	fs.StringVar(&policy, "policy", d.Policy, "Miss policy (none, wait, stale-while-revalidate)")
	fs.DurationVar(&staleGrace, "stale-grace", d.StaleGrace, "How long past expiry a value may be served stale")
	fs.BoolVar(&extEnabled, "ttl-extension", d.TTLExtension.Enabled, "Extend expiry on cache hits")
	fs.DurationVar(&extIncrement, "ttl-extension-increment", d.TTLExtension.Increment, "Expiry extension per hit")
	fs.DurationVar(&extMax, "ttl-extension-max", d.TTLExtension.Max, "Expiry never extends past now plus this")
	fs.Float64Var(&extProb, "ttl-extension-prob", d.TTLExtension.Probability, "Probability a hit extends expiry")
	fs.BoolVar(&prefill, "prefill", d.Prefill, "Start with every key cached, expiries staggered over one ttl")
	fs.DurationVar(&cacheLatency, "cache-latency", d.CacheLatency, "Lookup cost added to every response time")
	fs.DurationVar(&backendMin, "backend-latency-min", d.Backend.LatencyMin, "Minimum recompute latency")
	fs.DurationVar(&backendMean, "backend-latency-mean", d.Backend.LatencyMean, "Mean recompute latency")
	fs.Float64Var(&backendSigma, "backend-latency-sigma", d.Backend.LatencySigma, "Lognormal shape of recompute latency, 0 for constant")
	fs.IntVar(&backendCapacity, "backend-capacity", d.Backend.Capacity, "Concurrent recomputes the backend runs, 0 for unlimited")
	fs.DurationVar(&backendTimeout, "backend-timeout", d.Backend.Timeout, "Fail recomputes queued longer than this, 0 for never")
	fs.DurationVar(&sampleInterval, "sample-interval", d.SampleInterval, "Time-series bucket width")
}

// loadConfigFile reads a parameter set with strict field checking; typos are
// errors. Fields missing from the file keep their defaults.
func loadConfigFile(path string) (sim.Config, error) {
	cfg := sim.DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, sim.ConfigurationErrorf("reading config %s: %v", path, err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, sim.ConfigurationErrorf("parsing config %s: %v", path, err)
	}
	return cfg, nil
}

// applyParamFlags copies every explicitly set flag into cfg.
func applyParamFlags(fs *pflag.FlagSet, cfg *sim.Config) {
	set := func(name string, apply func()) {
		if fs.Changed(name) {
			apply()
		}
	}
	set("seed", func() { cfg.Seed = seed })
	set("duration", func() { cfg.Duration = duration })
	set("rate", func() { cfg.Rate = rate })
	set("arrival", func() { cfg.Arrival = arrival })
	set("arrival-cv", func() { cfg.ArrivalCV = arrivalCV })
	set("population", func() { cfg.Population = population })
	set("key-dist", func() { cfg.KeyDistribution = keyDist })
	set("zipf-s", func() { cfg.ZipfS = zipfS })
	set("pareto-alpha", func() { cfg.ParetoAlpha = paretoAlpha })
	set("pareto-scale", func() { cfg.ParetoScale = paretoScale })
	set("hot-share", func() { cfg.HotShare = hotShare })
	set("ttl", func() { cfg.TTL = ttl })
	set("policy", func() { cfg.Policy = policy })
	set("stale-grace", func() { cfg.StaleGrace = staleGrace })
	set("ttl-extension", func() { cfg.TTLExtension.Enabled = extEnabled })
	set("ttl-extension-increment", func() { cfg.TTLExtension.Increment = extIncrement })
	set("ttl-extension-max", func() { cfg.TTLExtension.Max = extMax })
	set("ttl-extension-prob", func() { cfg.TTLExtension.Probability = extProb })
	set("prefill", func() { cfg.Prefill = prefill })
	set("cache-latency", func() { cfg.CacheLatency = cacheLatency })
	set("backend-latency-min", func() { cfg.Backend.LatencyMin = backendMin })
	set("backend-latency-mean", func() { cfg.Backend.LatencyMean = backendMean })
	set("backend-latency-sigma", func() { cfg.Backend.LatencySigma = backendSigma })
	set("backend-capacity", func() { cfg.Backend.Capacity = backendCapacity })
	set("backend-timeout", func() { cfg.Backend.Timeout = backendTimeout })
	set("sample-interval", func() { cfg.SampleInterval = sampleInterval })
}

// resolveConfig layers explicitly set flags over the config file (or the
// defaults when no file is given).
func resolveConfig(fs *pflag.FlagSet) (sim.Config, error) {
	cfg := sim.DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = loadConfigFile(configPath); err != nil {
			return cfg, err
		}
	}
	applyParamFlags(fs, &cfg)
	return cfg, nil
}

// setLogLevel applies the --log flag.
func setLogLevel() error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return sim.ConfigurationErrorf("invalid log level %q: %v", logLevel, err)
	}
	logrus.SetLevel(level)
	return nil
}
