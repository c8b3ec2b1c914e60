package model

import "time"

// Config holds the full application configuration.
// Hierarchy (highest to lowest priority): CLI flags, environment
// variables (TRACKRECORD_*), config file (~/.trackrecord/config.yaml),
// defaults below.
type Config struct {
	Extract ExtractConfig `yaml:"extract" mapstructure:"extract"`
	Track   TrackConfig   `yaml:"track" mapstructure:"track"`
	Verify  Thresholds    `yaml:"verify" mapstructure:"verify"`
	Score   ScoreConfig   `yaml:"score" mapstructure:"score"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	API     APIConfig     `yaml:"api" mapstructure:"api"`
}

// ExtractConfig configures the extraction adapter.
type ExtractConfig struct {
	Model       string        `yaml:"model" mapstructure:"model"`
	APIKey      string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string        `yaml:"base_url" mapstructure:"base_url"` // For OpenAI-compatible endpoints
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxTokens   int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	MaxAttempts int           `yaml:"max_attempts" mapstructure:"max_attempts"` // Bounded retries on transient failures
	RatePerSec  float64       `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Burst       int           `yaml:"burst" mapstructure:"burst"`
}

// TrackConfig configures dispatch eligibility and execution.
type TrackConfig struct {
	SweepInterval      time.Duration `yaml:"sweep_interval" mapstructure:"sweep_interval"`
	RecheckInterval    time.Duration `yaml:"recheck_interval" mapstructure:"recheck_interval"`
	MaxHorizon         time.Duration `yaml:"max_horizon" mapstructure:"max_horizon"`           // History/advice tracking horizon
	PredictionGrace    time.Duration `yaml:"prediction_grace" mapstructure:"prediction_grace"` // Indeterminate window past deadline before expiry
	EarlyCheck         bool          `yaml:"early_check" mapstructure:"early_check"`           // Dispatch predictions before their deadline
	AdviceMinWindow    time.Duration `yaml:"advice_min_window" mapstructure:"advice_min_window"`
	AdviceWindowScale  time.Duration `yaml:"advice_window_scale" mapstructure:"advice_window_scale"` // Added per unit of importance score
	MaxAttemptDuration time.Duration `yaml:"max_attempt_duration" mapstructure:"max_attempt_duration"`
	Workers            int           `yaml:"workers" mapstructure:"workers"`
	MaxRetries         int           `yaml:"max_retries" mapstructure:"max_retries"` // Per-attempt retries on unavailable data sources
	CacheTTL           time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`     // External data query cache

	SourceRatePerSec float64            `yaml:"source_rate_per_sec" mapstructure:"source_rate_per_sec"` // Default data source query rate
	SourceBurst      int                `yaml:"source_burst" mapstructure:"source_burst"`
	SourceRates      map[string]float64 `yaml:"source_rates" mapstructure:"source_rates"` // Per-domain rate overrides

	// Sources maps a data domain (financial, factual, sentiment) to the
	// base URL of the HTTP source serving it. Unmapped domains yield
	// indeterminate-or-error attempts until configured.
	Sources map[string]string `yaml:"sources" mapstructure:"sources"`
}

// Thresholds are the partial-correctness policies per domain. These are
// configuration, not constants: the source material does not fix them.
type Thresholds struct {
	DirectionalTolerance float64 `yaml:"directional_tolerance" mapstructure:"directional_tolerance"` // Fraction of target treated as "close enough" for exact matches
	VerifiabilityCap     float64 `yaml:"verifiability_cap" mapstructure:"verifiability_cap"`         // Below this, history outcomes cap at partial
	SupportThreshold     float64 `yaml:"support_threshold" mapstructure:"support_threshold"`         // Evidence support required for a correct history outcome
	ContradictThreshold  float64 `yaml:"contradict_threshold" mapstructure:"contradict_threshold"`   // Support below this refutes a history claim
	OutperformMargin     float64 `yaml:"outperform_margin" mapstructure:"outperform_margin"`         // Advice must beat baseline by this margin for correct
}

// ScoreConfig configures credibility aggregation.
type ScoreConfig struct {
	HalfLife time.Duration `yaml:"half_life" mapstructure:"half_life"` // Decay half-life for resolution weights
}

// StoreConfig configures persistence.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// APIConfig configures the HTTP surface.
type APIConfig struct {
	Addr      string `yaml:"addr" mapstructure:"addr"`
	AccessKey string `yaml:"access_key" mapstructure:"access_key"` // Empty disables mutating endpoints' auth
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Extract: ExtractConfig{
			Model:       "gpt-4o-mini",
			Timeout:     60 * time.Second,
			MaxTokens:   4000,
			MaxAttempts: 3,
			RatePerSec:  1,
			Burst:       2,
		},
		Track: TrackConfig{
			SweepInterval:      time.Hour,
			RecheckInterval:    24 * time.Hour,
			MaxHorizon:         90 * 24 * time.Hour,
			PredictionGrace:    14 * 24 * time.Hour,
			EarlyCheck:         false,
			AdviceMinWindow:    7 * 24 * time.Hour,
			AdviceWindowScale:  30 * 24 * time.Hour,
			MaxAttemptDuration: 5 * time.Minute,
			Workers:            4,
			MaxRetries:         3,
			CacheTTL:           15 * time.Minute,
			SourceRatePerSec:   5,
			SourceBurst:        10,
		},
		Verify: Thresholds{
			DirectionalTolerance: 0.10,
			VerifiabilityCap:     0.4,
			SupportThreshold:     0.6,
			ContradictThreshold:  0.2,
			OutperformMargin:     0.02,
		},
		Score: ScoreConfig{
			HalfLife: 180 * 24 * time.Hour,
		},
		Store: StoreConfig{
			Path: "trackrecord.db",
		},
		API: APIConfig{
			Addr: ":8080",
		},
	}
}
