// Package config defines pipeline configuration structures and loading.
//
// Conventions:
// - Typed fields with documented defaults; no dynamic lookups.
// - Provide New() to build a Config with defaults; Load() layers file/env.
// - All similarity/confidence values are normalized to 0.0-1.0 at load time.
package config

// Config contains process configuration for one pipeline run.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Timezone is the default IANA zone applied to events whose source
	// did not supply one, and the zone the weekend window is computed in.
	Timezone string `koanf:"timezone"`

	// MetricsAddr optionally serves Prometheus metrics during the run,
	// e.g. ":9400". Empty disables the listener.
	MetricsAddr string `koanf:"metrics_addr"`

	// CacheDir is the base directory for adapter HTTP caches.
	CacheDir string `koanf:"cache_dir"`

	Collection CollectionConfig    `koanf:"collection"`
	Detection  DetectionConfig     `koanf:"detection"`
	Dedupe     DedupeConfig        `koanf:"dedupe"`
	Weekend    WeekendConfig       `koanf:"weekend"`
	Quiet      []QuietWindowConfig `koanf:"quiet_windows"`
	Sources    []SourceConfig      `koanf:"sources"`
	Output     OutputConfig        `koanf:"output"`
}

// CollectionConfig bounds the orchestrator.
type CollectionConfig struct {
	// Concurrency is the worker pool size; 1 means sequential.
	Concurrency int `koanf:"concurrency"`

	// GlobalTimeoutSeconds bounds the whole batch. Mandatory; default 300.
	GlobalTimeoutSeconds int `koanf:"global_timeout_seconds"`

	// PerSourceTimeoutSeconds bounds a single source's total retry
	// sequence. 0 disables the per-source bound.
	PerSourceTimeoutSeconds int `koanf:"per_source_timeout_seconds"`

	// MaxRetries is the number of retries after the first attempt for
	// transient failures.
	MaxRetries int `koanf:"max_retries"`

	// BackoffSeconds is multiplied by the attempt number between retries.
	BackoffSeconds float64 `koanf:"backoff_seconds"`

	// ExcludeSources removes configured sources by name before the run.
	ExcludeSources []string `koanf:"exclude_sources"`
}

// DetectionConfig tunes the category detector.
type DetectionConfig struct {
	// ConfidenceThreshold below which a detection resolves to Unknown.
	ConfidenceThreshold float64 `koanf:"confidence_threshold"`

	// LearningEnabled appends confidently matched unknown variants to the
	// taxonomy for the remainder of the run.
	LearningEnabled bool `koanf:"learning_enabled"`

	// KnowledgeFile optionally persists learned variants between runs.
	KnowledgeFile string `koanf:"knowledge_file"`
}

// DedupeConfig tunes the duplicate grouping relation.
type DedupeConfig struct {
	// TimeToleranceMinutes is the maximum start-time gap between
	// duplicates. Default 30.
	TimeToleranceMinutes int `koanf:"time_tolerance_minutes"`

	// Similarity thresholds; accepted on either a 0-1 or 0-100 scale and
	// normalized to 0-1 during Load.
	NameThreshold     float64 `koanf:"name_threshold"`
	LocationThreshold float64 `koanf:"location_threshold"`
	CategoryThreshold float64 `koanf:"category_threshold"`

	// SemanticEnabled blends embedding similarity into the name score;
	// SemanticThreshold applies to the blended score.
	SemanticEnabled   bool    `koanf:"semantic_enabled"`
	SemanticThreshold float64 `koanf:"semantic_threshold"`
}

// WeekendConfig shapes the target time window.
type WeekendConfig struct {
	// TargetDate pins the weekend, format 2006-01-02. Empty derives the
	// weekend from the earliest collected event.
	TargetDate string `koanf:"target_date"`

	// ExtensionHours widens the window on both ends.
	ExtensionHours int `koanf:"extension_hours"`
}

// QuietWindowConfig excludes a recurring day/time range from the export.
type QuietWindowConfig struct {
	Name    string `koanf:"name"`
	Day     string `koanf:"day"`   // weekday name, e.g. "sunday"
	Start   string `koanf:"start"` // local time of day, "15:04"
	End     string `koanf:"end"`   // End < Start means the range crosses midnight
	Enabled bool   `koanf:"enabled"`
}

// SourceConfig declares one data source for the adapter registry.
type SourceConfig struct {
	Name     string `koanf:"name"`
	Kind     string `koanf:"kind"` // registry key, e.g. "ics"
	URL      string `koanf:"url"`
	Priority int    `koanf:"priority"` // higher wins dedupe ties
	Timezone string `koanf:"timezone"` // overrides the global default zone
}

// OutputConfig shapes the exported calendar.
type OutputConfig struct {
	ICSPath      string `koanf:"ics_path"`
	CalendarName string `koanf:"calendar_name"`
}

// New creates a Config with documented defaults.
func New() *Config {
	return &Config{
		LogLevel: "info",
		Timezone: "UTC",
		CacheDir: "./var/cache",
		Collection: CollectionConfig{
			Concurrency:          4,
			GlobalTimeoutSeconds: 300,
			MaxRetries:           2,
			BackoffSeconds:       1.0,
		},
		Detection: DetectionConfig{
			ConfidenceThreshold: 0.75,
			LearningEnabled:     true,
		},
		Dedupe: DedupeConfig{
			TimeToleranceMinutes: 30,
			NameThreshold:        0.85,
			LocationThreshold:    0.80,
			CategoryThreshold:    0.80,
			SemanticThreshold:    0.85,
		},
		Weekend: WeekendConfig{
			ExtensionHours: 0,
		},
		Output: OutputConfig{
			ICSPath:      "./schedule.ics",
			CalendarName: "Motorsport Weekend",
		},
	}
}
