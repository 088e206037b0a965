package model

import "time"

// Config is the complete fracheck configuration
type Config struct {
	Limits      LimitsConfig      `yaml:"limits" mapstructure:"limits"`
	Defaults    DefaultsConfig    `yaml:"defaults" mapstructure:"defaults"`
	Scoring     ScoringConfig     `yaml:"scoring" mapstructure:"scoring"`
	Duplicates  DuplicatesConfig  `yaml:"duplicates" mapstructure:"duplicates"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Fetch       FetchConfig       `yaml:"fetch" mapstructure:"fetch"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// LimitsConfig bounds batch size
type LimitsConfig struct {
	MaxFeatures int `yaml:"max_features" mapstructure:"max_features"` // Hard cap, larger batches are rejected
	ProcessCap  int `yaml:"process_cap" mapstructure:"process_cap"`   // Features actually processed
}

// DefaultsConfig holds values used when the caller supplies none
type DefaultsConfig struct {
	ClaimType string `yaml:"claim_type" mapstructure:"claim_type"`
	SourceDoc string `yaml:"source_doc" mapstructure:"source_doc"`
}

// ScoringConfig selects the overlap strategy
type ScoringConfig struct {
	Overlap string `yaml:"overlap" mapstructure:"overlap"` // "constant" or "intersection"
}

// DuplicatesConfig holds duplicate detection thresholds
type DuplicatesConfig struct {
	TextThreshold   float64 `yaml:"text_threshold" mapstructure:"text_threshold"`
	DuplicateMeters float64 `yaml:"duplicate_meters" mapstructure:"duplicate_meters"`
	ClusterMeters   float64 `yaml:"cluster_meters" mapstructure:"cluster_meters"`
}

// ConcurrencyConfig controls worker counts
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// CacheConfig controls the validation result cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
}

// ServerConfig controls the HTTP service
type ServerConfig struct {
	Addr              string        `yaml:"addr" mapstructure:"addr"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int           `yaml:"burst" mapstructure:"burst"`
	RequestTimeout    time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// StoreConfig points at the claim version database
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"` // Empty disables the store
}

// FetchConfig controls downloads of remote claim documents
type FetchConfig struct {
	Timeout         time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent       string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBytes        int64         `yaml:"max_bytes" mapstructure:"max_bytes"`
	RequestsPerHost float64       `yaml:"requests_per_host" mapstructure:"requests_per_host"` // 0 disables limiting
	Burst           int           `yaml:"burst" mapstructure:"burst"`
	HTTPProxy       string        `yaml:"http_proxy" mapstructure:"http_proxy"`
	HTTPSProxy      string        `yaml:"https_proxy" mapstructure:"https_proxy"`
	NoProxy         string        `yaml:"no_proxy" mapstructure:"no_proxy"`
	InsecureTLS     bool          `yaml:"insecure_tls" mapstructure:"insecure_tls"`
}

// LogConfig controls slog output
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // text or json
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Limits: LimitsConfig{
			MaxFeatures: 200,
			ProcessCap:  100,
		},
		Defaults: DefaultsConfig{
			ClaimType: string(ClaimTypeIndividual),
			SourceDoc: "uploaded_file.geojson",
		},
		Scoring: ScoringConfig{
			Overlap: "constant",
		},
		Duplicates: DuplicatesConfig{
			TextThreshold:   0.9,
			DuplicateMeters: 10,
			ClusterMeters:   50,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 8,
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: 10 * time.Minute,
			DiskTTL:   24 * time.Hour,
			Dir:       ".fracheck-cache",
		},
		Server: ServerConfig{
			Addr:              ":8080",
			RequestsPerSecond: 5,
			Burst:             10,
			RequestTimeout:    30 * time.Second,
			MaxBodyBytes:      10 << 20,
		},
		Fetch: FetchConfig{
			Timeout:         30 * time.Second,
			UserAgent:       "fracheck/0.3 (+https://github.com/ppiankov/fracheck)",
			MaxBytes:        20 << 20,
			RequestsPerHost: 2,
			Burst:           4,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
