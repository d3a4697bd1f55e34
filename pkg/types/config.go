package types

import "time"

// HTTPConfig holds shared HTTP settings for the API client.
type HTTPConfig struct {
	// Timeout is the per-attempt HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with API requests
	// (e.g. "credsearch/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// SearchConfig holds settings for the search stage.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the DeHashed search endpoint.
	BaseURL string `json:"base_url" yaml:"base_url"`

	// APIKey authenticates against the API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retries on HTTP 429 (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// BackoffBase is the first computed retry delay (default 1s).
	BackoffBase time.Duration `json:"backoff_base" yaml:"backoff_base"`

	// BackoffCeiling caps computed retry delays (default 60s).
	BackoffCeiling time.Duration `json:"backoff_ceiling" yaml:"backoff_ceiling"`

	// RequestsPerSecond paces every attempt. Zero disables pacing.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`

	// PageSize is the number of entries requested per call (default 10000).
	PageSize int `json:"page_size" yaml:"page_size"`
}

// EngineName identifies a cracking engine adapter.
type EngineName string

const (
	EngineHashcat EngineName = "hashcat"
	EngineJohn    EngineName = "john"
)

// CrackConfig holds settings for the cracking stage.
type CrackConfig struct {
	// Engine selects the cracking tool. Empty means the first one installed.
	Engine EngineName `json:"engine" yaml:"engine"`

	// Wordlist is the dictionary passed to the engine.
	Wordlist string `json:"wordlist" yaml:"wordlist"`

	// HashType forces a hash family or raw engine selector ("auto" infers it).
	HashType string `json:"hash_type" yaml:"hash_type"`

	// Timeout bounds each cracking job. Zero means no deadline.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// Grace is how long a job may take to exit after being interrupted
	// before it is killed (default 5s).
	Grace time.Duration `json:"grace" yaml:"grace"`

	// TempDir is where per-job hash files are created (default os.TempDir).
	TempDir string `json:"temp_dir" yaml:"temp_dir"`
}

// OutputFormat selects an export format.
type OutputFormat string

const (
	FormatCSV      OutputFormat = "csv"
	FormatJSON     OutputFormat = "json"
	FormatYAML     OutputFormat = "yaml"
	FormatMarkdown OutputFormat = "md"
)

// OutputConfig holds settings for the export stage.
type OutputConfig struct {
	// Dir is the directory exports are written to.
	Dir string `json:"dir" yaml:"dir"`

	// Formats lists the export formats to write.
	Formats []OutputFormat `json:"formats" yaml:"formats"`
}

// HistoryConfig holds settings for the local search history.
type HistoryConfig struct {
	// Enabled turns history recording on.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Dir holds the history database (default $XDG_DATA_HOME/credsearch).
	Dir string `json:"dir" yaml:"dir"`
}

// Config groups all stage configurations.
type Config struct {
	Search  SearchConfig  `json:"search" yaml:"search"`
	Crack   CrackConfig   `json:"crack" yaml:"crack"`
	Output  OutputConfig  `json:"output" yaml:"output"`
	History HistoryConfig `json:"history" yaml:"history"`
}
