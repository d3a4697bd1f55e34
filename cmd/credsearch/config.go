package main

import (
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/credsearch/internal/export"
	"github.com/pdiddy/credsearch/internal/secrets"
	"github.com/pdiddy/credsearch/pkg/types"
)

const (
	defaultMaxRetries  = 3
	defaultHTTPTimeout = 60 * time.Second
	defaultOutDir      = "results"
	defaultFormats     = "csv,json"
	defaultHashType    = "auto"
)

// loadConfig resolves every setting for cmd. A flag the user set wins over
// the config file and environment, which win over the built-in default.
func loadConfig(cmd *cobra.Command) (types.Config, error) {
	var cfg types.Config

	apiKey := viper.GetString("search.api_key")
	if apiKey == "" {
		key, err := secrets.APIKey(secretsDir())
		if err != nil {
			return cfg, err
		}
		apiKey = key
	}

	cfg.Search = types.SearchConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   durationSetting(cmd, "http-timeout", "search.timeout", defaultHTTPTimeout),
			UserAgent: "credsearch/" + version,
		},
		BaseURL:           viper.GetString("search.base_url"),
		APIKey:            apiKey,
		MaxRetries:        intSetting(cmd, "max-retries", "search.max_retries", defaultMaxRetries),
		BackoffBase:       viper.GetDuration("search.backoff_base"),
		BackoffCeiling:    viper.GetDuration("search.backoff_ceiling"),
		RequestsPerSecond: floatSetting(cmd, "rps", "search.requests_per_second", 0),
		PageSize:          intSetting(cmd, "size", "search.page_size", 0),
	}

	cfg.Crack = types.CrackConfig{
		Engine:   types.EngineName(strings.ToLower(stringSetting(cmd, "engine", "crack.engine", ""))),
		Wordlist: stringSetting(cmd, "wordlist", "crack.wordlist", ""),
		HashType: stringSetting(cmd, "hash-type", "crack.hash_type", defaultHashType),
		Timeout:  durationSetting(cmd, "timeout", "crack.timeout", 0),
		Grace:    viper.GetDuration("crack.grace"),
		TempDir:  viper.GetString("crack.temp_dir"),
	}

	formats := defaultFormats
	if cmd.Flags().Changed("format") {
		formats, _ = cmd.Flags().GetString("format")
	} else if viper.IsSet("output.formats") {
		formats = strings.Join(viper.GetStringSlice("output.formats"), ",")
	}
	parsed, err := export.ParseFormats(formats)
	if err != nil {
		return cfg, err
	}
	cfg.Output = types.OutputConfig{
		Dir:     stringSetting(cmd, "out", "output.dir", defaultOutDir),
		Formats: parsed,
	}

	cfg.History = types.HistoryConfig{
		Enabled: true,
		Dir:     viper.GetString("history.dir"),
	}
	if viper.IsSet("history.enabled") {
		cfg.History.Enabled = viper.GetBool("history.enabled")
	}
	if off, _ := cmd.Flags().GetBool("no-history"); off {
		cfg.History.Enabled = false
	}

	return cfg, nil
}

// secretsDir is the directory API key files are read from.
func secretsDir() string {
	if dir := viper.GetString("secrets_dir"); dir != "" {
		return dir
	}
	return secrets.DefaultDir
}

func stringSetting(cmd *cobra.Command, flag, key, def string) string {
	if cmd.Flags().Changed(flag) {
		v, _ := cmd.Flags().GetString(flag)
		return v
	}
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	return def
}

func intSetting(cmd *cobra.Command, flag, key string, def int) int {
	if cmd.Flags().Changed(flag) {
		v, _ := cmd.Flags().GetInt(flag)
		return v
	}
	if viper.IsSet(key) {
		return viper.GetInt(key)
	}
	return def
}

func floatSetting(cmd *cobra.Command, flag, key string, def float64) float64 {
	if cmd.Flags().Changed(flag) {
		v, _ := cmd.Flags().GetFloat64(flag)
		return v
	}
	if viper.IsSet(key) {
		return viper.GetFloat64(key)
	}
	return def
}

func durationSetting(cmd *cobra.Command, flag, key string, def time.Duration) time.Duration {
	if cmd.Flags().Changed(flag) {
		v, _ := cmd.Flags().GetDuration(flag)
		return v
	}
	if viper.IsSet(key) {
		return viper.GetDuration(key)
	}
	return def
}

// addCrackFlags registers the flags shared by search --crack and crack.
func addCrackFlags(cmd *cobra.Command) {
	cmd.Flags().String("engine", "", "cracking engine: hashcat or john (default: first installed)")
	cmd.Flags().String("wordlist", "", "wordlist passed to the engine")
	cmd.Flags().String("hash-type", "", "hash family (auto, md5, sha1, sha256, sha512, ntlm, bcrypt) or a raw engine mode/format")
	cmd.Flags().Duration("timeout", 0, "deadline for each cracking job (default: none)")
}

// addOutputFlags registers the export flags shared by search and crack.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().String("format", "", "comma-separated export formats: csv, json, yaml, md (default csv,json)")
	cmd.Flags().String("out", "", "directory for exported files (default results)")
	cmd.Flags().Bool("no-history", false, "do not record this run in the local history")
}
