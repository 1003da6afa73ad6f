// Package config turns viper settings (flags, environment, config file)
// into a typed configuration.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config keys shared by flags, environment variables and the config file.
const (
	KeyToken           = "token"
	KeyUser            = "user"
	KeyOutput          = "output"
	KeyMinStars        = "min-stars"
	KeyExcludeForks    = "exclude-forks"
	KeyIncludeArchived = "include-archived"
	KeyMaxRepos        = "max-repos"
	KeyTopTopics       = "top-topics"
	KeyTaxonomy        = "taxonomy"
	KeyAPI             = "api"
	KeyWorkers         = "workers"
	KeyFormats         = "formats"
	KeyStrict          = "strict"
	KeyAddr            = "addr"
	KeyAllowedOrigins  = "allowed-origins"
	KeyJobStore        = "job-store"
	KeyJobStoreDSN     = "job-store-dsn"
	KeyLogLevel        = "log-level"
	KeyLogFormat       = "log-format"
)

// EnvPrefix is prepended to every key when read from the environment.
const EnvPrefix = "STAR_CLASSIFIER"

// ErrMissingToken is returned when no GitHub token is configured.
var ErrMissingToken = errors.New("GitHub token is not set: use --token or the GITHUB_TOKEN environment variable")

// Job store backends.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config is the resolved application configuration.
type Config struct {
	Token           string
	User            string
	Output          string
	MinStars        int
	ExcludeForks    bool
	IncludeArchived bool
	MaxRepos        int
	TopTopics       int
	Taxonomy        string
	API             string
	Workers         int
	Formats         []string
	Strict          bool

	Addr           string
	AllowedOrigins []string
	JobStore       string
	JobStoreDSN    string

	LogLevel  string
	LogFormat string
}

// SetDefaults registers defaults and environment bindings on v.
// The unprefixed variables (GITHUB_TOKEN, OUTPUT_DIR, MIN_STARS, EXCLUDE_FORKS,
// INCLUDE_ARCHIVED) are honoured next to the prefixed ones.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyOutput, "./output")
	v.SetDefault(KeyMinStars, 0)
	v.SetDefault(KeyExcludeForks, true)
	v.SetDefault(KeyIncludeArchived, false)
	v.SetDefault(KeyMaxRepos, 0)
	v.SetDefault(KeyTopTopics, 10)
	v.SetDefault(KeyAPI, "rest")
	v.SetDefault(KeyWorkers, 0)
	v.SetDefault(KeyFormats, []string{"json", "csv", "markdown", "html"})
	v.SetDefault(KeyAddr, ":8000")
	v.SetDefault(KeyAllowedOrigins, []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault(KeyJobStore, StoreMemory)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv(KeyToken, EnvPrefix+"_TOKEN", "GITHUB_TOKEN")
	_ = v.BindEnv(KeyOutput, EnvPrefix+"_OUTPUT", "OUTPUT_DIR")
	_ = v.BindEnv(KeyMinStars, EnvPrefix+"_MIN_STARS", "MIN_STARS")
	_ = v.BindEnv(KeyExcludeForks, EnvPrefix+"_EXCLUDE_FORKS", "EXCLUDE_FORKS")
	_ = v.BindEnv(KeyIncludeArchived, EnvPrefix+"_INCLUDE_ARCHIVED", "INCLUDE_ARCHIVED")
}

// Load reads the configuration from v and validates it.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Token:           strings.TrimSpace(v.GetString(KeyToken)),
		User:            v.GetString(KeyUser),
		Output:          v.GetString(KeyOutput),
		MinStars:        v.GetInt(KeyMinStars),
		ExcludeForks:    v.GetBool(KeyExcludeForks),
		IncludeArchived: v.GetBool(KeyIncludeArchived),
		MaxRepos:        v.GetInt(KeyMaxRepos),
		TopTopics:       v.GetInt(KeyTopTopics),
		Taxonomy:        v.GetString(KeyTaxonomy),
		API:             strings.ToLower(v.GetString(KeyAPI)),
		Workers:         v.GetInt(KeyWorkers),
		Formats:         splitList(v.GetStringSlice(KeyFormats)),
		Strict:          v.GetBool(KeyStrict),
		Addr:            v.GetString(KeyAddr),
		AllowedOrigins:  splitList(v.GetStringSlice(KeyAllowedOrigins)),
		JobStore:        strings.ToLower(v.GetString(KeyJobStore)),
		JobStoreDSN:     v.GetString(KeyJobStoreDSN),
		LogLevel:        v.GetString(KeyLogLevel),
		LogFormat:       v.GetString(KeyLogFormat),
	}

	if cfg.MinStars < 0 {
		return Config{}, fmt.Errorf("%s must not be negative, got %d", KeyMinStars, cfg.MinStars)
	}
	if cfg.MaxRepos < 0 {
		return Config{}, fmt.Errorf("%s must not be negative, got %d", KeyMaxRepos, cfg.MaxRepos)
	}
	switch cfg.JobStore {
	case StoreMemory, StoreSQLite, StorePostgres:
	default:
		return Config{}, fmt.Errorf("unsupported %s %q: must be memory, sqlite or postgres", KeyJobStore, cfg.JobStore)
	}
	if cfg.JobStore == StorePostgres && cfg.JobStoreDSN == "" {
		return Config{}, fmt.Errorf("%s is required for the postgres job store", KeyJobStoreDSN)
	}
	return cfg, nil
}

// RequireToken returns ErrMissingToken when no token is configured.
func (c Config) RequireToken() error {
	if c.Token == "" {
		return ErrMissingToken
	}
	return nil
}

// splitList accepts both repeated values and comma separated strings.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
