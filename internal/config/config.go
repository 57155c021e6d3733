package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	StoreSQLite = "sqlite"
	StoreFile   = "file"

	envPrefix = "PODNOTES_"
)

const (
	DefaultNoteTemplate = `## {{title}}
![]({{artwork}})
### Metadata
Podcast:: {{podcast}}
Episode:: {{title}}
PublishDate:: {{date: YYYY-MM-DD}}
### Description
{{description: > }}
`
	DefaultNotePath           = "Podcasts/{{podcast}}/{{title}}"
	DefaultDownloadPath       = "Podcasts/{{podcast}}/{{title}}"
	DefaultTimestampTemplate  = "- {{linktime}} "
	DefaultTranscriptTemplate = "# {{title}}\n\n{{transcript}}\n"
	DefaultTranscriptPath     = "Transcripts/{{podcast}}/{{title}}"
)

// Config holds runtime settings for the CLI app.
type Config struct {
	DBPath             string `yaml:"db_path"`
	Store              string `yaml:"store"`
	VaultDir           string `yaml:"vault_dir"`
	LogLevel           string `yaml:"log_level"`
	LogFormat          string `yaml:"log_format"`
	HTTPTimeout        string `yaml:"http_timeout"`
	UserAgent          string `yaml:"user_agent"`
	CacheMaxAge        string `yaml:"cache_max_age"`
	NoteTemplate       string `yaml:"note_template"`
	NotePath           string `yaml:"note_path"`
	DownloadPath       string `yaml:"download_path"`
	TimestampTemplate  string `yaml:"timestamp_template"`
	TranscriptTemplate string `yaml:"transcript_template"`
	TranscriptPath     string `yaml:"transcript_path"`
	ImportConcurrency  int    `yaml:"import_concurrency"`
	RefreshCron        string `yaml:"refresh_cron"`
}

func Default() Config {
	return Config{
		DBPath:             filepath.Join(xdg.DataHome, "podnotes", "podnotes.db"),
		Store:              StoreSQLite,
		VaultDir:           ".",
		LogLevel:           "info",
		HTTPTimeout:        "30s",
		CacheMaxAge:        "6h",
		NoteTemplate:       DefaultNoteTemplate,
		NotePath:           DefaultNotePath,
		DownloadPath:       DefaultDownloadPath,
		TimestampTemplate:  DefaultTimestampTemplate,
		TranscriptTemplate: DefaultTranscriptTemplate,
		TranscriptPath:     DefaultTranscriptPath,
		ImportConcurrency:  4,
	}
}

func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "podnotes", "config.yaml")
}

// Load layers defaults, the YAML file at path, a .env file in the working
// directory and PODNOTES_* environment variables, in that order. An empty
// path reads DefaultPath, which may be absent; an explicit path must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	fields := map[string]*string{
		"DB_PATH":             &c.DBPath,
		"STORE":               &c.Store,
		"VAULT_DIR":           &c.VaultDir,
		"LOG_LEVEL":           &c.LogLevel,
		"LOG_FORMAT":          &c.LogFormat,
		"HTTP_TIMEOUT":        &c.HTTPTimeout,
		"USER_AGENT":          &c.UserAgent,
		"CACHE_MAX_AGE":       &c.CacheMaxAge,
		"NOTE_TEMPLATE":       &c.NoteTemplate,
		"NOTE_PATH":           &c.NotePath,
		"DOWNLOAD_PATH":       &c.DownloadPath,
		"TIMESTAMP_TEMPLATE":  &c.TimestampTemplate,
		"TRANSCRIPT_TEMPLATE": &c.TranscriptTemplate,
		"TRANSCRIPT_PATH":     &c.TranscriptPath,
		"REFRESH_CRON":        &c.RefreshCron,
	}
	for name, field := range fields {
		if v, ok := os.LookupEnv(envPrefix + name); ok && v != "" {
			*field = v
		}
	}
	if v, ok := os.LookupEnv(envPrefix + "IMPORT_CONCURRENCY"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sIMPORT_CONCURRENCY must be an integer: %s", envPrefix, v)
		}
		c.ImportConcurrency = n
	}
	return nil
}

func (c Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("db_path is required")
	}
	if c.Store != StoreSQLite && c.Store != StoreFile {
		return fmt.Errorf("store must be sqlite or file: %s", c.Store)
	}
	if c.VaultDir == "" {
		return errors.New("vault_dir is required")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn or error: %s", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "json", "console":
	default:
		return fmt.Errorf("log_format must be json or console: %s", c.LogFormat)
	}
	if _, err := positiveDuration("http_timeout", c.HTTPTimeout); err != nil {
		return err
	}
	if _, err := positiveDuration("cache_max_age", c.CacheMaxAge); err != nil {
		return err
	}
	if strings.TrimSpace(c.NotePath) == "" {
		return errors.New("note_path is required")
	}
	if c.ImportConcurrency < 1 {
		return fmt.Errorf("import_concurrency must be at least 1: %d", c.ImportConcurrency)
	}
	if c.RefreshCron != "" {
		if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
			return fmt.Errorf("refresh_cron: %w", err)
		}
	}
	return nil
}

func (c Config) HTTPTimeoutDuration() time.Duration {
	d, _ := positiveDuration("http_timeout", c.HTTPTimeout)
	return d
}

func (c Config) CacheMaxAgeDuration() time.Duration {
	d, _ := positiveDuration("cache_max_age", c.CacheMaxAge)
	return d
}

func positiveDuration(name, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %q", name, value)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive: %s", name, value)
	}
	return d, nil
}
