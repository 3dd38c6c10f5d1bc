// Package config assembles the runtime configuration.
//
// Values are layered: built-in defaults, then the TOML config store, then
// environment variables. A .env file is loaded into the environment first
// without overriding variables that are already set. Every key has an
// environment name derived from it, e.g. ocr.timeout_seconds is read from
// PDFSEARCH_OCR_TIMEOUT_SECONDS.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/pdfsearch/internal/core/ports/driven"
	"github.com/custodia-labs/pdfsearch/internal/logger"
)

// EnvPrefix prefixes every environment variable read by the application.
const EnvPrefix = "PDFSEARCH_"

// OCR engine names.
const (
	EngineTesseract    = "tesseract"
	EngineLibTesseract = "libtesseract"
	EngineNone         = "none"
)

// Config is the complete runtime configuration.
type Config struct {
	// DataDir holds the index database, the disk cache and config.toml.
	DataDir string

	Ingest IngestConfig
	OCR    OCRConfig
	Cache  CacheConfig
	Memory MemoryConfig
	Search SearchConfig
}

// IngestConfig tunes the ingestion pipeline.
type IngestConfig struct {
	MaxWorkers           int
	MaxFileMB            int
	StreamingThresholdMB int
	WindowPages          int
}

// OCRConfig selects and tunes the OCR engine.
type OCRConfig struct {
	Engine            string
	Binary            string
	Languages         []string
	Timeout           time.Duration
	MaxPixels         int
	MaxDimension      int
	DisablePreprocess bool
	RatePerSecond     float64
	Burst             int
}

// CacheConfig sizes the caches.
type CacheConfig struct {
	MemoryItems      int
	MaxMemoryPercent float64
	MinFreeMB        float64
	DiskMaxMB        int
	DiskMaxItems     int
	DiskDisabled     bool
	SearchTTL        time.Duration
}

// MemoryConfig configures the memory guard.
type MemoryConfig struct {
	ThresholdPercent float64
}

// SearchConfig holds search defaults for the CLI.
type SearchConfig struct {
	PageSize int
	UseIndex bool
}

// Default returns the built-in configuration rooted at ~/.pdfsearch.
func Default() Config {
	dataDir := ".pdfsearch"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".pdfsearch")
	}
	return Config{
		DataDir: dataDir,
		Ingest: IngestConfig{
			MaxWorkers:           5,
			MaxFileMB:            512,
			StreamingThresholdMB: 50,
			WindowPages:          5,
		},
		OCR: OCRConfig{
			Engine:       EngineTesseract,
			Binary:       "tesseract",
			Languages:    []string{"eng"},
			Timeout:      360 * time.Second,
			MaxPixels:    25_000_000,
			MaxDimension: 2500,
			Burst:        1,
		},
		Cache: CacheConfig{
			MemoryItems:      100,
			MaxMemoryPercent: 75,
			MinFreeMB:        500,
			DiskMaxMB:        500,
			DiskMaxItems:     1000,
			SearchTTL:        300 * time.Second,
		},
		Memory: MemoryConfig{
			ThresholdPercent: 80,
		},
		Search: SearchConfig{
			PageSize: 20,
			UseIndex: true,
		},
	}
}

// Load layers the config store and the environment over the defaults.
// A nil store is skipped. envFiles are passed to godotenv; missing files
// are ignored.
func Load(store driven.ConfigStore, envFiles ...string) Config {
	cfg := Default()
	if store != nil {
		cfg.ApplyStore(store)
	}
	LoadEnvFiles(envFiles...)
	cfg.ApplyEnv()
	cfg.Normalize()
	return cfg
}

// LoadEnvFiles loads .env style files into the process environment.
// Variables that are already set win.
func LoadEnvFiles(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			logger.Warn("loading %s: %v", f, err)
		}
	}
}

// ApplyStore overrides fields with every key present in store.
func (c *Config) ApplyStore(store driven.ConfigStore) {
	for _, f := range c.fields() {
		if _, ok := store.Get(f.key); !ok {
			continue
		}
		switch p := f.ptr.(type) {
		case *string:
			*p = store.GetString(f.key)
		case *int:
			*p = store.GetInt(f.key)
		case *float64:
			*p = store.GetFloat(f.key)
		case *bool:
			*p = store.GetBool(f.key)
		case *[]string:
			*p = store.GetStringSlice(f.key)
		case *time.Duration:
			*p = seconds(store.GetFloat(f.key))
		}
	}
}

// ApplyEnv overrides fields from PDFSEARCH_* variables. Unparseable values
// are reported and ignored.
func (c *Config) ApplyEnv() {
	for _, f := range c.fields() {
		raw, ok := os.LookupEnv(EnvName(f.key))
		if !ok {
			continue
		}
		if err := f.parse(raw); err != nil {
			logger.Warn("%s=%q: %v, keeping %v", EnvName(f.key), raw, err, f.value())
		}
	}
}

// Normalize replaces out-of-range values with defaults.
func (c *Config) Normalize() {
	d := Default()
	if c.DataDir == "" {
		c.DataDir = d.DataDir
	}
	if c.Ingest.MaxWorkers < 1 {
		c.Ingest.MaxWorkers = d.Ingest.MaxWorkers
	}
	if c.Ingest.WindowPages < 1 {
		c.Ingest.WindowPages = d.Ingest.WindowPages
	}
	if c.Ingest.StreamingThresholdMB < 1 {
		c.Ingest.StreamingThresholdMB = d.Ingest.StreamingThresholdMB
	}
	if c.OCR.Engine == "" {
		c.OCR.Engine = d.OCR.Engine
	}
	if len(c.OCR.Languages) == 0 {
		c.OCR.Languages = d.OCR.Languages
	}
	if c.OCR.Timeout <= 0 {
		c.OCR.Timeout = d.OCR.Timeout
	}
	if c.Cache.SearchTTL <= 0 {
		c.Cache.SearchTTL = d.Cache.SearchTTL
	}
	if c.Search.PageSize < 1 {
		c.Search.PageSize = d.Search.PageSize
	}
}

// Paths derived from DataDir.
func (c Config) IndexDir() string { return filepath.Join(c.DataDir, "data") }
func (c Config) CacheDir() string { return filepath.Join(c.DataDir, "cache") }

// MaxFileBytes is the ingestion size ceiling. A max_file_mb of 0 or less
// disables the check and yields -1.
func (c Config) MaxFileBytes() int64 {
	if c.Ingest.MaxFileMB <= 0 {
		return -1
	}
	return int64(c.Ingest.MaxFileMB) * 1024 * 1024
}

// StreamingThresholdBytes is the size above which documents are streamed.
func (c Config) StreamingThresholdBytes() int64 {
	return int64(c.Ingest.StreamingThresholdMB) * 1024 * 1024
}

// Keys lists every known configuration key, sorted.
func Keys() []string {
	var c Config
	fields := c.fields()
	keys := make([]string, 0, len(fields))
	for _, f := range fields {
		keys = append(keys, f.key)
	}
	sort.Strings(keys)
	return keys
}

// Values returns every key with its current value rendered as text.
func (c *Config) Values() map[string]string {
	out := make(map[string]string)
	for _, f := range c.fields() {
		out[f.key] = f.value()
	}
	return out
}

// Parse converts raw text into the typed value stored for key, so that
// `config set` writes integers and lists rather than strings.
func Parse(key, raw string) (any, error) {
	var c Config
	for _, f := range c.fields() {
		if f.key != key {
			continue
		}
		if err := f.parse(raw); err != nil {
			return nil, err
		}
		switch p := f.ptr.(type) {
		case *time.Duration:
			return int64(p.Seconds()), nil
		case *string:
			return *p, nil
		case *int:
			return *p, nil
		case *float64:
			return *p, nil
		case *bool:
			return *p, nil
		case *[]string:
			return *p, nil
		}
	}
	return nil, fmt.Errorf("unknown config key %q", key)
}

// EnvName returns the environment variable for key.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

type field struct {
	key string
	ptr any
}

func (c *Config) fields() []field {
	return []field{
		{"data_dir", &c.DataDir},
		{"ingest.max_workers", &c.Ingest.MaxWorkers},
		{"ingest.max_file_mb", &c.Ingest.MaxFileMB},
		{"ingest.streaming_threshold_mb", &c.Ingest.StreamingThresholdMB},
		{"ingest.window_pages", &c.Ingest.WindowPages},
		{"ocr.engine", &c.OCR.Engine},
		{"ocr.binary", &c.OCR.Binary},
		{"ocr.languages", &c.OCR.Languages},
		{"ocr.timeout_seconds", &c.OCR.Timeout},
		{"ocr.max_pixels", &c.OCR.MaxPixels},
		{"ocr.max_dimension", &c.OCR.MaxDimension},
		{"ocr.disable_preprocess", &c.OCR.DisablePreprocess},
		{"ocr.rate_per_second", &c.OCR.RatePerSecond},
		{"ocr.burst", &c.OCR.Burst},
		{"cache.memory_items", &c.Cache.MemoryItems},
		{"cache.max_memory_percent", &c.Cache.MaxMemoryPercent},
		{"cache.min_free_mb", &c.Cache.MinFreeMB},
		{"cache.disk_max_mb", &c.Cache.DiskMaxMB},
		{"cache.disk_max_items", &c.Cache.DiskMaxItems},
		{"cache.disk_disabled", &c.Cache.DiskDisabled},
		{"cache.search_ttl_seconds", &c.Cache.SearchTTL},
		{"memory.threshold_percent", &c.Memory.ThresholdPercent},
		{"search.page_size", &c.Search.PageSize},
		{"search.use_index", &c.Search.UseIndex},
	}
}

func (f field) parse(raw string) error {
	raw = strings.TrimSpace(raw)
	switch p := f.ptr.(type) {
	case *string:
		*p = raw
	case *int:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("not an integer")
		}
		*p = n
	case *float64:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("not a number")
		}
		*p = v
	case *bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("not a boolean")
		}
		*p = b
	case *[]string:
		var list []string
		for _, item := range strings.Split(raw, ",") {
			if item = strings.TrimSpace(item); item != "" {
				list = append(list, item)
			}
		}
		*p = list
	case *time.Duration:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("not a number of seconds")
		}
		*p = seconds(v)
	}
	return nil
}

func (f field) value() string {
	switch p := f.ptr.(type) {
	case *string:
		return *p
	case *int:
		return strconv.Itoa(*p)
	case *float64:
		return strconv.FormatFloat(*p, 'f', -1, 64)
	case *bool:
		return strconv.FormatBool(*p)
	case *[]string:
		return strings.Join(*p, ",")
	case *time.Duration:
		return strconv.FormatFloat(p.Seconds(), 'f', -1, 64)
	}
	return ""
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
