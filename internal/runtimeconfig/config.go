package runtimeconfig

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrAutosaveDebounceInvalid = errors.New("editorial config: autosave debounce must be positive")
	ErrGatewayTimeoutInvalid   = errors.New("editorial config: gateway timeout must be positive")
	ErrUploadTimeoutInvalid    = errors.New("editorial config: upload timeout must be positive")
	ErrUploadBucketRequired    = errors.New("editorial config: upload bucket is required")
	ErrUploadQualityInvalid    = errors.New("editorial config: upload quality must be between 1 and 100")
	ErrUploadDimensionInvalid  = errors.New("editorial config: upload max dimension must be zero or positive")
	ErrStorageProviderUnknown  = errors.New("editorial config: storage provider is invalid")
	ErrStorageDriverUnknown    = errors.New("editorial config: storage driver is invalid")
	ErrStorageDSNRequired      = errors.New("editorial config: storage dsn is required for the bun provider")
	ErrBlobProviderUnknown     = errors.New("editorial config: blob provider is invalid")
	ErrBlobDirRequired         = errors.New("editorial config: blob directory is required for the filesystem provider")
	ErrBlobS3RegionRequired    = errors.New("editorial config: s3 region is required")
	ErrLoggingProviderUnknown  = errors.New("editorial config: logging provider is invalid")
	ErrLoggingLevelInvalid     = errors.New("editorial config: logging level is invalid")
	ErrLoggingFormatInvalid    = errors.New("editorial config: logging format is invalid")
)

// Storage providers.
const (
	StorageMemory = "memory"
	StorageBun    = "bun"
)

// Blob providers.
const (
	BlobMemory     = "memory"
	BlobFilesystem = "filesystem"
	BlobS3         = "s3"
)

// Config aggregates the tunables of the editorial module.
type Config struct {
	Autosave AutosaveConfig `yaml:"autosave"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Upload   UploadConfig   `yaml:"upload"`
	Storage  StorageConfig  `yaml:"storage"`
	Blob     BlobConfig     `yaml:"blob"`
	Logging  LoggingConfig  `yaml:"logging"`
	Commands CommandsConfig `yaml:"commands"`
}

// AutosaveConfig controls the debounce window.
type AutosaveConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// GatewayConfig bounds every persistence call.
type GatewayConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// UploadConfig captures object naming and image optimisation.
type UploadConfig struct {
	Bucket       string        `yaml:"bucket"`
	Prefix       string        `yaml:"prefix"`
	MaxDimension int           `yaml:"max_dimension"`
	Quality      int           `yaml:"quality"`
	Timeout      time.Duration `yaml:"timeout"`
}

// StorageConfig selects the document store.
type StorageConfig struct {
	Provider string        `yaml:"provider"`
	Driver   string        `yaml:"driver"`
	DSN      string        `yaml:"dsn"`
	Cache    bool          `yaml:"cache"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// BlobConfig selects the binary storage backend.
type BlobConfig struct {
	Provider string   `yaml:"provider"`
	Dir      string   `yaml:"dir"`
	BaseURL  string   `yaml:"base_url"`
	S3       S3Config `yaml:"s3"`
}

// S3Config points at an S3-compatible endpoint.
type S3Config struct {
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	PublicBaseURL   string `yaml:"public_base_url"`
	UsePathStyle    bool   `yaml:"use_path_style"`
}

// LoggingConfig captures provider-specific options for runtime logging.
type LoggingConfig struct {
	Provider  string   `yaml:"provider"`
	Level     string   `yaml:"level"`
	Format    string   `yaml:"format"`
	AddSource bool     `yaml:"add_source"`
	Focus     []string `yaml:"focus"`
}

// CommandsConfig captures command-layer behaviour.
type CommandsConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultConfig returns the defaults used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Autosave: AutosaveConfig{Debounce: 3 * time.Second},
		Gateway:  GatewayConfig{Timeout: 10 * time.Second},
		Upload: UploadConfig{
			Bucket:       "media",
			Prefix:       "uploads",
			MaxDimension: 1920,
			Quality:      80,
			Timeout:      45 * time.Second,
		},
		Storage: StorageConfig{
			Provider: StorageMemory,
			Driver:   "sqlite3",
			CacheTTL: time.Minute,
		},
		Blob: BlobConfig{
			Provider: BlobMemory,
		},
		Logging: LoggingConfig{
			Provider: "console",
			Level:    "info",
		},
		Commands: CommandsConfig{Timeout: 30 * time.Second},
	}
}

// Validate performs high-level consistency checks.
func (cfg Config) Validate() error {
	if cfg.Autosave.Debounce <= 0 {
		return ErrAutosaveDebounceInvalid
	}
	if cfg.Gateway.Timeout <= 0 {
		return ErrGatewayTimeoutInvalid
	}
	if cfg.Upload.Timeout <= 0 {
		return ErrUploadTimeoutInvalid
	}
	if strings.TrimSpace(cfg.Upload.Bucket) == "" {
		return ErrUploadBucketRequired
	}
	if cfg.Upload.Quality < 1 || cfg.Upload.Quality > 100 {
		return fmt.Errorf("%w: %d", ErrUploadQualityInvalid, cfg.Upload.Quality)
	}
	if cfg.Upload.MaxDimension < 0 {
		return ErrUploadDimensionInvalid
	}

	switch normalize(cfg.Storage.Provider) {
	case StorageMemory:
	case StorageBun:
		switch normalize(cfg.Storage.Driver) {
		case "sqlite3", "postgres":
		default:
			return fmt.Errorf("%w: %s", ErrStorageDriverUnknown, cfg.Storage.Driver)
		}
		if strings.TrimSpace(cfg.Storage.DSN) == "" {
			return ErrStorageDSNRequired
		}
	default:
		return fmt.Errorf("%w: %s", ErrStorageProviderUnknown, cfg.Storage.Provider)
	}

	switch normalize(cfg.Blob.Provider) {
	case BlobMemory:
	case BlobFilesystem:
		if strings.TrimSpace(cfg.Blob.Dir) == "" {
			return ErrBlobDirRequired
		}
	case BlobS3:
		if strings.TrimSpace(cfg.Blob.S3.Region) == "" {
			return ErrBlobS3RegionRequired
		}
	default:
		return fmt.Errorf("%w: %s", ErrBlobProviderUnknown, cfg.Blob.Provider)
	}

	provider := normalize(cfg.Logging.Provider)
	if !isSupportedProvider(provider) {
		return fmt.Errorf("%w: %s", ErrLoggingProviderUnknown, provider)
	}
	if level := strings.TrimSpace(cfg.Logging.Level); level != "" && !isSupportedLevel(level) {
		return fmt.Errorf("%w: %s", ErrLoggingLevelInvalid, level)
	}
	if format := strings.TrimSpace(cfg.Logging.Format); format != "" && !isSupportedFormat(format) {
		return fmt.Errorf("%w: %s", ErrLoggingFormatInvalid, format)
	}
	return nil
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func isSupportedProvider(provider string) bool {
	switch provider {
	case "console", "gologger":
		return true
	default:
		return false
	}
}

func isSupportedLevel(level string) bool {
	switch normalize(level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal":
		return true
	default:
		return false
	}
}

func isSupportedFormat(format string) bool {
	switch normalize(format) {
	case "json", "console", "pretty":
		return true
	default:
		return false
	}
}
