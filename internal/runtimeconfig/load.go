package runtimeconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "EDITORIAL_"

// Load reads a YAML file on top of DefaultConfig. Durations are written as
// strings ("3s", "45s").
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("editorial config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("editorial config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// LoadDotEnv primes the process environment from the given files. Missing
// files are ignored and existing variables win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	present := make([]string, 0, len(files))
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
		present = append(present, file)
	}
	if len(present) == 0 {
		return nil
	}
	return godotenv.Load(present...)
}

// ApplyEnv overrides cfg from EDITORIAL_* variables read through lookup.
// A nil lookup reads the process environment.
func (cfg *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	env := envReader{lookup: lookup}

	env.duration("AUTOSAVE_DEBOUNCE", &cfg.Autosave.Debounce)
	env.duration("GATEWAY_TIMEOUT", &cfg.Gateway.Timeout)

	env.str("UPLOAD_BUCKET", &cfg.Upload.Bucket)
	env.str("UPLOAD_PREFIX", &cfg.Upload.Prefix)
	env.integer("UPLOAD_MAX_DIMENSION", &cfg.Upload.MaxDimension)
	env.integer("UPLOAD_QUALITY", &cfg.Upload.Quality)
	env.duration("UPLOAD_TIMEOUT", &cfg.Upload.Timeout)

	env.str("STORAGE_PROVIDER", &cfg.Storage.Provider)
	env.str("STORAGE_DRIVER", &cfg.Storage.Driver)
	env.str("STORAGE_DSN", &cfg.Storage.DSN)
	env.boolean("STORAGE_CACHE", &cfg.Storage.Cache)
	env.duration("STORAGE_CACHE_TTL", &cfg.Storage.CacheTTL)

	env.str("BLOB_PROVIDER", &cfg.Blob.Provider)
	env.str("BLOB_DIR", &cfg.Blob.Dir)
	env.str("BLOB_BASE_URL", &cfg.Blob.BaseURL)
	env.str("S3_ENDPOINT", &cfg.Blob.S3.Endpoint)
	env.str("S3_REGION", &cfg.Blob.S3.Region)
	env.str("S3_ACCESS_KEY_ID", &cfg.Blob.S3.AccessKeyID)
	env.str("S3_SECRET_ACCESS_KEY", &cfg.Blob.S3.SecretAccessKey)
	env.str("S3_PUBLIC_BASE_URL", &cfg.Blob.S3.PublicBaseURL)
	env.boolean("S3_USE_PATH_STYLE", &cfg.Blob.S3.UsePathStyle)

	env.str("LOG_PROVIDER", &cfg.Logging.Provider)
	env.str("LOG_LEVEL", &cfg.Logging.Level)
	env.str("LOG_FORMAT", &cfg.Logging.Format)
	env.boolean("LOG_ADD_SOURCE", &cfg.Logging.AddSource)
	if value, ok := env.get("LOG_FOCUS"); ok {
		cfg.Logging.Focus = splitList(value)
	}

	env.duration("COMMAND_TIMEOUT", &cfg.Commands.Timeout)

	return errors.Join(env.errs...)
}

type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (r *envReader) get(name string) (string, bool) {
	value, ok := r.lookup(EnvPrefix + name)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

func (r *envReader) str(name string, dst *string) {
	if value, ok := r.get(name); ok {
		*dst = value
	}
}

func (r *envReader) duration(name string, dst *time.Duration) {
	value, ok := r.get(name)
	if !ok {
		return
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("editorial config: %s%s: %w", EnvPrefix, name, err))
		return
	}
	*dst = parsed
}

func (r *envReader) integer(name string, dst *int) {
	value, ok := r.get(name)
	if !ok {
		return
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("editorial config: %s%s: %w", EnvPrefix, name, err))
		return
	}
	*dst = parsed
}

func (r *envReader) boolean(name string, dst *bool) {
	value, ok := r.get(name)
	if !ok {
		return
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("editorial config: %s%s: %w", EnvPrefix, name, err))
		return
	}
	*dst = parsed
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
