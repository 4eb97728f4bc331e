package editorial

import "github.com/goliatone/go-editorial/internal/runtimeconfig"

var (
	ErrAutosaveDebounceInvalid = runtimeconfig.ErrAutosaveDebounceInvalid
	ErrGatewayTimeoutInvalid   = runtimeconfig.ErrGatewayTimeoutInvalid
	ErrUploadTimeoutInvalid    = runtimeconfig.ErrUploadTimeoutInvalid
	ErrUploadBucketRequired    = runtimeconfig.ErrUploadBucketRequired
	ErrUploadQualityInvalid    = runtimeconfig.ErrUploadQualityInvalid
	ErrUploadDimensionInvalid  = runtimeconfig.ErrUploadDimensionInvalid
	ErrStorageProviderUnknown  = runtimeconfig.ErrStorageProviderUnknown
	ErrStorageDriverUnknown    = runtimeconfig.ErrStorageDriverUnknown
	ErrStorageDSNRequired      = runtimeconfig.ErrStorageDSNRequired
	ErrBlobProviderUnknown     = runtimeconfig.ErrBlobProviderUnknown
	ErrBlobDirRequired         = runtimeconfig.ErrBlobDirRequired
	ErrBlobS3RegionRequired    = runtimeconfig.ErrBlobS3RegionRequired
	ErrLoggingProviderUnknown  = runtimeconfig.ErrLoggingProviderUnknown
	ErrLoggingLevelInvalid     = runtimeconfig.ErrLoggingLevelInvalid
	ErrLoggingFormatInvalid    = runtimeconfig.ErrLoggingFormatInvalid
)

type (
	Config         = runtimeconfig.Config
	AutosaveConfig = runtimeconfig.AutosaveConfig
	GatewayConfig  = runtimeconfig.GatewayConfig
	UploadConfig   = runtimeconfig.UploadConfig
	StorageConfig  = runtimeconfig.StorageConfig
	BlobConfig     = runtimeconfig.BlobConfig
	S3Config       = runtimeconfig.S3Config
	LoggingConfig  = runtimeconfig.LoggingConfig
	CommandsConfig = runtimeconfig.CommandsConfig
)

func DefaultConfig() Config {
	return runtimeconfig.DefaultConfig()
}

// LoadConfig reads a YAML config file and applies EDITORIAL_* overrides from
// the environment, primed from .env when present.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		loaded, err := runtimeconfig.Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if err := runtimeconfig.LoadDotEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.ApplyEnv(nil); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}
