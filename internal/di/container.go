package di

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	repocache "github.com/goliatone/go-repository-cache/cache"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-editorial/internal/blob"
	"github.com/goliatone/go-editorial/internal/commands"
	"github.com/goliatone/go-editorial/internal/domain"
	"github.com/goliatone/go-editorial/internal/editor"
	"github.com/goliatone/go-editorial/internal/gateway"
	"github.com/goliatone/go-editorial/internal/identity"
	"github.com/goliatone/go-editorial/internal/imageopt"
	"github.com/goliatone/go-editorial/internal/logging"
	"github.com/goliatone/go-editorial/internal/logging/console"
	"github.com/goliatone/go-editorial/internal/logging/gologger"
	"github.com/goliatone/go-editorial/internal/runtimeconfig"
	"github.com/goliatone/go-editorial/internal/store"
	"github.com/goliatone/go-editorial/internal/upload"
	"github.com/goliatone/go-editorial/pkg/activity"
	"github.com/goliatone/go-editorial/pkg/activity/usersink"
	"github.com/goliatone/go-editorial/pkg/interfaces"
)

// DocumentStore is the store surface the module needs: writes for the
// gateway and reads for reopening documents.
type DocumentStore interface {
	interfaces.StoreClient
	interfaces.StoreReader
}

// Container wires module dependencies from a runtime config.
type Container struct {
	Config runtimeconfig.Config

	loggerProvider interfaces.LoggerProvider
	store          DocumentStore
	blobs          interfaces.BinaryStorage
	identities     interfaces.IdentityProvider
	gateways       map[domain.Kind]*gateway.Gateway
	optimizer      *imageopt.Optimizer
	activity       activity.Hooks

	bunDB         *bun.DB
	ownsDB        bool
	cacheService  repocache.CacheService
	keySerializer repocache.KeySerializer
	clock         func() time.Time
}

// Option mutates the container before it is finalised.
type Option func(*Container)

// WithStore overrides the configured document store.
func WithStore(s DocumentStore) Option {
	return func(c *Container) {
		if s != nil {
			c.store = s
		}
	}
}

// WithBunDB makes the bun provider use db instead of opening the configured DSN.
func WithBunDB(db *bun.DB) Option {
	return func(c *Container) {
		c.bunDB = db
	}
}

// WithCache overrides the repository cache used by the bun store.
func WithCache(service repocache.CacheService, serializer repocache.KeySerializer) Option {
	return func(c *Container) {
		c.cacheService = service
		c.keySerializer = serializer
	}
}

// WithBinaryStorage overrides the configured blob backend.
func WithBinaryStorage(storage interfaces.BinaryStorage) Option {
	return func(c *Container) {
		if storage != nil {
			c.blobs = storage
		}
	}
}

// WithIdentityProvider sets how the current author is resolved. Defaults to
// the author carried by the request context.
func WithIdentityProvider(provider interfaces.IdentityProvider) Option {
	return func(c *Container) {
		if provider != nil {
			c.identities = provider
		}
	}
}

// WithLoggerProvider overrides the configured logger provider.
func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(c *Container) {
		if provider != nil {
			c.loggerProvider = provider
		}
	}
}

// WithActivityHook adds a receiver of document lifecycle events.
func WithActivityHook(hook activity.Hook) Option {
	return func(c *Container) {
		if hook != nil {
			c.activity = append(c.activity, hook)
		}
	}
}

// WithActivitySink forwards document lifecycle events to a go-users activity sink.
func WithActivitySink(sink usersink.Sink) Option {
	return func(c *Container) {
		if sink != nil {
			c.activity = append(c.activity, usersink.Hook{Sink: sink})
		}
	}
}

// WithClock overrides the clock handed to stores and sessions.
func WithClock(clock func() time.Time) Option {
	return func(c *Container) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// NewContainer validates cfg and builds every dependency it names.
func NewContainer(cfg runtimeconfig.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Container{
		Config: cfg,
		clock:  time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if err := c.configureLoggerProvider(); err != nil {
		return nil, err
	}
	if err := c.configureStore(); err != nil {
		return nil, err
	}
	if err := c.configureBlobs(); err != nil {
		return nil, err
	}
	if c.identities == nil {
		c.identities = identity.Context{}
	}

	c.gateways = make(map[domain.Kind]*gateway.Gateway, 2)
	for _, kind := range []domain.Kind{domain.KindArticle, domain.KindProject} {
		c.gateways[kind] = gateway.New(c.store, c.identities,
			gateway.WithTable(kind.Table()),
			gateway.WithTimeout(cfg.Gateway.Timeout),
			gateway.WithLogger(logging.GatewayLogger(c.loggerProvider)),
		)
	}
	c.optimizer = imageopt.New(
		imageopt.WithMaxDimension(cfg.Upload.MaxDimension),
		imageopt.WithQuality(cfg.Upload.Quality),
	)

	logging.ModuleLogger(c.loggerProvider, "editorial.di").Info("container.configured",
		"storage", storageLabel(cfg.Storage, c.bunDB != nil),
		"blob", strings.ToLower(strings.TrimSpace(cfg.Blob.Provider)),
		"cache", c.cacheService != nil,
	)
	return c, nil
}

func storageLabel(cfg runtimeconfig.StorageConfig, useBun bool) string {
	if !useBun {
		return "memory"
	}
	return "bun/" + strings.ToLower(strings.TrimSpace(cfg.Driver))
}

func (c *Container) configureLoggerProvider() error {
	if c.loggerProvider != nil {
		return nil
	}
	logCfg := c.Config.Logging
	switch strings.ToLower(strings.TrimSpace(logCfg.Provider)) {
	case "gologger":
		provider, err := gologger.NewProvider(gologger.Config{
			Level:     logCfg.Level,
			Format:    logCfg.Format,
			AddSource: logCfg.AddSource,
			Focus:     logCfg.Focus,
		})
		if err != nil {
			return err
		}
		c.loggerProvider = provider
	default:
		opts := console.Options{
			Writer: os.Stdout,
			JSON:   strings.EqualFold(strings.TrimSpace(logCfg.Format), "json"),
			Focus:  logCfg.Focus,
		}
		if level, ok := console.ParseLevel(logCfg.Level); ok {
			opts.MinLevel = &level
		}
		c.loggerProvider = console.NewProvider(opts)
	}
	return nil
}

func (c *Container) configureCacheDefaults() {
	if !c.Config.Storage.Cache {
		return
	}

	if c.cacheService == nil {
		cfg := repocache.DefaultConfig()
		if c.Config.Storage.CacheTTL > 0 {
			cfg.TTL = c.Config.Storage.CacheTTL
		}
		service, err := repocache.NewCacheService(cfg)
		if err == nil {
			c.cacheService = service
		}
	}

	if c.cacheService != nil && c.keySerializer == nil {
		c.keySerializer = repocache.NewDefaultKeySerializer()
	}
}

func (c *Container) configureStore() error {
	if c.store != nil {
		return nil
	}
	if strings.ToLower(strings.TrimSpace(c.Config.Storage.Provider)) != runtimeconfig.StorageBun {
		c.store = store.NewMemoryStore().WithClock(c.clock)
		return nil
	}

	if c.bunDB == nil {
		db, err := store.Open(c.Config.Storage.Driver, c.Config.Storage.DSN)
		if err != nil {
			return err
		}
		c.bunDB = db
		c.ownsDB = true
	}
	if err := store.EnsureSchema(context.Background(), c.bunDB); err != nil {
		return err
	}

	c.configureCacheDefaults()
	c.store = store.NewBunStoreWithCache(c.bunDB, c.cacheService, c.keySerializer).WithClock(c.clock)
	return nil
}

func (c *Container) configureBlobs() error {
	if c.blobs != nil {
		return nil
	}
	blobCfg := c.Config.Blob
	switch strings.ToLower(strings.TrimSpace(blobCfg.Provider)) {
	case runtimeconfig.BlobFilesystem:
		storage, err := blob.NewFileStorage(blobCfg.Dir, blobCfg.BaseURL)
		if err != nil {
			return err
		}
		c.blobs = storage
	case runtimeconfig.BlobS3:
		storage, err := blob.NewS3Storage(blob.S3Config{
			Endpoint:        blobCfg.S3.Endpoint,
			Region:          blobCfg.S3.Region,
			AccessKeyID:     blobCfg.S3.AccessKeyID,
			SecretAccessKey: blobCfg.S3.SecretAccessKey,
			PublicBaseURL:   blobCfg.S3.PublicBaseURL,
			UsePathStyle:    blobCfg.S3.UsePathStyle,
		})
		if err != nil {
			return fmt.Errorf("di: configure s3 storage: %w", err)
		}
		c.blobs = storage
	default:
		c.blobs = blob.NewMemoryStorage(blobCfg.BaseURL)
	}
	return nil
}

// SessionOptions returns the editor options derived from the config. Extra
// options are applied after them.
func (c *Container) SessionOptions(extra ...editor.Option) []editor.Option {
	opts := []editor.Option{
		editor.WithDebounce(c.Config.Autosave.Debounce),
		editor.WithClock(c.clock),
		editor.WithLoggerProvider(c.loggerProvider),
		editor.WithStorage(c.blobs),
		editor.WithUploadOptions(
			upload.WithBucket(c.Config.Upload.Bucket),
			upload.WithPrefix(c.Config.Upload.Prefix),
			upload.WithTimeout(c.Config.Upload.Timeout),
			upload.WithTransformer(c.optimizer),
		),
	}
	if len(c.activity) > 0 {
		opts = append(opts, editor.WithActivity(c.activity, c.identities))
	}
	return append(opts, extra...)
}

// CommandTimeout is the execution bound for command handlers.
func (c *Container) CommandTimeout() time.Duration {
	if c.Config.Commands.Timeout > 0 {
		return c.Config.Commands.Timeout
	}
	return commands.DefaultCommandTimeout
}

// Gateway returns the persistence gateway for documents of kind, shared by
// every session of that kind.
func (c *Container) Gateway(kind domain.Kind) *gateway.Gateway {
	if gw, ok := c.gateways[kind]; ok {
		return gw
	}
	return c.gateways[domain.KindArticle]
}

// Store returns the configured document store.
func (c *Container) Store() DocumentStore { return c.store }

// BinaryStorage returns the configured blob backend.
func (c *Container) BinaryStorage() interfaces.BinaryStorage { return c.blobs }

// LoggerProvider returns the configured logger provider.
func (c *Container) LoggerProvider() interfaces.LoggerProvider { return c.loggerProvider }

// Clock returns the container clock.
func (c *Container) Clock() func() time.Time { return c.clock }

// Close releases the database handle when the container opened it.
func (c *Container) Close() error {
	if c.ownsDB && c.bunDB != nil {
		return c.bunDB.Close()
	}
	return nil
}
