// Package upload inserts assets into a document body without blocking the
// author. A placeholder goes in immediately and is swapped for the durable
// reference once the asset is stored.
package upload

import (
	"context"
	"errors"
	"html"
	"path"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-editorial/internal/bounded"
	"github.com/goliatone/go-editorial/internal/buffer"
	"github.com/goliatone/go-editorial/internal/domain"
	"github.com/goliatone/go-editorial/internal/imageopt"
	"github.com/goliatone/go-editorial/internal/logging"
	"github.com/goliatone/go-editorial/pkg/interfaces"
)

const (
	// Scheme prefixes placeholder references in the body.
	Scheme = "editorial-asset:"

	DefaultTimeout = 45 * time.Second
	DefaultBucket  = "media"
	DefaultPrefix  = "uploads"
)

var (
	// ErrEmptyAsset is returned for assets without content.
	ErrEmptyAsset = errors.New("upload: asset has no data")
	// ErrUnknownPlaceholder is returned by Await for tokens this mediator did not mint.
	ErrUnknownPlaceholder = errors.New("upload: unknown placeholder")
)

// Asset is a file the author dropped into the editor.
type Asset struct {
	Name        string
	ContentType string
	Data        []byte
}

// Placeholder identifies an inserted, not yet stored asset.
type Placeholder struct {
	Token string
	Name  string
}

// Ref is the value of the placeholder's src attribute.
func (p Placeholder) Ref() string {
	return Scheme + p.Token
}

// Tag is the markup inserted into the body.
func (p Placeholder) Tag() string {
	return `<img src="` + p.Ref() + `" alt="` + html.EscapeString(p.Name) + `">`
}

// Outcome reports how an upload ended. Err is an upload error; the
// placeholder stays in the body in that case.
type Outcome struct {
	Placeholder Placeholder
	URL         string
	ObjectPath  string
	Optimized   bool
	Substituted bool
	Err         error
}

// Listener receives every upload outcome, on the upload goroutine.
type Listener func(Outcome)

// Transformer optimizes asset bytes before storage.
type Transformer interface {
	Optimize(name, contentType string, data []byte) (imageopt.Result, error)
}

type inflight struct {
	done    chan struct{}
	outcome Outcome
}

// Mediator owns the uploads of one buffer.
type Mediator struct {
	buf       *buffer.Buffer
	field     string
	storage   interfaces.BinaryStorage
	transform Transformer
	bucket    string
	prefix    string
	timeout   time.Duration
	now       func() time.Time
	logger    interfaces.Logger
	listener  Listener
	baseCtx   context.Context

	mu       sync.Mutex
	mapping  map[string]string
	uploads  map[string]*inflight
	inFlight int
	wg       sync.WaitGroup
}

// Option configures a Mediator.
type Option func(*Mediator)

func WithBucket(bucket string) Option {
	return func(m *Mediator) {
		if bucket = strings.TrimSpace(bucket); bucket != "" {
			m.bucket = bucket
		}
	}
}

func WithPrefix(prefix string) Option {
	return func(m *Mediator) {
		m.prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(m *Mediator) {
		if timeout > 0 {
			m.timeout = timeout
		}
	}
}

func WithTransformer(transform Transformer) Option {
	return func(m *Mediator) {
		m.transform = transform
	}
}

func WithClock(clock func() time.Time) Option {
	return func(m *Mediator) {
		if clock != nil {
			m.now = clock
		}
	}
}

func WithLogger(logger interfaces.Logger) Option {
	return func(m *Mediator) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithListener sets the per-asset result listener.
func WithListener(listener Listener) Option {
	return func(m *Mediator) {
		m.listener = listener
	}
}

// WithContext sets the parent context of background uploads.
func WithContext(ctx context.Context) Option {
	return func(m *Mediator) {
		if ctx != nil {
			m.baseCtx = ctx
		}
	}
}

// WithField changes the rich text field placeholders are inserted into.
func WithField(name string) Option {
	return func(m *Mediator) {
		if name = strings.TrimSpace(name); name != "" {
			m.field = name
		}
	}
}

func New(buf *buffer.Buffer, storage interfaces.BinaryStorage, opts ...Option) *Mediator {
	m := &Mediator{
		buf:       buf,
		field:     domain.FieldBody,
		storage:   storage,
		transform: imageopt.New(),
		bucket:    DefaultBucket,
		prefix:    DefaultPrefix,
		timeout:   DefaultTimeout,
		now:       time.Now,
		logger:    logging.NoOp(),
		baseCtx:   context.Background(),
		mapping:   map[string]string{},
		uploads:   map[string]*inflight{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Insert puts a placeholder for asset at the byte offset cursor of the body
// and starts the upload in the background. A cursor outside the body is
// clamped; -1 appends.
func (m *Mediator) Insert(ctx context.Context, asset Asset, cursor int) (Placeholder, error) {
	if len(asset.Data) == 0 {
		return Placeholder{}, ErrEmptyAsset
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return Placeholder{}, err
	}

	name := strings.TrimSpace(asset.Name)
	if name == "" {
		name = "asset"
	}
	ph := Placeholder{Token: uuid.NewString(), Name: name}
	m.buf.RewriteField(m.field, func(current string) (string, bool) {
		at := clampCursor(current, cursor)
		return current[:at] + ph.Tag() + current[at:], true
	})

	job := &inflight{done: make(chan struct{})}
	m.mu.Lock()
	m.uploads[ph.Token] = job
	m.inFlight++
	m.mu.Unlock()

	m.wg.Add(1)
	go m.run(ph, asset, job)

	m.logger.Debug("upload.placeholder.inserted", "token", ph.Token, "name", name, "size", len(asset.Data))
	return ph, nil
}

// InsertAll inserts every asset in order at cursor and waits for all of the
// uploads. The placeholders are returned even when an upload failed.
func (m *Mediator) InsertAll(ctx context.Context, assets []Asset, cursor int) ([]Placeholder, error) {
	placeholders := make([]Placeholder, 0, len(assets))
	for _, asset := range assets {
		ph, err := m.Insert(ctx, asset, cursor)
		if err != nil {
			return placeholders, err
		}
		placeholders = append(placeholders, ph)
		if cursor >= 0 {
			cursor += len(ph.Tag())
		}
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for _, ph := range placeholders {
		ph := ph
		group.Go(func() error {
			outcome, err := m.Await(groupCtx, ph)
			if err != nil {
				return err
			}
			return outcome.Err
		})
	}
	return placeholders, group.Wait()
}

// Await blocks until the upload behind ph finished.
func (m *Mediator) Await(ctx context.Context, ph Placeholder) (Outcome, error) {
	m.mu.Lock()
	job, ok := m.uploads[ph.Token]
	m.mu.Unlock()
	if !ok {
		return Outcome{}, ErrUnknownPlaceholder
	}
	select {
	case <-job.done:
		return job.outcome, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Wait blocks until every in-flight upload finished or ctx is done.
func (m *Mediator) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending is the number of uploads still running.
func (m *Mediator) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inFlight
}

// Mapping returns placeholder references mapped to durable URLs.
func (m *Mediator) Mapping() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.mapping))
	for ref, url := range m.mapping {
		out[ref] = url
	}
	return out
}

// Resolve replaces every known placeholder in markup, e.g. a body restored
// from a draft saved while uploads were running.
func (m *Mediator) Resolve(markup string) string {
	for ref, url := range m.Mapping() {
		markup, _ = Substitute(markup, ref, url)
	}
	return markup
}

func (m *Mediator) run(ph Placeholder, asset Asset, job *inflight) {
	defer m.wg.Done()

	outcome := m.upload(ph, asset)
	if outcome.Err == nil {
		m.mu.Lock()
		m.mapping[ph.Ref()] = outcome.URL
		m.mu.Unlock()

		outcome.Substituted = m.buf.RewriteField(m.field, func(current string) (string, bool) {
			return Substitute(current, ph.Ref(), outcome.URL)
		})
		if !outcome.Substituted {
			m.logger.Debug("upload.placeholder.gone", "token", ph.Token)
		}
	}

	m.mu.Lock()
	job.outcome = outcome
	m.inFlight--
	m.mu.Unlock()
	close(job.done)

	if m.listener != nil {
		m.listener(outcome)
	}
}

func (m *Mediator) upload(ph Placeholder, asset Asset) Outcome {
	outcome := Outcome{Placeholder: ph}
	logger := logging.WithFields(m.logger, map[string]any{"token": ph.Token, "name": ph.Name})

	prepared := imageopt.Original(ph.Name, asset.ContentType, asset.Data)
	if m.transform != nil {
		result, err := m.transform.Optimize(ph.Name, asset.ContentType, asset.Data)
		switch {
		case err == nil:
			prepared = result
		case errors.Is(err, imageopt.ErrNotImage):
		default:
			logger.Debug("upload.transform.skipped", "error", err)
		}
		if len(prepared.Data) == 0 {
			prepared = imageopt.Original(ph.Name, asset.ContentType, asset.Data)
		}
	}
	outcome.Optimized = prepared.Optimized
	outcome.ObjectPath = m.objectPath(prepared.Ext)

	url, err := bounded.Run(m.baseCtx, m.timeout, "upload "+ph.Name, func(ctx context.Context) (string, error) {
		return m.storage.Upload(ctx, m.bucket, outcome.ObjectPath, prepared.Data, prepared.ContentType)
	})
	if err == nil && strings.TrimSpace(url) == "" {
		err = errors.New("storage returned no reference")
	}
	if err != nil {
		outcome.Err = domain.UploadError(ph.Name, err)
		logger.Warn("upload.failed", "error", err, "timeout", errors.Is(err, domain.ErrTimeout))
		return outcome
	}
	outcome.URL = url
	logger.Info("upload.completed", "path", outcome.ObjectPath, "optimized", outcome.Optimized)
	return outcome
}

func (m *Mediator) objectPath(ext string) string {
	now := m.now().UTC()
	return path.Join(m.prefix, now.Format("2006"), now.Format("01"), uuid.NewString()+ext)
}

// Substitute swaps the placeholder reference ref for url in markup. It reports
// false, leaving markup untouched, when the reference is no longer present.
func Substitute(markup, ref, url string) (string, bool) {
	if ref == "" || !strings.Contains(markup, ref) {
		return markup, false
	}
	return strings.ReplaceAll(markup, ref, html.EscapeString(url)), true
}

func clampCursor(body string, cursor int) int {
	if cursor < 0 || cursor > len(body) {
		return len(body)
	}
	for cursor > 0 && cursor < len(body) && !utf8.RuneStart(body[cursor]) {
		cursor--
	}
	return cursor
}
