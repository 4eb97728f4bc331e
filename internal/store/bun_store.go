package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-repository-cache/repositorycache"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// BunStore is a StoreClient over the documents table.
type BunStore struct {
	repo repository.Repository[*Document]
	// base answers List. Its collection filter is a query closure the cache
	// key serializer cannot see, so listing never goes through the cache.
	base repository.Repository[*Document]
	now  func() time.Time
}

// NewBunStore creates a store without caching.
func NewBunStore(db *bun.DB) *BunStore {
	return NewBunStoreWithCache(db, nil, nil)
}

// NewBunStoreWithCache creates a store whose reads go through the repository cache.
func NewBunStoreWithCache(db *bun.DB, cacheService cache.CacheService, serializer cache.KeySerializer) *BunStore {
	base := NewDocumentRepository(db)
	repo := base
	if cacheService != nil && serializer != nil {
		repo = repositorycache.New(base, cacheService, serializer)
	}
	return &BunStore{repo: repo, base: base, now: time.Now}
}

// WithClock overrides the clock used for created_at stamps.
func (s *BunStore) WithClock(clock func() time.Time) *BunStore {
	if clock != nil {
		s.now = clock
	}
	return s
}

func (s *BunStore) Create(ctx context.Context, table string, payload map[string]any) (map[string]any, error) {
	name, err := collection(table)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	doc := &Document{
		ID:         uuid.New(),
		Collection: name,
		Status:     "draft",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := doc.apply(payload); err != nil {
		return nil, storeError(CodeInvalidPayload, err.Error(), err)
	}

	record, err := s.repo.Create(ctx, doc)
	if err != nil {
		return nil, mapRepositoryError(err, name, doc.ID.String())
	}
	return record.Record(), nil
}

func (s *BunStore) Update(ctx context.Context, table, id string, payload map[string]any) (map[string]any, error) {
	name, err := collection(table)
	if err != nil {
		return nil, err
	}
	doc, err := s.load(ctx, name, id)
	if err != nil {
		return nil, err
	}
	doc = cloneDocument(doc)
	if err := doc.apply(payload); err != nil {
		return nil, storeError(CodeInvalidPayload, err.Error(), err)
	}
	if _, ok := payload["updated_at"]; !ok {
		doc.UpdatedAt = s.now().UTC()
	}

	record, err := s.repo.Update(ctx, doc)
	if err != nil {
		return nil, mapRepositoryError(err, name, id)
	}
	return record.Record(), nil
}

func (s *BunStore) Get(ctx context.Context, table, id string) (map[string]any, error) {
	name, err := collection(table)
	if err != nil {
		return nil, err
	}
	doc, err := s.load(ctx, name, id)
	if err != nil {
		return nil, err
	}
	return doc.Record(), nil
}

// List returns the documents of a collection, newest first.
func (s *BunStore) List(ctx context.Context, table string) ([]map[string]any, error) {
	name, err := collection(table)
	if err != nil {
		return nil, err
	}
	records, _, err := s.base.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.collection = ?", name).OrderExpr("?TableAlias.updated_at DESC")
		}),
	)
	if err != nil {
		return nil, mapRepositoryError(err, name, "")
	}
	out := make([]map[string]any, 0, len(records))
	for _, record := range records {
		out = append(out, record.Record())
	}
	return out, nil
}

func (s *BunStore) load(ctx context.Context, table, id string) (*Document, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, storeError(CodeInvalidID, fmt.Sprintf("invalid %s id %q", singular(table), id), err)
	}
	doc, err := s.repo.GetByID(ctx, parsed.String())
	if err != nil {
		return nil, mapRepositoryError(err, table, id)
	}
	if doc.Collection != table {
		return nil, notFound(table, id)
	}
	return doc, nil
}
