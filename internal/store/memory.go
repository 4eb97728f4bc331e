package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process StoreClient for tests and demos.
type MemoryStore struct {
	mu   sync.RWMutex
	byID map[string]*Document
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: map[string]*Document{}, now: time.Now}
}

// WithClock overrides the clock used for created_at stamps.
func (m *MemoryStore) WithClock(clock func() time.Time) *MemoryStore {
	if clock != nil {
		m.now = clock
	}
	return m
}

func (m *MemoryStore) Create(ctx context.Context, table string, payload map[string]any) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name, err := collection(table)
	if err != nil {
		return nil, err
	}
	now := m.now().UTC()
	doc := &Document{ID: uuid.New(), Collection: name, Status: "draft", CreatedAt: now, UpdatedAt: now}
	if err := doc.apply(payload); err != nil {
		return nil, storeError(CodeInvalidPayload, err.Error(), err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[doc.ID.String()] = cloneDocument(doc)
	return doc.Record(), nil
}

func (m *MemoryStore) Update(ctx context.Context, table, id string, payload map[string]any) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name, err := collection(table)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.byID[strings.TrimSpace(id)]
	if !ok || existing.Collection != name {
		return nil, notFound(name, id)
	}
	doc := cloneDocument(existing)
	if err := doc.apply(payload); err != nil {
		return nil, storeError(CodeInvalidPayload, err.Error(), err)
	}
	if _, ok := payload["updated_at"]; !ok {
		doc.UpdatedAt = m.now().UTC()
	}
	m.byID[doc.ID.String()] = doc
	return cloneDocument(doc).Record(), nil
}

func (m *MemoryStore) Get(ctx context.Context, table, id string) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name, err := collection(table)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.byID[strings.TrimSpace(id)]
	if !ok || doc.Collection != name {
		return nil, notFound(name, id)
	}
	return cloneDocument(doc).Record(), nil
}

// List returns the documents of a collection, newest first.
func (m *MemoryStore) List(ctx context.Context, table string) ([]map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name, err := collection(table)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	docs := make([]*Document, 0, len(m.byID))
	for _, doc := range m.byID {
		if doc.Collection == name {
			docs = append(docs, cloneDocument(doc))
		}
	}
	m.mu.RUnlock()

	sort.Slice(docs, func(i, j int) bool { return docs[i].UpdatedAt.After(docs[j].UpdatedAt) })
	out := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.Record())
	}
	return out, nil
}
