// ABOUTME: Tests for the Charm KV vector index using an in-memory store
// ABOUTME: Mirrors the SQLite backend behavior: overwrite, filter, top-K, teardown
package charmkv

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harper/vidchat/internal/charm"
	"github.com/harper/vidchat/internal/logger"
	"github.com/harper/vidchat/internal/storage"
)

type memStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	closed  bool
	deletes [][]string
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}}
}

func (m *memStore) SetJSON(key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = b
	return nil
}

func (m *memStore) SetMany(values map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range values {
		m.data[k] = v
	}
	return nil
}

func (m *memStore) GetJSON(key string, dest any) error {
	m.mu.Lock()
	b, ok := m.data[key]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", charm.ErrKeyNotFound, key)
	}
	return json.Unmarshal(b, dest)
}

func (m *memStore) DeleteMany(keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, keys)
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memStore) ListKeys(prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *memStore) Close() error {
	m.closed = true
	return nil
}

func newIndex(t *testing.T, store *memStore) *Index {
	t.Helper()
	idx := New(store, "videos", logger.Nop())
	require.NoError(t, idx.CreateIndex(context.Background(), storage.Spec{Name: "videos", Dimension: 2}))
	return idx
}

func TestCreateAndExists(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	idx := New(store, "videos", logger.Nop())

	exists, err := idx.IndexExists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	created, err := storage.EnsureCreated(ctx, idx, storage.Spec{Name: "videos", Dimension: 2})
	require.NoError(t, err)
	assert.True(t, created)

	err = idx.CreateIndex(ctx, storage.Spec{Name: "videos", Dimension: 2})
	assert.ErrorIs(t, err, storage.ErrIndexExists)

	// A longer name sharing the prefix is a different index
	other := New(store, "videos2", logger.Nop())
	exists, err = other.IndexExists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUpsertAndQuery(t *testing.T) {
	ctx := context.Background()
	idx := newIndex(t, newMemStore())

	require.NoError(t, idx.Upsert(ctx, []storage.Entry{
		{ID: "abc-0", Vector: []float32{1, 0}, Metadata: map[string]string{"text": "first", "video_id": "abc"}},
		{ID: "abc-1", Vector: []float32{0, 1}, Metadata: map[string]string{"text": "second", "video_id": "abc"}},
		{ID: "xyz-0", Vector: []float32{1, 0}, Metadata: map[string]string{"text": "other", "video_id": "xyz"}},
	}))
	// Overwrite abc-1 so it now points the same way as the query
	require.NoError(t, idx.Upsert(ctx, []storage.Entry{
		{ID: "abc-1", Vector: []float32{1, 0.1}, Metadata: map[string]string{"text": "second v2", "video_id": "abc"}},
	}))

	matches, err := idx.Query(ctx, storage.Query{
		Vector:          []float32{1, 0},
		TopK:            5,
		Filter:          map[string]string{storage.MetaVideoID: "abc"},
		IncludeMetadata: true,
	})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "abc-0", matches[0].ID)
	assert.Equal(t, "second v2", matches[1].Text())
}

func TestDimensionAndMissingIndex(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()

	missing := New(store, "nope", logger.Nop())
	_, err := missing.Query(ctx, storage.Query{Vector: []float32{1, 0}, TopK: 1})
	assert.ErrorIs(t, err, storage.ErrIndexNotFound)

	idx := newIndex(t, store)
	err = idx.Upsert(ctx, []storage.Entry{{ID: "a", Vector: []float32{1, 2, 3}}})
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
}

func TestDeleteIndex(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	idx := newIndex(t, store)
	require.NoError(t, idx.Upsert(ctx, []storage.Entry{
		{ID: "a", Vector: []float32{1, 0}},
		{ID: "b", Vector: []float32{0, 1}},
	}))

	require.NoError(t, idx.DeleteIndex(ctx))
	assert.Empty(t, store.data)

	// one batch, so the charm client syncs once; the spec key goes last
	require.Len(t, store.deletes, 1)
	batch := store.deletes[0]
	assert.Len(t, batch, 3)
	assert.Equal(t, charm.IndexKey("videos"), batch[len(batch)-1])
	assert.ErrorIs(t, idx.DeleteIndex(ctx), storage.ErrIndexNotFound)

	require.NoError(t, idx.Close())
	assert.True(t, store.closed)
}
