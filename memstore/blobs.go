package memstore

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/docutag/curator/storage"
)

type blob struct {
	data     []byte
	metadata map[string]string
}

// Blobs is a blob store holding gzip-compressed content in memory.
type Blobs struct {
	mu    sync.RWMutex
	blobs map[string]blob
}

// NewBlobs creates an empty blob store.
func NewBlobs() *Blobs {
	return &Blobs{blobs: make(map[string]blob)}
}

// PutContent compresses and stores text under key.
func (b *Blobs) PutContent(_ context.Context, key, text string, metadata map[string]string) error {
	data, err := storage.Compress(text)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blobs[key] = blob{data: data, metadata: maps.Clone(metadata)}
	return nil
}

// GetContent returns the decompressed text under key.
func (b *Blobs) GetContent(_ context.Context, key string) (string, error) {
	b.mu.RLock()
	obj, ok := b.blobs[key]
	b.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", storage.ErrNotFound, key)
	}
	return storage.Decompress(obj.data)
}

// Metadata returns the metadata stored with key.
func (b *Blobs) Metadata(key string) (map[string]string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	obj, ok := b.blobs[key]
	return maps.Clone(obj.metadata), ok
}

// Len returns the number of stored blobs.
func (b *Blobs) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.blobs)
}
