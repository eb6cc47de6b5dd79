// Package attachments stores evidence blobs behind domain.AttachmentGateway.
package attachments

import (
	"context"
	"sync"
)

// MemoryGateway keeps blobs in process memory.
type MemoryGateway struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryGateway constructs an empty gateway.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{blobs: make(map[string][]byte)}
}

// Put stores a copy of data under id, replacing any previous blob.
func (g *MemoryGateway) Put(ctx context.Context, id string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.blobs[id] = append([]byte(nil), data...)
	return nil
}

// Get returns nil when id is unknown.
func (g *MemoryGateway) Get(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	data, ok := g.blobs[id]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), data...), nil
}

// Delete is a no-op for unknown ids.
func (g *MemoryGateway) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.blobs, id)
	return nil
}

// Len reports how many blobs are stored.
func (g *MemoryGateway) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.blobs)
}
