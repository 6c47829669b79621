package world

import (
	"sync"

	"github.com/mistvale/chunkserver/internal/model"
)

// ChunkRegistry holds the chunk descriptors replicated from the game
// server. In practice one entry: the chunk this instance owns.
type ChunkRegistry struct {
	mu     sync.RWMutex
	chunks map[int64]model.Chunk
}

// NewChunkRegistry creates an empty registry.
func NewChunkRegistry() *ChunkRegistry {
	return &ChunkRegistry{chunks: make(map[int64]model.Chunk, 4)}
}

// Put inserts or updates a chunk descriptor.
func (r *ChunkRegistry) Put(c model.Chunk) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks[c.ID] = c
}

// Get returns the chunk for the given id.
func (r *ChunkRegistry) Get(id int64) (model.Chunk, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.chunks[id]
	return c, ok
}

// All returns every known chunk descriptor.
func (r *ChunkRegistry) All() []model.Chunk {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Chunk, 0, len(r.chunks))
	for _, c := range r.chunks {
		out = append(out, c)
	}
	return out
}
