package cache

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/sells-group/cellar-cli/internal/model"
)

// DefaultShards is the shard count when none is given.
const DefaultShards = 16

type shard struct {
	mu sync.RWMutex
	m  map[string]model.CascadeResult
}

// Memory is a process-local cache split into independently locked shards.
type Memory struct {
	shards []*shard
}

// NewMemory creates a Memory cache with n shards (DefaultShards if n <= 0).
func NewMemory(n int) *Memory {
	if n <= 0 {
		n = DefaultShards
	}
	m := &Memory{shards: make([]*shard, n)}
	for i := range m.shards {
		m.shards[i] = &shard{m: make(map[string]model.CascadeResult)}
	}
	return m
}

func (m *Memory) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return m.shards[h.Sum32()%uint32(len(m.shards))]
}

// Get implements Cache. It never returns an error.
func (m *Memory) Get(_ context.Context, key string) (model.CascadeResult, bool, error) {
	s := m.shardFor(key)
	s.mu.RLock()
	r, ok := s.m[key]
	s.mu.RUnlock()
	return r, ok, nil
}

// Put implements Cache. It never returns an error.
func (m *Memory) Put(_ context.Context, key string, r model.CascadeResult) error {
	s := m.shardFor(key)
	s.mu.Lock()
	s.m[key] = r
	s.mu.Unlock()
	return nil
}

// Len returns the number of cached results.
func (m *Memory) Len() int {
	n := 0
	for _, s := range m.shards {
		s.mu.RLock()
		n += len(s.m)
		s.mu.RUnlock()
	}
	return n
}
