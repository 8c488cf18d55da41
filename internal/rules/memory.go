package rules

import (
	"context"
	"sync"
)

// MemoryStore keeps rules in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	rules []LearnedRule
}

func NewMemoryStore(initial ...LearnedRule) *MemoryStore {
	return &MemoryStore{rules: Cap(append([]LearnedRule(nil), initial...))}
}

func (s *MemoryStore) Load(_ context.Context) ([]LearnedRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]LearnedRule(nil), s.rules...), nil
}

func (s *MemoryStore) Append(_ context.Context, rule LearnedRule) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := append(append([]LearnedRule(nil), s.rules...), rule)
	s.rules = Cap(next)
	return len(s.rules), nil
}
