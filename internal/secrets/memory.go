package secrets

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is a process-local Store for tests and tooling.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, name string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.values[name]
	return value, ok, nil
}

func (m *MemoryStore) Describe(ctx context.Context, name string) (Description, error) {
	value, ok, _ := m.Get(ctx, name)
	return Describe(value, ok), nil
}

func (m *MemoryStore) Set(ctx context.Context, name, value string) error {
	return m.Apply(ctx, []Op{SetOp(name, "", value)})
}

func (m *MemoryStore) Clear(ctx context.Context, name string) error {
	return m.Apply(ctx, []Op{{Name: name, Clear: true}})
}

func (m *MemoryStore) Apply(_ context.Context, ops []Op) error {
	for _, op := range ops {
		if err := ValidateName(op.Name); err != nil {
			return fmt.Errorf("%w: %q", err, op.Name)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, op := range ops {
		if op.Clear {
			delete(m.values, op.Name)
			continue
		}
		m.values[op.Name] = op.Value
	}
	return nil
}

func (m *MemoryStore) Names(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.values))
	for name := range m.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *MemoryStore) Close() error { return nil }
