package storage

import "sync"

// Memory is a KV kept in process memory. It backs tests and the "memory" driver.
type Memory struct {
	mu     sync.Mutex
	values map[string]string
	closed bool
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", false, ErrClosed
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Set(key, value string) error {
	return m.Apply(Set(key, value))
}

func (m *Memory) Delete(key string) error {
	return m.Apply(Delete(key))
}

func (m *Memory) Apply(writes ...Write) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	for _, w := range writes {
		if w.Delete {
			delete(m.values, w.Key)
			continue
		}
		m.values[w.Key] = w.Value
	}
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
