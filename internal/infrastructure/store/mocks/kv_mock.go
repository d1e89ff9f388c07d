package mocks

import (
	"context"
	"sync"
)

// MockKV is an in-memory store.KV with call recording and error injection.
type MockKV struct {
	mu     sync.RWMutex
	values map[string]string

	// For tracking calls in tests
	GetCalls    []string
	SetCalls    []SetCall
	DeleteCalls []string

	GetErr    error
	SetErr    error
	DeleteErr error
	Closed    bool
}

// SetCall records parameters passed to Set
type SetCall struct {
	Key   string
	Value string
}

// NewMockKV creates a new MockKV
func NewMockKV() *MockKV {
	return &MockKV{values: make(map[string]string)}
}

func (m *MockKV) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GetCalls = append(m.GetCalls, key)
	if m.GetErr != nil {
		return "", false, m.GetErr
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MockKV) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SetCalls = append(m.SetCalls, SetCall{Key: key, Value: value})
	if m.SetErr != nil {
		return m.SetErr
	}
	m.values[key] = value
	return nil
}

func (m *MockKV) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DeleteCalls = append(m.DeleteCalls, key)
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	delete(m.values, key)
	return nil
}

func (m *MockKV) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// Put seeds a value without recording a call.
func (m *MockKV) Put(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

// Value returns the stored value without recording a call.
func (m *MockKV) Value(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

// Reset clears all recorded calls and injected errors.
func (m *MockKV) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetCalls = nil
	m.SetCalls = nil
	m.DeleteCalls = nil
	m.GetErr = nil
	m.SetErr = nil
	m.DeleteErr = nil
}
