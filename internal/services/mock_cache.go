package services

import (
	"context"
	"sync"
	"time"
)

// MockCache is a mock implementation of Cache for testing. Without overrides
// it behaves like a map without expiry.
type MockCache struct {
	PingFunc   func(ctx context.Context) error
	SetFunc    func(ctx context.Context, key string, value string, expiration time.Duration) error
	GetFunc    func(ctx context.Context, key string) (string, error)
	DelFunc    func(ctx context.Context, keys ...string) error
	ExistsFunc func(ctx context.Context, keys ...string) (bool, error)
	CloseFunc  func() error

	// Track calls for testing
	PingCalls   int
	SetCalls    []SetCall
	GetCalls    []string
	DelCalls    [][]string
	ExistsCalls [][]string
	CloseCalls  int

	data map[string]string
	mu   sync.Mutex
}

type SetCall struct {
	Key        string
	Value      string
	Expiration time.Duration
}

// NewMockCache creates a new mock cache
func NewMockCache() *MockCache {
	return &MockCache{
		SetCalls:    make([]SetCall, 0),
		GetCalls:    make([]string, 0),
		DelCalls:    make([][]string, 0),
		ExistsCalls: make([][]string, 0),
		data:        make(map[string]string),
	}
}

// Ping mocks cache ping
func (m *MockCache) Ping(ctx context.Context) error {
	m.mu.Lock()
	m.PingCalls++
	fn := m.PingFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}
	return nil
}

// Set mocks cache set
func (m *MockCache) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	m.mu.Lock()
	m.SetCalls = append(m.SetCalls, SetCall{
		Key:        key,
		Value:      value,
		Expiration: expiration,
	})
	fn := m.SetFunc
	if fn == nil {
		m.data[key] = value
	}
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, key, value, expiration)
	}
	return nil
}

// Get mocks cache get
func (m *MockCache) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	m.GetCalls = append(m.GetCalls, key)
	fn := m.GetFunc
	value := m.data[key]
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, key)
	}
	return value, nil
}

// Del mocks cache delete
func (m *MockCache) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	m.DelCalls = append(m.DelCalls, keys)
	fn := m.DelFunc
	if fn == nil {
		for _, k := range keys {
			delete(m.data, k)
		}
	}
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, keys...)
	}
	return nil
}

// Exists mocks cache exists check
func (m *MockCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	m.mu.Lock()
	m.ExistsCalls = append(m.ExistsCalls, keys)
	fn := m.ExistsFunc
	found := false
	for _, k := range keys {
		if _, ok := m.data[k]; ok {
			found = true
		}
	}
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, keys...)
	}
	return found, nil
}

// Close mocks cache close
func (m *MockCache) Close() error {
	m.mu.Lock()
	m.CloseCalls++
	fn := m.CloseFunc
	m.mu.Unlock()

	if fn != nil {
		return fn()
	}
	return nil
}

// Reset clears all call tracking and stored values
func (m *MockCache) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PingCalls = 0
	m.SetCalls = make([]SetCall, 0)
	m.GetCalls = make([]string, 0)
	m.DelCalls = make([][]string, 0)
	m.ExistsCalls = make([][]string, 0)
	m.CloseCalls = 0
	m.data = make(map[string]string)
}

// SetPingError sets up the mock to return an error on Ping
func (m *MockCache) SetPingError(err error) {
	m.PingFunc = func(ctx context.Context) error {
		return err
	}
}

// SetPingSuccess sets up the mock to return success on Ping
func (m *MockCache) SetPingSuccess() {
	m.PingFunc = func(ctx context.Context) error {
		return nil
	}
}

// Ensure MockCache implements Cache interface
var _ Cache = (*MockCache)(nil)
