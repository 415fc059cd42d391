package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jwebster45206/story-characters/pkg/actor"
	"github.com/jwebster45206/story-characters/pkg/state"
)

// MockStorage is a mock implementation of Storage for testing
type MockStorage struct {
	mu         sync.RWMutex
	characters map[uuid.UUID]*actor.Character
	instances  map[uuid.UUID]*actor.CharacterInstance
	pingError  error
	loadError  error
	saveError  error

	// call counters
	instanceLoads int
	stateLoads    int
	stateSaves    int
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		characters: make(map[uuid.UUID]*actor.Character),
		instances:  make(map[uuid.UUID]*actor.CharacterInstance),
	}
}

// SetPingSuccess configures the mock to succeed on ping
func (m *MockStorage) SetPingSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = nil
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetLoadError makes every Load call fail with err. Pass nil to reset.
func (m *MockStorage) SetLoadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadError = err
}

// SetSaveError makes every Save call fail with err. Pass nil to reset.
func (m *MockStorage) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

// InstanceLoads returns how many times LoadCharacterInstance was called
func (m *MockStorage) InstanceLoads() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.instanceLoads
}

// StateLoads returns how many times LoadStateUpdates was called
func (m *MockStorage) StateLoads() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stateLoads
}

// StateSaves returns how many times SaveStateUpdates was called
func (m *MockStorage) StateSaves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stateSaves
}

// Ping mocks storage ping
func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

// Close mocks storage close
func (m *MockStorage) Close() error {
	return nil
}

// SaveCharacter mocks saving a character template
func (m *MockStorage) SaveCharacter(ctx context.Context, c *actor.Character) error {
	if c == nil {
		return errors.New("character cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	m.characters[c.ID] = c
	return nil
}

// LoadCharacter mocks loading a character template
func (m *MockStorage) LoadCharacter(ctx context.Context, id uuid.UUID) (*actor.Character, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.loadError != nil {
		return nil, m.loadError
	}
	c, exists := m.characters[id]
	if !exists {
		return nil, nil // Return nil for not found
	}
	return c, nil
}

// DeleteCharacter mocks deleting a character template
func (m *MockStorage) DeleteCharacter(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.characters, id)
	return nil
}

// SaveCharacterInstance mocks saving a character instance. A copy is stored
// so callers cannot change stored state without saving again. An existing
// instance keeps its stored state updates.
func (m *MockStorage) SaveCharacterInstance(ctx context.Context, ci *actor.CharacterInstance) error {
	if ci == nil {
		return errors.New("character instance cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	stored := ci.Clone()
	if prev, exists := m.instances[ci.ID]; exists {
		stored.StateUpdates = prev.StateUpdates
	}
	m.instances[ci.ID] = stored
	return nil
}

// LoadCharacterInstance mocks loading a character instance
func (m *MockStorage) LoadCharacterInstance(ctx context.Context, id uuid.UUID) (*actor.CharacterInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.instanceLoads++
	if m.loadError != nil {
		return nil, m.loadError
	}
	ci, exists := m.instances[id]
	if !exists {
		return nil, nil
	}
	return ci.Clone(), nil
}

// DeleteCharacterInstance mocks deleting a character instance
func (m *MockStorage) DeleteCharacterInstance(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.instances, id)
	return nil
}

// LoadStateUpdates mocks loading an instance's state updates
func (m *MockStorage) LoadStateUpdates(ctx context.Context, instanceID uuid.UUID) (state.StateUpdateMap, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stateLoads++
	if m.loadError != nil {
		return nil, m.loadError
	}
	ci, exists := m.instances[instanceID]
	if !exists {
		return nil, nil
	}
	updates := make(state.StateUpdateMap, len(ci.StateUpdates))
	for k, v := range ci.StateUpdates {
		updates[k] = v
	}
	return updates, nil
}

// SaveStateUpdates mocks replacing an instance's state updates
func (m *MockStorage) SaveStateUpdates(ctx context.Context, instanceID uuid.UUID, updates state.StateUpdateMap) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stateSaves++
	if m.saveError != nil {
		return m.saveError
	}
	ci, exists := m.instances[instanceID]
	if !exists {
		return fmt.Errorf("character instance %s: %w", instanceID, ErrNotFound)
	}
	stored := make(state.StateUpdateMap, len(updates))
	for k, v := range updates {
		stored[k] = v
	}
	ci.StateUpdates = stored
	return nil
}
