package storage

import (
	"context"
	"sync"
)

// MockFileStorage is an in-memory implementation of FileStorage for testing.
// It counts calls per operation and can be told to fail the next calls.
type MockFileStorage struct {
	mu    sync.RWMutex
	files map[string][]byte
	calls map[string]int

	retrieveErr error
	storeErr    error
}

// NewMockFileStorage creates a new MockFileStorage instance
func NewMockFileStorage() *MockFileStorage {
	return &MockFileStorage{
		files: make(map[string][]byte),
		calls: make(map[string]int),
	}
}

// Store implements FileStorage.Store
func (m *MockFileStorage) Store(ctx context.Context, key string, data []byte, opts *StoreOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["Store"]++

	if key == "" {
		return NewStorageError("Store", key, ErrInvalidKey, false)
	}
	if m.storeErr != nil {
		return NewStorageError("Store", key, m.storeErr, false)
	}

	// Check if file exists and overwrite is not allowed
	if opts != nil && !opts.Overwrite {
		if _, exists := m.files[key]; exists {
			return NewStorageError("Store", key, ErrFileAlreadyExists, false)
		}
	}

	m.files[key] = append([]byte(nil), data...)
	return nil
}

// Retrieve implements FileStorage.Retrieve
func (m *MockFileStorage) Retrieve(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["Retrieve"]++

	if key == "" {
		return nil, NewStorageError("Retrieve", key, ErrInvalidKey, false)
	}
	if m.retrieveErr != nil {
		return nil, NewStorageError("Retrieve", key, m.retrieveErr, false)
	}

	data, exists := m.files[key]
	if !exists {
		return nil, NewStorageError("Retrieve", key, ErrFileNotFound, false)
	}

	// Return a copy of the data
	return append([]byte(nil), data...), nil
}

// Exists implements FileStorage.Exists
func (m *MockFileStorage) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["Exists"]++

	if key == "" {
		return false, NewStorageError("Exists", key, ErrInvalidKey, false)
	}

	_, exists := m.files[key]
	return exists, nil
}

// Close implements FileStorage.Close
func (m *MockFileStorage) Close() error {
	m.Reset()
	return nil
}

// Additional methods for testing

// Put seeds an object without counting it as a Store call
func (m *MockFileStorage) Put(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[key] = append([]byte(nil), data...)
}

// Get returns the raw object without counting it as a Retrieve call
func (m *MockFileStorage) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[key]
	return append([]byte(nil), data...), ok
}

// FailRetrieve makes every later Retrieve fail with err; nil clears it
func (m *MockFileStorage) FailRetrieve(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retrieveErr = err
}

// FailStore makes every later Store fail with err; nil clears it
func (m *MockFileStorage) FailStore(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.storeErr = err
}

// Calls returns how many times op was invoked
func (m *MockFileStorage) Calls(op string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[op]
}

// Reset clears all stored files, counters and injected failures
func (m *MockFileStorage) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files = make(map[string][]byte)
	m.calls = make(map[string]int)
	m.retrieveErr = nil
	m.storeErr = nil
}

// FileCount returns the number of stored files
func (m *MockFileStorage) FileCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.files)
}

// HasFile checks if a file exists (without error handling)
func (m *MockFileStorage) HasFile(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.files[key]
	return exists
}
