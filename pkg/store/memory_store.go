package store

import (
	"sync"

	"livingbookshelf/pkg/domain"
)

// MemoryStore keeps all records in-process. It backs tests and local runs
// without Postgres.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]domain.User
	userIDs  []string
	books    map[string]domain.Book // key: owner + "\x00" + id
	bookKeys []string               // insertion order
	settings map[string]domain.Settings
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]domain.User),
		books:    make(map[string]domain.Book),
		settings: make(map[string]domain.Settings),
	}
}

func bookKey(ownerID, bookID string) string {
	return ownerID + "\x00" + bookID
}

// SaveUser registers or replaces a user profile.
func (m *MemoryStore) SaveUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[u.ID]; !exists {
		m.userIDs = append(m.userIDs, u.ID)
	}
	m.users[u.ID] = u
	return nil
}

// GetUser returns a user by ID.
func (m *MemoryStore) GetUser(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

// ListUsers returns all users in signup order.
func (m *MemoryStore) ListUsers() ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.User, 0, len(m.userIDs))
	for _, id := range m.userIDs {
		if u, ok := m.users[id]; ok {
			res = append(res, u)
		}
	}
	return res, nil
}

// SaveBook stores or replaces a book record and tracks insertion order.
func (m *MemoryStore) SaveBook(b domain.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := bookKey(b.OwnerID, b.ID)
	if _, exists := m.books[key]; !exists {
		m.bookKeys = append(m.bookKeys, key)
	}
	m.books[key] = b
	return nil
}

// GetBook retrieves a book scoped to its owner.
func (m *MemoryStore) GetBook(ownerID, bookID string) (domain.Book, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.books[bookKey(ownerID, bookID)]
	return b, ok, nil
}

// ListBooksByOwner returns one owner's books in insertion order.
func (m *MemoryStore) ListBooksByOwner(ownerID string) ([]domain.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Book, 0)
	for _, key := range m.bookKeys {
		if b, ok := m.books[key]; ok && b.OwnerID == ownerID {
			res = append(res, b)
		}
	}
	return res, nil
}

// DeleteBook removes a book record.
func (m *MemoryStore) DeleteBook(ownerID, bookID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := bookKey(ownerID, bookID)
	delete(m.books, key)
	filtered := m.bookKeys[:0]
	for _, item := range m.bookKeys {
		if item != key {
			filtered = append(filtered, item)
		}
	}
	m.bookKeys = filtered
	return nil
}

// SaveSettings replaces the owner's settings record wholesale.
func (m *MemoryStore) SaveSettings(s domain.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[s.OwnerID] = s
	return nil
}

// GetSettings retrieves the owner's settings record.
func (m *MemoryStore) GetSettings(ownerID string) (domain.Settings, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.settings[ownerID]
	return s, ok, nil
}
