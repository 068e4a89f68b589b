package store

import "livingbookshelf/pkg/domain"

// Store defines persistence operations for users, books, and settings.
// All writes are atomic per record; there are no cross-record transactions,
// and concurrent updates to the same record follow last-write-wins.
type Store interface {
	// users
	SaveUser(domain.User) error
	GetUser(id string) (domain.User, bool, error)
	// ListUsers enumerates every profile record. The scheduler depends on
	// this full scan; there is no index by notification time.
	ListUsers() ([]domain.User, error)

	// books, keyed by (owner, id)
	SaveBook(domain.Book) error
	GetBook(ownerID, bookID string) (domain.Book, bool, error)
	ListBooksByOwner(ownerID string) ([]domain.Book, error)
	DeleteBook(ownerID, bookID string) error

	// settings, singleton per owner; SaveSettings replaces the whole record
	SaveSettings(domain.Settings) error
	GetSettings(ownerID string) (domain.Settings, bool, error)
}

// SessionStore issues and validates bearer tokens.
type SessionStore interface {
	NewSession(userID string) (string, error)
	GetUserIDByToken(token string) (string, bool, error)
}
