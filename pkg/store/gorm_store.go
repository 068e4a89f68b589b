package store

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"livingbookshelf/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&UserModel{}, &BookModel{}, &SettingsModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// SaveUser registers or updates a user profile.
func (s *GormStore) SaveUser(u domain.User) error {
	model := userToModel(u)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"password_hash"}),
	}).Create(&model).Error
}

// GetUser returns a user by ID.
func (s *GormStore) GetUser(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// ListUsers returns all user profiles ordered by created_at.
func (s *GormStore) ListUsers() ([]domain.User, error) {
	var models []UserModel
	if err := s.db.Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.User, 0, len(models))
	for _, m := range models {
		res = append(res, userFromModel(m))
	}
	return res, nil
}

// SaveBook stores or updates a book under its composite (owner, id) key.
func (s *GormStore) SaveBook(b domain.Book) error {
	model := bookToModel(b)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_id"}, {Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "author", "cover_image", "date_read", "notes", "external_id"}),
	}).Create(&model).Error
}

// GetBook retrieves a book scoped to its owner.
func (s *GormStore) GetBook(ownerID, bookID string) (domain.Book, bool, error) {
	var model BookModel
	if err := s.db.First(&model, "owner_id = ? AND id = ?", ownerID, bookID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Book{}, false, nil
		}
		return domain.Book{}, false, err
	}
	return bookFromModel(model), true, nil
}

// ListBooksByOwner returns one owner's books ordered by created_at.
func (s *GormStore) ListBooksByOwner(ownerID string) ([]domain.Book, error) {
	var models []BookModel
	if err := s.db.Order("created_at ASC").Where("owner_id = ?", ownerID).Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Book, 0, len(models))
	for _, m := range models {
		res = append(res, bookFromModel(m))
	}
	return res, nil
}

// DeleteBook removes a book. Deleting a missing book is not an error.
func (s *GormStore) DeleteBook(ownerID, bookID string) error {
	return s.db.Delete(&BookModel{}, "owner_id = ? AND id = ?", ownerID, bookID).Error
}

// SaveSettings replaces the owner's settings record wholesale.
func (s *GormStore) SaveSettings(settings domain.Settings) error {
	model := settingsToModel(settings)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email_frequency", "email_time", "email_day", "avatar_index"}),
	}).Create(&model).Error
}

// GetSettings retrieves the owner's settings record.
func (s *GormStore) GetSettings(ownerID string) (domain.Settings, bool, error) {
	var model SettingsModel
	if err := s.db.First(&model, "owner_id = ?", ownerID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Settings{}, false, nil
		}
		return domain.Settings{}, false, err
	}
	return settingsFromModel(model), true, nil
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
	}
}

func bookToModel(b domain.Book) BookModel {
	return BookModel{
		OwnerID:    b.OwnerID,
		ID:         b.ID,
		Title:      b.Title,
		Author:     b.Author,
		CoverImage: b.CoverImage,
		DateRead:   b.DateRead,
		Notes:      b.Notes,
		ExternalID: b.ExternalID,
		CreatedAt:  b.CreatedAt,
	}
}

func bookFromModel(m BookModel) domain.Book {
	return domain.Book{
		OwnerID:    m.OwnerID,
		ID:         m.ID,
		Title:      m.Title,
		Author:     m.Author,
		CoverImage: m.CoverImage,
		DateRead:   m.DateRead,
		Notes:      m.Notes,
		ExternalID: m.ExternalID,
		CreatedAt:  m.CreatedAt,
	}
}

func settingsToModel(s domain.Settings) SettingsModel {
	return SettingsModel{
		OwnerID:        s.OwnerID,
		EmailFrequency: string(s.EmailFrequency),
		EmailTime:      s.EmailTime,
		EmailDay:       s.EmailDay,
		AvatarIndex:    s.AvatarIndex,
	}
}

func settingsFromModel(m SettingsModel) domain.Settings {
	return domain.Settings{
		OwnerID:        m.OwnerID,
		EmailFrequency: domain.EmailFrequency(m.EmailFrequency),
		EmailTime:      m.EmailTime,
		EmailDay:       m.EmailDay,
		AvatarIndex:    m.AvatarIndex,
	}
}
