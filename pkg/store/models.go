package store

import "time"

// GORM models used for persistence.
type UserModel struct {
	ID           string    `gorm:"primaryKey"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

type BookModel struct {
	OwnerID    string    `gorm:"primaryKey"`
	ID         string    `gorm:"primaryKey"`
	Title      string    `gorm:"not null"`
	Author     string    `gorm:"not null"`
	CoverImage string
	DateRead   string
	Notes      string
	ExternalID string
	CreatedAt  time.Time `gorm:"not null;index"`
}

type SettingsModel struct {
	OwnerID        string `gorm:"primaryKey"`
	EmailFrequency string `gorm:"not null"`
	EmailTime      string `gorm:"not null"`
	EmailDay       int    `gorm:"not null"`
	AvatarIndex    int    `gorm:"not null"`
}
