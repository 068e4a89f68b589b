package domain

import "time"

// EmailFrequency controls how often a user receives excerpt emails.
type EmailFrequency string

const (
	FrequencyDaily  EmailFrequency = "daily"
	FrequencyWeekly EmailFrequency = "weekly"
	FrequencyNever  EmailFrequency = "never"
)

// Default notification preferences used when a user has never saved settings.
const (
	DefaultEmailTime = "08:00"
	DefaultEmailDay  = 1 // Monday
)

// User is a registered account. The ID is the signup email address and also
// serves as the notification recipient; there is no separate verified email
// field.
type User struct {
	ID           string    `json:"userId"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Book is one reading-log entry, scoped to a single owner. The (OwnerID, ID)
// pair is the record's composite key and stays stable for the book's lifetime.
type Book struct {
	OwnerID    string    `json:"ownerId"`
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Author     string    `json:"author"`
	CoverImage string    `json:"coverImage,omitempty"`
	DateRead   string    `json:"dateRead"` // free-form year or RFC3339 timestamp
	Notes      string    `json:"notes"`
	ExternalID string    `json:"externalId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Settings holds a user's notification preferences. One record per user,
// replaced wholesale on every save.
type Settings struct {
	OwnerID        string         `json:"-"`
	EmailFrequency EmailFrequency `json:"emailFrequency"`
	EmailTime      string         `json:"emailTime"` // "HH:MM", 24-hour
	EmailDay       int            `json:"emailDay"`  // 0 (Sunday) - 6 (Saturday)
	AvatarIndex    int            `json:"avatarIndex"`
}

// DefaultSettings returns the preferences assumed for users who never saved
// any: daily at 08:00, Monday for weekly, first avatar.
func DefaultSettings(ownerID string) Settings {
	return Settings{
		OwnerID:        ownerID,
		EmailFrequency: FrequencyDaily,
		EmailTime:      DefaultEmailTime,
		EmailDay:       DefaultEmailDay,
		AvatarIndex:    0,
	}
}

// ChatTurn is one prior exchange in a book conversation, in the generative
// provider's wire shape. History lives on the client and is sent in full with
// every chat request; the server keeps no transcript.
type ChatTurn struct {
	Role  string     `json:"role"` // "user" or "model"
	Parts []ChatPart `json:"parts"`
}

type ChatPart struct {
	Text string `json:"text"`
}
