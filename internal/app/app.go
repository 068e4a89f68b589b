package app

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"livingbookshelf/pkg/ai"
	"livingbookshelf/pkg/auth"
	"livingbookshelf/pkg/domain"
	"livingbookshelf/pkg/mail"
	"livingbookshelf/pkg/store"
)

// initPrompt replaces the user message when a chat is opened with isInit.
const initPrompt = "Hello! Please introduce yourself using your persona. be brief, and then suggest a conversation path by asking me a question about my experience reading you."

// Generator produces book excerpts and persona chat replies.
type Generator interface {
	GenerateExcerpt(ctx context.Context, title, author string) string
	ChatWithBook(ctx context.Context, title, author, message string, history []ai.Turn) (string, error)
}

// Config wires required dependencies for the core application.
type Config struct {
	Store     store.Store
	Sessions  store.SessionStore
	Generator Generator
	Mail      mail.Dispatcher
}

// App is the core application service wiring storage, auth, generation, and
// mail dispatch together.
type App struct {
	store     store.Store
	sessions  store.SessionStore
	generator Generator
	mail      mail.Dispatcher
}

// New constructs the application.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	if cfg.Generator == nil {
		return nil, fmt.Errorf("generator required")
	}
	if cfg.Mail == nil {
		return nil, fmt.Errorf("mail dispatcher required")
	}
	return &App{
		store:     cfg.Store,
		sessions:  cfg.Sessions,
		generator: cfg.Generator,
		mail:      cfg.Mail,
	}, nil
}

// SignUp registers a new user keyed by email and issues a session token.
func (a *App) SignUp(email, password string) (string, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return "", "", ErrEmailAndPasswordRequired
	}
	_, exists, err := a.store.GetUser(email)
	if err != nil {
		return "", "", fmt.Errorf("check user: %w", err)
	}
	if exists {
		return "", "", ErrUserAlreadyExists
	}
	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return "", "", fmt.Errorf("hash password: %w", err)
	}
	user := domain.User{
		ID:           email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := a.store.SaveUser(user); err != nil {
		return "", "", fmt.Errorf("save user: %w", err)
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return "", "", fmt.Errorf("issue token: %w", err)
	}
	return token, user.ID, nil
}

// Login validates credentials and issues a session token.
func (a *App) Login(email, password string) (string, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return "", "", ErrEmailAndPasswordRequired
	}
	user, ok, err := a.store.GetUser(email)
	if err != nil {
		return "", "", fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return "", "", ErrInvalidCredentials
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return "", "", ErrInvalidCredentials
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return "", "", fmt.Errorf("issue token: %w", err)
	}
	return token, user.ID, nil
}

// UserFromToken resolves a user from a bearer token.
func (a *App) UserFromToken(token string) (domain.User, bool) {
	uid, ok, err := a.sessions.GetUserIDByToken(token)
	if err != nil || !ok {
		return domain.User{}, false
	}
	user, found, err := a.store.GetUser(uid)
	if err != nil || !found {
		return domain.User{}, false
	}
	return user, true
}

// ListBooks returns all books owned by the user.
func (a *App) ListBooks(user domain.User) ([]domain.Book, error) {
	return a.store.ListBooksByOwner(user.ID)
}

// AddBookRequest carries the writable fields for book creation.
type AddBookRequest struct {
	Title      string `json:"title"`
	Author     string `json:"author"`
	CoverImage string `json:"coverImage"`
	DateRead   string `json:"dateRead"`
	Notes      string `json:"notes"`
	ExternalID string `json:"externalId"`
}

// AddBook creates a book with a time-derived ID. DateRead defaults to the
// creation timestamp when not supplied.
func (a *App) AddBook(user domain.User, req AddBookRequest) (domain.Book, error) {
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Author) == "" {
		return domain.Book{}, ErrTitleAndAuthorRequired
	}
	now := time.Now().UTC()
	dateRead := req.DateRead
	if dateRead == "" {
		dateRead = now.Format(time.RFC3339)
	}
	book := domain.Book{
		OwnerID:    user.ID,
		ID:         store.NewBookID(now),
		Title:      req.Title,
		Author:     req.Author,
		CoverImage: req.CoverImage,
		DateRead:   dateRead,
		Notes:      req.Notes,
		ExternalID: req.ExternalID,
		CreatedAt:  now,
	}
	if err := a.store.SaveBook(book); err != nil {
		return domain.Book{}, fmt.Errorf("save book: %w", err)
	}
	return book, nil
}

// GetBook retrieves one of the user's books.
func (a *App) GetBook(user domain.User, bookID string) (domain.Book, error) {
	book, ok, err := a.store.GetBook(user.ID, bookID)
	if err != nil {
		return domain.Book{}, fmt.Errorf("fetch book: %w", err)
	}
	if !ok {
		return domain.Book{}, ErrBookNotFound
	}
	return book, nil
}

// UpdateBook applies a partial update. Only notes and dateRead are mutable;
// a nil field is left unchanged.
func (a *App) UpdateBook(user domain.User, bookID string, notes, dateRead *string) (domain.Book, error) {
	book, err := a.GetBook(user, bookID)
	if err != nil {
		return domain.Book{}, err
	}
	if notes != nil {
		book.Notes = *notes
	}
	if dateRead != nil {
		book.DateRead = *dateRead
	}
	if err := a.store.SaveBook(book); err != nil {
		return domain.Book{}, fmt.Errorf("update book: %w", err)
	}
	return book, nil
}

// DeleteBook removes a book unconditionally. Deleting an unknown ID is not
// an error.
func (a *App) DeleteBook(user domain.User, bookID string) error {
	return a.store.DeleteBook(user.ID, bookID)
}

// GetSettings returns the user's stored settings, or the defaults when none
// were ever saved. Defaults are not persisted.
func (a *App) GetSettings(user domain.User) (domain.Settings, error) {
	settings, ok, err := a.store.GetSettings(user.ID)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("fetch settings: %w", err)
	}
	if !ok {
		return domain.DefaultSettings(user.ID), nil
	}
	return settings, nil
}

// SaveSettings replaces the user's settings record wholesale. There is no
// partial merge: what is sent is what is stored.
func (a *App) SaveSettings(user domain.User, settings domain.Settings) (domain.Settings, error) {
	settings.OwnerID = user.ID
	if err := a.store.SaveSettings(settings); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}
	return settings, nil
}

// Excerpt generates a fresh excerpt for one of the user's books.
func (a *App) Excerpt(ctx context.Context, user domain.User, bookID string) (string, error) {
	book, err := a.GetBook(user, bookID)
	if err != nil {
		return "", err
	}
	return a.generator.GenerateExcerpt(ctx, book.Title, book.Author), nil
}

// ChatRequest is one turn of a persona conversation. History arrives in full
// on every call; nothing is stored server-side.
type ChatRequest struct {
	Title       string            `json:"title"`
	Author      string            `json:"author"`
	UserMessage string            `json:"userMessage"`
	IsInit      bool              `json:"isInit"`
	History     []domain.ChatTurn `json:"history"`
}

// Chat produces the book's persona reply. It returns the message actually
// used so the client can append it to its transcript.
func (a *App) Chat(ctx context.Context, req ChatRequest) (string, string, error) {
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Author) == "" || (strings.TrimSpace(req.UserMessage) == "" && !req.IsInit) {
		return "", "", ErrChatFieldsRequired
	}
	message := req.UserMessage
	if req.IsInit {
		message = initPrompt
	}
	reply, err := a.generator.ChatWithBook(ctx, req.Title, req.Author, message, flattenHistory(req.History))
	if err != nil {
		return "", "", err
	}
	return reply, message, nil
}

// NotifyUser emails the user an excerpt from one uniformly random book. It
// is a no-op for users with an empty shelf. The scheduled path and the
// manual trigger both run through here so their behavior is identical.
func (a *App) NotifyUser(ctx context.Context, userID string) error {
	books, err := a.store.ListBooksByOwner(userID)
	if err != nil {
		return fmt.Errorf("list books: %w", err)
	}
	if len(books) == 0 {
		return nil
	}
	book := books[rand.IntN(len(books))]
	excerpt := a.generator.GenerateExcerpt(ctx, book.Title, book.Author)
	subject := fmt.Sprintf("Daily Excerpt: %s", book.Title)
	body := fmt.Sprintf("Here is your daily excerpt from %s by %s:\n\n%s", book.Title, book.Author, excerpt)
	if err := a.mail.Send(userID, subject, body); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

func flattenHistory(history []domain.ChatTurn) []ai.Turn {
	turns := make([]ai.Turn, 0, len(history))
	for _, h := range history {
		parts := make([]string, 0, len(h.Parts))
		for _, p := range h.Parts {
			if p.Text != "" {
				parts = append(parts, p.Text)
			}
		}
		turns = append(turns, ai.Turn{
			Role: h.Role,
			Text: strings.Join(parts, "\n"),
		})
	}
	return turns
}
