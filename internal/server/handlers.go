package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"livingbookshelf/internal/app"
	"livingbookshelf/pkg/domain"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(s.signupLimiter, r) {
		writeError(w, http.StatusTooManyRequests, "too many requests")
		return
	}
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	token, userID, err := s.app.SignUp(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, app.ErrEmailAndPasswordRequired) || errors.Is(err, app.ErrUserAlreadyExists) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("signup failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Server error during signup")
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{Token: token, UserID: userID})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(s.loginLimiter, r) {
		writeError(w, http.StatusTooManyRequests, "too many requests")
		return
	}
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	token, userID, err := s.app.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, app.ErrEmailAndPasswordRequired) || errors.Is(err, app.ErrInvalidCredentials) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("login failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Server error during login")
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: token, UserID: userID})
}

func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodGet:
		books, err := s.app.ListBooks(user)
		if err != nil {
			slog.Error("list books failed", "user", user.ID, "err", err)
			writeError(w, http.StatusInternalServerError, "Could not fetch books")
			return
		}
		if books == nil {
			books = []domain.Book{}
		}
		writeJSON(w, http.StatusOK, books)
	case http.MethodPost:
		var req app.AddBookRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		book, err := s.app.AddBook(user, req)
		if err != nil {
			if errors.Is(err, app.ErrTitleAndAuthorRequired) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			slog.Error("add book failed", "user", user.ID, "err", err)
			writeError(w, http.StatusInternalServerError, "Could not add book")
			return
		}
		writeJSON(w, http.StatusCreated, book)
	default:
		methodNotAllowed(w)
	}
}

type updateBookRequest struct {
	Notes    *string `json:"notes"`
	DateRead *string `json:"dateRead"`
}

func (s *Server) handleBookByID(w http.ResponseWriter, r *http.Request, user domain.User) {
	bookID := strings.TrimPrefix(r.URL.Path, "/api/books/")
	if bookID == "" || strings.Contains(bookID, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		book, err := s.app.GetBook(user, bookID)
		if err != nil {
			if errors.Is(err, app.ErrBookNotFound) {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			slog.Error("fetch book failed", "user", user.ID, "book", bookID, "err", err)
			writeError(w, http.StatusInternalServerError, "Could not fetch book")
			return
		}
		writeJSON(w, http.StatusOK, book)
	case http.MethodPut:
		var req updateBookRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		book, err := s.app.UpdateBook(user, bookID, req.Notes, req.DateRead)
		if err != nil {
			if errors.Is(err, app.ErrBookNotFound) {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			slog.Error("update book failed", "user", user.ID, "book", bookID, "err", err)
			writeError(w, http.StatusInternalServerError, "Could not update book")
			return
		}
		writeJSON(w, http.StatusOK, book)
	case http.MethodDelete:
		if err := s.app.DeleteBook(user, bookID); err != nil {
			slog.Error("delete book failed", "user", user.ID, "book", bookID, "err", err)
			writeError(w, http.StatusInternalServerError, "Could not delete book")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Book deleted successfully"})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleExcerpt(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	bookID := strings.TrimPrefix(r.URL.Path, "/api/excerpt/")
	if bookID == "" || strings.Contains(bookID, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	excerpt, err := s.app.Excerpt(r.Context(), user, bookID)
	if err != nil {
		if errors.Is(err, app.ErrBookNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		slog.Error("excerpt failed", "user", user.ID, "book", bookID, "err", err)
		writeError(w, http.StatusInternalServerError, "Could not generate excerpt")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"excerpt": excerpt})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req app.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	reply, usedMessage, err := s.app.Chat(r.Context(), req)
	if err != nil {
		if errors.Is(err, app.ErrChatFieldsRequired) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("chat failed", "user", user.ID, "title", req.Title, "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to process chat message")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"reply":       reply,
		"userMessage": usedMessage,
	})
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodGet:
		settings, err := s.app.GetSettings(user)
		if err != nil {
			slog.Error("fetch settings failed", "user", user.ID, "err", err)
			writeError(w, http.StatusInternalServerError, "Could not fetch settings")
			return
		}
		writeJSON(w, http.StatusOK, settings)
	case http.MethodPost:
		var settings domain.Settings
		if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if msg, ok := validateSettings(settings); !ok {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
		saved, err := s.app.SaveSettings(user, settings)
		if err != nil {
			slog.Error("save settings failed", "user", user.ID, "err", err)
			writeError(w, http.StatusInternalServerError, "Could not save settings")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":  true,
			"settings": saved,
		})
	default:
		methodNotAllowed(w)
	}
}

func validateSettings(settings domain.Settings) (string, bool) {
	switch settings.EmailFrequency {
	case domain.FrequencyDaily, domain.FrequencyWeekly, domain.FrequencyNever:
	default:
		return "Invalid email frequency", false
	}
	if settings.EmailDay < 0 || settings.EmailDay > 6 {
		return "Invalid email day", false
	}
	if settings.AvatarIndex < 0 || settings.AvatarIndex > 99 {
		return "Invalid avatar index", false
	}
	return "", true
}

func (s *Server) handleTriggerEmail(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if err := s.app.NotifyUser(r.Context(), user.ID); err != nil {
		slog.Error("trigger email failed", "user", user.ID, "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to trigger email")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Email process triggered. Check server logs/email."})
}
