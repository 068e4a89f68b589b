package store

import (
	"strings"
	"testing"
	"time"

	"livingbookshelf/pkg/domain"
)

func TestMemoryStoreUsers(t *testing.T) {
	m := NewMemoryStore()

	if _, ok, err := m.GetUser("a@example.com"); err != nil || ok {
		t.Fatalf("expected missing user, ok=%v err=%v", ok, err)
	}
	users := []string{"a@example.com", "b@example.com", "c@example.com"}
	for _, id := range users {
		if err := m.SaveUser(domain.User{ID: id}); err != nil {
			t.Fatalf("save user: %v", err)
		}
	}
	// resaving must not duplicate the listing
	if err := m.SaveUser(domain.User{ID: "b@example.com", PasswordHash: "x"}); err != nil {
		t.Fatalf("resave user: %v", err)
	}
	listed, err := m.ListUsers()
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(listed) != len(users) {
		t.Fatalf("expected %d users, got %d", len(users), len(listed))
	}
	for i, id := range users {
		if listed[i].ID != id {
			t.Fatalf("expected signup order, got %q at %d", listed[i].ID, i)
		}
	}
	u, ok, err := m.GetUser("b@example.com")
	if err != nil || !ok {
		t.Fatalf("get user: ok=%v err=%v", ok, err)
	}
	if u.PasswordHash != "x" {
		t.Fatalf("expected resave to replace record")
	}
}

func TestMemoryStoreBooksScopedByOwner(t *testing.T) {
	m := NewMemoryStore()
	now := time.Now()
	mine := domain.Book{OwnerID: "a@example.com", ID: NewBookID(now), Title: "Dune", Author: "Frank Herbert"}
	theirs := domain.Book{OwnerID: "b@example.com", ID: mine.ID, Title: "Emma", Author: "Jane Austen"}
	if err := m.SaveBook(mine); err != nil {
		t.Fatalf("save book: %v", err)
	}
	if err := m.SaveBook(theirs); err != nil {
		t.Fatalf("save book: %v", err)
	}

	got, ok, err := m.GetBook("a@example.com", mine.ID)
	if err != nil || !ok {
		t.Fatalf("get book: ok=%v err=%v", ok, err)
	}
	if got.Title != "Dune" {
		t.Fatalf("expected owner-scoped lookup, got %q", got.Title)
	}

	list, err := m.ListBooksByOwner("a@example.com")
	if err != nil {
		t.Fatalf("list books: %v", err)
	}
	if len(list) != 1 || list[0].Title != "Dune" {
		t.Fatalf("expected only the owner's book, got %+v", list)
	}

	if err := m.DeleteBook("a@example.com", mine.ID); err != nil {
		t.Fatalf("delete book: %v", err)
	}
	if _, ok, _ := m.GetBook("a@example.com", mine.ID); ok {
		t.Fatalf("expected book to be gone")
	}
	// the other owner's identically-keyed book survives
	if _, ok, _ := m.GetBook("b@example.com", theirs.ID); !ok {
		t.Fatalf("expected other owner's book to remain")
	}
	// deleting again is not an error
	if err := m.DeleteBook("a@example.com", mine.ID); err != nil {
		t.Fatalf("repeat delete: %v", err)
	}
}

func TestMemoryStoreSettings(t *testing.T) {
	m := NewMemoryStore()
	if _, ok, err := m.GetSettings("a@example.com"); err != nil || ok {
		t.Fatalf("expected no settings, ok=%v err=%v", ok, err)
	}
	s := domain.DefaultSettings("a@example.com")
	s.EmailFrequency = domain.FrequencyWeekly
	if err := m.SaveSettings(s); err != nil {
		t.Fatalf("save settings: %v", err)
	}
	got, ok, err := m.GetSettings("a@example.com")
	if err != nil || !ok {
		t.Fatalf("get settings: ok=%v err=%v", ok, err)
	}
	if got.EmailFrequency != domain.FrequencyWeekly {
		t.Fatalf("expected saved frequency, got %q", got.EmailFrequency)
	}
}

func TestNewBookID(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	id := NewBookID(at)
	if id != "BOOK#1700000000123" {
		t.Fatalf("unexpected book id %q", id)
	}
	if !strings.HasPrefix(id, "BOOK#") {
		t.Fatalf("expected BOOK# prefix, got %q", id)
	}
}
