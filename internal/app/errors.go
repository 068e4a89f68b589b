package app

import "errors"

// Messages below are returned verbatim to API clients.
var (
	ErrEmailAndPasswordRequired = errors.New("Email and password are required")
	ErrUserAlreadyExists        = errors.New("User already exists")

	// ErrInvalidCredentials deliberately does not reveal whether the email
	// or the password was wrong.
	ErrInvalidCredentials = errors.New("Invalid credentials")

	ErrTitleAndAuthorRequired = errors.New("Title and Author are required")
	ErrBookNotFound           = errors.New("Book not found")

	ErrChatFieldsRequired = errors.New("Missing required fields: title, author, userMessage")
)
