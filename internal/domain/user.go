package domain

import (
	"net/mail"
	"strings"
)

// User — учётная запись, созданная вне API.
type User struct {
	ID    int64
	Name  string
	Email string
}

// Validate проверяет обязательные поля пользователя.
func (u User) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return NewValidationError("name", "must not be empty")
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return NewValidationError("email", "must be a valid email address")
	}
	return nil
}
