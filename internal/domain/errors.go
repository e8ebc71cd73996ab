package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated возвращается, если запрос пришёл без валидных учётных данных.
	ErrUnauthenticated = errors.New("authentication credentials were not provided")
	// ErrForbidden возвращается, если у вызывающего нет прав на операцию.
	ErrForbidden = errors.New("you do not have permission to perform this action")

	// ErrNotFound — базовая ошибка для отсутствующих сущностей.
	ErrNotFound = errors.New("not found")
	// ErrMenuItemNotFound возвращается, если позиция меню не найдена.
	ErrMenuItemNotFound = fmt.Errorf("menu item %w", ErrNotFound)
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = fmt.Errorf("order %w", ErrNotFound)
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)

	// ErrValidation — базовая ошибка для некорректного ввода.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidStatus — статус заказа вне допустимого набора {0, 1}.
	ErrInvalidStatus error = &ValidationError{Field: "status", Message: "status must be 0 or 1"}
	// ErrNotDeliveryCrew — назначаемый пользователь не состоит в группе доставки.
	ErrNotDeliveryCrew error = &ValidationError{Field: "delivery_crew", Message: "user is not a delivery crew member"}
	// ErrEmptyCart возвращается при попытке оформить заказ из пустой корзины.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrConflict — базовая ошибка конкурентного изменения.
	ErrConflict = errors.New("conflict")
	// ErrOrderVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrOrderVersionConflict = fmt.Errorf("order version %w", ErrConflict)
	// ErrUserEmailTaken — email уже занят другим пользователем.
	ErrUserEmailTaken = fmt.Errorf("user email %w", ErrConflict)

	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// ValidationError описывает ошибку валидации конкретного поля.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Unwrap позволяет классифицировать ошибку через errors.Is(err, ErrValidation).
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError создаёт ошибку валидации поля.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsNotFound проверяет, что сущность не найдена.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation проверяет, что ошибка относится к некорректному вводу.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsConflict проверяет любой конфликт конкурентного изменения.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrOrderVersionConflict)
}
