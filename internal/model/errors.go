package model

import (
	"errors"
	"fmt"
)

// Ошибки валидации. На границе HTTP все они превращаются в 400 Bad Request.
var (
	// ErrInvalidAmount: сумма не положительна или превышает допустимый максимум.
	ErrInvalidAmount = errors.New("invalid payment amount")
	// ErrInvalidDueDate: срок оплаты в прошлом или слишком далеко в будущем.
	ErrInvalidDueDate = errors.New("invalid payment due date")
	// ErrInvalidPageRequest: номер или размер страницы вне допустимых границ.
	ErrInvalidPageRequest = errors.New("invalid page request")
	// ErrInvalidDateFormat: дата пуста или не в формате YYYY-MM-DD.
	ErrInvalidDateFormat = errors.New("invalid date format")
	// ErrInvalidDateRange: начало диапазона позже конца.
	ErrInvalidDateRange = errors.New("invalid date range")
)

// ErrStorage сопоставляется с любой *StorageError через errors.Is.
var ErrStorage = errors.New("storage error")

// StorageError описывает сбой хранилища. Ядро его не классифицирует и не повторяет.
type StorageError struct {
	Op  string
	Err error
}

// NewStorageError оборачивает ошибку хранилища с названием операции.
func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is позволяет писать errors.Is(err, ErrStorage).
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// IsValidationError сообщает, что ошибка относится к ошибкам входных данных.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidDueDate) ||
		errors.Is(err, ErrInvalidPageRequest) ||
		errors.Is(err, ErrInvalidDateFormat) ||
		errors.Is(err, ErrInvalidDateRange)
}
