package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized используется для ошибок авторизации (неверный токен, нет прав).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden используется, когда у пользователя недостаточно прав для действия.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation используется для ошибок валидации входных данных.
	ErrValidation = errors.New("validation failed")

	// ErrConflict используется для конфликтов состояния (например, повторная вставка уникальной записи).
	ErrConflict = errors.New("resource state conflict")

	// ErrStoreUnavailable означает, что хранилище (Postgres/Redis) недоступно.
	// Восстанавливается локально: пул считается пустым, генерация принудительна.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrServiceUnavailable возвращается, когда недоступны одновременно и пул вопросов,
	// и журнал показов. Единственная ошибка, которую видит конечный пользователь (503).
	ErrServiceUnavailable = errors.New("service temporarily unavailable")
)
