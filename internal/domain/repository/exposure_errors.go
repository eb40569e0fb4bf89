package repository

import "errors"

var (
	// ErrAlreadySeen означает, что вопрос уже был показан пользователю (конфликт insert-if-absent).
	ErrAlreadySeen = errors.New("question already seen by user")
	// ErrNotSeen означает, что ответ пришел на вопрос, который пользователю не показывали.
	ErrNotSeen = errors.New("question was not served to user")
	// ErrAlreadyAnswered означает, что ответ на вопрос уже был записан.
	ErrAlreadyAnswered = errors.New("question already answered by user")
)
