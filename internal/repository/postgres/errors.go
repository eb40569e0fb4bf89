package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	apperrors "github.com/yourusername/gabarita-api/internal/pkg/errors"
)

// Коды ошибок PostgreSQL
const (
	pgUniqueViolation = "23505"
)

// classifyError приводит ошибку драйвера к ошибкам приложения:
// not found -> ErrNotFound, 23505 -> ErrConflict, отмена контекста - как есть,
// остальное считается недоступностью хранилища.
func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrNotFound
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%s: %w: %s", op, apperrors.ErrConflict, pgErr.ConstraintName)
	}
	return fmt.Errorf("%s: %w: %v", op, apperrors.ErrStoreUnavailable, err)
}

func pingDB(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return classifyError("ping", err)
	}
	return classifyError("ping", sqlDB.PingContext(ctx))
}
