package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func statusUpdates(next string, change StatusChange) map[string]interface{} {
	updates := map[string]interface{}{
		"status": next,
	}
	if change.SizeBytes != nil {
		updates["size_bytes"] = *change.SizeBytes
	}
	if change.CompletedAt != nil {
		updates["completed_at"] = *change.CompletedAt
	}
	return updates
}
