package postgres

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

// undefined_function: raised when reserve_usage is not installed.
const pqUndefinedFunction = pq.ErrorCode("42883")

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func isUndefinedFunction(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUndefinedFunction
	}
	return false
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}
