package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/leporo/sqlf"
)

type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// countStmt runs a COUNT(*) statement built with sqlf and releases it.
func countStmt(ctx context.Context, db DBTX, stmt *sqlf.Stmt) (int, error) {
	defer stmt.Close()

	var total int
	if err := db.QueryRow(ctx, stmt.String(), stmt.Args()...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// IsUniqueViolation reports whether err is a unique constraint failure on constraint.
// An empty constraint matches any unique violation.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
