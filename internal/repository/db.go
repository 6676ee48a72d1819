package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of pgxpool.Pool used by the repositories.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var (
	// ErrDuplicate reports a unique constraint violation.
	ErrDuplicate = errors.New("duplicate record")
	// ErrStaleTicket reports that a conditional ticket write found the row
	// changed since it was read.
	ErrStaleTicket = errors.New("ticket changed concurrently")
	// ErrTicketClosed reports that a response targeted a resolved or closed ticket.
	ErrTicketClosed = errors.New("ticket closed")
	// ErrUserHasAssignments reports that a user with assigned tickets was
	// about to become a CUSTOMER.
	ErrUserHasAssignments = errors.New("user has assigned tickets")
)

const uniqueViolation = "23505"

func translateError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return err
}

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
