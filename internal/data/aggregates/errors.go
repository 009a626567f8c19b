package aggregates

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/gonasi-backend/internal/domain/aggregates"
)

var (
	ErrValidation   = errors.New("aggregate validation")
	ErrNotFound     = errors.New("aggregate not found")
	ErrInvariant    = errors.New("aggregate invariant violation")
	ErrConflict     = errors.New("aggregate conflict")
	ErrPrecondition = errors.New("aggregate precondition failed")
	ErrRetryable    = errors.New("aggregate retryable")
)

func tagged(sentinel error, msg string) error {
	return errors.Join(sentinel, errors.New(strings.TrimSpace(msg)))
}

func ValidationError(msg string) error   { return tagged(ErrValidation, msg) }
func NotFoundError(msg string) error     { return tagged(ErrNotFound, msg) }
func InvariantError(msg string) error    { return tagged(ErrInvariant, msg) }
func ConflictError(msg string) error     { return tagged(ErrConflict, msg) }
func PreconditionError(msg string) error { return tagged(ErrPrecondition, msg) }
func RetryableError(msg string) error    { return tagged(ErrRetryable, msg) }

var sentinelCodes = []struct {
	sentinel error
	code     domainagg.ErrorCode
}{
	{ErrValidation, domainagg.CodeValidation},
	{ErrNotFound, domainagg.CodeNotFound},
	{ErrInvariant, domainagg.CodeInvariantViolation},
	{ErrConflict, domainagg.CodeConflict},
	{ErrPrecondition, domainagg.CodePreconditionFailed},
	{ErrRetryable, domainagg.CodeRetryable},
}

// MapError turns infrastructure and tagged failures into coded domain errors.
// Errors that already carry a code pass through untouched.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var coded *domainagg.Error
	if errors.As(err, &coded) {
		return err
	}
	for _, sc := range sentinelCodes {
		if errors.Is(err, sc.sentinel) {
			return domainagg.NewError(sc.code, op, taggedMessage(err), err)
		}
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domainagg.Wrap(domainagg.CodeNotFound, op, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domainagg.Wrap(domainagg.CodeRetryable, op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505":
			return domainagg.Wrap(domainagg.CodeConflict, op, err) // unique_violation
		case "23503":
			return domainagg.Wrap(domainagg.CodePreconditionFailed, op, err) // foreign_key_violation
		case "40001", "40P01", "55P03":
			return domainagg.Wrap(domainagg.CodeRetryable, op, err) // serialization/deadlock/lock_not_available
		}
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "duplicate key"),
		strings.Contains(msg, "unique constraint failed"):
		return domainagg.Wrap(domainagg.CodeConflict, op, err)
	case strings.Contains(msg, "foreign key constraint failed"):
		return domainagg.Wrap(domainagg.CodePreconditionFailed, op, err)
	case strings.Contains(msg, "deadlock"),
		strings.Contains(msg, "serialization"),
		strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "timeout"):
		return domainagg.Wrap(domainagg.CodeRetryable, op, err)
	default:
		return domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
}

// taggedMessage drops the sentinel line errors.Join puts in front of the message.
func taggedMessage(err error) string {
	parts := strings.Split(err.Error(), "\n")
	if len(parts) > 1 {
		return strings.Join(parts[1:], "; ")
	}
	return parts[0]
}
