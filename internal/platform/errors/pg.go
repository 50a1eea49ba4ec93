package errors

// Postgres helpers: map pgx errors to project ErrorCodes and classify retryability

import (
	"context"
	stderrs "errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the reconcilers run into
const (
	sqlstateUniqueViolation     = "23505"
	sqlstateForeignKeyViolation = "23503"
	sqlstateNotNullViolation    = "23502"
	sqlstateCheckViolation      = "23514"
	sqlstateStringTruncation    = "22001"
	sqlstateInvalidText         = "22P02"
	sqlstateSerializationFail   = "40001"
	sqlstateDeadlock            = "40P01"
	sqlstateLockUnavailable     = "55P03"
	sqlstateReadOnlyTx          = "25006"
	sqlstateCannotConnectNow    = "57P03"
)

// codeBySQLState routes each known SQLSTATE to a project code
var codeBySQLState = map[string]ErrorCode{
	sqlstateUniqueViolation:     ErrorCodeDuplicateKey,
	sqlstateForeignKeyViolation: ErrorCodeInvalidArgument,
	sqlstateNotNullViolation:    ErrorCodeValidation,
	sqlstateCheckViolation:      ErrorCodeValidation,
	sqlstateStringTruncation:    ErrorCodeInvalidArgument,
	sqlstateInvalidText:         ErrorCodeInvalidArgument,
	sqlstateSerializationFail:   ErrorCodeDB,
	sqlstateDeadlock:            ErrorCodeDB,
	sqlstateLockUnavailable:     ErrorCodeDB,
	sqlstateReadOnlyTx:          ErrorCodeUnavailable,
	sqlstateCannotConnectNow:    ErrorCodeUnavailable,
}

// ExtractPgError returns the root *pgconn.PgError when there is one
func ExtractPgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if stderrs.As(Root(err), &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// IsSQLState reports whether err is a Postgres error with the given SQLSTATE
func IsSQLState(err error, code string) bool {
	pgErr, ok := ExtractPgError(err)
	return ok && pgErr.Code == code
}

// IsDuplicateKey reports whether err is a unique constraint violation.
// Upsert races between concurrent ingestion jobs surface as this
func IsDuplicateKey(err error) bool { return IsSQLState(err, sqlstateUniqueViolation) }

// DBErrorCode maps a Postgres error to an ErrorCode.
// !ok means err was not a PgError at all
func DBErrorCode(err error) (ErrorCode, bool) {
	var pgErr *pgconn.PgError
	if !stderrs.As(err, &pgErr) {
		return ErrorCodeUnknown, false
	}
	if code, known := codeBySQLState[pgErr.Code]; known {
		return code, true
	}
	return ErrorCodeDB, true
}

// FromPostgres wraps a database error with its mapped ErrorCode. Nil stays nil
func FromPostgres(err error, msg string) error {
	if err == nil {
		return nil
	}
	code, _ := DBErrorCode(err)
	if code == ErrorCodeUnknown {
		code = ErrorCodeDB
	}
	return Wrap(err, code, msg)
}

// FromPostgresf is the formatted variant of FromPostgres
func FromPostgresf(err error, format string, a ...any) error {
	return FromPostgres(err, fmt.Sprintf(format, a...))
}

// commit-time failures pgx reports as plain text rather than a PgError
var retryableTexts = []string{
	"commit unexpectedly resulted in rollback",
	"deadlock detected",
	"could not serialize access",
	"canceling statement due to statement timeout",
	"canceling statement due to lock timeout",
	"terminating connection due to administrator command",
}

// IsRetryable reports whether a database error is transient contention worth
// retrying. Local cancellations are never retryable here
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return false
	}

	root := Root(err)
	var pgErr *pgconn.PgError
	if stderrs.As(root, &pgErr) {
		switch pgErr.Code {
		case sqlstateSerializationFail, sqlstateDeadlock, sqlstateLockUnavailable:
			return true
		}
		return false
	}

	s := strings.ToLower(root.Error())
	for _, t := range retryableTexts {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
