package errors

import (
	"context"
	stderrs "errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// sqlStates maps the SQLSTATEs the kv backend can hit onto codes; retry marks transient ones
var sqlStates = map[string]struct {
	code  ErrorCode
	retry bool
}{
	"23505": {ErrorCodeConflict, false},        // unique_violation: two workers creating one table
	"23502": {ErrorCodeValidation, false},      // not_null_violation
	"22021": {ErrorCodeDecode, false},          // character_not_in_repertoire
	"22P02": {ErrorCodeInvalidArgument, false}, // invalid_text_representation
	"42P01": {ErrorCodeNotFound, false},        // undefined_table
	"40001": {ErrorCodeDB, true},               // serialization_failure
	"40P01": {ErrorCodeDB, true},               // deadlock_detected
	"55P03": {ErrorCodeDB, true},               // lock_not_available
	"57P01": {ErrorCodeUnavailable, true},      // admin_shutdown
	"57P03": {ErrorCodeUnavailable, true},      // cannot_connect_now
	"53300": {ErrorCodeUnavailable, true},      // too_many_connections
	"08006": {ErrorCodeUnavailable, true},      // connection_failure
}

// transientText covers driver errors that carry no SQLSTATE
var transientText = []string{
	"conn closed",
	"connection reset by peer",
	"broken pipe",
	"unexpected eof",
	"commit unexpectedly resulted in rollback",
}

// SQLState is the Postgres error code somewhere in err's chain, or ""
func SQLState(err error) string {
	var pgErr *pgconn.PgError
	if stderrs.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// FromPostgres wraps a pgx error with the code its SQLSTATE maps to, ErrorCodeDB otherwise
func FromPostgres(err error, msg string) error {
	if err == nil {
		return nil
	}
	code := ErrorCodeDB
	if s, ok := sqlStates[SQLState(err)]; ok {
		code = s.code
	}
	return Wrap(err, code, msg)
}

// Retryable reports whether another attempt on a fresh connection may succeed
func Retryable(err error) bool {
	if err == nil || stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return false
	}
	if IsCode(err, ErrorCodeUnavailable) || pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return true
	}
	if state := SQLState(err); state != "" {
		return sqlStates[state].retry
	}
	msg := strings.ToLower(Root(err).Error())
	for _, t := range transientText {
		if strings.Contains(msg, t) {
			return true
		}
	}
	return false
}
