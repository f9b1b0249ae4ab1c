package postgres

import (
	"context"
	"database/sql"
	"strings"
)

func isNotFound(err error) bool {
	return err == sql.ErrNoRows
}

// Transaction-pooling proxies (pgbouncer) break server-side prepared
// statements: the statement prepared on one backend connection is executed
// on another. Both failure shapes are safe to retry once on a fresh
// round trip.

func isBindParameterMismatch(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "bind message supplies") || strings.Contains(msg, "08P01")
}

func isUnnamedPreparedStatementMissing(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "unnamed prepared statement does not exist") || strings.Contains(msg, "26000")
}

// retryOnBindError reruns op once when the first attempt failed on a
// pooled prepared-statement error.
func retryOnBindError(ctx context.Context, op func(context.Context) error) error {
	err := op(ctx)
	if err == nil {
		return nil
	}
	if isBindParameterMismatch(err) || isUnnamedPreparedStatementMissing(err) {
		return op(ctx)
	}
	return err
}
