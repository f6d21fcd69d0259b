package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmehra2102/market-preorders/internal/reservation/domain"
)

// SQLSTATEs after which the whole transaction may be retried.
var transientCodes = map[string]bool{
	"55P03": true, // lock_not_available
	"40P01": true, // deadlock_detected
	"40001": true, // serialization_failure
	"57014": true, // query_canceled
}

// classify wraps lock timeouts, deadlocks and connection failures in domain.ErrTransient.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if transientCodes[pgErr.Code] {
			return fmt.Errorf("%w: %s (%s)", domain.ErrTransient, pgErr.Message, pgErr.Code)
		}
		return err
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.Timeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domain.ErrTransient, err)
	}
	return err
}
