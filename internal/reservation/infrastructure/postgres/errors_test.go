package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/dmehra2102/market-preorders/internal/reservation/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{"lock timeout", &pgconn.PgError{Code: "55P03", Message: "canceling statement due to lock timeout"}, true},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"serialization", &pgconn.PgError{Code: "40001"}, true},
		{"statement timeout", fmt.Errorf("exec: %w", &pgconn.PgError{Code: "57014"}), true},
		{"deadline", context.DeadlineExceeded, true},
		{"check violation", &pgconn.PgError{Code: "23514"}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(tt.err)
			assert.Equal(t, tt.transient, domain.IsTransient(err))
			assert.False(t, domain.IsClientError(err))
		})
	}
	assert.NoError(t, classify(nil))
}
