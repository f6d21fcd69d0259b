//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/dmehra2102/market-preorders/pkg/database"
)

const startupTimeout = 2 * time.Minute

// StartPostgres runs a migrated Postgres container for the test and returns a pool on it.
func StartPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	pgC, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("market"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(context.Background()) })

	url, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := database.Connect(ctx, url, 20)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, database.Migrate(ctx, pool))
	return pool
}

// StartKafka runs a single-node Kafka container and returns its brokers.
func StartKafka(t *testing.T) []string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	kafkaC, err := kafka.Run(ctx,
		"confluentinc/confluent-local:7.5.0",
		kafka.WithClusterID("market-preorders-test"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = kafkaC.Terminate(context.Background()) })

	brokers, err := kafkaC.Brokers(ctx)
	require.NoError(t, err)
	return brokers
}

type fixture struct {
	EventID   int64
	ProductID int64
	VendorID  int64
}

// seedLine creates the market, event, vendor and product an inventory line hangs off.
func seedLine(t *testing.T, pool *pgxpool.Pool, product string, available, reserved int) fixture {
	t.Helper()
	ctx := context.Background()
	var f fixture
	var locationID, marketID, categoryID int64

	require.NoError(t, pool.QueryRow(ctx, `INSERT INTO location (city, region, zip) VALUES ('Portland','OR','97201') RETURNING location_id`).Scan(&locationID))
	require.NoError(t, pool.QueryRow(ctx, `INSERT INTO market (name, location_id, open_time, close_time) VALUES ('Riverside', $1, '08:00', '13:00') RETURNING market_id`, locationID).Scan(&marketID))
	require.NoError(t, pool.QueryRow(ctx, `INSERT INTO market_event (market_id, event_date, start_time) VALUES ($1, CURRENT_DATE + 7, '08:00') RETURNING event_id`, marketID).Scan(&f.EventID))
	require.NoError(t, pool.QueryRow(ctx, `INSERT INTO vendor (name) VALUES ('Apple Acres') RETURNING vendor_id`).Scan(&f.VendorID))
	_, err := pool.Exec(ctx, `INSERT INTO market_vendor (market_id, vendor_id) VALUES ($1, $2)`, marketID, f.VendorID)
	require.NoError(t, err)
	require.NoError(t, pool.QueryRow(ctx, `INSERT INTO product_category (name) VALUES ('Pantry') RETURNING category_id`).Scan(&categoryID))
	require.NoError(t, pool.QueryRow(ctx, `INSERT INTO product (name, category_id) VALUES ($1, $2) RETURNING product_id`, product, categoryID).Scan(&f.ProductID))
	_, err = pool.Exec(ctx, `INSERT INTO inventory (event_id, product_id, vendor_id, available_quantity, reserved_quantity) VALUES ($1,$2,$3,$4,$5)`,
		f.EventID, f.ProductID, f.VendorID, available, reserved)
	require.NoError(t, err)
	return f
}

func reservedQuantity(t *testing.T, pool *pgxpool.Pool, f fixture) int {
	t.Helper()
	var n int
	require.NoError(t, pool.QueryRow(context.Background(),
		`SELECT reserved_quantity FROM inventory WHERE event_id = $1 AND product_id = $2`, f.EventID, f.ProductID).Scan(&n))
	return n
}
