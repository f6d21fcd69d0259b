package database

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS location (
		location_id BIGSERIAL PRIMARY KEY,
		city        TEXT,
		region      TEXT,
		zip         TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS market (
		market_id   BIGSERIAL PRIMARY KEY,
		name        TEXT NOT NULL,
		description TEXT,
		location_id BIGINT REFERENCES location(location_id),
		open_time   TIME,
		close_time  TIME
	)`,
	`CREATE TABLE IF NOT EXISTS market_event (
		event_id   BIGSERIAL PRIMARY KEY,
		market_id  BIGINT NOT NULL REFERENCES market(market_id),
		event_date DATE NOT NULL,
		start_time TIME,
		address    TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_market_event_market_date ON market_event(market_id, event_date)`,

	`CREATE TABLE IF NOT EXISTS vendor (
		vendor_id       BIGSERIAL PRIMARY KEY,
		name            TEXT NOT NULL,
		description     TEXT,
		vendor_category TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS market_vendor (
		market_id BIGINT NOT NULL REFERENCES market(market_id),
		vendor_id BIGINT NOT NULL REFERENCES vendor(vendor_id),
		PRIMARY KEY (market_id, vendor_id)
	)`,

	`CREATE TABLE IF NOT EXISTS product_category (
		category_id BIGSERIAL PRIMARY KEY,
		name        TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS product (
		product_id  BIGSERIAL PRIMARY KEY,
		name        TEXT NOT NULL,
		category_id BIGINT REFERENCES product_category(category_id)
	)`,

	`CREATE TABLE IF NOT EXISTS inventory (
		inventory_id       BIGSERIAL PRIMARY KEY,
		event_id           BIGINT NOT NULL REFERENCES market_event(event_id),
		product_id         BIGINT NOT NULL REFERENCES product(product_id),
		vendor_id          BIGINT NOT NULL REFERENCES vendor(vendor_id),
		available_quantity INTEGER NOT NULL CHECK (available_quantity >= 0),
		reserved_quantity  INTEGER NOT NULL DEFAULT 0,
		UNIQUE (event_id, product_id),
		CONSTRAINT inventory_reserved_within_available
			CHECK (reserved_quantity >= 0 AND reserved_quantity <= available_quantity)
	)`,

	`CREATE TABLE IF NOT EXISTS orders (
		order_id       BIGSERIAL PRIMARY KEY,
		user_id        BIGINT NOT NULL,
		event_id       BIGINT NOT NULL REFERENCES market_event(event_id),
		order_date     TIMESTAMPTZ NOT NULL,
		pickup_date    DATE,
		total_amount   NUMERIC(10,2) NOT NULL,
		payment_status TEXT NOT NULL,
		pickup_status  TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_user_date ON orders(user_id, order_date DESC)`,
	`CREATE TABLE IF NOT EXISTS order_item (
		order_item_id BIGSERIAL PRIMARY KEY,
		order_id      BIGINT NOT NULL REFERENCES orders(order_id),
		product_id    BIGINT NOT NULL REFERENCES product(product_id),
		quantity      INTEGER NOT NULL CHECK (quantity > 0),
		unit_price    NUMERIC(10,2) NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_order_item_product ON order_item(product_id)`,

	`CREATE TABLE IF NOT EXISTS outbox (
		id             BIGSERIAL PRIMARY KEY,
		aggregate_type TEXT NOT NULL,
		aggregate_id   TEXT NOT NULL,
		type           TEXT NOT NULL,
		payload        JSONB NOT NULL,
		headers        JSONB NOT NULL DEFAULT '{}'::jsonb,
		traceparent    TEXT NOT NULL DEFAULT '',
		status         TEXT NOT NULL DEFAULT 'pending',
		relay_id       TEXT,
		lease_until    TIMESTAMPTZ,
		retry_count    INTEGER NOT NULL DEFAULT 0,
		last_error     TEXT,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_outbox_status ON outbox(status, id)`,
}
