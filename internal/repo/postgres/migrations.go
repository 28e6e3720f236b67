package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS rooms (
	id TEXT PRIMARY KEY,
	number TEXT UNIQUE NOT NULL,
	type TEXT NOT NULL CHECK (type IN ('standard','deluxe','suite','presidential')),
	price_cents BIGINT NOT NULL CHECK (price_cents >= 0),
	capacity INT NOT NULL CHECK (capacity > 0),
	status TEXT NOT NULL DEFAULT 'available'
		CHECK (status IN ('available','occupied','maintenance','cleaning','reserved'))
);

CREATE TABLE IF NOT EXISTS guests (
	id TEXT PRIMARY KEY,
	first_name TEXT NOT NULL,
	last_name TEXT NOT NULL,
	email TEXT UNIQUE NOT NULL,
	phone TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS reservations (
	id TEXT PRIMARY KEY,
	room_id TEXT NOT NULL REFERENCES rooms(id),
	guest_id TEXT NOT NULL REFERENCES guests(id),
	check_in DATE NOT NULL,
	check_out DATE NOT NULL,
	num_guests INT NOT NULL CHECK (num_guests BETWEEN 1 AND 20),
	notes TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'reserved'
		CHECK (status IN ('reserved','checked_in','checked_out','cancelled')),
	credential TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	CHECK (check_out > check_in)
);

CREATE INDEX IF NOT EXISTS idx_reservations_room ON reservations(room_id, status);
CREATE INDEX IF NOT EXISTS idx_reservations_guest ON reservations(guest_id);

CREATE TABLE IF NOT EXISTS reservation_idempotency (
	key_hash TEXT PRIMARY KEY,
	reservation_id TEXT NOT NULL REFERENCES reservations(id),
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reservation_idempotency_expiry ON reservation_idempotency(expires_at);

CREATE TABLE IF NOT EXISTS rate_limits (
	key TEXT PRIMARY KEY,
	count INT NOT NULL,
	window_start TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
);
`

func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schemaSQL)
	return err
}
