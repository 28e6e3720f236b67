package postgres

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IdempotencyRepo lets a confirmation request be retried safely: the same
// Idempotency-Key resolves to the reservation the first attempt created
// instead of re-running the availability guard.
type IdempotencyRepo interface {
	// Lookup returns the reservation id recorded for key, or "" if the key
	// is unknown or expired.
	Lookup(ctx context.Context, key string) (string, error)
	// Remember records key -> reservationID. A concurrent duplicate keeps
	// the first recording.
	Remember(ctx context.Context, key, reservationID string) error
	// CleanupExpired removes expired idempotency records.
	CleanupExpired(ctx context.Context) (int64, error)
}

const idempotencyTTL = 24 * time.Hour

type idempotencyRepo struct {
	pool *pgxpool.Pool
}

func NewIdempotencyRepo(pool *pgxpool.Pool) IdempotencyRepo {
	return &idempotencyRepo{pool: pool}
}

// hashKey hashes the raw client key for privacy and consistent length.
func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%x", sum)
}

func (r *idempotencyRepo) Lookup(ctx context.Context, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var reservationID string
	query := `SELECT reservation_id FROM reservation_idempotency WHERE key_hash = $1 AND expires_at > now()`
	err := r.pool.QueryRow(ctx, query, hashKey(key)).Scan(&reservationID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return reservationID, nil
}

func (r *idempotencyRepo) Remember(ctx context.Context, key, reservationID string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	query := `
		INSERT INTO reservation_idempotency (key_hash, reservation_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key_hash) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, hashKey(key), reservationID, time.Now().Add(idempotencyTTL))
	return err
}

func (r *idempotencyRepo) CleanupExpired(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, `DELETE FROM reservation_idempotency WHERE expires_at < now()`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
