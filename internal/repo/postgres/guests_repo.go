package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diagnosis/stayline-hotel/internal/domain"
)

type GuestsRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Guest, error)
	GetByEmail(ctx context.Context, email string) (*domain.Guest, error)
	// Upsert creates the guest or refreshes identity fields on email match,
	// returning the stored row. The password hash is only written when
	// non-empty, never cleared.
	Upsert(ctx context.Context, g *domain.Guest) (*domain.Guest, error)
}

type guestsRepo struct {
	pool *pgxpool.Pool
}

func NewGuestsRepo(pool *pgxpool.Pool) GuestsRepo {
	return &guestsRepo{pool: pool}
}

const guestCols = `id, first_name, last_name, email, phone, password_hash`

func (r *guestsRepo) GetByID(ctx context.Context, id string) (*domain.Guest, error) {
	const q = `SELECT ` + guestCols + ` FROM guests WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var g domain.Guest
	err := r.pool.QueryRow(ctx, q, id).Scan(&g.ID, &g.FirstName, &g.LastName, &g.Email, &g.Phone, &g.PasswordHash)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return &g, err
}

func (r *guestsRepo) GetByEmail(ctx context.Context, email string) (*domain.Guest, error) {
	const q = `SELECT ` + guestCols + ` FROM guests WHERE lower(email)=lower($1)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var g domain.Guest
	err := r.pool.QueryRow(ctx, q, email).Scan(&g.ID, &g.FirstName, &g.LastName, &g.Email, &g.Phone, &g.PasswordHash)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return &g, err
}

func (r *guestsRepo) Upsert(ctx context.Context, g *domain.Guest) (*domain.Guest, error) {
	const q = `INSERT INTO guests (id, first_name, last_name, email, phone, password_hash)
	VALUES ($1,$2,$3,$4,$5,$6)
	ON CONFLICT (email) DO UPDATE SET
		first_name=EXCLUDED.first_name,
		last_name=EXCLUDED.last_name,
		phone=EXCLUDED.phone,
		password_hash=CASE WHEN EXCLUDED.password_hash <> '' THEN EXCLUDED.password_hash ELSE guests.password_hash END
	RETURNING ` + guestCols

	if g.ID == "" {
		g.ID = uuid.NewString()
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var out domain.Guest
	err := r.pool.QueryRow(ctx, q, g.ID, g.FirstName, g.LastName, g.Email, g.Phone, g.PasswordHash).Scan(
		&out.ID, &out.FirstName, &out.LastName, &out.Email, &out.Phone, &out.PasswordHash,
	)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
