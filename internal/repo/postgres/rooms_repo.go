package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diagnosis/stayline-hotel/internal/domain"
)

type RoomsRepo interface {
	List(ctx context.Context) ([]domain.Room, error)
	GetByID(ctx context.Context, id string) (*domain.Room, error)
	GetByNumber(ctx context.Context, number string) (*domain.Room, error)
	UpdateStatus(ctx context.Context, id string, status domain.RoomStatus) (bool, error)
}

type roomsRepo struct {
	pool *pgxpool.Pool
}

func NewRoomsRepo(pool *pgxpool.Pool) RoomsRepo {
	return &roomsRepo{pool: pool}
}

const roomCols = `id, number, type, price_cents, capacity, status`

func (r *roomsRepo) List(ctx context.Context) ([]domain.Room, error) {
	const q = `SELECT ` + roomCols + ` FROM rooms ORDER BY number`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []domain.Room
	for rows.Next() {
		var rm domain.Room
		if err := rows.Scan(&rm.ID, &rm.Number, &rm.Type, &rm.PriceCents, &rm.Capacity, &rm.Status); err != nil {
			return nil, err
		}
		rooms = append(rooms, rm)
	}
	return rooms, rows.Err()
}

func (r *roomsRepo) GetByID(ctx context.Context, id string) (*domain.Room, error) {
	const q = `SELECT ` + roomCols + ` FROM rooms WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var rm domain.Room
	err := r.pool.QueryRow(ctx, q, id).Scan(&rm.ID, &rm.Number, &rm.Type, &rm.PriceCents, &rm.Capacity, &rm.Status)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return &rm, err
}

func (r *roomsRepo) GetByNumber(ctx context.Context, number string) (*domain.Room, error) {
	const q = `SELECT ` + roomCols + ` FROM rooms WHERE number=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var rm domain.Room
	err := r.pool.QueryRow(ctx, q, number).Scan(&rm.ID, &rm.Number, &rm.Type, &rm.PriceCents, &rm.Capacity, &rm.Status)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return &rm, err
}

func (r *roomsRepo) UpdateStatus(ctx context.Context, id string, status domain.RoomStatus) (bool, error) {
	const q = `UPDATE rooms SET status=$2 WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, q, id, status)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
