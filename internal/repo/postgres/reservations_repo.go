package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diagnosis/stayline-hotel/internal/domain"
)

type ReservationsRepo interface {
	// CreateIfAvailable inserts the reservation unless a blocking stay on
	// the same room overlaps [CheckIn, CheckOut). The availability check
	// and the insert are one statement, so two racing confirmations cannot
	// both land. Returns false on conflict with no row written.
	CreateIfAvailable(ctx context.Context, res *domain.Reservation) (bool, error)
	GetByID(ctx context.Context, id string) (*domain.Reservation, error)
	ListByRoom(ctx context.Context, roomID string) ([]domain.Reservation, error)
	ListByGuest(ctx context.Context, guestID string, limit, offset int) ([]domain.Reservation, error)
	List(ctx context.Context, limit, offset int, status *domain.ReservationStatus) ([]domain.Reservation, error)
	// Transition moves id from one status to another, guarded by the
	// current status in SQL. Returns false when the row was not in `from`,
	// leaving the caller to report the guard violation.
	Transition(ctx context.Context, id string, from, to domain.ReservationStatus) (bool, error)
}

type reservationsRepo struct {
	pool *pgxpool.Pool
}

func NewReservationsRepo(pool *pgxpool.Pool) ReservationsRepo {
	return &reservationsRepo{pool: pool}
}

const reservationCols = `id, room_id, guest_id, check_in, check_out,
num_guests, notes, status, credential, created_at, updated_at`

func scanReservation(row pgx.Row) (*domain.Reservation, error) {
	var res domain.Reservation
	var checkIn, checkOut time.Time
	err := row.Scan(
		&res.ID, &res.RoomID, &res.GuestID, &checkIn, &checkOut,
		&res.NumGuests, &res.Notes, &res.Status, &res.Credential,
		&res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	res.CheckIn = domain.DateOf(checkIn)
	res.CheckOut = domain.DateOf(checkOut)
	return &res, nil
}

func (r *reservationsRepo) CreateIfAvailable(ctx context.Context, res *domain.Reservation) (bool, error) {
	const q = `INSERT INTO reservations (
		id, room_id, guest_id, check_in, check_out,
		num_guests, notes, status, credential
	)
	SELECT $1,$2,$3,$4,$5,$6,$7,$8,$9
	WHERE NOT EXISTS (
		SELECT 1 FROM reservations
		WHERE room_id = $2
		  AND status IN ('reserved','checked_in')
		  AND check_in < $5 AND check_out > $4
	)
	RETURNING created_at, updated_at`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	err := r.pool.QueryRow(ctx, q,
		res.ID, res.RoomID, res.GuestID, res.CheckIn.Time(), res.CheckOut.Time(),
		res.NumGuests, res.Notes, res.Status, res.Credential,
	).Scan(&res.CreatedAt, &res.UpdatedAt)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *reservationsRepo) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := scanReservation(r.pool.QueryRow(ctx, q, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *reservationsRepo) ListByRoom(ctx context.Context, roomID string) ([]domain.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations WHERE room_id=$1 ORDER BY check_in`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReservations(rows)
}

func (r *reservationsRepo) ListByGuest(ctx context.Context, guestID string, limit, offset int) ([]domain.Reservation, error) {
	limit, offset = clampPage(limit, offset)
	const q = `SELECT ` + reservationCols + ` FROM reservations
	WHERE guest_id=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, guestID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReservations(rows)
}

func (r *reservationsRepo) List(ctx context.Context, limit, offset int, status *domain.ReservationStatus) ([]domain.Reservation, error) {
	limit, offset = clampPage(limit, offset)

	q := `SELECT ` + reservationCols + ` FROM reservations`
	args := []any{}
	if status != nil {
		q += ` WHERE status=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		args = append(args, *status, limit, offset)
	} else {
		q += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReservations(rows)
}

func (r *reservationsRepo) Transition(ctx context.Context, id string, from, to domain.ReservationStatus) (bool, error) {
	const q = `UPDATE reservations SET status=$3, updated_at=now() WHERE id=$1 AND status=$2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, q, id, from, to)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func collectReservations(rows pgx.Rows) ([]domain.Reservation, error) {
	var out []domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
