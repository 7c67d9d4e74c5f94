package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivankudzin/guildmod/internal/domain/model"
)

var ErrLedgerUserNotFound = errors.New("ledger user not found")

// UserRepo is the point ledger. Balance changes go through AddPoints,
// a single-statement increment, so concurrent dispatches touching the
// same member cannot lose an update.
type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (model.LedgerUser, error) {
	if r.pool == nil {
		return model.LedgerUser{}, fmt.Errorf("postgres pool is nil")
	}

	var u model.LedgerUser
	err := r.pool.QueryRow(ctx, `
SELECT id, points, last_activity
FROM ledger_users
WHERE id = $1
`, id).Scan(&u.ID, &u.Points, &u.LastActivity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.LedgerUser{}, ErrLedgerUserNotFound
		}
		return model.LedgerUser{}, fmt.Errorf("get ledger user: %w", err)
	}

	return u, nil
}

func (r *UserRepo) All(ctx context.Context) ([]model.LedgerUser, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, points, last_activity
FROM ledger_users
ORDER BY id
`)
	if err != nil {
		return nil, fmt.Errorf("list ledger users: %w", err)
	}
	defer rows.Close()

	var users []model.LedgerUser
	for rows.Next() {
		var u model.LedgerUser
		if err := rows.Scan(&u.ID, &u.Points, &u.LastActivity); err != nil {
			return nil, fmt.Errorf("list ledger users: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list ledger users: %w", err)
	}

	return users, nil
}

func (r *UserRepo) Save(ctx context.Context, u model.LedgerUser) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	_, err := r.pool.Exec(ctx, `
INSERT INTO ledger_users (id, points, last_activity)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET
	points = EXCLUDED.points,
	last_activity = EXCLUDED.last_activity
`, u.ID, u.Points, u.LastActivity)
	if err != nil {
		return fmt.Errorf("save ledger user: %w", err)
	}
	return nil
}

// AddPoints atomically adjusts a balance, creating the ledger entry on
// first contact, and returns the resulting balance.
func (r *UserRepo) AddPoints(ctx context.Context, id int64, delta int64, now time.Time) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	var points int64
	err := r.pool.QueryRow(ctx, `
INSERT INTO ledger_users (id, points, last_activity)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET
	points = ledger_users.points + EXCLUDED.points
RETURNING points
`, id, delta, now).Scan(&points)
	if err != nil {
		return 0, fmt.Errorf("add points: %w", err)
	}

	return points, nil
}

// Touch refreshes the activity timestamp, creating the entry if needed.
func (r *UserRepo) Touch(ctx context.Context, id int64, at time.Time) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	_, err := r.pool.Exec(ctx, `
INSERT INTO ledger_users (id, points, last_activity)
VALUES ($1, 0, $2)
ON CONFLICT (id) DO UPDATE SET
	last_activity = EXCLUDED.last_activity
`, id, at)
	if err != nil {
		return fmt.Errorf("touch ledger user: %w", err)
	}
	return nil
}

func (r *UserRepo) Delete(ctx context.Context, id int64) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	if _, err := r.pool.Exec(ctx, `DELETE FROM ledger_users WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete ledger user: %w", err)
	}
	return nil
}
