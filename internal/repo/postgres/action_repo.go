package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivankudzin/guildmod/internal/domain/enums"
	"github.com/ivankudzin/guildmod/internal/domain/model"
)

var ErrActionNotFound = errors.New("action not found")

type ActionRepo struct {
	pool *pgxpool.Pool
}

func NewActionRepo(pool *pgxpool.Pool) *ActionRepo {
	return &ActionRepo{pool: pool}
}

func scanAction(row pgx.Row) (model.Action, error) {
	var (
		a       model.Action
		rawType string
	)
	if err := row.Scan(&a.ID, &rawType, &a.Value, &a.Target, &a.Public); err != nil {
		return model.Action{}, err
	}

	t, err := enums.ParseActionType(rawType)
	if err != nil {
		return model.Action{}, fmt.Errorf("load action %d: %w", a.ID, err)
	}
	a.Type = t

	if a.Value == nil {
		a.Value = []string{}
	}
	if a.Target == nil {
		a.Target = []string{}
	}
	return a, nil
}

func (r *ActionRepo) GetByID(ctx context.Context, id int64) (model.Action, error) {
	if r.pool == nil {
		return model.Action{}, fmt.Errorf("postgres pool is nil")
	}

	a, err := scanAction(r.pool.QueryRow(ctx, `
SELECT id, type, value, target, public
FROM actions
WHERE id = $1
`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Action{}, ErrActionNotFound
		}
		return model.Action{}, fmt.Errorf("get action by id: %w", err)
	}

	return a, nil
}

func (r *ActionRepo) All(ctx context.Context) ([]model.Action, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, type, value, target, public
FROM actions
ORDER BY id
`)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	defer rows.Close()

	var actions []model.Action
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, fmt.Errorf("list actions: %w", err)
		}
		actions = append(actions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}

	return actions, nil
}

// Save inserts the action when it has no id yet, assigning one, and
// updates it in place otherwise. The stored id never changes.
func (r *ActionRepo) Save(ctx context.Context, a model.Action) (model.Action, error) {
	if r.pool == nil {
		return model.Action{}, fmt.Errorf("postgres pool is nil")
	}

	if a.ID == 0 {
		err := r.pool.QueryRow(ctx, `
INSERT INTO actions (type, value, target, public)
VALUES ($1, $2, $3, $4)
RETURNING id
`, string(a.Type), a.Value, a.Target, a.Public).Scan(&a.ID)
		if err != nil {
			return model.Action{}, fmt.Errorf("insert action: %w", err)
		}
		return a, nil
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE actions
SET type = $2, value = $3, target = $4, public = $5
WHERE id = $1
`, a.ID, string(a.Type), a.Value, a.Target, a.Public)
	if err != nil {
		return model.Action{}, fmt.Errorf("update action: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.Action{}, ErrActionNotFound
	}

	return a, nil
}

func (r *ActionRepo) Delete(ctx context.Context, id int64) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	if _, err := r.pool.Exec(ctx, `DELETE FROM actions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete action: %w", err)
	}
	return nil
}
