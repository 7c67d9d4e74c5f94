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

var ErrRuleNotFound = errors.New("rule not found")

type RuleRepo struct {
	pool *pgxpool.Pool
}

func NewRuleRepo(pool *pgxpool.Pool) *RuleRepo {
	return &RuleRepo{pool: pool}
}

func scanRule(row pgx.Row) (model.Rule, error) {
	var (
		rule    model.Rule
		rawType string
	)
	if err := row.Scan(&rule.ID, &rawType, &rule.Regexes, &rule.Actions, &rule.Public); err != nil {
		return model.Rule{}, err
	}

	t, err := enums.ParseRuleType(rawType)
	if err != nil {
		return model.Rule{}, fmt.Errorf("load rule %d: %w", rule.ID, err)
	}
	rule.Type = t

	if rule.Regexes == nil {
		rule.Regexes = []string{}
	}
	if rule.Actions == nil {
		rule.Actions = []int64{}
	}
	return rule, nil
}

func (r *RuleRepo) GetByID(ctx context.Context, id int64) (model.Rule, error) {
	if r.pool == nil {
		return model.Rule{}, fmt.Errorf("postgres pool is nil")
	}

	rule, err := scanRule(r.pool.QueryRow(ctx, `
SELECT id, type, regexes, actions, public
FROM rules
WHERE id = $1
`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Rule{}, ErrRuleNotFound
		}
		return model.Rule{}, fmt.Errorf("get rule by id: %w", err)
	}

	return rule, nil
}

func (r *RuleRepo) queryRules(ctx context.Context, query string, args ...any) ([]model.Rule, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var rules []model.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("list rules: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}

	return rules, nil
}

func (r *RuleRepo) All(ctx context.Context) ([]model.Rule, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	return r.queryRules(ctx, `
SELECT id, type, regexes, actions, public
FROM rules
ORDER BY id
`)
}

// ByType returns every rule of one category in store order.
func (r *RuleRepo) ByType(ctx context.Context, t enums.RuleType) ([]model.Rule, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	return r.queryRules(ctx, `
SELECT id, type, regexes, actions, public
FROM rules
WHERE type = $1
ORDER BY id
`, string(t))
}

func (r *RuleRepo) Save(ctx context.Context, rule model.Rule) (model.Rule, error) {
	if r.pool == nil {
		return model.Rule{}, fmt.Errorf("postgres pool is nil")
	}

	if rule.ID == 0 {
		err := r.pool.QueryRow(ctx, `
INSERT INTO rules (type, regexes, actions, public)
VALUES ($1, $2, $3, $4)
RETURNING id
`, string(rule.Type), rule.Regexes, rule.Actions, rule.Public).Scan(&rule.ID)
		if err != nil {
			return model.Rule{}, fmt.Errorf("insert rule: %w", err)
		}
		return rule, nil
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE rules
SET type = $2, regexes = $3, actions = $4, public = $5
WHERE id = $1
`, rule.ID, string(rule.Type), rule.Regexes, rule.Actions, rule.Public)
	if err != nil {
		return model.Rule{}, fmt.Errorf("update rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.Rule{}, ErrRuleNotFound
	}

	return rule, nil
}

func (r *RuleRepo) Delete(ctx context.Context, id int64) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	if _, err := r.pool.Exec(ctx, `DELETE FROM rules WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	return nil
}
