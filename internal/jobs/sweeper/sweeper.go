// Package sweeper runs the periodic ledger sweep: it drops entries of
// members who left or were banned and dispatches the time and
// threshold based rule categories for everyone else.
package sweeper

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ivankudzin/guildmod/internal/domain/enums"
	"github.com/ivankudzin/guildmod/internal/domain/model"
	"github.com/ivankudzin/guildmod/internal/gateway"
	"github.com/ivankudzin/guildmod/internal/services/engine"
)

const DefaultInterval = time.Minute

type UserStore interface {
	All(ctx context.Context) ([]model.LedgerUser, error)
	Delete(ctx context.Context, id int64) error
}

type Dispatcher interface {
	Dispatch(ctx context.Context, categories []enums.RuleType, ev gateway.EventContext)
}

type Leaderboard interface {
	Remove(ctx context.Context, userID int64) error
}

type Deps struct {
	Users      UserStore
	Gateway    gateway.Gateway
	Dispatcher Dispatcher
	Oracle     gateway.PermissionOracle
}

type Job struct {
	users      UserStore
	gw         gateway.Gateway
	dispatcher Dispatcher
	oracle     gateway.PermissionOracle
	lb         Leaderboard
	logger     *zap.Logger

	interval time.Duration
}

func New(deps Deps, interval time.Duration, logger *zap.Logger) *Job {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Job{
		users:      deps.Users,
		gw:         deps.Gateway,
		dispatcher: deps.Dispatcher,
		oracle:     deps.Oracle,
		logger:     logger,
		interval:   interval,
	}
}

// AttachLeaderboard keeps the read model in step with dropped entries.
func (j *Job) AttachLeaderboard(lb Leaderboard) {
	j.lb = lb
}

// Run loops until the context is cancelled.
func (j *Job) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info("sweeper started", zap.Duration("interval", j.interval))
	for {
		select {
		case <-ctx.Done():
			j.logger.Info("sweeper stopped")
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep over every known ledger entry.
func (j *Job) RunOnce(ctx context.Context) {
	users, err := j.users.All(ctx)
	if err != nil {
		j.logger.Error("load ledger", zap.Error(err))
		return
	}

	for _, u := range users {
		member, err := j.gw.FetchMember(ctx, u.ID)
		switch {
		case errors.Is(err, gateway.ErrNotFound):
			j.drop(ctx, u.ID, "member gone")
			continue
		case err != nil:
			j.logger.Warn("fetch member", zap.Int64("user", u.ID), zap.Error(err))
			continue
		}

		if j.oracle != nil && j.oracle.IsBanned(member) {
			j.drop(ctx, u.ID, "member banned")
			continue
		}
		if j.oracle != nil && j.oracle.IsImmune(member) {
			continue
		}

		j.dispatcher.Dispatch(ctx, engine.SweepCategories(), gateway.EventContext{Actor: &member})
	}
}

func (j *Job) drop(ctx context.Context, userID int64, reason string) {
	if err := j.users.Delete(ctx, userID); err != nil {
		j.logger.Warn("drop ledger entry", zap.Int64("user", userID), zap.Error(err))
		return
	}
	if j.lb != nil {
		if err := j.lb.Remove(ctx, userID); err != nil {
			j.logger.Warn("drop leaderboard entry", zap.Int64("user", userID), zap.Error(err))
		}
	}
	j.logger.Info("ledger entry dropped", zap.Int64("user", userID), zap.String("reason", reason))
}
