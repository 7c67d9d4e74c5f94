// Package engine routes platform events through the persisted rules
// and runs the actions of every rule that matches.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ivankudzin/guildmod/internal/domain/enums"
	"github.com/ivankudzin/guildmod/internal/domain/model"
	"github.com/ivankudzin/guildmod/internal/gateway"
	"github.com/ivankudzin/guildmod/internal/repo/postgres"
)

type RuleStore interface {
	ByType(ctx context.Context, t enums.RuleType) ([]model.Rule, error)
}

type UserStore interface {
	GetByID(ctx context.Context, id int64) (model.LedgerUser, error)
	Save(ctx context.Context, user model.LedgerUser) error
	Touch(ctx context.Context, id int64, at time.Time) error
}

// ActionRunner owns per-action error isolation, so dispatch never sees
// execution failures.
type ActionRunner interface {
	ExecuteByID(ctx context.Context, id int64, ev gateway.EventContext)
}

type Matcher interface {
	Check(r model.Rule, ev gateway.EventContext, user model.LedgerUser) bool
}

type Deps struct {
	Rules   RuleStore
	Users   UserStore
	Runner  ActionRunner
	Matcher Matcher
	Oracle  gateway.PermissionOracle
}

type Engine struct {
	rules   RuleStore
	users   UserStore
	runner  ActionRunner
	matcher Matcher
	oracle  gateway.PermissionOracle
	logger  *zap.Logger

	now func() time.Time
}

func New(deps Deps, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		rules:   deps.Rules,
		users:   deps.Users,
		runner:  deps.Runner,
		matcher: deps.Matcher,
		oracle:  deps.Oracle,
		logger:  logger,
		now:     time.Now,
	}
}

// Category sets per event kind. The mapping is fixed.
func messageCategories() []enums.RuleType {
	return []enums.RuleType{
		enums.RuleMessage,
		enums.RuleRole,
		enums.RulePointsLessThan,
		enums.RulePointsGreaterThan,
	}
}

// SweepCategories is the set evaluated by the periodic sweep.
func SweepCategories() []enums.RuleType {
	return []enums.RuleType{
		enums.RuleLastActivity,
		enums.RulePointsLessThan,
		enums.RulePointsGreaterThan,
	}
}

// Dispatch evaluates all rules of the given categories against the
// event and runs every matched rule's action list in order. The
// actor's ledger entry is created lazily on the first observed event
// and touched when at least one rule matched.
func (e *Engine) Dispatch(ctx context.Context, categories []enums.RuleType, ev gateway.EventContext) {
	logger := e.logger.With(zap.String("dispatch", uuid.NewString()))

	user := e.resolveUser(ctx, ev, logger)

	var matched []model.Rule
	for _, category := range categories {
		rules, err := e.rules.ByType(ctx, category)
		if err != nil {
			logger.Error("load rules", zap.String("category", string(category)), zap.Error(err))
			continue
		}
		for _, r := range rules {
			if e.matcher.Check(r, ev, user) {
				matched = append(matched, r)
			}
		}
	}

	for _, r := range matched {
		logger.Info("rule matched", zap.Int64("rule", r.ID), zap.String("category", string(r.Type)))
		for _, actionID := range r.Actions {
			e.runner.ExecuteByID(ctx, actionID, ev)
		}
	}

	if len(matched) > 0 && ev.Actor != nil {
		if err := e.users.Touch(ctx, ev.Actor.ID, e.now()); err != nil {
			logger.Warn("touch ledger activity", zap.Int64("user", ev.Actor.ID), zap.Error(err))
		}
	}
}

func (e *Engine) resolveUser(ctx context.Context, ev gateway.EventContext, logger *zap.Logger) model.LedgerUser {
	if ev.Actor == nil {
		return model.LedgerUser{}
	}

	user, err := e.users.GetByID(ctx, ev.Actor.ID)
	if err == nil {
		return user
	}
	if !errors.Is(err, postgres.ErrLedgerUserNotFound) {
		logger.Warn("resolve ledger user", zap.Int64("user", ev.Actor.ID), zap.Error(err))
		return model.LedgerUser{ID: ev.Actor.ID}
	}

	user = model.LedgerUser{ID: ev.Actor.ID, LastActivity: e.now()}
	if err := e.users.Save(ctx, user); err != nil {
		logger.Warn("create ledger user", zap.Int64("user", ev.Actor.ID), zap.Error(err))
	}
	return user
}

func (e *Engine) skip(ev gateway.EventContext) bool {
	if ev.Actor == nil {
		return true
	}
	if ev.Actor.Bot {
		return true
	}
	return e.oracle != nil && e.oracle.IsImmune(*ev.Actor)
}

// HandleMessage dispatches a freshly posted message.
func (e *Engine) HandleMessage(ctx context.Context, ev gateway.EventContext) {
	if e.skip(ev) {
		return
	}
	e.Dispatch(ctx, messageCategories(), ev)
}

// HandleMessageEdit dispatches an edited message against message rules
// only.
func (e *Engine) HandleMessageEdit(ctx context.Context, ev gateway.EventContext) {
	if e.skip(ev) {
		return
	}
	e.Dispatch(ctx, []enums.RuleType{enums.RuleMessage}, ev)
}

// HandleReaction dispatches an added reaction.
func (e *Engine) HandleReaction(ctx context.Context, ev gateway.EventContext) {
	if e.skip(ev) {
		return
	}
	e.Dispatch(ctx, []enums.RuleType{enums.RuleReaction}, ev)
}

// HandlePresence dispatches a presence or activity change.
func (e *Engine) HandlePresence(ctx context.Context, ev gateway.EventContext) {
	if e.skip(ev) {
		return
	}
	e.Dispatch(ctx, []enums.RuleType{enums.RuleActivity}, ev)
}

// HandleMemberChange dispatches a member join or profile update
// against name rules.
func (e *Engine) HandleMemberChange(ctx context.Context, ev gateway.EventContext) {
	if e.skip(ev) {
		return
	}
	e.Dispatch(ctx, []enums.RuleType{enums.RuleName}, ev)
}
