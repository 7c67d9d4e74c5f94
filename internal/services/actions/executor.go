// Package actions executes persisted actions against event contexts.
//
// Execution is isolated per action: a failing platform call or a
// malformed parameter is logged and never aborts sibling actions in a
// chain, a random pick or a passed vote. Recursive variants thread a
// depth budget so reference cycles terminate instead of looping.
package actions

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ivankudzin/guildmod/internal/domain/enums"
	"github.com/ivankudzin/guildmod/internal/domain/model"
	"github.com/ivankudzin/guildmod/internal/gateway"
	"github.com/ivankudzin/guildmod/internal/services/polls"
)

const defaultMaxDepth = 8

type ActionStore interface {
	GetByID(ctx context.Context, id int64) (model.Action, error)
}

type UserStore interface {
	GetByID(ctx context.Context, id int64) (model.LedgerUser, error)
	AddPoints(ctx context.Context, id int64, delta int64, now time.Time) (int64, error)
	Delete(ctx context.Context, id int64) error
}

type Poller interface {
	Run(ctx context.Context, p polls.Poll) (polls.Outcome, error)
}

type Leaderboard interface {
	SetScore(ctx context.Context, userID, points int64) error
	Remove(ctx context.Context, userID int64) error
}

type Config struct {
	DefaultChannelID int64
	OwnerID          int64
	MaxDepth         int
}

type Executor struct {
	actions ActionStore
	users   UserStore
	gw      gateway.Gateway
	poller  Poller
	lb      Leaderboard
	logger  *zap.Logger

	defaultChannelID int64
	ownerID          int64
	maxDepth         int

	now  func() time.Time
	pick func(n int) int
}

func NewExecutor(actions ActionStore, users UserStore, gw gateway.Gateway, cfg Config, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = defaultMaxDepth
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	var mu sync.Mutex

	return &Executor{
		actions:          actions,
		users:            users,
		gw:               gw,
		logger:           logger,
		defaultChannelID: cfg.DefaultChannelID,
		ownerID:          cfg.OwnerID,
		maxDepth:         cfg.MaxDepth,
		now:              time.Now,
		pick: func(n int) int {
			mu.Lock()
			defer mu.Unlock()
			return rng.Intn(n)
		},
	}
}

// AttachPoller wires the vote coordinator. Without one, poll actions
// log a configuration error and do nothing.
func (e *Executor) AttachPoller(p Poller) {
	e.poller = p
}

// AttachLeaderboard keeps the leaderboard read model in step with
// point changes made by actions. Best effort, may stay nil.
func (e *Executor) AttachLeaderboard(lb Leaderboard) {
	e.lb = lb
}

// Execute runs one action against the event context. Failures are
// handled inside: logged, isolated, never returned.
func (e *Executor) Execute(ctx context.Context, a model.Action, ev gateway.EventContext) {
	e.execute(ctx, a, ev, e.maxDepth)
}

// ExecuteByID resolves an action reference and runs it. A dangling
// reference is a logged no-op.
func (e *Executor) ExecuteByID(ctx context.Context, id int64, ev gateway.EventContext) {
	e.executeByID(ctx, id, ev, e.maxDepth)
}

// ExecuteLinked is ExecuteByID with an explicit remaining depth; the
// poll coordinator uses it so a vote's linked action inherits the
// budget of the execution that opened the vote. A non-positive depth
// means the vote itself spent the last allowed step and the linked
// action does not run.
func (e *Executor) ExecuteLinked(ctx context.Context, id int64, ev gateway.EventContext, depth int) {
	if depth <= 0 {
		e.logger.Warn("action recursion budget exhausted", zap.Int64("action", id))
		return
	}
	if depth > e.maxDepth {
		depth = e.maxDepth
	}
	e.executeByID(ctx, id, ev, depth)
}

func (e *Executor) executeByID(ctx context.Context, id int64, ev gateway.EventContext, depth int) {
	a, err := e.actions.GetByID(ctx, id)
	if err != nil {
		e.logger.Warn("referenced action not executable", zap.Int64("action", id), zap.Error(err))
		return
	}
	e.execute(ctx, a, ev, depth)
}

func (e *Executor) execute(ctx context.Context, a model.Action, ev gateway.EventContext, depth int) {
	if depth <= 0 {
		e.logger.Warn("action recursion budget exhausted", zap.Int64("action", a.ID))
		return
	}

	var err error
	switch a.Type {
	case enums.ActionSendMessage:
		err = e.sendMessage(ctx, a, ev)
	case enums.ActionDeleteMessage:
		err = e.deleteMessage(ctx, a, ev)
	case enums.ActionGiveRole:
		err = e.editRole(ctx, a, ev, true)
	case enums.ActionRemoveRole:
		err = e.editRole(ctx, a, ev, false)
	case enums.ActionTimeout:
		err = e.timeout(ctx, a, ev)
	case enums.ActionKick:
		err = e.kick(ctx, a, ev)
	case enums.ActionBan:
		err = e.ban(ctx, a, ev)
	case enums.ActionChangeName:
		err = e.changeName(ctx, a, ev)
	case enums.ActionAddPoints:
		err = e.addPoints(ctx, a, ev)
	case enums.ActionPoll:
		err = e.poll(ctx, a, ev, depth)
	case enums.ActionRandom:
		e.random(ctx, a, ev, depth)
	case enums.ActionChain:
		e.chain(ctx, a, ev, depth)
	}

	if err != nil {
		e.logger.Error("execute action failed",
			zap.Int64("action", a.ID),
			zap.String("type", string(a.Type)),
			zap.Error(err))
	}
}

func (e *Executor) channelID(ev gateway.EventContext) int64 {
	if ev.Channel != nil {
		return ev.Channel.ID
	}
	return e.defaultChannelID
}

// targetID resolves the optional target reference, falling back to the
// event's actor.
func (e *Executor) targetID(a model.Action, ev gateway.EventContext) (int64, error) {
	if len(a.Target) > 0 {
		return gateway.ParseMemberRef(a.Target[0])
	}
	if ev.Actor != nil {
		return ev.Actor.ID, nil
	}
	return 0, fmt.Errorf("action has no target and event has no actor")
}

func (e *Executor) sendMessage(ctx context.Context, a model.Action, ev gateway.EventContext) error {
	if len(a.Value) == 0 {
		return nil
	}

	if len(a.Target) > 0 {
		for _, ref := range a.Target {
			chID, err := gateway.ParseChannelRef(ref)
			if err != nil {
				e.logger.Warn("send message: bad channel reference", zap.String("ref", ref))
				continue
			}
			if _, err := e.gw.Send(ctx, chID, a.Value[0]); err != nil {
				e.logger.Warn("send message", zap.Int64("channel", chID), zap.Error(err))
			}
		}
		return nil
	}

	chID := e.channelID(ev)
	if chID == 0 {
		return fmt.Errorf("no channel to send to and no default configured")
	}
	_, err := e.gw.Send(ctx, chID, a.Value[0])
	return err
}

func (e *Executor) deleteMessage(ctx context.Context, a model.Action, ev gateway.EventContext) error {
	if ev.Message == nil {
		return nil
	}

	var delay time.Duration
	if len(a.Value) > 0 {
		secs, err := strconv.ParseFloat(a.Value[0], 64)
		if err != nil {
			return fmt.Errorf("bad delete delay %q", a.Value[0])
		}
		delay = time.Duration(secs * float64(time.Second))
	}

	return e.gw.DeleteMessage(ctx, ev.Message.ChannelID, ev.Message.ID, delay)
}

func (e *Executor) editRole(ctx context.Context, a model.Action, ev gateway.EventContext, give bool) error {
	if len(a.Value) == 0 {
		return nil
	}

	roleID, err := gateway.ParseRoleRef(a.Value[0])
	if err != nil {
		return err
	}
	memberID, err := e.targetID(a, ev)
	if err != nil {
		return err
	}

	if give {
		return e.gw.AddRole(ctx, memberID, roleID)
	}
	return e.gw.RemoveRole(ctx, memberID, roleID)
}

func (e *Executor) timeout(ctx context.Context, a model.Action, ev gateway.EventContext) error {
	if len(a.Value) == 0 {
		return nil
	}

	secs, err := strconv.ParseFloat(a.Value[0], 64)
	if err != nil {
		return fmt.Errorf("bad timeout duration %q", a.Value[0])
	}
	memberID, err := e.targetID(a, ev)
	if err != nil {
		return err
	}

	return e.gw.Timeout(ctx, memberID, time.Duration(secs*float64(time.Second)))
}

func (e *Executor) kick(ctx context.Context, a model.Action, ev gateway.EventContext) error {
	memberID, err := e.targetID(a, ev)
	if err != nil {
		return err
	}
	return e.gw.Kick(ctx, memberID)
}

// ban removes the member from the community, posts their final score
// and drops their ledger entry.
func (e *Executor) ban(ctx context.Context, a model.Action, ev gateway.EventContext) error {
	memberID, err := e.targetID(a, ev)
	if err != nil {
		return err
	}

	var points int64
	if u, err := e.users.GetByID(ctx, memberID); err == nil {
		points = u.Points
	}

	if err := e.gw.Ban(ctx, memberID); err != nil {
		return err
	}

	if chID := e.channelID(ev); chID != 0 {
		farewell := fmt.Sprintf("%s tried hard, but the game is over for them. points: %d",
			gateway.MemberMention(memberID), points)
		if _, err := e.gw.Send(ctx, chID, farewell); err != nil {
			e.logger.Warn("send ban notice", zap.Error(err))
		}
	}

	if err := e.users.Delete(ctx, memberID); err != nil {
		e.logger.Warn("drop banned ledger entry", zap.Int64("user", memberID), zap.Error(err))
	}
	if e.lb != nil {
		if err := e.lb.Remove(ctx, memberID); err != nil {
			e.logger.Warn("drop banned leaderboard entry", zap.Int64("user", memberID), zap.Error(err))
		}
	}
	return nil
}

func (e *Executor) changeName(ctx context.Context, a model.Action, ev gateway.EventContext) error {
	if len(a.Value) == 0 {
		return nil
	}

	memberID, err := e.targetID(a, ev)
	if err != nil {
		return err
	}
	if e.ownerID != 0 && memberID == e.ownerID {
		// the platform rejects renaming the community owner anyway
		return nil
	}

	return e.gw.SetNick(ctx, memberID, a.Value[0])
}

func (e *Executor) addPoints(ctx context.Context, a model.Action, ev gateway.EventContext) error {
	if len(a.Value) == 0 {
		return nil
	}

	delta, err := strconv.ParseInt(a.Value[0], 10, 64)
	if err != nil {
		return fmt.Errorf("bad point delta %q", a.Value[0])
	}
	memberID, err := e.targetID(a, ev)
	if err != nil {
		return err
	}

	balance, err := e.users.AddPoints(ctx, memberID, delta, e.now())
	if err != nil {
		return err
	}

	if e.lb != nil {
		if err := e.lb.SetScore(ctx, memberID, balance); err != nil {
			e.logger.Warn("sync leaderboard", zap.Int64("user", memberID), zap.Error(err))
		}
	}
	return nil
}

func (e *Executor) poll(ctx context.Context, a model.Action, ev gateway.EventContext, depth int) error {
	if e.poller == nil {
		return fmt.Errorf("no poll coordinator configured")
	}

	p := polls.Poll{
		ChannelID: e.channelID(ev),
		Depth:     depth - 1,
	}
	if ev.Actor != nil {
		p.TargetID = ev.Actor.ID
	}

	if len(a.Target) > 0 {
		chID, err := gateway.ParseChannelRef(a.Target[0])
		if err != nil {
			return err
		}
		p.ChannelID = chID
	}
	if len(a.Target) > 1 {
		memberID, err := gateway.ParseMemberRef(a.Target[1])
		if err != nil {
			return err
		}
		p.TargetID = memberID
	}
	if len(a.Value) > 0 {
		id, err := parseID(a.Value[0])
		if err != nil {
			return err
		}
		p.ActionID = id
	}
	if len(a.Value) > 1 {
		secs, err := strconv.ParseInt(a.Value[1], 10, 64)
		if err != nil {
			return fmt.Errorf("bad vote duration %q", a.Value[1])
		}
		p.Duration = time.Duration(secs) * time.Second
	}

	outcome, err := e.poller.Run(ctx, p)
	if err != nil {
		return err
	}
	e.logger.Info("vote closed", zap.Int64("action", a.ID), zap.String("outcome", string(outcome)))
	return nil
}

func (e *Executor) random(ctx context.Context, a model.Action, ev gateway.EventContext, depth int) {
	ids := parseIDs(a.Value)
	if len(ids) == 0 {
		return
	}
	e.executeByID(ctx, ids[e.pick(len(ids))], ev, depth-1)
}

func (e *Executor) chain(ctx context.Context, a model.Action, ev gateway.EventContext, depth int) {
	for _, id := range parseIDs(a.Value) {
		e.executeByID(ctx, id, ev, depth-1)
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad action reference %q", s)
	}
	return id, nil
}

func parseIDs(values []string) []int64 {
	ids := make([]int64, 0, len(values))
	for _, v := range values {
		if id, err := parseID(v); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}
