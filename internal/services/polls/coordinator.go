// Package polls implements the timed yes/no vote used by the poll
// action and by rule proposals.
//
// A poll moves through three states: pending (prompt not yet posted),
// open (reactions accumulate for a fixed window) and closed. The open
// window is a plain timed wait by contract: it cannot be shortened or
// cancelled, and there is no early close on quorum.
package polls

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ivankudzin/guildmod/internal/domain/enums"
	"github.com/ivankudzin/guildmod/internal/domain/model"
	"github.com/ivankudzin/guildmod/internal/gateway"
)

const (
	upvoteEmoji   = "👍"
	downvoteEmoji = "👎"

	DefaultDuration         = 5 * time.Minute
	DefaultProposalDuration = 30 * time.Minute
)

var (
	ErrActionNotPublic = errors.New("linked action is not public")
	ErrNoChannel       = errors.New("no channel configured for the vote")
)

type Outcome string

const (
	OutcomePassed Outcome = "passed"
	OutcomeFailed Outcome = "failed"
)

// Poll describes one vote. ActionID of zero means no linked action.
// Depth is the remaining action-recursion budget handed over from the
// executor that started the poll; at zero the budget is spent and the
// linked action will not run even if the vote passes.
type Poll struct {
	ChannelID int64
	TargetID  int64
	ActionID  int64
	Duration  time.Duration
	Depth     int
}

type ActionStore interface {
	GetByID(ctx context.Context, id int64) (model.Action, error)
}

type RuleStore interface {
	Save(ctx context.Context, rule model.Rule) (model.Rule, error)
}

// ActionRunner executes a linked action once a vote passes. The runner
// owns error isolation: execution failures are logged there and never
// reach the coordinator.
type ActionRunner interface {
	ExecuteLinked(ctx context.Context, id int64, ev gateway.EventContext, depth int)
}

type ActionRenderer interface {
	RenderByID(ctx context.Context, id int64) string
}

type RuleRenderer interface {
	Render(ctx context.Context, rule model.Rule) string
}

type Deps struct {
	Gateway        gateway.Gateway
	Actions        ActionStore
	Rules          RuleStore
	Runner         ActionRunner
	ActionRenderer ActionRenderer
	RuleRenderer   RuleRenderer
}

type Config struct {
	DefaultDuration  time.Duration
	ProposalDuration time.Duration
	DefaultChannelID int64
}

type Coordinator struct {
	gw             gateway.Gateway
	actions        ActionStore
	rules          RuleStore
	runner         ActionRunner
	actionRenderer ActionRenderer
	ruleRenderer   RuleRenderer
	logger         *zap.Logger

	defaultDuration  time.Duration
	proposalDuration time.Duration
	defaultChannelID int64

	now   func() time.Time
	sleep func(time.Duration)
}

func New(deps Deps, cfg Config, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultDuration <= 0 {
		cfg.DefaultDuration = DefaultDuration
	}
	if cfg.ProposalDuration <= 0 {
		cfg.ProposalDuration = DefaultProposalDuration
	}

	return &Coordinator{
		gw:               deps.Gateway,
		actions:          deps.Actions,
		rules:            deps.Rules,
		runner:           deps.Runner,
		actionRenderer:   deps.ActionRenderer,
		ruleRenderer:     deps.RuleRenderer,
		logger:           logger,
		defaultDuration:  cfg.DefaultDuration,
		proposalDuration: cfg.ProposalDuration,
		defaultChannelID: cfg.DefaultChannelID,
		now:              time.Now,
		sleep:            time.Sleep,
	}
}

// Run executes one vote from prompt to tally and returns the outcome.
// It blocks the calling goroutine for the whole voting window.
func (c *Coordinator) Run(ctx context.Context, p Poll) (Outcome, error) {
	if p.ChannelID == 0 {
		p.ChannelID = c.defaultChannelID
	}
	if p.ChannelID == 0 {
		return "", ErrNoChannel
	}

	duration := p.Duration
	if duration <= 0 {
		duration = c.defaultDuration
	}

	prompt := c.prompt(ctx, p, duration)
	msg, err := c.open(ctx, p.ChannelID, prompt)
	if err != nil {
		return "", err
	}

	c.logger.Info("vote opened",
		zap.Int64("channel", p.ChannelID),
		zap.Int64("target", p.TargetID),
		zap.Duration("window", duration))

	c.sleep(duration)

	net, err := c.tally(ctx, p.ChannelID, msg.ID)
	if err != nil {
		return "", err
	}

	target := gateway.MemberMention(p.TargetID)
	if net > 0 {
		c.reply(ctx, p.ChannelID, msg.ID,
			fmt.Sprintf("The vote against %s passed with a majority.", target))
		if p.ActionID != 0 {
			c.runLinked(ctx, p)
		}
		return OutcomePassed, nil
	}

	c.reply(ctx, p.ChannelID, msg.ID,
		fmt.Sprintf("The vote against %s did not reach a majority.", target))
	return OutcomeFailed, nil
}

// ProposeRule runs a community vote on a new message rule banning a
// word, with the given public action as its effect. The rule is
// persisted only when the vote passes.
func (c *Coordinator) ProposeRule(ctx context.Context, word string, actionID int64) (Outcome, model.Rule, error) {
	action, err := c.actions.GetByID(ctx, actionID)
	if err != nil {
		return "", model.Rule{}, fmt.Errorf("resolve proposed action: %w", err)
	}
	if !action.Public {
		return "", model.Rule{}, ErrActionNotPublic
	}
	if c.defaultChannelID == 0 {
		return "", model.Rule{}, ErrNoChannel
	}

	rule := model.Rule{
		Type:    enums.RuleMessage,
		Regexes: []string{word},
		Actions: []int64{actionID},
		Public:  true,
	}

	prompt := fmt.Sprintf(
		"A vote to add a new rule has started:\n%s\nMore than 50%% of the votes are needed. Voting lasts `%s`.",
		c.ruleRenderer.Render(ctx, rule), c.proposalDuration)

	msg, err := c.open(ctx, c.defaultChannelID, prompt)
	if err != nil {
		return "", model.Rule{}, err
	}

	c.sleep(c.proposalDuration)

	net, err := c.tally(ctx, c.defaultChannelID, msg.ID)
	if err != nil {
		return "", model.Rule{}, err
	}

	if net > 0 {
		saved, err := c.rules.Save(ctx, rule)
		if err != nil {
			return "", model.Rule{}, fmt.Errorf("persist voted rule: %w", err)
		}
		c.reply(ctx, c.defaultChannelID, msg.ID,
			fmt.Sprintf("The vote on rule **%d** passed with a majority.", saved.ID))
		c.logger.Info("rule added by vote", zap.Int64("rule", saved.ID))
		return OutcomePassed, saved, nil
	}

	c.reply(ctx, c.defaultChannelID, msg.ID,
		"The vote on the proposed rule did not reach a majority.")
	return OutcomeFailed, model.Rule{}, nil
}

func (c *Coordinator) prompt(ctx context.Context, p Poll, duration time.Duration) string {
	s := fmt.Sprintf("A vote against %s has started.\nMore than 50%% of the votes are needed",
		gateway.MemberMention(p.TargetID))
	if p.ActionID != 0 {
		s += ", to run: " + c.actionRenderer.RenderByID(ctx, p.ActionID)
	}
	s += fmt.Sprintf(".\nVoting closes at `%s`.", c.now().Add(duration).Format("15:04"))
	return s
}

func (c *Coordinator) open(ctx context.Context, channelID int64, prompt string) (gateway.Message, error) {
	msg, err := c.gw.Send(ctx, channelID, prompt)
	if err != nil {
		return gateway.Message{}, fmt.Errorf("post vote prompt: %w", err)
	}

	for _, emoji := range []string{upvoteEmoji, downvoteEmoji} {
		if err := c.gw.AddReaction(ctx, channelID, msg.ID, emoji); err != nil {
			c.logger.Warn("seed vote reaction", zap.String("emoji", emoji), zap.Error(err))
		}
	}
	return msg, nil
}

func (c *Coordinator) tally(ctx context.Context, channelID, messageID int64) (int, error) {
	msg, err := c.gw.FetchMessage(ctx, channelID, messageID)
	if err != nil {
		return 0, fmt.Errorf("fetch vote message: %w", err)
	}

	net := 0
	for _, r := range msg.Reactions {
		switch r.Emoji {
		case upvoteEmoji:
			net += r.Count
		case downvoteEmoji:
			net -= r.Count
		}
	}
	return net, nil
}

func (c *Coordinator) runLinked(ctx context.Context, p Poll) {
	ev := gateway.EventContext{
		Channel: &gateway.Channel{ID: p.ChannelID},
	}

	// The passed vote's target becomes the actor of the linked action.
	target, err := c.gw.FetchMember(ctx, p.TargetID)
	if err != nil {
		c.logger.Warn("fetch vote target", zap.Int64("target", p.TargetID), zap.Error(err))
		target = gateway.Member{ID: p.TargetID}
	}
	ev.Actor = &target

	c.runner.ExecuteLinked(ctx, p.ActionID, ev, p.Depth)
}

func (c *Coordinator) reply(ctx context.Context, channelID, messageID int64, text string) {
	if _, err := c.gw.Reply(ctx, channelID, messageID, text); err != nil {
		c.logger.Warn("post vote result", zap.Error(err))
	}
}
