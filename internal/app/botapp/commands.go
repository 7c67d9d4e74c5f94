package botapp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ivankudzin/guildmod/internal/gateway"
	tginfra "github.com/ivankudzin/guildmod/internal/infra/telegram"
	pointssvc "github.com/ivankudzin/guildmod/internal/services/points"
	pollssvc "github.com/ivankudzin/guildmod/internal/services/polls"
)

func (a *App) handleCommand(ctx context.Context, update tginfra.CommandUpdate) {
	ev := update.Event
	if ev.Actor == nil || ev.Channel == nil {
		return
	}

	switch strings.ToLower(strings.TrimSpace(update.Command)) {
	case "points", "balance":
		a.cmdPoints(ctx, ev, update.Args)
	case "give":
		a.cmdGive(ctx, ev, update.Args)
	case "leaderboard", "top":
		a.cmdLeaderboard(ctx, ev)
	case "voterule":
		a.cmdVoteRule(ctx, ev, update.Args)
	case "rules":
		a.cmdRules(ctx, ev)
	case "actions":
		a.cmdActions(ctx, ev)
	}
}

func (a *App) cmdPoints(ctx context.Context, ev gateway.EventContext, args string) {
	target := ev.Actor.ID
	if ref := strings.TrimSpace(args); ref != "" {
		id, err := gateway.ParseMemberRef(ref)
		if err != nil {
			a.reply(ctx, ev, "I don't know who that is.")
			return
		}
		target = id
	}

	balance, err := a.points.Balance(ctx, target)
	if err != nil {
		a.logger.Warn("balance command", zap.Error(err))
		return
	}
	a.reply(ctx, ev, fmt.Sprintf("%s has %d points.", gateway.MemberMention(target), balance))
}

func (a *App) cmdGive(ctx context.Context, ev gateway.EventContext, args string) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		a.reply(ctx, ev, "Usage: /give <member> <amount>")
		return
	}

	receiver, err := gateway.ParseMemberRef(fields[0])
	if err != nil {
		a.reply(ctx, ev, "I don't know who that is.")
		return
	}
	amount, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		a.reply(ctx, ev, "The amount must be a number.")
		return
	}

	switch err := a.points.Give(ctx, ev.Actor.ID, receiver, amount); {
	case errors.Is(err, pointssvc.ErrNegativeAmount):
		a.reply(ctx, ev, "Nice try. The amount must not be negative.")
	case errors.Is(err, pointssvc.ErrSelfTransfer):
		a.reply(ctx, ev, "You cannot give points to yourself.")
	case errors.Is(err, pointssvc.ErrInsufficientPoints):
		a.reply(ctx, ev, "You do not have that many points.")
	case err != nil:
		a.logger.Warn("give command", zap.Error(err))
	default:
		a.reply(ctx, ev, fmt.Sprintf("%s gave %d points to %s.",
			gateway.MemberMention(ev.Actor.ID), amount, gateway.MemberMention(receiver)))
	}
}

func (a *App) cmdLeaderboard(ctx context.Context, ev gateway.EventContext) {
	entries, err := a.points.Top(ctx, 10)
	if err != nil {
		a.logger.Warn("leaderboard command", zap.Error(err))
		return
	}
	if len(entries) == 0 {
		a.reply(ctx, ev, "Nobody has earned any points yet.")
		return
	}

	var b strings.Builder
	b.WriteString("Leaderboard:")
	for i, e := range entries {
		fmt.Fprintf(&b, "\n%d. %s: %d", i+1, gateway.MemberMention(e.UserID), e.Points)
	}
	a.reply(ctx, ev, b.String())
}

func (a *App) cmdVoteRule(ctx context.Context, ev gateway.EventContext, args string) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		a.reply(ctx, ev, "Usage: /voterule <word> <action id>")
		return
	}

	actionID, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		a.reply(ctx, ev, "The action id must be a number.")
		return
	}

	// blocks this update's goroutine for the whole voting window
	_, _, err = a.coordinator.ProposeRule(ctx, fields[0], actionID)
	switch {
	case errors.Is(err, pollssvc.ErrActionNotPublic):
		a.reply(ctx, ev, "That action cannot be used in a public vote.")
	case err != nil:
		a.logger.Warn("voterule command", zap.Error(err))
	}
}

func (a *App) cmdRules(ctx context.Context, ev gateway.EventContext) {
	rules, err := a.ruleRepo.All(ctx)
	if err != nil {
		a.logger.Warn("rules command", zap.Error(err))
		return
	}

	var b strings.Builder
	b.WriteString("Active rules:")
	listed := 0
	for _, r := range rules {
		if !r.Public {
			continue
		}
		b.WriteString("\n")
		b.WriteString(a.ruleRenderer.Render(ctx, r))
		listed++
	}
	if listed == 0 {
		a.reply(ctx, ev, "There are no public rules.")
		return
	}
	a.reply(ctx, ev, b.String())
}

func (a *App) cmdActions(ctx context.Context, ev gateway.EventContext) {
	actions, err := a.actionRepo.All(ctx)
	if err != nil {
		a.logger.Warn("actions command", zap.Error(err))
		return
	}

	var b strings.Builder
	b.WriteString("Available actions:")
	listed := 0
	for _, act := range actions {
		if !act.Public {
			continue
		}
		fmt.Fprintf(&b, "\n**%d**: %s", act.ID, a.actionRenderer.Render(ctx, act))
		listed++
	}
	if listed == 0 {
		a.reply(ctx, ev, "There are no public actions.")
		return
	}
	a.reply(ctx, ev, b.String())
}

func (a *App) reply(ctx context.Context, ev gateway.EventContext, text string) {
	var err error
	if ev.Message != nil {
		_, err = a.bot.Reply(ctx, ev.Channel.ID, ev.Message.ID, text)
	} else {
		_, err = a.bot.Send(ctx, ev.Channel.ID, text)
	}
	if err != nil {
		a.logger.Warn("send command reply", zap.Error(err))
	}
}
