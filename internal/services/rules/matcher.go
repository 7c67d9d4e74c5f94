// Package rules evaluates persisted rules against event contexts and
// renders them for the audit surface.
package rules

import (
	"regexp"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ivankudzin/guildmod/internal/domain/enums"
	"github.com/ivankudzin/guildmod/internal/domain/model"
	"github.com/ivankudzin/guildmod/internal/gateway"
)

// Matcher decides whether a rule fires for an event. Evaluation is
// pure: it reads the event context and the actor's ledger entry, never
// the stores. A malformed pattern or threshold simply does not match.
type Matcher struct {
	logger *zap.Logger

	now func() time.Time
}

func NewMatcher(logger *zap.Logger) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{logger: logger, now: time.Now}
}

// Check reports whether the rule matches. The regex list is an OR: the
// first pattern that matches any candidate text decides.
func (m *Matcher) Check(r model.Rule, ev gateway.EventContext, user model.LedgerUser) bool {
	switch r.Type {
	case enums.RuleMessage:
		return m.checkMessage(r.Regexes, ev)
	case enums.RuleActivity:
		return m.checkActivity(r.Regexes, ev)
	case enums.RuleReaction:
		return m.checkReaction(r.Regexes, ev)
	case enums.RuleName:
		return ev.Actor != nil && m.matchAny(r.Regexes, ev.Actor.DisplayName)
	case enums.RulePointsLessThan:
		threshold, ok := m.threshold(r)
		return ok && user.Points < threshold
	case enums.RulePointsGreaterThan:
		threshold, ok := m.threshold(r)
		return ok && user.Points > threshold
	case enums.RuleRole:
		return m.checkRole(r.Regexes, ev)
	case enums.RuleLastActivity:
		return m.checkLastActivity(r, user)
	}
	return false
}

func (m *Matcher) checkMessage(patterns []string, ev gateway.EventContext) bool {
	if ev.Message == nil {
		return false
	}
	if m.matchAny(patterns, ev.Message.Content) {
		return true
	}
	for _, att := range ev.Message.Attachments {
		if m.matchAny(patterns, att.Filename) {
			return true
		}
	}
	return false
}

func (m *Matcher) checkActivity(patterns []string, ev gateway.EventContext) bool {
	if ev.Actor == nil {
		return false
	}
	for _, act := range ev.Actor.Activities {
		if m.matchAny(patterns, act.Name, act.Title, act.Artist) {
			return true
		}
	}
	return false
}

func (m *Matcher) checkReaction(patterns []string, ev gateway.EventContext) bool {
	if ev.Reaction == nil {
		return false
	}
	// a zero custom id means a unicode emoji; don't offer "0" to match
	texts := []string{ev.Reaction.Emoji}
	if ev.Reaction.CustomID != 0 {
		texts = append(texts, strconv.FormatInt(ev.Reaction.CustomID, 10))
	}
	return m.matchAny(patterns, texts...)
}

// checkRole requires the actor to hold the role referenced by the
// first pattern. Remaining patterns, if any, must also match the
// message text.
func (m *Matcher) checkRole(patterns []string, ev gateway.EventContext) bool {
	if ev.Actor == nil || len(patterns) == 0 {
		return false
	}

	roleID, err := gateway.ParseRoleRef(patterns[0])
	if err != nil {
		return false
	}
	held := false
	for _, role := range ev.Actor.Roles {
		if role.ID == roleID {
			held = true
			break
		}
	}
	if !held {
		return false
	}

	rest := patterns[1:]
	if len(rest) == 0 {
		return true
	}
	return ev.Message != nil && m.matchAny(rest, ev.Message.Content)
}

func (m *Matcher) checkLastActivity(r model.Rule, user model.LedgerUser) bool {
	if len(r.Regexes) == 0 || user.LastActivity.IsZero() {
		return false
	}
	minutes, err := strconv.ParseFloat(r.Regexes[0], 64)
	if err != nil {
		m.logger.Warn("bad inactivity threshold", zap.Int64("rule", r.ID), zap.String("value", r.Regexes[0]))
		return false
	}
	idle := m.now().Sub(user.LastActivity)
	return idle > time.Duration(minutes*float64(time.Minute))
}

func (m *Matcher) threshold(r model.Rule) (int64, bool) {
	if len(r.Regexes) == 0 {
		return 0, false
	}
	threshold, err := strconv.ParseInt(r.Regexes[0], 10, 64)
	if err != nil {
		m.logger.Warn("bad point threshold", zap.Int64("rule", r.ID), zap.String("value", r.Regexes[0]))
		return 0, false
	}
	return threshold, true
}

func (m *Matcher) matchAny(patterns []string, texts ...string) bool {
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			m.logger.Warn("bad rule pattern", zap.String("pattern", pattern), zap.Error(err))
			continue
		}
		for _, text := range texts {
			if text == "" {
				continue
			}
			if re.MatchString(text) {
				return true
			}
		}
	}
	return false
}
