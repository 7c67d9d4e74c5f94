package rules

import (
	"testing"
	"time"

	"github.com/ivankudzin/guildmod/internal/domain/enums"
	"github.com/ivankudzin/guildmod/internal/domain/model"
	"github.com/ivankudzin/guildmod/internal/gateway"
)

func messageEvent(text string) gateway.EventContext {
	return gateway.EventContext{
		Actor:   &gateway.Member{ID: 1, DisplayName: "alice"},
		Channel: &gateway.Channel{ID: 100},
		Message: &gateway.Message{ID: 1, ChannelID: 100, AuthorID: 1, Content: text},
	}
}

func TestMessageRuleMatchesAnyPattern(t *testing.T) {
	m := NewMatcher(nil)
	rule := model.Rule{Type: enums.RuleMessage, Regexes: []string{"foo", "bar"}}

	if !m.Check(rule, messageEvent("nothing but bar here"), model.LedgerUser{}) {
		t.Fatal("expected second pattern to match")
	}
	if m.Check(rule, messageEvent("clean"), model.LedgerUser{}) {
		t.Fatal("expected no match")
	}
}

func TestMessageRuleScansAttachmentNames(t *testing.T) {
	m := NewMatcher(nil)
	rule := model.Rule{Type: enums.RuleMessage, Regexes: []string{`\.exe$`}}

	ev := messageEvent("look at this")
	ev.Message.Attachments = []gateway.Attachment{{Filename: "totally-safe.exe"}}

	if !m.Check(rule, ev, model.LedgerUser{}) {
		t.Fatal("expected attachment name to match")
	}
}

func TestMessageRuleInvalidPatternNeverMatches(t *testing.T) {
	m := NewMatcher(nil)
	rule := model.Rule{Type: enums.RuleMessage, Regexes: []string{"(unclosed"}}

	if m.Check(rule, messageEvent("(unclosed"), model.LedgerUser{}) {
		t.Fatal("expected malformed pattern to be skipped")
	}
}

func TestActivityRuleScansAllFields(t *testing.T) {
	m := NewMatcher(nil)
	rule := model.Rule{Type: enums.RuleActivity, Regexes: []string{"(?i)rick astley"}}

	ev := gateway.EventContext{Actor: &gateway.Member{
		ID: 1,
		Activities: []gateway.Activity{
			{Name: "Spotify", Title: "Never Gonna Give You Up", Artist: "Rick Astley"},
		},
	}}

	if !m.Check(rule, ev, model.LedgerUser{}) {
		t.Fatal("expected artist field to match")
	}
}

func TestReactionRuleMatchesLiteralOrCustomID(t *testing.T) {
	m := NewMatcher(nil)

	literal := model.Rule{Type: enums.RuleReaction, Regexes: []string{"👎"}}
	if !m.Check(literal, gateway.EventContext{Reaction: &gateway.Reaction{Emoji: "👎"}}, model.LedgerUser{}) {
		t.Fatal("expected literal emoji to match")
	}

	custom := model.Rule{Type: enums.RuleReaction, Regexes: []string{"123456"}}
	ev := gateway.EventContext{Reaction: &gateway.Reaction{Emoji: "pepe", CustomID: 123456}}
	if !m.Check(custom, ev, model.LedgerUser{}) {
		t.Fatal("expected custom emoji id to match")
	}

	zero := model.Rule{Type: enums.RuleReaction, Regexes: []string{"^0$"}}
	if m.Check(zero, gateway.EventContext{Reaction: &gateway.Reaction{Emoji: "👍"}}, model.LedgerUser{}) {
		t.Fatal("unicode reaction must not expose a literal zero id")
	}
}

func TestNameRuleMatchesDisplayName(t *testing.T) {
	m := NewMatcher(nil)
	rule := model.Rule{Type: enums.RuleName, Regexes: []string{"^admin"}}

	ev := gateway.EventContext{Actor: &gateway.Member{ID: 1, DisplayName: "admin-wannabe"}}
	if !m.Check(rule, ev, model.LedgerUser{}) {
		t.Fatal("expected display name to match")
	}
}

func TestPointThresholdRules(t *testing.T) {
	m := NewMatcher(nil)
	less := model.Rule{Type: enums.RulePointsLessThan, Regexes: []string{"0"}}
	more := model.Rule{Type: enums.RulePointsGreaterThan, Regexes: []string{"100"}}

	broke := model.LedgerUser{ID: 1, Points: -5}
	rich := model.LedgerUser{ID: 2, Points: 150}

	if !m.Check(less, gateway.EventContext{}, broke) {
		t.Fatal("expected negative balance to be below 0")
	}
	if m.Check(less, gateway.EventContext{}, rich) {
		t.Fatal("expected rich user not to match less-than rule")
	}
	if !m.Check(more, gateway.EventContext{}, rich) {
		t.Fatal("expected rich user to match greater-than rule")
	}

	bad := model.Rule{Type: enums.RulePointsLessThan, Regexes: []string{"lots"}}
	if m.Check(bad, gateway.EventContext{}, broke) {
		t.Fatal("expected non-numeric threshold never to match")
	}
}

func TestRoleRuleRequiresHeldRole(t *testing.T) {
	m := NewMatcher(nil)
	rule := model.Rule{Type: enums.RuleRole, Regexes: []string{"<@&9>"}}

	holder := messageEvent("whatever")
	holder.Actor.Roles = []gateway.Role{{ID: 9, Name: "muted"}}
	if !m.Check(rule, holder, model.LedgerUser{}) {
		t.Fatal("expected role holder to match")
	}

	outsider := messageEvent("whatever")
	if m.Check(rule, outsider, model.LedgerUser{}) {
		t.Fatal("expected member without the role not to match")
	}
}

func TestRoleRuleAndsMessagePatterns(t *testing.T) {
	m := NewMatcher(nil)
	rule := model.Rule{Type: enums.RuleRole, Regexes: []string{"<@&9>", "spam"}}

	ev := messageEvent("pure spam")
	ev.Actor.Roles = []gateway.Role{{ID: 9}}
	if !m.Check(rule, ev, model.LedgerUser{}) {
		t.Fatal("expected role plus matching message to fire")
	}

	clean := messageEvent("innocent")
	clean.Actor.Roles = []gateway.Role{{ID: 9}}
	if m.Check(rule, clean, model.LedgerUser{}) {
		t.Fatal("expected non-matching message to block the rule")
	}
}

func TestLastActivityRuleComparesMinutes(t *testing.T) {
	m := NewMatcher(nil)
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return base }

	rule := model.Rule{Type: enums.RuleLastActivity, Regexes: []string{"60"}}

	idle := model.LedgerUser{ID: 1, LastActivity: base.Add(-2 * time.Hour)}
	if !m.Check(rule, gateway.EventContext{}, idle) {
		t.Fatal("expected two hours idle to exceed 60 minutes")
	}

	active := model.LedgerUser{ID: 2, LastActivity: base.Add(-10 * time.Minute)}
	if m.Check(rule, gateway.EventContext{}, active) {
		t.Fatal("expected recently active user not to match")
	}

	fresh := model.LedgerUser{ID: 3}
	if m.Check(rule, gateway.EventContext{}, fresh) {
		t.Fatal("expected zero last-activity never to match")
	}
}
