package polls

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ivankudzin/guildmod/internal/domain/enums"
	"github.com/ivankudzin/guildmod/internal/domain/model"
	"github.com/ivankudzin/guildmod/internal/gateway"
	"github.com/ivankudzin/guildmod/internal/gateway/gatewaytest"
)

type actionStoreStub struct {
	actions map[int64]model.Action
}

func (s *actionStoreStub) GetByID(_ context.Context, id int64) (model.Action, error) {
	a, ok := s.actions[id]
	if !ok {
		return model.Action{}, errors.New("action not found")
	}
	return a, nil
}

type ruleStoreStub struct {
	saved []model.Rule
}

func (s *ruleStoreStub) Save(_ context.Context, rule model.Rule) (model.Rule, error) {
	rule.ID = int64(len(s.saved)) + 1
	s.saved = append(s.saved, rule)
	return rule, nil
}

type runnerStub struct {
	id    int64
	actor int64
	depth int
	runs  int
}

func (r *runnerStub) ExecuteLinked(_ context.Context, id int64, ev gateway.EventContext, depth int) {
	r.id = id
	if ev.Actor != nil {
		r.actor = ev.Actor.ID
	}
	r.depth = depth
	r.runs++
}

type actionRendererStub struct{}

func (actionRendererStub) RenderByID(_ context.Context, _ int64) string { return "Ban user <@2>" }

type ruleRendererStub struct{}

func (ruleRendererStub) Render(_ context.Context, _ model.Rule) string {
	return "If a message matches badword"
}

// voteWith replaces the open-window sleep with an immediate injection
// of reaction tallies onto the prompt message.
func voteWith(fake *gatewaytest.Fake, up, down int) func(time.Duration) {
	return func(time.Duration) {
		fake.SetReactions(1,
			gateway.Reaction{Emoji: "👍", Count: up},
			gateway.Reaction{Emoji: "👎", Count: down},
		)
	}
}

func newCoordinatorForTest(fake *gatewaytest.Fake, runner *runnerStub, rules *ruleStoreStub, actions *actionStoreStub) *Coordinator {
	c := New(Deps{
		Gateway:        fake,
		Actions:        actions,
		Rules:          rules,
		Runner:         runner,
		ActionRenderer: actionRendererStub{},
		RuleRenderer:   ruleRendererStub{},
	}, Config{DefaultChannelID: 500}, nil)
	c.sleep = func(time.Duration) {}
	return c
}

func TestRunPassedExecutesLinkedActionAsTarget(t *testing.T) {
	fake := gatewaytest.New()
	fake.Members[2] = gateway.Member{ID: 2, DisplayName: "bob"}
	runner := &runnerStub{}
	c := newCoordinatorForTest(fake, runner, &ruleStoreStub{}, &actionStoreStub{})
	c.sleep = voteWith(fake, 3, 1)

	outcome, err := c.Run(context.Background(), Poll{ChannelID: 100, TargetID: 2, ActionID: 3, Depth: 5})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if outcome != OutcomePassed {
		t.Fatalf("expected passed, got %s", outcome)
	}

	if runner.runs != 1 || runner.id != 3 {
		t.Fatalf("expected linked action 3 executed once, got %+v", runner)
	}
	if runner.actor != 2 {
		t.Fatalf("expected vote target as actor, got %d", runner.actor)
	}
	if runner.depth != 5 {
		t.Fatalf("expected depth budget handed over, got %d", runner.depth)
	}

	sent, _ := fake.LastSent()
	if !strings.Contains(sent.Text, "passed") {
		t.Fatalf("expected success notice, got %q", sent.Text)
	}
}

func TestRunFailedHasNoSideEffect(t *testing.T) {
	fake := gatewaytest.New()
	runner := &runnerStub{}
	c := newCoordinatorForTest(fake, runner, &ruleStoreStub{}, &actionStoreStub{})
	c.sleep = voteWith(fake, 1, 2)

	outcome, err := c.Run(context.Background(), Poll{ChannelID: 100, TargetID: 2, ActionID: 3})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if outcome != OutcomeFailed {
		t.Fatalf("expected failed, got %s", outcome)
	}
	if runner.runs != 0 {
		t.Fatal("expected no linked action on failure")
	}
}

func TestRunTieFails(t *testing.T) {
	fake := gatewaytest.New()
	c := newCoordinatorForTest(fake, &runnerStub{}, &ruleStoreStub{}, &actionStoreStub{})
	c.sleep = voteWith(fake, 2, 2)

	outcome, err := c.Run(context.Background(), Poll{ChannelID: 100, TargetID: 2})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if outcome != OutcomeFailed {
		t.Fatalf("expected tie to fail, got %s", outcome)
	}
}

func TestRunSeedsVoteReactions(t *testing.T) {
	fake := gatewaytest.New()
	c := newCoordinatorForTest(fake, &runnerStub{}, &ruleStoreStub{}, &actionStoreStub{})

	if _, err := c.Run(context.Background(), Poll{ChannelID: 100, TargetID: 2}); err != nil {
		t.Fatalf("run: %v", err)
	}

	seeded := fake.Reactions[1]
	if len(seeded) != 2 || seeded[0] != "👍" || seeded[1] != "👎" {
		t.Fatalf("expected both vote reactions seeded, got %v", seeded)
	}
}

func TestRunWithoutChannelFallsBackThenErrors(t *testing.T) {
	fake := gatewaytest.New()
	c := newCoordinatorForTest(fake, &runnerStub{}, &ruleStoreStub{}, &actionStoreStub{})

	if _, err := c.Run(context.Background(), Poll{TargetID: 2}); err != nil {
		t.Fatalf("expected fallback to default channel, got %v", err)
	}
	sent, _ := fake.LastSent()
	if sent.ChannelID != 500 {
		t.Fatalf("expected default channel, got %d", sent.ChannelID)
	}

	bare := New(Deps{Gateway: fake}, Config{}, nil)
	bare.sleep = func(time.Duration) {}
	if _, err := bare.Run(context.Background(), Poll{TargetID: 2}); !errors.Is(err, ErrNoChannel) {
		t.Fatalf("expected ErrNoChannel, got %v", err)
	}
}

func TestProposeRulePersistsOnlyOnPass(t *testing.T) {
	actions := &actionStoreStub{actions: map[int64]model.Action{
		3: {ID: 3, Type: enums.ActionTimeout, Value: []string{"60"}, Public: true},
	}}

	fake := gatewaytest.New()
	rules := &ruleStoreStub{}
	c := newCoordinatorForTest(fake, &runnerStub{}, rules, actions)
	c.sleep = voteWith(fake, 4, 1)

	outcome, saved, err := c.ProposeRule(context.Background(), "badword", 3)
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if outcome != OutcomePassed {
		t.Fatalf("expected passed, got %s", outcome)
	}
	if len(rules.saved) != 1 || saved.ID == 0 {
		t.Fatalf("expected rule persisted, got %+v", rules.saved)
	}
	r := rules.saved[0]
	if r.Type != enums.RuleMessage || len(r.Regexes) != 1 || r.Regexes[0] != "badword" || !r.Public {
		t.Fatalf("unexpected proposed rule: %+v", r)
	}
	if len(r.Actions) != 1 || r.Actions[0] != 3 {
		t.Fatalf("expected linked action 3, got %v", r.Actions)
	}
}

func TestProposeRuleRejectedVoteDoesNotPersist(t *testing.T) {
	actions := &actionStoreStub{actions: map[int64]model.Action{
		3: {ID: 3, Type: enums.ActionTimeout, Public: true},
	}}

	fake := gatewaytest.New()
	rules := &ruleStoreStub{}
	c := newCoordinatorForTest(fake, &runnerStub{}, rules, actions)
	c.sleep = voteWith(fake, 1, 3)

	outcome, _, err := c.ProposeRule(context.Background(), "badword", 3)
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if outcome != OutcomeFailed || len(rules.saved) != 0 {
		t.Fatalf("expected no persistence on failure, got %s %v", outcome, rules.saved)
	}
}

func TestProposeRuleRequiresPublicAction(t *testing.T) {
	actions := &actionStoreStub{actions: map[int64]model.Action{
		3: {ID: 3, Type: enums.ActionTimeout, Public: false},
	}}
	c := newCoordinatorForTest(gatewaytest.New(), &runnerStub{}, &ruleStoreStub{}, actions)

	if _, _, err := c.ProposeRule(context.Background(), "badword", 3); !errors.Is(err, ErrActionNotPublic) {
		t.Fatalf("expected ErrActionNotPublic, got %v", err)
	}
}
