package engine

import (
	"context"
	"testing"
	"time"

	"github.com/ivankudzin/guildmod/internal/domain/enums"
	"github.com/ivankudzin/guildmod/internal/domain/model"
	"github.com/ivankudzin/guildmod/internal/gateway"
	"github.com/ivankudzin/guildmod/internal/repo/postgres"
	"github.com/ivankudzin/guildmod/internal/services/rules"
)

type ruleStoreStub struct {
	byType map[enums.RuleType][]model.Rule
}

func (s *ruleStoreStub) ByType(_ context.Context, t enums.RuleType) ([]model.Rule, error) {
	return s.byType[t], nil
}

type userStoreStub struct {
	users   map[int64]model.LedgerUser
	saved   []model.LedgerUser
	touched []int64
}

func newUserStoreStub() *userStoreStub {
	return &userStoreStub{users: make(map[int64]model.LedgerUser)}
}

func (s *userStoreStub) GetByID(_ context.Context, id int64) (model.LedgerUser, error) {
	u, ok := s.users[id]
	if !ok {
		return model.LedgerUser{}, postgres.ErrLedgerUserNotFound
	}
	return u, nil
}

func (s *userStoreStub) Save(_ context.Context, user model.LedgerUser) error {
	s.users[user.ID] = user
	s.saved = append(s.saved, user)
	return nil
}

func (s *userStoreStub) Touch(_ context.Context, id int64, _ time.Time) error {
	s.touched = append(s.touched, id)
	return nil
}

type runnerStub struct {
	executed []int64
}

func (r *runnerStub) ExecuteByID(_ context.Context, id int64, _ gateway.EventContext) {
	r.executed = append(r.executed, id)
}

type oracleStub struct {
	immune map[int64]bool
	banned map[int64]bool
}

func (o *oracleStub) IsImmune(m gateway.Member) bool { return o.immune[m.ID] }
func (o *oracleStub) IsBanned(m gateway.Member) bool { return o.banned[m.ID] }

func newEngineForTest(store *ruleStoreStub, users *userStoreStub, runner *runnerStub, oracle gateway.PermissionOracle) *Engine {
	return New(Deps{
		Rules:   store,
		Users:   users,
		Runner:  runner,
		Matcher: rules.NewMatcher(nil),
		Oracle:  oracle,
	}, nil)
}

func messageEvent(actorID int64, text string) gateway.EventContext {
	return gateway.EventContext{
		Actor:   &gateway.Member{ID: actorID, DisplayName: "user"},
		Channel: &gateway.Channel{ID: 100},
		Message: &gateway.Message{ID: 1, ChannelID: 100, AuthorID: actorID, Content: text},
	}
}

func TestHandleMessageRunsMatchedActions(t *testing.T) {
	store := &ruleStoreStub{byType: map[enums.RuleType][]model.Rule{
		enums.RuleMessage: {
			{ID: 1, Type: enums.RuleMessage, Regexes: []string{"foo"}, Actions: []int64{5, 6}},
			{ID: 2, Type: enums.RuleMessage, Regexes: []string{"bar"}, Actions: []int64{7}},
		},
	}}
	users := newUserStoreStub()
	runner := &runnerStub{}
	e := newEngineForTest(store, users, runner, nil)

	e.HandleMessage(context.Background(), messageEvent(1, "foo fighters"))

	if len(runner.executed) != 2 || runner.executed[0] != 5 || runner.executed[1] != 6 {
		t.Fatalf("expected actions 5,6 in order, got %v", runner.executed)
	}
	if len(users.touched) != 1 || users.touched[0] != 1 {
		t.Fatalf("expected actor's activity touched, got %v", users.touched)
	}
}

func TestDispatchCreatesLedgerUserLazily(t *testing.T) {
	users := newUserStoreStub()
	e := newEngineForTest(&ruleStoreStub{}, users, &runnerStub{}, nil)

	e.HandleMessage(context.Background(), messageEvent(42, "hello"))

	if len(users.saved) != 1 || users.saved[0].ID != 42 {
		t.Fatalf("expected first event to create ledger user 42, got %v", users.saved)
	}
	if len(users.touched) != 0 {
		t.Fatal("expected no touch when nothing matched")
	}
}

func TestDispatchEvaluatesThresholdAgainstStoredBalance(t *testing.T) {
	store := &ruleStoreStub{byType: map[enums.RuleType][]model.Rule{
		enums.RulePointsLessThan: {
			{ID: 1, Type: enums.RulePointsLessThan, Regexes: []string{"0"}, Actions: []int64{9}},
		},
	}}
	users := newUserStoreStub()
	users.users[1] = model.LedgerUser{ID: 1, Points: -3}
	runner := &runnerStub{}
	e := newEngineForTest(store, users, runner, nil)

	e.HandleMessage(context.Background(), messageEvent(1, "anything"))

	if len(runner.executed) != 1 || runner.executed[0] != 9 {
		t.Fatalf("expected debt rule to fire, got %v", runner.executed)
	}
}

func TestImmuneActorIsNeverDispatched(t *testing.T) {
	store := &ruleStoreStub{byType: map[enums.RuleType][]model.Rule{
		enums.RuleMessage: {
			{ID: 1, Type: enums.RuleMessage, Regexes: []string{"foo"}, Actions: []int64{5}},
		},
	}}
	runner := &runnerStub{}
	oracle := &oracleStub{immune: map[int64]bool{1: true}}
	e := newEngineForTest(store, newUserStoreStub(), runner, oracle)

	e.HandleMessage(context.Background(), messageEvent(1, "foo"))

	if len(runner.executed) != 0 {
		t.Fatalf("expected no actions for immune actor, got %v", runner.executed)
	}
}

func TestBotAuthorsAreSkipped(t *testing.T) {
	store := &ruleStoreStub{byType: map[enums.RuleType][]model.Rule{
		enums.RuleMessage: {
			{ID: 1, Type: enums.RuleMessage, Regexes: []string{"."}, Actions: []int64{5}},
		},
	}}
	runner := &runnerStub{}
	e := newEngineForTest(store, newUserStoreStub(), runner, nil)

	ev := messageEvent(1, "beep boop")
	ev.Actor.Bot = true
	e.HandleMessage(context.Background(), ev)

	if len(runner.executed) != 0 {
		t.Fatalf("expected bot message to be ignored, got %v", runner.executed)
	}
}

func TestCategoryOrderPrecedesStoreOrder(t *testing.T) {
	store := &ruleStoreStub{byType: map[enums.RuleType][]model.Rule{
		enums.RuleMessage: {
			{ID: 1, Type: enums.RuleMessage, Regexes: []string{"foo"}, Actions: []int64{1}},
		},
		enums.RulePointsLessThan: {
			{ID: 2, Type: enums.RulePointsLessThan, Regexes: []string{"100"}, Actions: []int64{2}},
		},
	}}
	users := newUserStoreStub()
	users.users[1] = model.LedgerUser{ID: 1, Points: 0}
	runner := &runnerStub{}
	e := newEngineForTest(store, users, runner, nil)

	e.HandleMessage(context.Background(), messageEvent(1, "foo"))

	if len(runner.executed) != 2 || runner.executed[0] != 1 || runner.executed[1] != 2 {
		t.Fatalf("expected message category before threshold category, got %v", runner.executed)
	}
}
