package points

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ivankudzin/guildmod/internal/domain/model"
	"github.com/ivankudzin/guildmod/internal/gateway"
	"github.com/ivankudzin/guildmod/internal/gateway/gatewaytest"
	"github.com/ivankudzin/guildmod/internal/repo/postgres"
)

type userStoreStub struct {
	users map[int64]model.LedgerUser
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

func (s *userStoreStub) All(_ context.Context) ([]model.LedgerUser, error) {
	users := make([]model.LedgerUser, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	return users, nil
}

func (s *userStoreStub) AddPoints(_ context.Context, id int64, delta int64, now time.Time) (int64, error) {
	u, ok := s.users[id]
	if !ok {
		u = model.LedgerUser{ID: id, LastActivity: now}
	}
	u.Points += delta
	s.users[id] = u
	return u.Points, nil
}

func (s *userStoreStub) Touch(_ context.Context, id int64, at time.Time) error {
	u := s.users[id]
	u.ID = id
	u.LastActivity = at
	s.users[id] = u
	return nil
}

type leaderboardStub struct {
	scores  map[int64]int64
	entries []model.LeaderboardEntry
	err     error
}

func (l *leaderboardStub) SetScore(_ context.Context, userID, points int64) error {
	if l.scores == nil {
		l.scores = make(map[int64]int64)
	}
	l.scores[userID] = points
	return nil
}

func (l *leaderboardStub) Top(_ context.Context, _ int64) ([]model.LeaderboardEntry, error) {
	return l.entries, l.err
}

func messageEvent(actorID int64, text string) gateway.EventContext {
	return gateway.EventContext{
		Actor:   &gateway.Member{ID: actorID, DisplayName: "user"},
		Channel: &gateway.Channel{ID: 100},
		Message: &gateway.Message{ID: 1, ChannelID: 100, AuthorID: actorID, Content: text},
	}
}

func TestOnMessageCreditsAuthor(t *testing.T) {
	users := newUserStoreStub()
	svc := New(users, gatewaytest.New(), nil, Config{}, nil)

	svc.OnMessage(context.Background(), messageEvent(1, "hello there"))

	if users.users[1].Points != 1 {
		t.Fatalf("expected 1 point, got %d", users.users[1].Points)
	}
	if users.users[1].LastActivity.IsZero() {
		t.Fatal("expected activity timestamp set")
	}
}

func TestOnMessageSkipsBots(t *testing.T) {
	users := newUserStoreStub()
	svc := New(users, gatewaytest.New(), nil, Config{}, nil)

	ev := messageEvent(1, "beep")
	ev.Actor.Bot = true
	svc.OnMessage(context.Background(), ev)

	if len(users.users) != 0 {
		t.Fatalf("expected no ledger writes for bots, got %v", users.users)
	}
}

func TestOnMessageUsesInjectedScorer(t *testing.T) {
	users := newUserStoreStub()
	svc := New(users, gatewaytest.New(), func(string) int64 { return 42 }, Config{}, nil)

	svc.OnMessage(context.Background(), messageEvent(1, "x"))

	if users.users[1].Points != 42 {
		t.Fatalf("expected 42 points from injected scorer, got %d", users.users[1].Points)
	}
}

type throttleStub struct {
	allow bool
	err   error
	calls int
}

func (s *throttleStub) AllowEarn(context.Context, int64) (bool, error) {
	s.calls++
	return s.allow, s.err
}

func TestOnMessageHonorsThrottle(t *testing.T) {
	users := newUserStoreStub()
	svc := New(users, gatewaytest.New(), nil, Config{}, nil)
	svc.AttachThrottle(&throttleStub{allow: false})

	svc.OnMessage(context.Background(), messageEvent(1, "spam"))

	if users.users[1].Points != 0 {
		t.Fatalf("throttled message must not earn, got %d", users.users[1].Points)
	}
	if users.users[1].LastActivity.IsZero() {
		t.Fatal("throttled message still counts as activity")
	}
}

func TestOnMessageEarnsWhenThrottleFails(t *testing.T) {
	users := newUserStoreStub()
	svc := New(users, gatewaytest.New(), nil, Config{}, nil)
	svc.AttachThrottle(&throttleStub{err: errors.New("redis down")})

	svc.OnMessage(context.Background(), messageEvent(1, "hello"))

	if users.users[1].Points != 1 {
		t.Fatalf("throttle outage must fail open, got %d points", users.users[1].Points)
	}
}

func TestGiveTransfersBetweenMembers(t *testing.T) {
	users := newUserStoreStub()
	users.users[1] = model.LedgerUser{ID: 1, Points: 10}
	lb := &leaderboardStub{}
	svc := New(users, gatewaytest.New(), nil, Config{}, nil)
	svc.AttachLeaderboard(lb)

	if err := svc.Give(context.Background(), 1, 2, 4); err != nil {
		t.Fatalf("give: %v", err)
	}

	if users.users[1].Points != 6 || users.users[2].Points != 4 {
		t.Fatalf("unexpected balances: %v", users.users)
	}
	if lb.scores[1] != 6 || lb.scores[2] != 4 {
		t.Fatalf("leaderboard out of sync: %v", lb.scores)
	}
}

func TestGiveValidation(t *testing.T) {
	users := newUserStoreStub()
	users.users[1] = model.LedgerUser{ID: 1, Points: 3}
	svc := New(users, gatewaytest.New(), nil, Config{}, nil)

	if err := svc.Give(context.Background(), 1, 2, -1); !errors.Is(err, ErrNegativeAmount) {
		t.Fatalf("expected ErrNegativeAmount, got %v", err)
	}
	if err := svc.Give(context.Background(), 1, 1, 1); !errors.Is(err, ErrSelfTransfer) {
		t.Fatalf("expected ErrSelfTransfer, got %v", err)
	}
	if err := svc.Give(context.Background(), 1, 2, 5); !errors.Is(err, ErrInsufficientPoints) {
		t.Fatalf("expected ErrInsufficientPoints, got %v", err)
	}

	if users.users[1].Points != 3 {
		t.Fatalf("expected rejected transfers to leave balance untouched, got %d", users.users[1].Points)
	}
}

func TestBalanceOfUnknownMemberIsZero(t *testing.T) {
	svc := New(newUserStoreStub(), gatewaytest.New(), nil, Config{}, nil)

	balance, err := svc.Balance(context.Background(), 404)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 0 {
		t.Fatalf("expected zero balance, got %d", balance)
	}
}

func TestTopFallsBackToLedgerScan(t *testing.T) {
	users := newUserStoreStub()
	users.users[1] = model.LedgerUser{ID: 1, Points: 5}
	users.users[2] = model.LedgerUser{ID: 2, Points: 50}
	users.users[3] = model.LedgerUser{ID: 3, Points: 20}
	svc := New(users, gatewaytest.New(), nil, Config{}, nil)
	svc.AttachLeaderboard(&leaderboardStub{err: errors.New("redis down")})

	top, err := svc.Top(context.Background(), 2)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 2 || top[0].UserID != 2 || top[1].UserID != 3 {
		t.Fatalf("unexpected standings: %+v", top)
	}
}

func TestOnMemberRemovePostsFarewell(t *testing.T) {
	users := newUserStoreStub()
	users.users[7] = model.LedgerUser{ID: 7, Points: 13}
	fake := gatewaytest.New()
	svc := New(users, fake, nil, Config{DefaultChannelID: 500}, nil)

	svc.OnMemberRemove(context.Background(), gateway.Member{ID: 7, DisplayName: "bob"})

	sent, ok := fake.LastSent()
	if !ok {
		t.Fatal("expected a farewell message")
	}
	if sent.ChannelID != 500 || !strings.Contains(sent.Text, "bob") || !strings.Contains(sent.Text, "13") {
		t.Fatalf("unexpected farewell: %+v", sent)
	}
}
