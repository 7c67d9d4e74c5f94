// Package points maintains the community point ledger: passive income
// for chat activity, member-to-member transfers and the leaderboard.
package points

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/ivankudzin/guildmod/internal/domain/model"
	"github.com/ivankudzin/guildmod/internal/gateway"
	"github.com/ivankudzin/guildmod/internal/repo/postgres"
)

var (
	ErrNegativeAmount     = errors.New("amount must not be negative")
	ErrSelfTransfer       = errors.New("cannot give points to yourself")
	ErrInsufficientPoints = errors.New("not enough points")
)

type UserStore interface {
	GetByID(ctx context.Context, id int64) (model.LedgerUser, error)
	All(ctx context.Context) ([]model.LedgerUser, error)
	AddPoints(ctx context.Context, id int64, delta int64, now time.Time) (int64, error)
	Touch(ctx context.Context, id int64, at time.Time) error
}

type Leaderboard interface {
	SetScore(ctx context.Context, userID, points int64) error
	Top(ctx context.Context, n int64) ([]model.LeaderboardEntry, error)
}

// EarnThrottle caps how often a member can earn message points.
type EarnThrottle interface {
	AllowEarn(ctx context.Context, userID int64) (bool, error)
}

// Scorer rates one message's worth in points. Injected so the earning
// curve can change without touching the service.
type Scorer func(content string) int64

// DefaultScorer awards one point per message and one extra for longer,
// presumably substantial, messages.
func DefaultScorer(content string) int64 {
	if content == "" {
		return 0
	}
	if len(content) > 100 {
		return 2
	}
	return 1
}

type Config struct {
	DefaultChannelID int64
}

type Service struct {
	users  UserStore
	gw     gateway.Gateway
	scorer Scorer
	logger *zap.Logger

	defaultChannelID int64

	lb       Leaderboard
	throttle EarnThrottle

	now func() time.Time
}

func New(users UserStore, gw gateway.Gateway, scorer Scorer, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if scorer == nil {
		scorer = DefaultScorer
	}
	return &Service{
		users:            users,
		gw:               gw,
		scorer:           scorer,
		logger:           logger,
		defaultChannelID: cfg.DefaultChannelID,
		now:              time.Now,
	}
}

// AttachLeaderboard enables the redis read model. Without one, Top
// falls back to scanning the ledger.
func (s *Service) AttachLeaderboard(lb Leaderboard) {
	s.lb = lb
}

// AttachThrottle enables the earning cooldown. Without one every
// message is credited.
func (s *Service) AttachThrottle(t EarnThrottle) {
	s.throttle = t
}

// OnMessage credits the author for a posted message and refreshes
// their activity timestamp. Bot messages earn nothing.
func (s *Service) OnMessage(ctx context.Context, ev gateway.EventContext) {
	if ev.Actor == nil || ev.Actor.Bot || ev.Message == nil {
		return
	}

	earned := s.scorer(ev.Message.Content)
	if earned > 0 && s.throttle != nil {
		allowed, err := s.throttle.AllowEarn(ctx, ev.Actor.ID)
		if err != nil {
			// the cooldown store being down must not stop earning
			s.logger.Warn("earn throttle", zap.Int64("user", ev.Actor.ID), zap.Error(err))
		} else if !allowed {
			earned = 0
		}
	}
	balance, err := s.users.AddPoints(ctx, ev.Actor.ID, earned, s.now())
	if err != nil {
		s.logger.Warn("credit message points", zap.Int64("user", ev.Actor.ID), zap.Error(err))
		return
	}
	if err := s.users.Touch(ctx, ev.Actor.ID, s.now()); err != nil {
		s.logger.Warn("touch activity", zap.Int64("user", ev.Actor.ID), zap.Error(err))
	}
	s.syncScore(ctx, ev.Actor.ID, balance)
}

// Give transfers points between members. The transfer is rejected
// without mutation when the amount is negative, the giver targets
// themselves, or the giver's balance does not cover it.
func (s *Service) Give(ctx context.Context, giverID, receiverID, amount int64) error {
	if amount < 0 {
		return ErrNegativeAmount
	}
	if giverID == receiverID {
		return ErrSelfTransfer
	}

	giver, err := s.users.GetByID(ctx, giverID)
	if err != nil && !errors.Is(err, postgres.ErrLedgerUserNotFound) {
		return fmt.Errorf("resolve giver: %w", err)
	}
	if giver.Points < amount {
		return ErrInsufficientPoints
	}

	now := s.now()
	balance, err := s.users.AddPoints(ctx, giverID, -amount, now)
	if err != nil {
		return fmt.Errorf("debit giver: %w", err)
	}
	s.syncScore(ctx, giverID, balance)

	balance, err = s.users.AddPoints(ctx, receiverID, amount, now)
	if err != nil {
		return fmt.Errorf("credit receiver: %w", err)
	}
	s.syncScore(ctx, receiverID, balance)

	s.logger.Info("points transferred",
		zap.Int64("from", giverID),
		zap.Int64("to", receiverID),
		zap.Int64("amount", amount))
	return nil
}

// Balance returns the member's current points; an unknown member has
// zero.
func (s *Service) Balance(ctx context.Context, userID int64) (int64, error) {
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, postgres.ErrLedgerUserNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return user.Points, nil
}

// Top returns the n best balances, highest first. The redis read model
// serves it when attached; otherwise the ledger is scanned.
func (s *Service) Top(ctx context.Context, n int64) ([]model.LeaderboardEntry, error) {
	if s.lb != nil {
		entries, err := s.lb.Top(ctx, n)
		if err == nil {
			return entries, nil
		}
		s.logger.Warn("leaderboard read model unavailable", zap.Error(err))
	}

	users, err := s.users.All(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Points > users[j].Points })
	if int64(len(users)) > n {
		users = users[:n]
	}

	entries := make([]model.LeaderboardEntry, 0, len(users))
	for _, u := range users {
		entries = append(entries, model.LeaderboardEntry{UserID: u.ID, Points: u.Points})
	}
	return entries, nil
}

// OnMemberRemove posts the departing member's final score to the
// default channel.
func (s *Service) OnMemberRemove(ctx context.Context, member gateway.Member) {
	if s.gw == nil || s.defaultChannelID == 0 {
		return
	}

	balance, err := s.Balance(ctx, member.ID)
	if err != nil {
		s.logger.Warn("resolve departing balance", zap.Int64("user", member.ID), zap.Error(err))
		return
	}

	farewell := fmt.Sprintf("%s leaves us with %d points", member.DisplayName, balance)
	if _, err := s.gw.Send(ctx, s.defaultChannelID, farewell); err != nil {
		s.logger.Warn("send farewell", zap.Error(err))
	}
}

func (s *Service) syncScore(ctx context.Context, userID, balance int64) {
	if s.lb == nil {
		return
	}
	if err := s.lb.SetScore(ctx, userID, balance); err != nil {
		s.logger.Warn("sync leaderboard", zap.Int64("user", userID), zap.Error(err))
	}
}
