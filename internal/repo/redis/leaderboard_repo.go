package redis

import (
	"context"
	"fmt"
	"strconv"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ivankudzin/guildmod/internal/domain/model"
)

const leaderboardKey = "points:leaderboard"

// LeaderboardRepo mirrors ledger balances in a sorted set so the top
// listing does not scan the whole ledger table. It is a best-effort
// read model: the ledger in Postgres stays the source of truth.
type LeaderboardRepo struct {
	client *goredis.Client
}

func NewLeaderboardRepo(client *goredis.Client) *LeaderboardRepo {
	return &LeaderboardRepo{client: client}
}

func (r *LeaderboardRepo) SetScore(ctx context.Context, userID, points int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if userID <= 0 {
		return fmt.Errorf("invalid user id")
	}

	err := r.client.ZAdd(ctx, leaderboardKey, goredis.Z{
		Score:  float64(points),
		Member: strconv.FormatInt(userID, 10),
	}).Err()
	if err != nil {
		return fmt.Errorf("set leaderboard score: %w", err)
	}
	return nil
}

func (r *LeaderboardRepo) Remove(ctx context.Context, userID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	err := r.client.ZRem(ctx, leaderboardKey, strconv.FormatInt(userID, 10)).Err()
	if err != nil {
		return fmt.Errorf("remove leaderboard entry: %w", err)
	}
	return nil
}

// Top returns up to n entries ordered by points, highest first.
func (r *LeaderboardRepo) Top(ctx context.Context, n int64) ([]model.LeaderboardEntry, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	if n <= 0 {
		return nil, nil
	}

	zs, err := r.client.ZRevRangeWithScores(ctx, leaderboardKey, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read leaderboard: %w", err)
	}

	entries := make([]model.LeaderboardEntry, 0, len(zs))
	for _, z := range zs {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			continue
		}
		entries = append(entries, model.LeaderboardEntry{UserID: id, Points: int64(z.Score)})
	}

	return entries, nil
}
