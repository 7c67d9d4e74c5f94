package rate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	redrepo "github.com/ivankudzin/guildmod/internal/repo/redis"
)

func TestLimiterBlocksAfterWindowIsSpent(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	limiter := NewLimiter(redrepo.NewRateRepo(client), 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.AllowEarn(ctx, 42)
		if err != nil {
			t.Fatalf("allow #%d: %v", i+1, err)
		}
		if !allowed {
			t.Fatalf("message #%d should still earn", i+1)
		}
	}

	allowed, err := limiter.AllowEarn(ctx, 42)
	if err != nil {
		t.Fatalf("allow #4: %v", err)
	}
	if allowed {
		t.Fatal("fourth message in the window should not earn")
	}
}

func TestLimiterResetsAfterWindow(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	limiter := NewLimiter(redrepo.NewRateRepo(client), 1, 10*time.Second)
	ctx := context.Background()

	if allowed, err := limiter.AllowEarn(ctx, 7); err != nil || !allowed {
		t.Fatalf("first message: allowed=%v err=%v", allowed, err)
	}
	if allowed, err := limiter.AllowEarn(ctx, 7); err != nil || allowed {
		t.Fatalf("second message inside window: allowed=%v err=%v", allowed, err)
	}

	mr.FastForward(11 * time.Second)

	if allowed, err := limiter.AllowEarn(ctx, 7); err != nil || !allowed {
		t.Fatalf("message after window: allowed=%v err=%v", allowed, err)
	}
}

func TestLimiterTracksMembersIndependently(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	limiter := NewLimiter(redrepo.NewRateRepo(client), 1, time.Minute)
	ctx := context.Background()

	if allowed, _ := limiter.AllowEarn(ctx, 1); !allowed {
		t.Fatal("first member should earn")
	}
	if allowed, _ := limiter.AllowEarn(ctx, 1); allowed {
		t.Fatal("first member should be throttled")
	}
	if allowed, _ := limiter.AllowEarn(ctx, 2); !allowed {
		t.Fatal("second member has their own window")
	}
}

func TestLimiterZeroCapDisablesThrottle(t *testing.T) {
	limiter := NewLimiter(nil, 0, time.Minute)

	for i := 0; i < 5; i++ {
		allowed, err := limiter.AllowEarn(context.Background(), 9)
		if err != nil || !allowed {
			t.Fatalf("unthrottled limiter must always allow: allowed=%v err=%v", allowed, err)
		}
	}
}

func newMiniRedisClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}

	client := goredis.NewClient(&goredis.Options{
		Addr: mr.Addr(),
	})

	return mr, client
}
