package botapp

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ivankudzin/guildmod/internal/config"
	"github.com/ivankudzin/guildmod/internal/gateway"
	tginfra "github.com/ivankudzin/guildmod/internal/infra/telegram"
	"github.com/ivankudzin/guildmod/internal/jobs/sweeper"
	pgrepo "github.com/ivankudzin/guildmod/internal/repo/postgres"
	redrepo "github.com/ivankudzin/guildmod/internal/repo/redis"
	actionssvc "github.com/ivankudzin/guildmod/internal/services/actions"
	enginesvc "github.com/ivankudzin/guildmod/internal/services/engine"
	pointssvc "github.com/ivankudzin/guildmod/internal/services/points"
	pollssvc "github.com/ivankudzin/guildmod/internal/services/polls"
	ratesvc "github.com/ivankudzin/guildmod/internal/services/rate"
	rulessvc "github.com/ivankudzin/guildmod/internal/services/rules"
)

type App struct {
	cfg      config.Config
	logger   *zap.Logger
	postgres *pgxpool.Pool
	redis    *goredis.Client
	bot      *tginfra.Bot

	actionRepo *pgrepo.ActionRepo
	ruleRepo   *pgrepo.RuleRepo
	userRepo   *pgrepo.UserRepo

	actionRenderer *actionssvc.Renderer
	ruleRenderer   *rulessvc.Renderer
	executor       *actionssvc.Executor
	coordinator    *pollssvc.Coordinator
	engine         *enginesvc.Engine
	points         *pointssvc.Service
	sweeper        *sweeper.Job
}

func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("init postgres for bot app: %w", err)
	}
	if err := pgrepo.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	bot, err := tginfra.NewBot(cfg.Bot.Token, cfg.Bot.DefaultChannelID)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	leaderboardRepo := redrepo.NewLeaderboardRepo(redisClient)

	actionRepo := pgrepo.NewActionRepo(pool)
	ruleRepo := pgrepo.NewRuleRepo(pool)
	userRepo := pgrepo.NewUserRepo(pool)

	actionRenderer := actionssvc.NewRenderer(actionRepo)
	ruleRenderer := rulessvc.NewRenderer(actionRenderer)

	executor := actionssvc.NewExecutor(actionRepo, userRepo, bot, actionssvc.Config{
		DefaultChannelID: cfg.Bot.DefaultChannelID,
		OwnerID:          cfg.Bot.OwnerID,
		MaxDepth:         cfg.Engine.MaxActionDepth,
	}, logger)
	executor.AttachLeaderboard(leaderboardRepo)

	coordinator := pollssvc.New(pollssvc.Deps{
		Gateway:        bot,
		Actions:        actionRepo,
		Rules:          ruleRepo,
		Runner:         executor,
		ActionRenderer: actionRenderer,
		RuleRenderer:   ruleRenderer,
	}, pollssvc.Config{
		DefaultDuration:  cfg.Engine.PollDuration,
		ProposalDuration: cfg.Engine.ProposalDuration,
		DefaultChannelID: cfg.Bot.DefaultChannelID,
	}, logger)
	executor.AttachPoller(coordinator)

	oracle := staticOracle{
		ownerID:     cfg.Bot.OwnerID,
		adminRoleID: cfg.Bot.AdminRoleID,
		banRoleID:   cfg.Bot.BanRoleID,
	}

	ruleEngine := enginesvc.New(enginesvc.Deps{
		Rules:   ruleRepo,
		Users:   userRepo,
		Runner:  executor,
		Matcher: rulessvc.NewMatcher(logger),
		Oracle:  oracle,
	}, logger)

	pointsService := pointssvc.New(userRepo, bot, nil, pointssvc.Config{
		DefaultChannelID: cfg.Bot.DefaultChannelID,
	}, logger)
	pointsService.AttachLeaderboard(leaderboardRepo)
	if cfg.Engine.EarnPerWindow > 0 {
		throttle := ratesvc.NewLimiter(redrepo.NewRateRepo(redisClient), cfg.Engine.EarnPerWindow, cfg.Engine.EarnWindow)
		pointsService.AttachThrottle(throttle)
	}

	sweepJob := sweeper.New(sweeper.Deps{
		Users:      userRepo,
		Gateway:    bot,
		Dispatcher: ruleEngine,
		Oracle:     oracle,
	}, cfg.Engine.SweepInterval, logger)
	sweepJob.AttachLeaderboard(leaderboardRepo)

	return &App{
		cfg:            cfg,
		logger:         logger,
		postgres:       pool,
		redis:          redisClient,
		bot:            bot,
		actionRepo:     actionRepo,
		ruleRepo:       ruleRepo,
		userRepo:       userRepo,
		actionRenderer: actionRenderer,
		ruleRenderer:   ruleRenderer,
		executor:       executor,
		coordinator:    coordinator,
		engine:         ruleEngine,
		points:         pointsService,
		sweeper:        sweepJob,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.logger.Info("bot app started")

	go a.sweeper.Run(ctx)

	err := a.bot.Listen(ctx, tginfra.Handlers{
		OnMessage:     a.handleMessage,
		OnMessageEdit: a.engine.HandleMessageEdit,
		OnCommand:     a.handleCommand,
		OnMemberJoin:  a.handleMemberJoin,
		OnMemberLeave: a.handleMemberLeave,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	a.logger.Info("bot app stopped")
	return nil
}

func (a *App) handleMessage(ctx context.Context, ev gateway.EventContext) {
	a.points.OnMessage(ctx, ev)
	a.engine.HandleMessage(ctx, ev)
}

func (a *App) handleMemberJoin(ctx context.Context, update tginfra.MemberUpdate) {
	member := update.Member
	a.engine.HandleMemberChange(ctx, gateway.EventContext{Actor: &member})
}

func (a *App) handleMemberLeave(ctx context.Context, update tginfra.MemberUpdate) {
	a.points.OnMemberRemove(ctx, update.Member)
}

func (a *App) Close() {
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
