package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ivankudzin/guildmod/internal/config"
	pgrepo "github.com/ivankudzin/guildmod/internal/repo/postgres"
	redrepo "github.com/ivankudzin/guildmod/internal/repo/redis"
	actionssvc "github.com/ivankudzin/guildmod/internal/services/actions"
	pointssvc "github.com/ivankudzin/guildmod/internal/services/points"
	rulessvc "github.com/ivankudzin/guildmod/internal/services/rules"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("init postgres for api app: %w", err)
	}
	if err := pgrepo.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	leaderboardRepo := redrepo.NewLeaderboardRepo(redisClient)

	actionRepo := pgrepo.NewActionRepo(pool)
	ruleRepo := pgrepo.NewRuleRepo(pool)
	userRepo := pgrepo.NewUserRepo(pool)

	actionRenderer := actionssvc.NewRenderer(actionRepo)
	ruleRenderer := rulessvc.NewRenderer(actionRenderer)

	// the admin surface never talks to the chat platform; points only
	// serves leaderboard reads here
	pointsService := pointssvc.New(userRepo, nil, nil, pointssvc.Config{}, log)
	pointsService.AttachLeaderboard(leaderboardRepo)

	RegisterRoutes(r, Dependencies{
		Actions:        actionRepo,
		ActionRenderer: actionRenderer,
		Rules:          ruleRepo,
		RuleRenderer:   ruleRenderer,
		Ledger:         userRepo,
		Standings:      pointsService,
		Logger:         log,
		Config:         cfg,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
