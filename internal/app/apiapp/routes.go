package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ivankudzin/guildmod/internal/config"
	"github.com/ivankudzin/guildmod/internal/transport/http/handlers"
)

type Dependencies struct {
	Actions        handlers.ActionStore
	ActionRenderer handlers.ActionRenderer
	Rules          handlers.RuleStore
	RuleRenderer   handlers.RuleRenderer
	Ledger         handlers.LedgerStore
	Standings      handlers.Standings
	Logger         *zap.Logger
	Config         config.Config
}

// RegisterRoutes mounts the moderation admin surface. The surface is
// unauthenticated on purpose: it is meant to sit behind a private
// network boundary.
func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	actionHandler := handlers.NewActionHandler(deps.Actions, deps.ActionRenderer)
	ruleHandler := handlers.NewRuleHandler(deps.Rules, deps.RuleRenderer)
	ledgerHandler := handlers.NewLedgerHandler(deps.Ledger, deps.Standings)

	r.Get("/healthz", healthHandler.Get)

	r.Route("/actions", func(r chi.Router) {
		r.Get("/", actionHandler.List)
		r.Post("/", actionHandler.Create)
		r.Get("/types", actionHandler.Types)
		r.Get("/{id}", actionHandler.Get)
		r.Put("/{id}", actionHandler.Update)
		r.Delete("/{id}", actionHandler.Delete)
	})

	r.Route("/rules", func(r chi.Router) {
		r.Get("/", ruleHandler.List)
		r.Post("/", ruleHandler.Create)
		r.Get("/types", ruleHandler.Types)
		r.Get("/{id}", ruleHandler.Get)
		r.Put("/{id}", ruleHandler.Update)
		r.Delete("/{id}", ruleHandler.Delete)
	})

	r.Route("/users", func(r chi.Router) {
		r.Get("/", ledgerHandler.List)
		r.Get("/{id}", ledgerHandler.Get)
	})

	r.Get("/leaderboard", ledgerHandler.Leaderboard)
}
