package handlers

import (
	"context"
	"errors"
	"net/http"
	"regexp"

	"github.com/ivankudzin/guildmod/internal/domain/enums"
	"github.com/ivankudzin/guildmod/internal/domain/model"
	"github.com/ivankudzin/guildmod/internal/pkg/validate"
	pgrepo "github.com/ivankudzin/guildmod/internal/repo/postgres"
	"github.com/ivankudzin/guildmod/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/guildmod/internal/transport/http/errors"
)

type RuleStore interface {
	GetByID(ctx context.Context, id int64) (model.Rule, error)
	All(ctx context.Context) ([]model.Rule, error)
	Save(ctx context.Context, rule model.Rule) (model.Rule, error)
	Delete(ctx context.Context, id int64) error
}

type RuleRenderer interface {
	Render(ctx context.Context, rule model.Rule) string
}

type RuleHandler struct {
	store    RuleStore
	renderer RuleRenderer
}

func NewRuleHandler(store RuleStore, renderer RuleRenderer) *RuleHandler {
	return &RuleHandler{store: store, renderer: renderer}
}

func (h *RuleHandler) List(w http.ResponseWriter, r *http.Request) {
	rules, err := h.store.All(r.Context())
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to list rules")
		return
	}

	resp := make([]dto.RuleResponse, 0, len(rules))
	for _, rule := range rules {
		resp = append(resp, h.toResponse(r.Context(), rule))
	}
	httperrors.Write(w, http.StatusOK, resp)
}

func (h *RuleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid rule id")
		return
	}

	rule, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgrepo.ErrRuleNotFound) {
			writeNotFound(w, "RULE_NOT_FOUND", "rule not found")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to load rule")
		return
	}
	httperrors.Write(w, http.StatusOK, h.toResponse(r.Context(), rule))
}

func (h *RuleHandler) Create(w http.ResponseWriter, r *http.Request) {
	rule, ok := h.decode(w, r, 0)
	if !ok {
		return
	}

	saved, err := h.store.Save(r.Context(), rule)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to save rule")
		return
	}
	httperrors.Write(w, http.StatusCreated, h.toResponse(r.Context(), saved))
}

func (h *RuleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid rule id")
		return
	}
	rule, ok := h.decode(w, r, id)
	if !ok {
		return
	}

	saved, err := h.store.Save(r.Context(), rule)
	if err != nil {
		if errors.Is(err, pgrepo.ErrRuleNotFound) {
			writeNotFound(w, "RULE_NOT_FOUND", "rule not found")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to save rule")
		return
	}
	httperrors.Write(w, http.StatusOK, h.toResponse(r.Context(), saved))
}

func (h *RuleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid rule id")
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, pgrepo.ErrRuleNotFound) {
			writeNotFound(w, "RULE_NOT_FOUND", "rule not found")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to delete rule")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RuleHandler) Types(w http.ResponseWriter, _ *http.Request) {
	types := enums.RuleTypes()
	resp := dto.RuleTypesResponse{Types: make([]string, 0, len(types))}
	for _, t := range types {
		resp.Types = append(resp.Types, string(t))
	}
	httperrors.Write(w, http.StatusOK, resp)
}

func (h *RuleHandler) decode(w http.ResponseWriter, r *http.Request, id int64) (model.Rule, bool) {
	var req dto.RuleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return model.Rule{}, false
	}

	rt, err := enums.ParseRuleType(req.Type)
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", err.Error())
		return model.Rule{}, false
	}

	// message-like categories carry regexes; reject blank patterns and
	// patterns that can never compile instead of storing dead rules
	switch rt {
	case enums.RuleMessage, enums.RuleActivity, enums.RuleReaction, enums.RuleName:
		for _, pattern := range req.Regexes {
			if !validate.Required(pattern) {
				writeBadRequest(w, "VALIDATION_ERROR", "pattern must not be blank")
				return model.Rule{}, false
			}
			if _, err := regexp.Compile(pattern); err != nil {
				writeBadRequest(w, "VALIDATION_ERROR", "invalid pattern: "+pattern)
				return model.Rule{}, false
			}
		}
	}

	return model.Rule{
		ID:      id,
		Type:    rt,
		Regexes: req.Regexes,
		Actions: req.Actions,
		Public:  req.Public,
	}, true
}

func (h *RuleHandler) toResponse(ctx context.Context, rule model.Rule) dto.RuleResponse {
	return dto.RuleResponse{
		ID:          rule.ID,
		Type:        string(rule.Type),
		Regexes:     rule.Regexes,
		Actions:     rule.Actions,
		Public:      rule.Public,
		Description: h.renderer.Render(ctx, rule),
	}
}
