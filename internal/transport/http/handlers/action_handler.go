package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/ivankudzin/guildmod/internal/domain/enums"
	"github.com/ivankudzin/guildmod/internal/domain/model"
	pgrepo "github.com/ivankudzin/guildmod/internal/repo/postgres"
	"github.com/ivankudzin/guildmod/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/guildmod/internal/transport/http/errors"
)

type ActionStore interface {
	GetByID(ctx context.Context, id int64) (model.Action, error)
	All(ctx context.Context) ([]model.Action, error)
	Save(ctx context.Context, a model.Action) (model.Action, error)
	Delete(ctx context.Context, id int64) error
}

type ActionRenderer interface {
	Render(ctx context.Context, a model.Action) string
}

type ActionHandler struct {
	store    ActionStore
	renderer ActionRenderer
}

func NewActionHandler(store ActionStore, renderer ActionRenderer) *ActionHandler {
	return &ActionHandler{store: store, renderer: renderer}
}

func (h *ActionHandler) List(w http.ResponseWriter, r *http.Request) {
	actions, err := h.store.All(r.Context())
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to list actions")
		return
	}

	resp := make([]dto.ActionResponse, 0, len(actions))
	for _, a := range actions {
		resp = append(resp, h.toResponse(r.Context(), a))
	}
	httperrors.Write(w, http.StatusOK, resp)
}

func (h *ActionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid action id")
		return
	}

	a, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgrepo.ErrActionNotFound) {
			writeNotFound(w, "ACTION_NOT_FOUND", "action not found")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to load action")
		return
	}
	httperrors.Write(w, http.StatusOK, h.toResponse(r.Context(), a))
}

func (h *ActionHandler) Create(w http.ResponseWriter, r *http.Request) {
	a, ok := h.decode(w, r, 0)
	if !ok {
		return
	}

	saved, err := h.store.Save(r.Context(), a)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to save action")
		return
	}
	httperrors.Write(w, http.StatusCreated, h.toResponse(r.Context(), saved))
}

func (h *ActionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid action id")
		return
	}
	a, ok := h.decode(w, r, id)
	if !ok {
		return
	}

	saved, err := h.store.Save(r.Context(), a)
	if err != nil {
		if errors.Is(err, pgrepo.ErrActionNotFound) {
			writeNotFound(w, "ACTION_NOT_FOUND", "action not found")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to save action")
		return
	}
	httperrors.Write(w, http.StatusOK, h.toResponse(r.Context(), saved))
}

func (h *ActionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid action id")
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, pgrepo.ErrActionNotFound) {
			writeNotFound(w, "ACTION_NOT_FOUND", "action not found")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to delete action")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ActionHandler) Types(w http.ResponseWriter, _ *http.Request) {
	types := enums.ActionTypes()
	resp := dto.ActionTypesResponse{Types: make([]string, 0, len(types))}
	for _, t := range types {
		resp.Types = append(resp.Types, string(t))
	}
	httperrors.Write(w, http.StatusOK, resp)
}

func (h *ActionHandler) decode(w http.ResponseWriter, r *http.Request, id int64) (model.Action, bool) {
	var req dto.ActionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return model.Action{}, false
	}

	at, err := enums.ParseActionType(req.Type)
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", err.Error())
		return model.Action{}, false
	}

	return model.Action{
		ID:     id,
		Type:   at,
		Value:  req.Value,
		Target: req.Target,
		Public: req.Public,
	}, true
}

func (h *ActionHandler) toResponse(ctx context.Context, a model.Action) dto.ActionResponse {
	return dto.ActionResponse{
		ID:          a.ID,
		Type:        string(a.Type),
		Value:       a.Value,
		Target:      a.Target,
		Public:      a.Public,
		Description: h.renderer.Render(ctx, a),
	}
}
