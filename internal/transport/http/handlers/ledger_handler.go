package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/ivankudzin/guildmod/internal/domain/model"
	pgrepo "github.com/ivankudzin/guildmod/internal/repo/postgres"
	"github.com/ivankudzin/guildmod/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/guildmod/internal/transport/http/errors"
)

const defaultLeaderboardSize = 10

type LedgerStore interface {
	GetByID(ctx context.Context, id int64) (model.LedgerUser, error)
	All(ctx context.Context) ([]model.LedgerUser, error)
}

type Standings interface {
	Top(ctx context.Context, n int64) ([]model.LeaderboardEntry, error)
}

type LedgerHandler struct {
	store     LedgerStore
	standings Standings
}

func NewLedgerHandler(store LedgerStore, standings Standings) *LedgerHandler {
	return &LedgerHandler{store: store, standings: standings}
}

func (h *LedgerHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.All(r.Context())
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to list ledger users")
		return
	}

	resp := make([]dto.LedgerUserResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, dto.LedgerUserResponse{
			ID:           u.ID,
			Points:       u.Points,
			LastActivity: u.LastActivity,
		})
	}
	httperrors.Write(w, http.StatusOK, resp)
}

func (h *LedgerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid user id")
		return
	}

	u, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgrepo.ErrLedgerUserNotFound) {
			writeNotFound(w, "USER_NOT_FOUND", "ledger user not found")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to load ledger user")
		return
	}
	httperrors.Write(w, http.StatusOK, dto.LedgerUserResponse{
		ID:           u.ID,
		Points:       u.Points,
		LastActivity: u.LastActivity,
	})
}

func (h *LedgerHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	n := int64(defaultLeaderboardSize)
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil || parsed <= 0 {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid limit")
			return
		}
		n = parsed
	}

	entries, err := h.standings.Top(r.Context(), n)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to load leaderboard")
		return
	}
	if entries == nil {
		entries = []model.LeaderboardEntry{}
	}
	httperrors.Write(w, http.StatusOK, dto.LeaderboardResponse{Entries: entries})
}
