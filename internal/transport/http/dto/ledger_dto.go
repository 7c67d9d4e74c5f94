package dto

import (
	"time"

	"github.com/ivankudzin/guildmod/internal/domain/model"
)

type LedgerUserResponse struct {
	ID           int64     `json:"id"`
	Points       int64     `json:"points"`
	LastActivity time.Time `json:"last_activity"`
}

type LeaderboardResponse struct {
	Entries []model.LeaderboardEntry `json:"entries"`
}
