package model

import "time"

// LedgerUser is the per-member point balance and activity record.
// Created lazily on the first observed event from an unknown member,
// removed when the member is banned or leaves moderation scope.
type LedgerUser struct {
	ID           int64     `json:"id"`
	Points       int64     `json:"points"`
	LastActivity time.Time `json:"last_activity"`
}
