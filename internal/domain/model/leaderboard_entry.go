package model

// LeaderboardEntry is one row of the point standings, highest first.
type LeaderboardEntry struct {
	UserID int64 `json:"user_id"`
	Points int64 `json:"points"`
}
