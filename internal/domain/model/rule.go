package model

import "github.com/ivankudzin/guildmod/internal/domain/enums"

// Rule binds a match condition to an ordered list of action ids.
// Regexes is an OR-list for most rule types; POINTS_* and LAST_ACTIVITY
// read a numeric threshold from regexes[0], and ROLE reads a role
// reference from regexes[0] with optional message regexes after it.
type Rule struct {
	ID      int64          `json:"id"`
	Type    enums.RuleType `json:"type"`
	Regexes []string       `json:"regexes"`
	Actions []int64        `json:"actions"`
	Public  bool           `json:"public"`
}
