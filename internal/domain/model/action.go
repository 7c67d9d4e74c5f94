package model

import "github.com/ivankudzin/guildmod/internal/domain/enums"

// Action is a persisted unit of effect. Value and Target carry
// positional, type-specific parameters: for SEND_MESSAGE value[0] is the
// text and target lists channels, for POLL value[0] is a linked action id
// and target[0] a channel reference, for CHAIN/RANDOM value lists action
// ids, and so on.
type Action struct {
	ID     int64            `json:"id"`
	Type   enums.ActionType `json:"type"`
	Value  []string         `json:"value"`
	Target []string         `json:"target"`
	Public bool             `json:"public"`
}
