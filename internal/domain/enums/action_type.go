package enums

import "fmt"

type ActionType string

const (
	ActionSendMessage   ActionType = "send message"
	ActionDeleteMessage ActionType = "delete message"
	ActionKick          ActionType = "kick"
	ActionTimeout       ActionType = "timeout"
	ActionBan           ActionType = "ban"
	ActionGiveRole      ActionType = "give role"
	ActionRemoveRole    ActionType = "remove role"
	ActionChangeName    ActionType = "change name"
	ActionAddPoints     ActionType = "add points"
	ActionPoll          ActionType = "poll"
	ActionRandom        ActionType = "random"
	ActionChain         ActionType = "chain"
)

// ActionTypes lists every known action type in declaration order.
func ActionTypes() []ActionType {
	return []ActionType{
		ActionSendMessage,
		ActionDeleteMessage,
		ActionKick,
		ActionTimeout,
		ActionBan,
		ActionGiveRole,
		ActionRemoveRole,
		ActionChangeName,
		ActionAddPoints,
		ActionPoll,
		ActionRandom,
		ActionChain,
	}
}

// ParseActionType converts a stored string tag into a closed ActionType.
// Unknown tags are rejected here, before anything is persisted or executed.
func ParseActionType(s string) (ActionType, error) {
	for _, t := range ActionTypes() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown action type %q", s)
}
