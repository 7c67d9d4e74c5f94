package enums

import "fmt"

type RuleType string

const (
	RuleMessage           RuleType = "message"
	RuleActivity          RuleType = "activity"
	RuleReaction          RuleType = "reaction"
	RuleName              RuleType = "name"
	RulePointsLessThan    RuleType = "less points"
	RulePointsGreaterThan RuleType = "more points"
	RuleRole              RuleType = "role"
	RuleLastActivity      RuleType = "last activity"
)

// RuleTypes lists every known rule type in declaration order.
func RuleTypes() []RuleType {
	return []RuleType{
		RuleMessage,
		RuleActivity,
		RuleReaction,
		RuleName,
		RulePointsLessThan,
		RulePointsGreaterThan,
		RuleRole,
		RuleLastActivity,
	}
}

// ParseRuleType converts a stored string tag into a closed RuleType.
func ParseRuleType(s string) (RuleType, error) {
	for _, t := range RuleTypes() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown rule type %q", s)
}
