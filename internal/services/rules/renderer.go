package rules

import (
	"context"
	"fmt"
	"strings"

	"github.com/ivankudzin/guildmod/internal/domain/enums"
	"github.com/ivankudzin/guildmod/internal/domain/model"
)

type ActionRenderer interface {
	RenderByID(ctx context.Context, id int64) string
}

// Renderer produces the audit description of a rule: the condition
// clause followed by every linked action's rendering in list order.
// Dangling action references degrade inside the action renderer.
type Renderer struct {
	actions ActionRenderer
}

func NewRenderer(actions ActionRenderer) *Renderer {
	return &Renderer{actions: actions}
}

func (r *Renderer) Render(ctx context.Context, rule model.Rule) string {
	var b strings.Builder
	if rule.ID != 0 {
		fmt.Fprintf(&b, "**%d**: ", rule.ID)
	}
	b.WriteString(describe(rule))

	for _, id := range rule.Actions {
		b.WriteString("\n- ")
		b.WriteString(r.actions.RenderByID(ctx, id))
	}
	return b.String()
}

func describe(rule model.Rule) string {
	patterns := strings.Join(rule.Regexes, ", ")

	switch rule.Type {
	case enums.RuleMessage:
		return fmt.Sprintf("If a message matches %s", patterns)
	case enums.RuleActivity:
		return fmt.Sprintf("If an activity matches %s", patterns)
	case enums.RuleReaction:
		return fmt.Sprintf("If a reaction matches %s", patterns)
	case enums.RuleName:
		return fmt.Sprintf("If a member's name matches %s", patterns)
	case enums.RulePointsLessThan:
		return fmt.Sprintf("If a member has less than %s points", first(rule.Regexes))
	case enums.RulePointsGreaterThan:
		return fmt.Sprintf("If a member has more than %s points", first(rule.Regexes))
	case enums.RuleRole:
		s := fmt.Sprintf("If a member has the role %s", first(rule.Regexes))
		if len(rule.Regexes) > 1 {
			s += fmt.Sprintf(" and their message matches %s", strings.Join(rule.Regexes[1:], ", "))
		}
		return s
	case enums.RuleLastActivity:
		return fmt.Sprintf("If a member has been inactive for more than %s minutes", first(rule.Regexes))
	}
	return string(rule.Type)
}

func first(values []string) string {
	if len(values) == 0 {
		return "?"
	}
	return values[0]
}
