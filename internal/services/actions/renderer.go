package actions

import (
	"context"
	"fmt"
	"strings"

	"github.com/ivankudzin/guildmod/internal/domain/enums"
	"github.com/ivankudzin/guildmod/internal/domain/model"
)

// MissingActionPlaceholder is substituted wherever a rendered action
// references an id that no longer resolves.
const MissingActionPlaceholder = "invalid action"

// Renderer produces the fixed audit/prompt description of an action.
// Output is deterministic for a given store state and never fails:
// absent optional fields are simply omitted and dangling references
// degrade to MissingActionPlaceholder.
type Renderer struct {
	actions ActionStore
}

func NewRenderer(actions ActionStore) *Renderer {
	return &Renderer{actions: actions}
}

func (r *Renderer) Render(ctx context.Context, a model.Action) string {
	return r.render(ctx, a, defaultMaxDepth)
}

func (r *Renderer) RenderByID(ctx context.Context, id int64) string {
	return r.renderByID(ctx, id, defaultMaxDepth)
}

func (r *Renderer) renderByID(ctx context.Context, id int64, depth int) string {
	a, err := r.actions.GetByID(ctx, id)
	if err != nil {
		return MissingActionPlaceholder
	}
	return r.render(ctx, a, depth)
}

func (r *Renderer) render(ctx context.Context, a model.Action, depth int) string {
	if depth <= 0 {
		return MissingActionPlaceholder
	}

	var b strings.Builder
	switch a.Type {
	case enums.ActionSendMessage:
		if len(a.Value) > 0 {
			fmt.Fprintf(&b, "Send message %q", a.Value[0])
		} else {
			b.WriteString("Send message")
		}
		if len(a.Target) > 0 {
			fmt.Fprintf(&b, " to channel %s", strings.Join(a.Target, ", "))
		}
	case enums.ActionDeleteMessage:
		b.WriteString("Delete the message")
		if len(a.Value) > 0 {
			fmt.Fprintf(&b, " after %s seconds", a.Value[0])
		}
	case enums.ActionGiveRole:
		b.WriteString("Give role")
		if len(a.Value) > 0 {
			fmt.Fprintf(&b, " %s", a.Value[0])
		}
		if len(a.Target) > 0 {
			fmt.Fprintf(&b, " to user %s", a.Target[0])
		}
	case enums.ActionRemoveRole:
		b.WriteString("Remove role")
		if len(a.Value) > 0 {
			fmt.Fprintf(&b, " %s", a.Value[0])
		}
		if len(a.Target) > 0 {
			fmt.Fprintf(&b, " from user %s", a.Target[0])
		}
	case enums.ActionTimeout:
		b.WriteString("Time out user")
		if len(a.Target) > 0 {
			fmt.Fprintf(&b, " %s", a.Target[0])
		}
		if len(a.Value) > 0 {
			fmt.Fprintf(&b, " for %s seconds", a.Value[0])
		}
	case enums.ActionKick:
		b.WriteString("Kick user")
		if len(a.Target) > 0 {
			fmt.Fprintf(&b, " %s", a.Target[0])
		}
	case enums.ActionBan:
		b.WriteString("Ban user")
		if len(a.Target) > 0 {
			fmt.Fprintf(&b, " %s", a.Target[0])
		}
	case enums.ActionChangeName:
		b.WriteString("Rename user")
		if len(a.Target) > 0 {
			fmt.Fprintf(&b, " %s", a.Target[0])
		}
		if len(a.Value) > 0 {
			fmt.Fprintf(&b, " to %q", a.Value[0])
		}
	case enums.ActionAddPoints:
		b.WriteString("Add")
		if len(a.Value) > 0 {
			fmt.Fprintf(&b, " %s", a.Value[0])
		}
		b.WriteString(" points")
		if len(a.Target) > 0 {
			fmt.Fprintf(&b, " to user %s", a.Target[0])
		}
	case enums.ActionPoll:
		b.WriteString("Start a vote against user")
		if len(a.Target) > 1 {
			fmt.Fprintf(&b, " %s", a.Target[1])
		}
		if len(a.Target) > 0 {
			fmt.Fprintf(&b, " in channel %s", a.Target[0])
		}
		b.WriteString(".")
		if len(a.Value) > 0 {
			b.WriteString(" If the vote passes, run: ")
			if id, err := parseID(a.Value[0]); err == nil {
				b.WriteString(r.renderByID(ctx, id, depth-1))
			} else {
				b.WriteString(MissingActionPlaceholder)
			}
			b.WriteString(".")
		}
		if len(a.Value) > 1 {
			fmt.Fprintf(&b, " The vote lasts %s seconds.", a.Value[1])
		}
	case enums.ActionRandom:
		b.WriteString("Run one random action of: ")
		b.WriteString(strings.Join(a.Value, ", "))
	case enums.ActionChain:
		b.WriteString("Run actions in order: ")
		for i, v := range a.Value {
			if i > 0 {
				b.WriteString("; ")
			}
			if id, err := parseID(v); err == nil {
				b.WriteString(r.renderByID(ctx, id, depth-1))
			} else {
				b.WriteString(MissingActionPlaceholder)
			}
		}
	}

	return b.String()
}
