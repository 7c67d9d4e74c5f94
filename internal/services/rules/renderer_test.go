package rules

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/ivankudzin/guildmod/internal/domain/enums"
	"github.com/ivankudzin/guildmod/internal/domain/model"
)

type actionRendererStub struct {
	known map[int64]string
}

func (s *actionRendererStub) RenderByID(_ context.Context, id int64) string {
	if text, ok := s.known[id]; ok {
		return text
	}
	return "invalid action"
}

func TestRenderListsLinkedActionsInOrder(t *testing.T) {
	r := NewRenderer(&actionRendererStub{known: map[int64]string{
		1: "Kick user",
		2: "Add 5 points",
	}})

	got := r.Render(context.Background(), model.Rule{
		ID:      3,
		Type:    enums.RuleMessage,
		Regexes: []string{"foo"},
		Actions: []int64{1, 2},
	})

	if !strings.HasPrefix(got, "**3**: If a message matches foo") {
		t.Fatalf("unexpected header: %q", got)
	}
	if strings.Index(got, "Kick user") > strings.Index(got, "Add 5 points") {
		t.Fatalf("linked actions out of order: %q", got)
	}
}

func TestRenderDanglingActionDegrades(t *testing.T) {
	r := NewRenderer(&actionRendererStub{})

	got := r.Render(context.Background(), model.Rule{
		Type:    enums.RuleMessage,
		Regexes: []string{"foo"},
		Actions: []int64{999},
	})

	if !strings.Contains(got, "invalid action") {
		t.Fatalf("expected placeholder for dangling reference, got %q", got)
	}
}

func TestRenderEveryCategoryHasAClause(t *testing.T) {
	r := NewRenderer(&actionRendererStub{})

	for _, rt := range enums.RuleTypes() {
		got := r.Render(context.Background(), model.Rule{Type: rt, Regexes: []string{"x"}})
		if got == "" {
			t.Fatalf("empty rendering for %q", rt)
		}
	}
}

func TestRenderRoleRuleWithMessageClause(t *testing.T) {
	r := NewRenderer(&actionRendererStub{})

	got := r.Render(context.Background(), model.Rule{
		Type:    enums.RuleRole,
		Regexes: []string{"<@&9>", "spam", "scam"},
	})

	want := fmt.Sprintf("If a member has the role %s and their message matches spam, scam", "<@&9>")
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
