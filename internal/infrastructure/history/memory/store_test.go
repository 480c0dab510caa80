package memory

import (
	"testing"

	"github.com/abhikalparya/documentchatbot/internal/core/domain"
)

func TestAppendKeepsOrder(t *testing.T) {
	store := NewStore()
	store.Append(domain.RoleUser, "q1")
	store.Append(domain.RoleAssistant, "a1")

	turns := store.All()
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].Role != domain.RoleUser || turns[1].Content != "a1" {
		t.Fatalf("unexpected turns: %+v", turns)
	}
}

func TestAllReturnsCopy(t *testing.T) {
	store := NewStore()
	store.Append(domain.RoleUser, "q1")

	turns := store.All()
	turns[0].Content = "mutated"
	if store.All()[0].Content != "q1" {
		t.Fatalf("All() must not expose internal slice")
	}
}

func TestClearEmptiesLog(t *testing.T) {
	store := NewStore()
	store.Append(domain.RoleUser, "q1")
	store.Append(domain.RoleAssistant, "a1")
	store.Clear()

	if store.Len() != 0 || len(store.All()) != 0 {
		t.Fatalf("expected empty log after Clear")
	}
	store.Append(domain.RoleUser, "q2")
	if got := store.All(); len(got) != 1 || got[0].Content != "q2" {
		t.Fatalf("unexpected turns after Clear+Append: %+v", got)
	}
}
