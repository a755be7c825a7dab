package docstore

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"mdstudio/internal/model"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestStore() (*Store, *[]model.Event) {
	c := &clock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	n := 0
	s := New(Options{
		Now:   c.now,
		NewID: func() string { n++; return fmt.Sprintf("doc-%d", n) },
	})
	var events []model.Event
	s.Subscribe(func(ev model.Event) { events = append(events, ev) })
	return s, &events
}

func eventTypes(evs []model.Event) []model.EventType {
	out := make([]model.EventType, 0, len(evs))
	for _, ev := range evs {
		out = append(out, ev.Type)
	}
	return out
}

func TestCreate_SanitizesAndDeduplicates(t *testing.T) {
	s, _ := newTestStore()
	a := s.Create("Report<1>.md", "", CreateOptions{})
	b := s.Create("Report<1>.md", "", CreateOptions{})

	da, _ := s.Get(a)
	db, _ := s.Get(b)
	require.Equal(t, "Report1.md", da.Name)
	require.Equal(t, "Report1 2.md", db.Name)
}

func TestCreate_DefaultsAndCurrent(t *testing.T) {
	s, events := newTestStore()
	first := s.Create("", "", CreateOptions{Notify: true, Persist: true})
	d, ok := s.Current()
	require.True(t, ok)
	require.Equal(t, first, d.ID, "first record becomes current")
	require.Equal(t, "Untitled.md", d.Name)

	second := s.Create("notes", "", CreateOptions{Ext: ".txt"})
	got, _ := s.Get(second)
	require.Equal(t, "notes.txt", got.Name)
	require.Equal(t, first, s.CurrentID(), "not made current")

	require.Equal(t, []model.EventType{
		model.EventDocumentCreated,
		model.EventCurrentChanged,
		model.EventListChanged,
		model.EventPersistRequested,
	}, eventTypes(*events))
}

func TestSetCurrent(t *testing.T) {
	s, events := newTestStore()
	a := s.Create("a", "", CreateOptions{})
	b := s.Create("b", "", CreateOptions{})

	require.False(t, s.SetCurrent(""))
	require.False(t, s.SetCurrent("missing"))
	require.False(t, s.SetCurrent(a), "already current")
	require.Empty(t, *events)

	require.True(t, s.SetCurrent(b))
	require.Equal(t, b, s.CurrentID())
	require.Equal(t, model.EventCurrentChanged, (*events)[0].Type)
}

func TestDelete_PromotesMostRecent(t *testing.T) {
	s, _ := newTestStore()
	a := s.Create("a", "", CreateOptions{})
	b := s.Create("b", "", CreateOptions{})
	c := s.Create("c", "", CreateOptions{MakeCurrent: true})
	s.SetContent(a, "touched") // a is now the most recent

	require.True(t, s.Delete(c))
	require.Equal(t, a, s.CurrentID())
	require.Equal(t, 2, s.Len())

	// Deleting a non-current record leaves current alone.
	require.True(t, s.Delete(b))
	require.Equal(t, a, s.CurrentID())
	require.False(t, s.Delete(b), "already gone")
}

func TestDelete_LastSynthesizesUntitled(t *testing.T) {
	s, events := newTestStore()
	only := s.Create("Only.md", "text", CreateOptions{})
	*events = nil

	require.True(t, s.Delete(only))
	require.Equal(t, 1, s.Len())
	d, ok := s.Current()
	require.True(t, ok)
	require.NotEqual(t, only, d.ID)
	require.Equal(t, "Untitled.md", d.Name)
	require.Empty(t, d.Content)

	persists := 0
	for _, ev := range *events {
		if ev.Type == model.EventPersistRequested {
			persists++
		}
	}
	require.Equal(t, 1, persists)
}

func TestIDsAreNeverReused(t *testing.T) {
	ids := []string{"doc-1", "doc-1", "doc-2", "doc-1", "doc-2", "doc-3"}
	i := 0
	s := New(Options{NewID: func() string { id := ids[i]; i++; return id }})
	a := s.Create("a", "", CreateOptions{})
	s.Delete(a)
	b := s.Create("b", "", CreateOptions{})
	require.Equal(t, "doc-1", a)
	require.Equal(t, "doc-3", b, "doc-2 went to the placeholder, doc-1 is a tombstone")
}

func TestRename_Outcomes(t *testing.T) {
	s, _ := newTestStore()
	a := s.Create("Plan.md", "", CreateOptions{})
	b := s.Create("Draft.txt", "", CreateOptions{})

	cases := []struct {
		proposed string
		name     string
		outcome  RenameOutcome
	}{
		{"", "Draft.txt", RenameNoop},
		{"  Draft.txt ", "Draft.txt", RenameUnchanged},
		{"Ideas", "Ideas.txt", RenameOK},
		{"Ide?as", "Ideas.txt", RenameUnchanged},
		{"plan.md", "plan 2.md", RenameDeduplicated},
		{"Pl*an.md", "Plan 2.md", RenameCleanedAndDeduplicated},
		{"Sum|mary", "Summary.md", RenameCleaned},
	}
	for _, tc := range cases {
		got := s.Rename(b, tc.proposed)
		assert.Equal(t, tc.name, got.Name, tc.proposed)
		assert.Equal(t, tc.outcome, got.Outcome, tc.proposed)
	}
	require.Equal(t, RenameNoop, s.Rename("missing", "x").Outcome)

	da, _ := s.Get(a)
	require.Equal(t, "Plan.md", da.Name)
}

func TestReplace_KeepsID(t *testing.T) {
	s, events := newTestStore()
	a := s.Create("", "", CreateOptions{})
	s.Create("page.md", "", CreateOptions{})
	*events = nil

	name := s.Replace(a, "page.md", "# hi")
	require.Equal(t, "page 2.md", name)
	d, _ := s.Get(a)
	require.Equal(t, "# hi", d.Content)
	require.Contains(t, eventTypes(*events), model.EventCurrentChanged)
	require.Equal(t, "", s.Replace("missing", "x", "y"))
}

func TestSnapshotRestore(t *testing.T) {
	s, _ := newTestStore()
	s.Create("a", "1", CreateOptions{})
	b := s.Create("b", "2", CreateOptions{MakeCurrent: true})
	env := s.Snapshot()

	other, _ := newTestStore()
	require.False(t, other.Restore(model.Envelope{}))
	require.True(t, other.Restore(env))
	require.Equal(t, b, other.CurrentID())
	require.Equal(t, env, other.Snapshot())

	// Restored ids are tombstoned against reuse.
	c := other.Create("c", "", CreateOptions{})
	_, clash := env.Documents[c]
	require.False(t, clash)
}

func TestList_MostRecentFirst(t *testing.T) {
	s, _ := newTestStore()
	a := s.Create("a", "", CreateOptions{})
	b := s.Create("b", "", CreateOptions{})
	s.SetContent(a, "x")
	list := s.List()
	require.Equal(t, []string{a, b}, []string{list[0].ID, list[1].ID})
}

func TestUnsubscribe(t *testing.T) {
	s := New(Options{})
	n := 0
	unsub := s.Subscribe(func(model.Event) { n++ })
	s.Create("a", "", CreateOptions{Notify: true})
	seen := n
	unsub()
	s.Create("b", "", CreateOptions{Notify: true})
	require.Equal(t, seen, n)
}

// Random create/rename/delete sequences never produce duplicate names or an empty store.
func TestStoreInvariants(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s, _ := newTestStore()
		s.Create("", "", CreateOptions{})
		nameGen := rapid.OneOf(
			rapid.SampledFrom([]string{"a", "A.md", "a.md", "Untitled", "untitled.md", "x<y>.md", "  ", "Report<1>.md"}),
			rapid.StringMatching(`[a-cA-C .:?]{0,6}`),
		)
		steps := rapid.IntRange(1, 40).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			ids := make([]string, 0)
			for _, d := range s.List() {
				ids = append(ids, d.ID)
			}
			switch rapid.IntRange(0, 2).Draw(rt, "op") {
			case 0:
				s.Create(nameGen.Draw(rt, "name"), "", CreateOptions{MakeCurrent: rapid.Bool().Draw(rt, "cur")})
			case 1:
				s.Rename(rapid.SampledFrom(ids).Draw(rt, "id"), nameGen.Draw(rt, "name"))
			case 2:
				s.Delete(rapid.SampledFrom(ids).Draw(rt, "id"))
			}

			require.GreaterOrEqual(rt, s.Len(), 1)
			_, ok := s.Current()
			require.True(rt, ok, "current must be live")
			seen := map[string]bool{}
			for _, d := range s.List() {
				key := strings.ToLower(d.Name)
				require.False(rt, seen[key], "duplicate name %q", d.Name)
				require.NotEmpty(rt, d.Name)
				seen[key] = true
			}
		}
	})
}
