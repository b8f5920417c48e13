package menu

import (
	"testing"

	"pgregory.net/rapid"
)

func TestSearchFindsHomeInChild(t *testing.T) {
	f := NewForest([]Item{
		{Title: "A", Children: []Item{{Title: "B", Home: true}}},
		{Title: "C"},
	})

	id, ok := NewWalker(f).Search(IsHome)
	if !ok {
		t.Fatal("expected a home item")
	}
	if got := f.Node(id).Title; got != "B" {
		t.Errorf("expected B, got %s", got)
	}
}

func TestSearchNoMatch(t *testing.T) {
	f := NewForest(sampleItems())

	id, ok := NewWalker(f).Search(IsSelected)
	if ok {
		t.Errorf("expected no match, got %d", id)
	}
	if id != NoNode {
		t.Errorf("expected NoNode, got %d", id)
	}
}

func TestSearchEmptyForest(t *testing.T) {
	if _, ok := NewWalker(NewForest(nil)).Search(IsHome); ok {
		t.Error("expected no match in empty forest")
	}
}

func TestSearchLastMatchWins(t *testing.T) {
	f := NewForest([]Item{
		{Title: "A", Children: []Item{{Title: "B", Selected: true}}},
		{Title: "C", Children: []Item{{Title: "D", Selected: true}}},
	})

	id, ok := NewWalker(f).Search(IsSelected)
	if !ok {
		t.Fatal("expected a match")
	}
	if got := f.Node(id).Title; got != "D" {
		t.Errorf("expected match from last root (D), got %s", got)
	}
}

func TestSearchFirstMatch(t *testing.T) {
	f := NewForest([]Item{
		{Title: "A", Children: []Item{{Title: "B", Selected: true}}},
		{Title: "C", Children: []Item{{Title: "D", Selected: true}}},
	})

	id, ok := NewWalker(f, WithFirstMatch(true)).Search(IsSelected)
	if !ok {
		t.Fatal("expected a match")
	}
	if got := f.Node(id).Title; got != "B" {
		t.Errorf("expected match from first root (B), got %s", got)
	}
}

func TestSearchBacktracksThroughParent(t *testing.T) {
	// A -> (B -> D), C; C is only reachable by climbing back from D to A.
	f := NewForest([]Item{
		{Title: "A", Children: []Item{
			{Title: "B", Children: []Item{{Title: "D"}}},
			{Title: "C", Selected: true},
		}},
	})

	id, ok := NewWalker(f).Search(IsSelected)
	if !ok {
		t.Fatal("expected a match")
	}
	if got := f.Node(id).Title; got != "C" {
		t.Errorf("expected C, got %s", got)
	}
}

func TestSearchClearsVisited(t *testing.T) {
	f := NewForest(sampleItems())
	w := NewWalker(f)

	w.Search(IsHome)
	if w.Visited() != 0 {
		t.Errorf("expected visited set to be cleared, got %d", w.Visited())
	}

	// A stale visited set would hide Daily from the second search.
	f.Node(3).Selected = true
	id, ok := w.Search(IsSelected)
	if !ok || id != 3 {
		t.Errorf("expected Daily (3), got %d (%v)", id, ok)
	}
}

func TestFindMatchSharesVisitedUntilClear(t *testing.T) {
	f := NewForest(sampleItems())
	w := NewWalker(f)

	w.FindMatch(0, func(*Node) bool { return false })
	if w.Visited() != 4 {
		t.Errorf("expected 4 visited nodes under Dashboard, got %d", w.Visited())
	}

	w.Clear()
	if w.Visited() != 0 {
		t.Errorf("expected 0 after Clear, got %d", w.Visited())
	}
}

func TestFindMatchUnknownStart(t *testing.T) {
	w := NewWalker(NewForest(sampleItems()))
	if _, ok := w.FindMatch(42, IsHome); ok {
		t.Error("expected no match for unknown start")
	}
}

func TestSearchTerminatesOnChildCycle(t *testing.T) {
	f := NewForest([]Item{
		{Title: "A", Children: []Item{
			{Title: "B", Children: []Item{{Title: "C"}}},
		}},
	})
	// C lists its grandparent A as a child.
	f.Node(2).Children = append(f.Node(2).Children, 0)

	var calls int
	never := func(*Node) bool {
		calls++
		return false
	}

	if _, ok := NewWalker(f).Search(never); ok {
		t.Error("expected no match")
	}
	if max := 2*f.Len() + 1; calls > max {
		t.Errorf("expected at most %d visits, got %d", max, calls)
	}

	f.Node(2).Home = true
	id, ok := NewWalker(f).Search(IsHome)
	if !ok || id != 2 {
		t.Errorf("expected C (2), got %d (%v)", id, ok)
	}
}

func TestSearchTerminatesOnParentCycle(t *testing.T) {
	f := NewForest([]Item{
		{Title: "A", Children: []Item{
			{Title: "B", Children: []Item{{Title: "C"}}},
		}},
	})
	// A's parent link points at its grandchild, so climbing never reaches a root.
	f.Node(0).Parent = 2

	var calls int
	never := func(*Node) bool {
		calls++
		return false
	}

	if _, ok := NewWalker(f).Search(never); ok {
		t.Error("expected no match")
	}
	if max := 2*f.Len() + 1; calls > max {
		t.Errorf("expected at most %d visits, got %d", max, calls)
	}
}

func genItems(depth int) *rapid.Generator[[]Item] {
	return rapid.Custom(func(t *rapid.T) []Item {
		n := rapid.IntRange(0, 3).Draw(t, "n")
		items := make([]Item, n)
		for i := range items {
			items[i] = Item{
				Title:    rapid.StringMatching(`[a-z]{1,6}`).Draw(t, "title"),
				Selected: rapid.Float64Range(0, 1).Draw(t, "selected") < 0.2,
				Home:     rapid.Float64Range(0, 1).Draw(t, "home") < 0.2,
			}
			if depth > 0 {
				items[i].Children = genItems(depth - 1).Draw(t, "children")
			}
		}
		return items
	})
}

// preOrderMatch returns the pre-order index of the first item under it
// matching pred, advancing next past the whole subtree.
func preOrderMatch(it Item, next *int, pred func(Item) bool) (int, bool) {
	id := *next
	*next++

	found, ok := -1, false
	if pred(it) {
		found, ok = id, true
	}
	for _, c := range it.Children {
		if cid, cok := preOrderMatch(c, next, pred); cok && !ok {
			found, ok = cid, true
		}
	}
	return found, ok
}

func TestSearchMatchesPreOrderOracle(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		items := genItems(3).Draw(t, "items")
		firstMatch := rapid.Bool().Draw(t, "firstMatch")

		want, wantOK := -1, false
		next := 0
		for _, root := range items {
			id, ok := preOrderMatch(root, &next, func(it Item) bool { return it.Selected })
			if ok && (!firstMatch || !wantOK) {
				want, wantOK = id, true
			}
		}

		f := NewForest(items)
		got, ok := NewWalker(f, WithFirstMatch(firstMatch)).Search(IsSelected)
		if ok != wantOK {
			t.Fatalf("expected match %v, got %v", wantOK, ok)
		}
		if ok && int(got) != want {
			t.Fatalf("expected node %d, got %d", want, got)
		}
	})
}

func TestPrepareLinksEveryChild(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		f := NewForest(genItems(3).Draw(t, "items"))
		f.Prepare()

		isRoot := make(map[NodeID]bool)
		for _, id := range f.Roots() {
			isRoot[id] = true
		}

		f.Walk(func(n *Node) {
			if isRoot[n.ID] != !n.HasParent() {
				t.Fatalf("node %d: root=%v but parent=%d", n.ID, isRoot[n.ID], n.Parent)
			}
			for _, c := range n.Children {
				if f.Node(c).Parent != n.ID {
					t.Fatalf("node %d: expected parent %d, got %d", c, n.ID, f.Node(c).Parent)
				}
			}
		})
	})
}
