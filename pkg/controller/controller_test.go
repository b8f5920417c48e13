package controller

import (
	"errors"
	"testing"

	"github.com/mchmarny/navmenu/pkg/broker"
	"github.com/mchmarny/navmenu/pkg/menu"
	"pgregory.net/rapid"
)

type recorder struct {
	internal []string
	external []string
	events   []string
	err      error
}

func (r *recorder) Navigate(path string) error {
	r.internal = append(r.internal, path)
	return r.err
}

func (r *recorder) Assign(url string) error {
	r.external = append(r.external, url)
	return r.err
}

func (r *recorder) Hovered(n menu.Node)         { r.events = append(r.events, "hover:"+n.Title) }
func (r *recorder) ToggleRequested(n menu.Node) { r.events = append(r.events, "toggle:"+n.Title) }
func (r *recorder) Selected(n menu.Node)        { r.events = append(r.events, "select:"+n.Title) }
func (r *recorder) Clicked(n menu.Node)         { r.events = append(r.events, "click:"+n.Title) }

func testItems() []menu.Item {
	return []menu.Item{
		{Title: "A", Children: []menu.Item{{Title: "B", Home: true, Link: "/b"}}},
		{Title: "C", Children: []menu.Item{{Title: "D"}}},
	}
}

func newController(t *testing.T, b *broker.Broker, tag string, opts ...Option) (*Controller, *recorder) {
	t.Helper()

	rec := &recorder{}
	opts = append([]Option{WithRouter(rec), WithLocation(rec), WithRenderer(rec)}, opts...)

	c := New(b, tag, opts...)
	if err := c.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(c.Close)

	return c, rec
}

func selectedTitles(c *Controller) []string {
	nodes, _ := c.Nodes()
	var out []string
	for _, n := range nodes {
		if n.Selected {
			out = append(out, n.Title)
		}
	}
	return out
}

func TestInitInstallsItems(t *testing.T) {
	b := broker.New()
	b.SetItems("main", testItems())

	c, _ := newController(t, b, "main")

	nodes, roots := c.Nodes()
	if len(nodes) != 4 || len(roots) != 2 {
		t.Fatalf("expected 4 nodes and 2 roots, got %d and %d", len(nodes), len(roots))
	}
	if nodes[1].Parent != 0 || nodes[3].Parent != 2 {
		t.Errorf("parents not linked: %+v", nodes)
	}
}

func TestInitTwice(t *testing.T) {
	c, _ := newController(t, broker.New(), "main")
	if err := c.Init(); !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("expected ErrAlreadyInitialized, got %v", err)
	}
}

func TestCloseReleasesSubscriptions(t *testing.T) {
	b := broker.New()
	c, _ := newController(t, b, "main")

	for kind, n := range b.Subscribers() {
		if kind != broker.KindItemClick && n != 1 {
			t.Errorf("%s: expected 1 subscriber, got %d", kind, n)
		}
	}

	c.Close()
	c.Close()

	for kind, n := range b.Subscribers() {
		if n != 0 {
			t.Errorf("%s: expected 0 subscribers after close, got %d", kind, n)
		}
	}

	b.SetItems("main", testItems())
	if nodes, _ := c.Nodes(); len(nodes) != 0 {
		t.Errorf("closed controller reacted to replace: %d nodes", len(nodes))
	}

	if err := c.Init(); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestCloseWithoutInit(t *testing.T) {
	c := New(broker.New(), "main")
	c.Close()
	c.Close()
}

func TestReplaceFiltersByTag(t *testing.T) {
	b := broker.New()
	main, _ := newController(t, b, "main")
	footer, _ := newController(t, b, "footer")

	b.SetItems("main", testItems())

	if nodes, _ := main.Nodes(); len(nodes) != 4 {
		t.Errorf("main: expected 4 nodes, got %d", len(nodes))
	}
	if nodes, _ := footer.Nodes(); len(nodes) != 0 {
		t.Errorf("footer: expected 0 nodes, got %d", len(nodes))
	}

	b.SetItems("", []menu.Item{{Title: "Everywhere"}})

	for _, c := range []*Controller{main, footer} {
		nodes, _ := c.Nodes()
		if len(nodes) != 1 || nodes[0].Title != "Everywhere" {
			t.Errorf("%s: wildcard replace not applied: %+v", c.Tag(), nodes)
		}
	}
}

func TestReplaceLinksParents(t *testing.T) {
	b := broker.New()
	c, _ := newController(t, b, "main")

	b.SetItems("main", []menu.Item{{Title: "X", Children: []menu.Item{{Title: "Y", Children: []menu.Item{{Title: "Z"}}}}}})

	nodes, _ := c.Nodes()
	want := []menu.NodeID{menu.NoNode, 0, 1}
	for i, n := range nodes {
		if n.Parent != want[i] {
			t.Errorf("node %s: expected parent %d, got %d", n.Title, want[i], n.Parent)
		}
	}
}

func TestAppendPreservesOrder(t *testing.T) {
	b := broker.New()
	b.SetItems("main", testItems())
	c, _ := newController(t, b, "main")

	b.AddItems("main", []menu.Item{{Title: "E"}, {Title: "F", Children: []menu.Item{{Title: "G"}}}})

	nodes, roots := c.Nodes()
	var titles []string
	for _, id := range roots {
		titles = append(titles, nodes[id].Title)
	}

	want := []string{"A", "C", "E", "F"}
	if len(titles) != len(want) {
		t.Fatalf("expected %v, got %v", want, titles)
	}
	for i := range want {
		if titles[i] != want[i] {
			t.Errorf("root %d: expected %s, got %s", i, want[i], titles[i])
		}
	}
	if nodes[len(nodes)-1].Title != "G" || nodes[len(nodes)-1].Parent != roots[3] {
		t.Errorf("appended child not linked: %+v", nodes[len(nodes)-1])
	}
}

func TestSelectKeepsSingleSelection(t *testing.T) {
	b := broker.New()
	items := testItems()
	items[0].Selected = true
	items[1].Children[0].Selected = true
	b.SetItems("main", items)

	c, rec := newController(t, b, "main")

	if _, err := c.Select(2); err != nil {
		t.Fatalf("select: %v", err)
	}

	got := selectedTitles(c)
	if len(got) != 1 || got[0] != "C" {
		t.Errorf("expected only C selected, got %v", got)
	}
	if len(rec.events) != 1 || rec.events[0] != "select:C" {
		t.Errorf("unexpected renderer events: %v", rec.events)
	}
}

func TestSelectUnknownItem(t *testing.T) {
	c, _ := newController(t, broker.New(), "main")

	if _, err := c.Select(7); !errors.Is(err, ErrUnknownItem) {
		t.Errorf("expected ErrUnknownItem, got %v", err)
	}
}

func TestToggleExpand(t *testing.T) {
	b := broker.New()
	b.SetItems("main", testItems())
	c, rec := newController(t, b, "main")

	n, err := c.ToggleExpand(0)
	if err != nil || !n.Expanded {
		t.Fatalf("expected expanded, got %+v (%v)", n, err)
	}
	n, _ = c.ToggleExpand(0)
	if n.Expanded {
		t.Error("expected collapsed after second toggle")
	}

	// Expansion has no uniqueness constraint.
	c.ToggleExpand(0)
	c.ToggleExpand(2)
	nodes, _ := c.Nodes()
	if !nodes[0].Expanded || !nodes[2].Expanded {
		t.Error("expected both roots expanded")
	}

	if len(rec.events) != 4 || rec.events[0] != "toggle:A" {
		t.Errorf("unexpected renderer events: %v", rec.events)
	}
}

func TestHoverAndClick(t *testing.T) {
	b := broker.New()
	b.SetItems("main", testItems())
	c, rec := newController(t, b, "main")

	var clicked []broker.ItemClicked
	sub := b.OnItemClick(func(ev broker.ItemClicked) { clicked = append(clicked, ev) })
	defer sub.Unsubscribe()

	c.Hover(1)
	c.Click(3)

	if len(rec.events) != 2 || rec.events[0] != "hover:B" || rec.events[1] != "click:D" {
		t.Errorf("unexpected renderer events: %v", rec.events)
	}
	if len(clicked) != 1 || clicked[0].Tag != "main" || clicked[0].Item.Title != "D" {
		t.Errorf("unexpected broker clicks: %+v", clicked)
	}
}

func TestGetSelectedNoMatchRepliesOnce(t *testing.T) {
	b := broker.New()
	b.SetItems("main", testItems())
	newController(t, b, "main")

	replies := b.SelectedItems("main")
	if len(replies) != 1 {
		t.Fatalf("expected exactly one reply, got %d", len(replies))
	}
	if replies[0].Item != nil {
		t.Errorf("expected no item, got %+v", replies[0].Item)
	}
	if replies[0].Tag != "main" {
		t.Errorf("expected tag main, got %q", replies[0].Tag)
	}
}

func TestGetSelectedFiltersByTag(t *testing.T) {
	b := broker.New()
	b.SetItems("main", testItems())
	c, _ := newController(t, b, "main")
	newController(t, b, "footer")

	c.Select(3)

	replies := b.SelectedItems("main")
	if len(replies) != 1 || replies[0].Item == nil || replies[0].Item.Title != "D" {
		t.Errorf("unexpected replies: %+v", replies)
	}

	if replies := b.SelectedItems(""); len(replies) != 2 {
		t.Errorf("expected a reply from every controller for wildcard tag, got %d", len(replies))
	}
}

func TestSelectedLastMatchWins(t *testing.T) {
	b := broker.New()
	b.SetItems("main", []menu.Item{
		{Title: "A", Children: []menu.Item{{Title: "B", Selected: true}}},
		{Title: "C", Children: []menu.Item{{Title: "D", Selected: true}}},
	})

	last, _ := newController(t, b, "main")
	first, _ := newController(t, b, "main", WithFirstMatch(true))

	if n := last.Selected(); n == nil || n.Title != "D" {
		t.Errorf("expected D, got %+v", n)
	}
	if n := first.Selected(); n == nil || n.Title != "B" {
		t.Errorf("expected B, got %+v", n)
	}
}

func TestHome(t *testing.T) {
	b := broker.New()
	b.SetItems("main", testItems())
	c, _ := newController(t, b, "main")

	if n := c.Home(); n == nil || n.Title != "B" {
		t.Errorf("expected B, got %+v", n)
	}
	if n := New(b, "idle").Home(); n != nil {
		t.Errorf("uninitialized controller returned %+v", n)
	}
}

func TestNavigateHome(t *testing.T) {
	b := broker.New()
	items := testItems()
	items[1].Selected = true
	b.SetItems("main", items)

	c, rec := newController(t, b, "main")

	b.NavigateHome("main")

	if got := selectedTitles(c); len(got) != 1 || got[0] != "B" {
		t.Errorf("expected only B selected, got %v", got)
	}
	if len(rec.internal) != 1 || rec.internal[0] != "/b" {
		t.Errorf("unexpected internal navigation: %v", rec.internal)
	}
	if len(rec.external) != 0 {
		t.Errorf("unexpected external navigation: %v", rec.external)
	}
}

func TestNavigateHomeLinkAndURL(t *testing.T) {
	b := broker.New()
	b.SetItems("main", []menu.Item{{Title: "Home", Home: true, Link: "/home", URL: "https://example.com"}})

	c, rec := newController(t, b, "main")

	n, err := c.NavigateHome()
	if err != nil {
		t.Fatalf("navigate home: %v", err)
	}
	if n == nil || !n.Selected {
		t.Fatalf("expected selected home node, got %+v", n)
	}
	if len(rec.internal) != 1 || len(rec.external) != 1 {
		t.Errorf("expected both navigations, got internal=%v external=%v", rec.internal, rec.external)
	}
}

func TestNavigateHomeWithoutHome(t *testing.T) {
	b := broker.New()
	items := testItems()
	items[0].Children[0].Home = false
	items[1].Selected = true
	b.SetItems("main", items)

	c, rec := newController(t, b, "main")

	n, err := c.NavigateHome()
	if n != nil || err != nil {
		t.Errorf("expected nothing, got %+v (%v)", n, err)
	}
	if got := selectedTitles(c); len(got) != 1 || got[0] != "C" {
		t.Errorf("selection should be untouched, got %v", got)
	}
	if len(rec.internal)+len(rec.external) != 0 {
		t.Error("unexpected navigation")
	}
}

func TestNavigateHomeReportsNavigationErrors(t *testing.T) {
	b := broker.New()
	b.SetItems("main", []menu.Item{{Title: "Home", Home: true, Link: "/home"}})

	c, rec := newController(t, b, "main")
	rec.err = errors.New("router down")

	if _, err := c.NavigateHome(); err == nil {
		t.Error("expected navigation error")
	}
}

func TestNavigateHomeIgnoresOtherTags(t *testing.T) {
	b := broker.New()
	b.SetItems("main", testItems())

	_, rec := newController(t, b, "main")

	b.NavigateHome("footer")
	if len(rec.internal) != 0 {
		t.Errorf("unexpected navigation: %v", rec.internal)
	}
}

func TestSelectionInvariant(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 6).Draw(t, "roots")
		items := make([]menu.Item, n)
		for i := range items {
			items[i] = menu.Item{
				Title:    rapid.StringMatching(`[A-Z]`).Draw(t, "title"),
				Selected: rapid.Bool().Draw(t, "selected"),
				Children: []menu.Item{{Title: "child", Selected: rapid.Bool().Draw(t, "childSelected")}},
			}
		}

		b := broker.New()
		b.SetItems("main", items)
		c := New(b, "main")
		if err := c.Init(); err != nil {
			t.Fatal(err)
		}
		defer c.Close()

		target := menu.NodeID(rapid.IntRange(0, 2*n-1).Draw(t, "target"))
		if _, err := c.Select(target); err != nil {
			t.Fatal(err)
		}

		nodes, _ := c.Nodes()
		var selected []menu.NodeID
		for _, node := range nodes {
			if node.Selected {
				selected = append(selected, node.ID)
			}
		}
		if len(selected) != 1 || selected[0] != target {
			t.Fatalf("expected only %d selected, got %v", target, selected)
		}
	})
}
