package menu

// Forest is the ordered collection of root menu nodes owned by one tag.
// Nodes live in an arena and reference each other by NodeID, so a child's
// parent link never owns its parent.
type Forest struct {
	nodes []*Node
	roots []NodeID
}

// NewForest builds a prepared forest from item definitions.
// The definitions are copied; later changes to items do not affect the forest.
func NewForest(items []Item) *Forest {
	f := &Forest{}
	f.Append(items)
	return f
}

// Append adds items as new roots after the existing ones and re-prepares
// the whole forest.
func (f *Forest) Append(items []Item) {
	for i := range items {
		f.roots = append(f.roots, f.add(&items[i]))
	}

	f.Prepare()
}

// add copies it and its descendants into the arena in pre-order.
func (f *Forest) add(it *Item) NodeID {
	id := NodeID(len(f.nodes))
	n := &Node{
		ID:       id,
		Title:    it.Title,
		Link:     it.Link,
		URL:      it.URL,
		Home:     it.Home,
		Selected: it.Selected,
		Expanded: it.Expanded,
		Parent:   NoNode,
	}
	f.nodes = append(f.nodes, n)

	for i := range it.Children {
		n.Children = append(n.Children, f.add(&it.Children[i]))
	}

	return id
}

// Prepare links every child to its direct parent. Roots get NoNode.
// It is idempotent and leaves every other field untouched.
func (f *Forest) Prepare() {
	for _, id := range f.roots {
		f.nodes[id].Parent = NoNode
	}

	for _, n := range f.nodes {
		for _, c := range n.Children {
			if child, ok := f.Lookup(c); ok {
				child.Parent = n.ID
			}
		}
	}
}

// Len returns the number of nodes at every depth.
func (f *Forest) Len() int {
	if f == nil {
		return 0
	}
	return len(f.nodes)
}

// Roots returns the root ids in order.
func (f *Forest) Roots() []NodeID {
	if f == nil {
		return nil
	}
	out := make([]NodeID, len(f.roots))
	copy(out, f.roots)
	return out
}

// Node returns the node for id. It panics on an id the forest never issued;
// use Lookup for ids coming from outside.
func (f *Forest) Node(id NodeID) *Node {
	return f.nodes[id]
}

// Lookup returns the node for id, if the forest has one.
func (f *Forest) Lookup(id NodeID) (*Node, bool) {
	if f == nil || id < 0 || int(id) >= len(f.nodes) {
		return nil, false
	}
	return f.nodes[id], true
}

// Walk calls fn for every node in arena order.
func (f *Forest) Walk(fn func(*Node)) {
	if f == nil {
		return
	}
	for _, n := range f.nodes {
		fn(n)
	}
}

// ResetSelection clears the selected flag on every node.
func (f *Forest) ResetSelection() {
	f.Walk(func(n *Node) { n.Selected = false })
}

// Nodes returns a copy of every node in arena order, suitable for rendering
// outside the owner's lock.
func (f *Forest) Nodes() []Node {
	if f == nil {
		return nil
	}
	out := make([]Node, len(f.nodes))
	for i, n := range f.nodes {
		out[i] = n.Clone()
	}
	return out
}

// Items converts the forest back into item definitions, carrying the
// current selected and expanded state.
func (f *Forest) Items() []Item {
	if f == nil {
		return nil
	}
	seen := make(map[NodeID]bool, len(f.nodes))
	return f.items(f.roots, seen)
}

func (f *Forest) items(ids []NodeID, seen map[NodeID]bool) []Item {
	var out []Item
	for _, id := range ids {
		n, ok := f.Lookup(id)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, Item{
			Title:    n.Title,
			Link:     n.Link,
			URL:      n.URL,
			Home:     n.Home,
			Selected: n.Selected,
			Expanded: n.Expanded,
			Children: f.items(n.Children, seen),
		})
	}
	return out
}
