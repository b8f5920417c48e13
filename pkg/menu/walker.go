package menu

// Walker searches a Forest for a node matching a predicate.
//
// A search descends into the first child not yet visited, and climbs to the
// parent once a node has no such child left. The visited set is shared by
// every FindMatch call until Clear, so a top-level Search visits each node
// at most once on the way down.
//
// A Walker is not safe for concurrent use.
type Walker struct {
	forest     *Forest
	visited    map[NodeID]struct{}
	firstMatch bool
}

// WalkerOption configures a Walker.
type WalkerOption func(*Walker)

// WithFirstMatch makes Search return the match found from the earliest root
// instead of the latest one.
func WithFirstMatch(enabled bool) WalkerOption {
	return func(w *Walker) { w.firstMatch = enabled }
}

// NewWalker returns a Walker over f.
func NewWalker(f *Forest, opts ...WalkerOption) *Walker {
	w := &Walker{
		forest:  f,
		visited: make(map[NodeID]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Clear empties the visited set.
func (w *Walker) Clear() {
	clear(w.visited)
}

// Visited returns the number of distinct nodes visited since the last Clear.
func (w *Walker) Visited() int {
	return len(w.visited)
}

// FindMatch looks for a node matching pred, starting at start.
// The walk is bounded by twice the forest size, so a corrupted forest with a
// cycle yields no match instead of looping.
func (w *Walker) FindMatch(start NodeID, pred Predicate) (NodeID, bool) {
	budget := 2*w.forest.Len() + 1

	cur := start
	for step := 0; step < budget; step++ {
		n, ok := w.forest.Lookup(cur)
		if !ok {
			return NoNode, false
		}

		w.visited[cur] = struct{}{}

		if pred(n) {
			return cur, true
		}

		if next, ok := w.firstUnvisited(n); ok {
			cur = next
			continue
		}

		if !n.HasParent() {
			return NoNode, false
		}
		cur = n.Parent
	}

	return NoNode, false
}

func (w *Walker) firstUnvisited(n *Node) (NodeID, bool) {
	for _, c := range n.Children {
		if _, seen := w.visited[c]; !seen {
			return c, true
		}
	}
	return NoNode, false
}

// Search runs FindMatch from every root in order. Unless the walker was built
// with WithFirstMatch, every hit replaces the previous one, so the match from
// the last matching root wins. The visited set is cleared before and after.
func (w *Walker) Search(pred Predicate) (NodeID, bool) {
	w.Clear()
	defer w.Clear()

	found, matched := NoNode, false
	for _, root := range w.forest.Roots() {
		id, ok := w.FindMatch(root, pred)
		if !ok {
			continue
		}

		found, matched = id, true
		if w.firstMatch {
			break
		}
	}

	return found, matched
}
