package menu

// Item is the published definition of a menu entry, which may contain sub-items.
// Item sets travel through the broker in this shape and are turned into a
// Forest by each controller that installs them.
type Item struct {
	// Title is the display label of the item.
	Title string `json:"title" yaml:"title"`

	// Link is an internal route path. It takes precedence over URL.
	Link string `json:"link,omitempty" yaml:"link,omitempty"`

	// URL is an external address.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Home marks the item the menu returns to on a navigate-home request.
	Home bool `json:"home,omitempty" yaml:"home,omitempty"`

	// Selected marks the currently active item.
	Selected bool `json:"selected,omitempty" yaml:"selected,omitempty"`

	// Expanded is a presentation flag toggled per item.
	Expanded bool `json:"expanded,omitempty" yaml:"expanded,omitempty"`

	// Children are the sub-items of this item, in display order.
	Children []Item `json:"children,omitempty" yaml:"children,omitempty"`
}

// NodeID addresses a Node within its Forest.
type NodeID int

// NoNode is the parent of every root node.
const NoNode NodeID = -1

// Node is a prepared menu entry living in a Forest arena.
type Node struct {
	ID       NodeID   `json:"id"`
	Title    string   `json:"title"`
	Link     string   `json:"link,omitempty"`
	URL      string   `json:"url,omitempty"`
	Home     bool     `json:"home,omitempty"`
	Selected bool     `json:"selected,omitempty"`
	Expanded bool     `json:"expanded,omitempty"`
	Parent   NodeID   `json:"parent"`
	Children []NodeID `json:"children,omitempty"`
}

// HasParent reports whether the node is a child of another node.
func (n *Node) HasParent() bool {
	return n.Parent != NoNode
}

// Clone returns a copy of n that shares no state with it.
func (n *Node) Clone() Node {
	c := *n
	c.Children = append([]NodeID(nil), n.Children...)
	return c
}

// Predicate selects nodes during a search.
type Predicate func(*Node) bool

// IsSelected matches the selected node.
func IsSelected(n *Node) bool { return n.Selected }

// IsHome matches the home node.
func IsHome(n *Node) bool { return n.Home }

// CloneItems returns a deep copy of items.
func CloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}

	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = it
		out[i].Children = CloneItems(it.Children)
	}

	return out
}
