// Package controller owns the menu forest of one tag and applies the broker's
// events and the renderer's interactions to it.
package controller

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mchmarny/navmenu/pkg/broker"
	"github.com/mchmarny/navmenu/pkg/menu"
	"github.com/mchmarny/navmenu/pkg/metric"
)

var (
	// ErrUnknownItem is returned for an id the controller's forest does not hold.
	ErrUnknownItem = errors.New("unknown menu item")

	// ErrAlreadyInitialized is returned by a second call to Init.
	ErrAlreadyInitialized = errors.New("controller already initialized")

	// ErrClosed is returned by operations on a closed controller.
	ErrClosed = errors.New("controller closed")
)

// Router performs internal navigation by route path.
type Router interface {
	Navigate(path string) error
}

// Location performs external navigation by URL.
type Location interface {
	Assign(url string) error
}

// Renderer receives interaction notifications. Nodes are copies.
type Renderer interface {
	Hovered(n menu.Node)
	ToggleRequested(n menu.Node)
	Selected(n menu.Node)
	Clicked(n menu.Node)
}

// Controller owns the forest for one tag.
type Controller struct {
	tag    string
	broker *broker.Broker

	router   Router
	location Location
	renderer Renderer
	counter  metric.IncrementalCounter
	walkOpts []menu.WalkerOption

	mu     sync.Mutex
	forest *menu.Forest
	walker *menu.Walker
	subs   []*broker.Subscription
	closed bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithRouter sets the collaborator for internal navigation.
func WithRouter(r Router) Option {
	return func(c *Controller) { c.router = r }
}

// WithLocation sets the collaborator for external navigation.
func WithLocation(l Location) Option {
	return func(c *Controller) { c.location = l }
}

// WithRenderer sets the receiver of interaction notifications.
func WithRenderer(r Renderer) Option {
	return func(c *Controller) { c.renderer = r }
}

// WithCounter counts applied operations by op and tag.
func WithCounter(cnt metric.IncrementalCounter) Option {
	return func(c *Controller) { c.counter = cnt }
}

// WithFirstMatch makes selected and home searches return the match from the
// first matching root instead of the last one.
func WithFirstMatch(enabled bool) Option {
	return func(c *Controller) {
		c.walkOpts = append(c.walkOpts, menu.WithFirstMatch(enabled))
	}
}

// New creates a controller for tag. It does not react to the broker until
// Init is called.
func New(b *broker.Broker, tag string, opts ...Option) *Controller {
	c := &Controller{
		tag:      tag,
		broker:   b,
		renderer: nopRenderer{},
		counter:  metric.Nop{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tag returns the tag the controller owns.
func (c *Controller) Tag() string {
	return c.tag
}

// Init subscribes to the broker and installs the current item set for the tag.
func (c *Controller) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.subs != nil {
		return ErrAlreadyInitialized
	}

	c.subs = []*broker.Subscription{
		c.broker.OnItemsChanges(c.OnItemSetReplaced),
		c.broker.OnAddItems(c.OnItemSetAppended),
		c.broker.OnNavigateHome(c.OnNavigateHomeRequested),
		c.broker.OnGetSelectedItem(c.OnGetSelectedItemRequested),
	}

	c.install(c.broker.Items(c.tag))

	slog.Debug("menu controller initialized",
		"tag", c.tag,
		"nodes", c.forest.Len(),
	)

	return nil
}

// Close releases every broker subscription. It is idempotent and safe to call
// on a controller that was never initialized.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true

	for _, s := range c.subs {
		s.Unsubscribe()
	}
	c.subs = nil

	slog.Debug("menu controller closed", "tag", c.tag)
}

// matches reports whether an event for tag concerns this controller.
// An empty tag addresses every controller.
func (c *Controller) matches(tag string) bool {
	return tag == "" || tag == c.tag
}

// install replaces the forest. Caller holds c.mu.
func (c *Controller) install(items []menu.Item) {
	c.forest = menu.NewForest(items)
	c.walker = menu.NewWalker(c.forest, c.walkOpts...)
}

// active reports whether events should be applied. Caller holds c.mu.
func (c *Controller) active() bool {
	return !c.closed && c.subs != nil
}

// OnItemSetReplaced replaces the forest when the event's tag matches.
func (c *Controller) OnItemSetReplaced(ev broker.ItemSetReplaced) {
	if !c.matches(ev.Tag) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active() {
		return
	}

	c.install(ev.Items)
	c.counter.Increment("replace", c.tag)
}

// OnItemSetAppended appends the event's items as new roots when the tag
// matches.
func (c *Controller) OnItemSetAppended(ev broker.ItemSetAppended) {
	if !c.matches(ev.Tag) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active() {
		return
	}

	c.forest.Append(ev.Items)
	c.counter.Increment("append", c.tag)
}

// OnNavigateHomeRequested navigates home when the tag matches.
func (c *Controller) OnNavigateHomeRequested(ev broker.NavigateHomeRequested) {
	if !c.matches(ev.Tag) {
		return
	}

	if _, err := c.NavigateHome(); err != nil {
		slog.Error("navigate home failed", "tag", c.tag, "error", err)
	}
}

// OnGetSelectedItemRequested replies with the selected item when the tag
// matches. The reply is sent even when nothing is selected.
func (c *Controller) OnGetSelectedItemRequested(ev broker.GetSelectedItemRequested) {
	if !c.matches(ev.Tag) {
		return
	}

	c.mu.Lock()
	if !c.active() {
		c.mu.Unlock()
		return
	}
	item := c.findLocked(menu.IsSelected)
	c.counter.Increment("get_selected", c.tag)
	c.mu.Unlock()

	if ev.Reply != nil {
		ev.Reply(broker.SelectedItem{Tag: ev.Tag, Item: item})
	}
}

// findLocked runs a top-level search and returns a copy of the match.
// Caller holds c.mu.
func (c *Controller) findLocked(pred menu.Predicate) *menu.Node {
	id, ok := c.walker.Search(pred)
	if !ok {
		return nil
	}
	n := c.forest.Node(id).Clone()
	return &n
}

// Selected returns a copy of the selected node, or nil.
func (c *Controller) Selected() *menu.Node {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.walker == nil {
		return nil
	}
	return c.findLocked(menu.IsSelected)
}

// Home returns a copy of the home node, or nil.
func (c *Controller) Home() *menu.Node {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.walker == nil {
		return nil
	}
	return c.findLocked(menu.IsHome)
}

// Nodes returns a copy of the forest's nodes and the root ids.
func (c *Controller) Nodes() ([]menu.Node, []menu.NodeID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.forest.Nodes(), c.forest.Roots()
}

// mutate applies fn to the node id under the lock and returns a copy of the
// node afterwards.
func (c *Controller) mutate(op string, id menu.NodeID, fn func(*menu.Node)) (menu.Node, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return menu.Node{}, ErrClosed
	}

	n, ok := c.forest.Lookup(id)
	if !ok {
		return menu.Node{}, fmt.Errorf("%s item %d in menu %q: %w", op, id, c.tag, ErrUnknownItem)
	}

	if fn != nil {
		fn(n)
	}
	c.counter.Increment(op, c.tag)

	return n.Clone(), nil
}

// ToggleExpand flips the expanded flag of the item and notifies the renderer.
func (c *Controller) ToggleExpand(id menu.NodeID) (menu.Node, error) {
	n, err := c.mutate("toggle", id, func(n *menu.Node) {
		n.Expanded = !n.Expanded
	})
	if err != nil {
		return n, err
	}

	c.renderer.ToggleRequested(n)
	return n, nil
}

// Hover notifies the renderer that the item is hovered.
func (c *Controller) Hover(id menu.NodeID) (menu.Node, error) {
	n, err := c.mutate("hover", id, nil)
	if err != nil {
		return n, err
	}

	c.renderer.Hovered(n)
	return n, nil
}

// Click notifies the renderer and tells the broker the item was clicked in
// this controller's menu.
func (c *Controller) Click(id menu.NodeID) (menu.Node, error) {
	n, err := c.mutate("click", id, nil)
	if err != nil {
		return n, err
	}

	c.renderer.Clicked(n)
	c.broker.ItemClick(n, c.tag)
	return n, nil
}

// Select makes the item the only selected node of the forest. Selection is
// reset through the broker before the item is marked.
func (c *Controller) Select(id menu.NodeID) (menu.Node, error) {
	n, err := c.mutate("select", id, func(n *menu.Node) {
		c.broker.ResetSelection(c.forest)
		n.Selected = true
	})
	if err != nil {
		return n, err
	}

	c.renderer.Selected(n)
	return n, nil
}

// NavigateHome selects the home item and navigates to it: to its link via
// the router and to its URL via the location, both when both are set.
// It returns nil when the forest has no home item.
func (c *Controller) NavigateHome() (*menu.Node, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if c.walker == nil {
		c.mu.Unlock()
		return nil, nil
	}

	id, ok := c.walker.Search(menu.IsHome)
	if !ok {
		c.mu.Unlock()
		slog.Debug("no home item", "tag", c.tag)
		return nil, nil
	}

	home := c.forest.Node(id)
	c.broker.ResetSelection(c.forest)
	home.Selected = true
	n := home.Clone()
	c.counter.Increment("navigate_home", c.tag)
	c.mu.Unlock()

	var errs []error
	if n.Link != "" && c.router != nil {
		if err := c.router.Navigate(n.Link); err != nil {
			errs = append(errs, fmt.Errorf("navigating to link %q: %w", n.Link, err))
		}
	}
	if n.URL != "" && c.location != nil {
		if err := c.location.Assign(n.URL); err != nil {
			errs = append(errs, fmt.Errorf("navigating to url %q: %w", n.URL, err))
		}
	}

	return &n, errors.Join(errs...)
}

type nopRenderer struct{}

func (nopRenderer) Hovered(menu.Node)         {}
func (nopRenderer) ToggleRequested(menu.Node) {}
func (nopRenderer) Selected(menu.Node)        {}
func (nopRenderer) Clicked(menu.Node)         {}
