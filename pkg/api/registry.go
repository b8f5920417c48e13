// Package api exposes menus over HTTP. It stands in for the renderer: every
// interaction a browser would report arrives here and is applied to the
// controller owning the menu's tag.
package api

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/mchmarny/navmenu/pkg/broker"
	"github.com/mchmarny/navmenu/pkg/controller"
	"github.com/mchmarny/navmenu/pkg/menu"
	"github.com/mchmarny/navmenu/pkg/metric"
	"github.com/mchmarny/navmenu/pkg/navigation"
)

// Registry holds one controller per tag, all sharing a broker and a
// navigation history.
type Registry struct {
	broker     *broker.Broker
	history    *navigation.History
	counter    metric.IncrementalCounter
	firstMatch bool

	mu          sync.Mutex
	controllers map[string]*controller.Controller
	clicks      *broker.Subscription
	lastClick   map[string]broker.ItemClicked

	// load serializes document loads; loaded holds the tags of the last one.
	load   sync.Mutex
	loaded map[string]bool

	// home serializes navigate-home requests so each sees only its own
	// navigations in the history.
	home sync.Mutex
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithControllerCounter counts controller operations.
func WithControllerCounter(c metric.IncrementalCounter) RegistryOption {
	return func(r *Registry) { r.counter = c }
}

// WithFirstMatch configures every controller to prefer the first match.
func WithFirstMatch(enabled bool) RegistryOption {
	return func(r *Registry) { r.firstMatch = enabled }
}

// NewRegistry returns a registry over b, navigating through h.
func NewRegistry(b *broker.Broker, h *navigation.History, opts ...RegistryOption) *Registry {
	r := &Registry{
		broker:      b,
		history:     h,
		counter:     metric.Nop{},
		controllers: make(map[string]*controller.Controller),
		lastClick:   make(map[string]broker.ItemClicked),
		loaded:      make(map[string]bool),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.clicks = b.OnItemClick(r.onItemClick)
	return r
}

func (r *Registry) onItemClick(ev broker.ItemClicked) {
	r.mu.Lock()
	r.lastClick[ev.Tag] = ev
	r.mu.Unlock()
}

// LastClick returns the latest click reported for tag.
func (r *Registry) LastClick(tag string) (broker.ItemClicked, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev, ok := r.lastClick[tag]
	return ev, ok
}

// Controller returns the controller for tag, creating and initializing it on
// first use.
func (r *Registry) Controller(tag string) (*controller.Controller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.controllers[tag]; ok {
		return c, nil
	}

	c := controller.New(r.broker, tag,
		controller.WithRouter(r.history),
		controller.WithLocation(r.history),
		controller.WithRenderer(logRenderer{tag: tag}),
		controller.WithCounter(r.counter),
		controller.WithFirstMatch(r.firstMatch),
	)
	if err := c.Init(); err != nil {
		return nil, err
	}

	r.controllers[tag] = c
	return c, nil
}

// Lookup returns the controller for tag without creating one.
func (r *Registry) Lookup(tag string) (*controller.Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.controllers[tag]
	return c, ok
}

// Tags returns the tags with a live controller, sorted.
func (r *Registry) Tags() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	tags := make([]string, 0, len(r.controllers))
	for t := range r.controllers {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// Load publishes every set of doc and makes sure each tag has a controller.
// Tags that an earlier document loaded and doc no longer has are cleared and
// their controllers closed. Tags published only over HTTP are left alone.
func (r *Registry) Load(doc *menu.Document) error {
	r.load.Lock()
	defer r.load.Unlock()

	present := make(map[string]bool, len(doc.Menus))
	for _, s := range doc.Menus {
		if _, err := r.Controller(s.Tag); err != nil {
			return err
		}
		r.broker.SetItems(s.Tag, s.Items)
		present[s.Tag] = true
	}

	for tag := range r.loaded {
		if !present[tag] {
			r.remove(tag)
		}
	}
	r.loaded = present

	return nil
}

// remove empties the stored set for tag and drops its controller. The empty
// tag reaches every controller, so its set is left in place.
func (r *Registry) remove(tag string) {
	if tag != "" {
		r.broker.SetItems(tag, nil)
	}

	r.mu.Lock()
	c, ok := r.controllers[tag]
	delete(r.controllers, tag)
	delete(r.lastClick, tag)
	r.mu.Unlock()

	if ok {
		c.Close()
	}

	slog.Info("menu removed", "tag", tag)
}

// NavigateHome asks the controllers of tag to navigate home and returns the
// navigations that request produced, oldest first.
func (r *Registry) NavigateHome(tag string) []navigation.Entry {
	r.home.Lock()
	defer r.home.Unlock()

	seq := r.history.Seq()
	r.broker.NavigateHome(tag)
	return r.history.Since(seq)
}

// ErrNoMenus is reported by Ready before any menu has a controller.
var ErrNoMenus = errors.New("no menus loaded")

// Ready reports whether at least one menu is being served.
func (r *Registry) Ready(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.controllers) == 0 {
		return ErrNoMenus
	}
	return nil
}

// Close tears down every controller and the click subscription.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for tag, c := range r.controllers {
		c.Close()
		delete(r.controllers, tag)
	}
	r.clicks.Unsubscribe()
}

// logRenderer reports interactions to the log.
type logRenderer struct {
	tag string
}

func (l logRenderer) Hovered(n menu.Node)         { l.log("hovered", n) }
func (l logRenderer) ToggleRequested(n menu.Node) { l.log("toggled", n) }
func (l logRenderer) Selected(n menu.Node)        { l.log("selected", n) }
func (l logRenderer) Clicked(n menu.Node)         { l.log("clicked", n) }

func (l logRenderer) log(event string, n menu.Node) {
	slog.Debug("menu item "+event,
		"tag", l.tag,
		"id", n.ID,
		"title", n.Title,
		"expanded", n.Expanded,
		"selected", n.Selected,
	)
}
