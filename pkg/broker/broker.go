// Package broker distributes tagged menu item sets to the controllers that
// subscribe to them, and carries requests and notifications between them.
//
// Every publish fans out synchronously: each handler runs to completion, in
// subscription order, before the next one is called.
package broker

import (
	"log/slog"
	"sync"

	"github.com/mchmarny/navmenu/pkg/menu"
	"github.com/mchmarny/navmenu/pkg/metric"
)

// Event kinds, used as metric labels.
const (
	KindItemsChanged   = "items_changed"
	KindItemsAdded     = "items_added"
	KindNavigateHome   = "navigate_home"
	KindGetSelected    = "get_selected"
	KindItemClick      = "item_click"
	KindResetSelection = "reset_selection"
)

// ItemSetReplaced carries a full item set for a tag.
type ItemSetReplaced struct {
	Tag   string
	Items []menu.Item
}

// ItemSetAppended carries items to append to a tag's set.
type ItemSetAppended struct {
	Tag   string
	Items []menu.Item
}

// NavigateHomeRequested asks the controllers of a tag to navigate home.
type NavigateHomeRequested struct {
	Tag string
}

// SelectedItem is a reply to a GetSelectedItemRequested. Item is nil when
// nothing is selected.
type SelectedItem struct {
	Tag  string     `json:"tag"`
	Item *menu.Node `json:"item"`
}

// GetSelectedItemRequested asks the controllers of a tag for their selected
// item. Every controller that matches the tag calls Reply exactly once.
type GetSelectedItemRequested struct {
	Tag   string
	Reply func(SelectedItem)
}

// ItemClicked reports a click on an item of a tag's menu.
type ItemClicked struct {
	Tag  string
	Item menu.Node
}

// Broker is the shared item store and event channel for every menu.
type Broker struct {
	mu   sync.RWMutex
	sets map[string][]menu.Item

	// pub serializes store updates with their publish, so subscribers see
	// item set events in the order the store applied them. Handlers of
	// ItemSetReplaced and ItemSetAppended must not call SetItems or AddItems.
	pub sync.Mutex

	replaced     topic[ItemSetReplaced]
	appended     topic[ItemSetAppended]
	navigateHome topic[NavigateHomeRequested]
	getSelected  topic[GetSelectedItemRequested]
	clicked      topic[ItemClicked]

	counter metric.IncrementalCounter
}

// Option configures a Broker.
type Option func(*Broker)

// WithCounter counts published events by kind and tag.
func WithCounter(c metric.IncrementalCounter) Option {
	return func(b *Broker) { b.counter = c }
}

// New returns an empty broker.
func New(opts ...Option) *Broker {
	b := &Broker{
		sets:    make(map[string][]menu.Item),
		counter: metric.Nop{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Items returns a copy of the item set stored for tag.
func (b *Broker) Items(tag string) []menu.Item {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return menu.CloneItems(b.sets[tag])
}

// SetItems stores items as the set for tag and publishes ItemSetReplaced.
// Concurrent calls are applied and published one at a time.
func (b *Broker) SetItems(tag string, items []menu.Item) {
	b.pub.Lock()
	defer b.pub.Unlock()

	b.mu.Lock()
	b.sets[tag] = menu.CloneItems(items)
	b.mu.Unlock()

	n := b.replaced.publish(ItemSetReplaced{Tag: tag, Items: menu.CloneItems(items)})
	b.record(KindItemsChanged, tag, n)
}

// AddItems appends items to the set for tag and publishes ItemSetAppended.
func (b *Broker) AddItems(tag string, items []menu.Item) {
	b.pub.Lock()
	defer b.pub.Unlock()

	b.mu.Lock()
	b.sets[tag] = append(b.sets[tag], menu.CloneItems(items)...)
	b.mu.Unlock()

	n := b.appended.publish(ItemSetAppended{Tag: tag, Items: menu.CloneItems(items)})
	b.record(KindItemsAdded, tag, n)
}

// NavigateHome asks the controllers of tag to navigate to their home item.
func (b *Broker) NavigateHome(tag string) {
	n := b.navigateHome.publish(NavigateHomeRequested{Tag: tag})
	b.record(KindNavigateHome, tag, n)
}

// GetSelectedItem asks the controllers of tag for their selected item.
// reply is called synchronously, once per matching controller.
func (b *Broker) GetSelectedItem(tag string, reply func(SelectedItem)) {
	n := b.getSelected.publish(GetSelectedItemRequested{Tag: tag, Reply: reply})
	b.record(KindGetSelected, tag, n)
}

// SelectedItems collects the replies to a GetSelectedItem request.
func (b *Broker) SelectedItems(tag string) []SelectedItem {
	var out []SelectedItem
	b.GetSelectedItem(tag, func(s SelectedItem) {
		out = append(out, s)
	})
	return out
}

// ResetSelection clears the selected flag on every node of f.
func (b *Broker) ResetSelection(f *menu.Forest) {
	f.ResetSelection()
	b.counter.Increment(KindResetSelection, "")
}

// ItemClick publishes a click on item for tag.
func (b *Broker) ItemClick(item menu.Node, tag string) {
	n := b.clicked.publish(ItemClicked{Tag: tag, Item: item})
	b.record(KindItemClick, tag, n)
}

// OnItemsChanges registers fn for ItemSetReplaced events.
func (b *Broker) OnItemsChanges(fn func(ItemSetReplaced)) *Subscription {
	return b.replaced.subscribe(fn)
}

// OnAddItems registers fn for ItemSetAppended events.
func (b *Broker) OnAddItems(fn func(ItemSetAppended)) *Subscription {
	return b.appended.subscribe(fn)
}

// OnNavigateHome registers fn for NavigateHomeRequested events.
func (b *Broker) OnNavigateHome(fn func(NavigateHomeRequested)) *Subscription {
	return b.navigateHome.subscribe(fn)
}

// OnGetSelectedItem registers fn for GetSelectedItemRequested events.
func (b *Broker) OnGetSelectedItem(fn func(GetSelectedItemRequested)) *Subscription {
	return b.getSelected.subscribe(fn)
}

// OnItemClick registers fn for ItemClicked events.
func (b *Broker) OnItemClick(fn func(ItemClicked)) *Subscription {
	return b.clicked.subscribe(fn)
}

// Subscribers returns the number of handlers registered per event kind.
func (b *Broker) Subscribers() map[string]int {
	return map[string]int{
		KindItemsChanged: b.replaced.len(),
		KindItemsAdded:   b.appended.len(),
		KindNavigateHome: b.navigateHome.len(),
		KindGetSelected:  b.getSelected.len(),
		KindItemClick:    b.clicked.len(),
	}
}

func (b *Broker) record(kind, tag string, delivered int) {
	b.counter.Increment(kind, tag)
	slog.Debug("broker event published",
		"kind", kind,
		"tag", tag,
		"subscribers", delivered,
	)
}
