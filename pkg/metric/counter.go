package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// BrokerEvents counts events published by the item broker, by kind and tag.
	BrokerEvents = "navmenu_broker_events_total"

	// ControllerOps counts operations applied by menu controllers, by op and tag.
	ControllerOps = "navmenu_controller_ops_total"
)

// IncrementalCounter is a labelled counter.
type IncrementalCounter interface {
	Increment(val ...string)
}

// Counter is an IncrementalCounter backed by a Prometheus counter vector.
type Counter struct {
	Name string
	Help string

	vec *prometheus.CounterVec
}

// Increment adds one to the series identified by the label values.
func (c *Counter) Increment(val ...string) {
	c.vec.WithLabelValues(val...).Inc()
}

// NewCounterWithRegistry registers a counter with reg. It panics if a counter
// with the same name is already registered.
func NewCounterWithRegistry(reg prometheus.Registerer, name, help string, labels ...string) IncrementalCounter {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: name,
		Help: help,
	}, labels)

	reg.MustRegister(counter)

	return &Counter{
		Name: name,
		Help: help,
		vec:  counter,
	}
}

// Nop is a counter that discards increments.
type Nop struct{}

// Increment does nothing.
func (Nop) Increment(...string) {}

// Counters groups the counters shared by the broker and its controllers.
type Counters struct {
	Broker     IncrementalCounter
	Controller IncrementalCounter
}

// NewCounters registers the navmenu counters with reg.
func NewCounters(reg prometheus.Registerer) Counters {
	return Counters{
		Broker:     NewCounterWithRegistry(reg, BrokerEvents, "Events published by the item broker.", "kind", "tag"),
		Controller: NewCounterWithRegistry(reg, ControllerOps, "Operations applied by menu controllers.", "op", "tag"),
	}
}

// GetHandlerForRegistry returns an HTTP handler for serving Prometheus metrics from a custom registry.
func GetHandlerForRegistry(reg prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
