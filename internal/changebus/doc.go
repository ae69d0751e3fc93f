// Package changebus fans configuration change events out to live readers.
//
// Each Subscriber owns a bounded FIFO queue. Publish snapshots the current
// subscribers under the bus mutex and then offers the event to each queue
// without blocking; a full queue drops that one event for that one
// subscriber. Events reach a given subscriber in publish order.
//
// Background producers that must not touch the bus directly hand events to
// a Relay, which a single goroutine drains into the bus.
package changebus
