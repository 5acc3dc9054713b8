// Package events implements the fan-out channel for job progress events.
package events

import (
	"sync"

	"github.com/treadscan/treadscan/internal/domain/model"
)

// defaultBuffer is the per-subscriber channel depth. A subscriber that
// falls this far behind starts losing events; it can always re-fetch
// authoritative state from the job registry.
const defaultBuffer = 16

// Publisher is the write side of the event broker.
type Publisher interface {
	Publish(event model.Event)
}

// Broker broadcasts job events to any number of subscribers.
//
// Delivery is best-effort and at-most-once: each subscriber has its own
// buffered channel, a full buffer drops the event for that subscriber
// only, and there is no replay for late subscribers.
type Broker struct {
	mu     sync.Mutex
	subs   map[chan model.Event]string
	buffer int
	closed bool
}

// BrokerOptions configure the behaviour of the broker.
type BrokerOptions struct {
	// Buffer is the per-subscriber channel depth. Defaults to 16.
	Buffer int
}

// NewBroker constructs an event broker.
func NewBroker(opts BrokerOptions) *Broker {
	buffer := opts.Buffer
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Broker{
		subs:   make(map[chan model.Event]string),
		buffer: buffer,
	}
}

// Subscribe registers a new subscriber. A non-empty jobID restricts
// delivery to events for that job. The returned function removes the
// subscription and closes the channel; it is safe to call more than once.
func (b *Broker) Subscribe(jobID string) (func(), <-chan model.Event) {
	ch := make(chan model.Event, b.buffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return func() {}, ch
	}
	b.subs[ch] = jobID
	b.mu.Unlock()

	unsub := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[ch]; !ok {
			return
		}
		delete(b.subs, ch)
		drainAndClose(ch)
	}

	return unsub, ch
}

// Publish delivers the event to every matching subscriber without ever
// blocking the caller. Subscribers with a full buffer miss the event.
func (b *Broker) Publish(event model.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch, jobID := range b.subs {
		if jobID != "" && jobID != event.JobID {
			continue
		}
		select {
		case ch <- event:
		default:
		}
	}
}

// Close removes all subscribers and closes their channels. Further
// Publish calls are no-ops and further Subscribe calls return a closed
// channel.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for ch := range b.subs {
		drainAndClose(ch)
		delete(b.subs, ch)
	}
}

// drainAndClose removes any buffered events before closing the channel so
// receivers observe a closed channel immediately.
func drainAndClose(ch chan model.Event) {
	for {
		select {
		case <-ch:
		default:
			close(ch)
			return
		}
	}
}

var _ Publisher = (*Broker)(nil)
