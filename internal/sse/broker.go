// Package sse streams planner change notifications as Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event types.
const (
	TypeStateChanged      = "state.changed"
	TypeScheduleGenerated = "schedule.generated"
	TypeInsightsUpdated   = "insights.updated"
	TypeScheduleStale     = "schedule.stale"
)

// Event is one broadcast message. Data is written as the JSON data line.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

const (
	clientBuffer = 64
	queueSize    = 256
)

type stateChange struct {
	key    string
	source string
}

// Broker delivers events to every subscribed client. Its client set lives
// inside the run goroutine and is only reached through the channels below.
type Broker struct {
	staleEvery time.Duration
	staleKeys  map[string]bool

	joins   chan chan []byte
	leaves  chan chan []byte
	events  chan Event
	changes chan stateChange
	counts  chan chan int

	quit    chan struct{}
	done    chan struct{}
	closing atomic.Bool
}

// NewBroker starts a broker. After a change to one of staleKeys it also
// sends a schedule.stale hint, no more than once per staleEvery.
func NewBroker(staleEvery time.Duration, staleKeys ...string) *Broker {
	if staleEvery <= 0 {
		staleEvery = 2 * time.Second
	}
	b := &Broker{
		staleEvery: staleEvery,
		staleKeys:  make(map[string]bool, len(staleKeys)),
		joins:      make(chan chan []byte),
		leaves:     make(chan chan []byte),
		events:     make(chan Event, queueSize),
		changes:    make(chan stateChange, queueSize),
		counts:     make(chan chan int),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	for _, k := range staleKeys {
		b.staleKeys[k] = true
	}
	go b.run()
	return b
}

// frame renders ev in the text/event-stream wire form.
func frame(ev Event) ([]byte, error) {
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		return nil, fmt.Errorf("sse: encode %s: %w", ev.Type, err)
	}
	return fmt.Appendf(nil, "event: %s\ndata: %s\n\n", ev.Type, payload), nil
}

// hub is the state owned by the run goroutine.
type hub struct {
	clients   map[chan []byte]struct{}
	lastStale time.Time
}

// send hands ev to every client with room in its buffer. A full client
// misses the event.
func (h *hub) send(ev Event) {
	msg, err := frame(ev)
	if err != nil {
		return
	}
	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
		}
	}
}

func (h *hub) drop(ch chan []byte) {
	if _, ok := h.clients[ch]; ok {
		delete(h.clients, ch)
		close(ch)
	}
}

func (b *Broker) run() {
	defer close(b.done)
	h := &hub{clients: map[chan []byte]struct{}{}}

	for {
		select {
		case <-b.quit:
			for ch := range h.clients {
				h.drop(ch)
			}
			return
		case ch := <-b.joins:
			h.clients[ch] = struct{}{}
		case ch := <-b.leaves:
			h.drop(ch)
		case ev := <-b.events:
			h.send(ev)
		case c := <-b.changes:
			h.send(Event{Type: TypeStateChanged, Data: map[string]string{"key": c.key, "source": c.source}})
			if b.staleKeys[c.key] && time.Since(h.lastStale) >= b.staleEvery {
				h.lastStale = time.Now()
				h.send(Event{Type: TypeScheduleStale, Data: map[string]string{"reason": c.key}})
			}
		case reply := <-b.counts:
			reply <- len(h.clients)
		}
	}
}

// deliver passes v to the run goroutine. It reports false once the broker
// is shutting down.
func deliver[T any](b *Broker, ch chan<- T, v T) bool {
	if b.closing.Load() {
		return false
	}
	select {
	case ch <- v:
		return true
	case <-b.done:
		return false
	}
}

// Close stops the broker and closes every client channel. Safe to call
// more than once.
func (b *Broker) Close() {
	if b.closing.CompareAndSwap(false, true) {
		close(b.quit)
	}
	<-b.done
}

// Subscribe registers a client. On a closed broker the returned channel is
// already closed.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	if !deliver(b, b.joins, ch) {
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	deliver(b, b.leaves, ch)
}

// ClientCount returns the number of subscribed clients.
func (b *Broker) ClientCount() int {
	reply := make(chan int, 1)
	if !deliver(b, b.counts, reply) {
		return 0
	}
	select {
	case n := <-reply:
		return n
	case <-b.done:
		return 0
	}
}

// Publish queues ev for every client.
func (b *Broker) Publish(ev Event) {
	deliver(b, b.events, ev)
}

// PublishStateChange announces that a stored collection changed. source is
// "api" for service mutations and "disk" for external edits.
func (b *Broker) PublishStateChange(key, source string) {
	deliver(b, b.changes, stateChange{key: key, source: source})
}

// ServeHTTP streams events to one client until it disconnects or the
// broker closes. Mounted at GET /api/events.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, open := <-ch:
			if !open {
				return
			}
			if _, err := w.Write(msg); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
