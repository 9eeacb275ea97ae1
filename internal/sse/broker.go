// Package sse implements a Server-Sent Events broker for live tally updates.
package sse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

// Change kinds accepted by PublishTallyEvent.
const (
	KindRecorded = "recorded"
	KindReset    = "reset"
	KindChanged  = "changed"
)

// Event types written to the stream.
const (
	TypeRecorded      = "tally.recorded"
	TypeReset         = "tally.reset"
	TypeChanged       = "document.changed"
	TypeReportUpdated = "report.updated"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Change is the payload of tally and document events.
type Change struct {
	Handle string    `json:"handle,omitempty"`
	Path   string    `json:"path,omitempty"`
	At     time.Time `json:"at"`
}

type change struct {
	kind    string
	subject string
}

// Broker manages SSE client connections and broadcasts events.
//
// A single event loop goroutine owns the client set, the event sequence and
// the report throttle; public methods talk to it over channels.
type Broker struct {
	reportMin time.Duration
	heartbeat time.Duration
	now       func() time.Time

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	changeCh      chan change
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// BrokerOption configures a Broker.
type BrokerOption func(*Broker)

// WithHeartbeat makes ServeHTTP write a comment line every d so idle
// connections survive proxies. Zero disables it.
func WithHeartbeat(d time.Duration) BrokerOption {
	return func(b *Broker) { b.heartbeat = d }
}

// NewBroker creates a broker that emits report.updated at most once per
// reportThrottle. Changes inside the window are covered by one trailing
// report.updated at its end.
func NewBroker(reportThrottle time.Duration, opts ...BrokerOption) *Broker {
	if reportThrottle <= 0 {
		reportThrottle = 2 * time.Second
	}

	b := &Broker{
		reportMin:     reportThrottle,
		heartbeat:     30 * time.Second,
		now:           time.Now,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		changeCh:      make(chan change, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	go b.run()
	return b
}

// frame encodes one event in wire format with sequence id.
func frame(id uint64, event Event) ([]byte, error) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString("id: ")
	buf.WriteString(strconv.FormatUint(id, 10))
	buf.WriteString("\nevent: ")
	buf.WriteString(event.Type)
	buf.WriteString("\ndata: ")
	buf.Write(payload)
	buf.WriteString("\n\n")
	return buf.Bytes(), nil
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var seq uint64
	var lastReport time.Time
	// Set while a report.updated was suppressed and a trailing one is due.
	var trailing *time.Timer
	var trailingCh <-chan time.Time
	defer func() {
		if trailing != nil {
			trailing.Stop()
		}
	}()

	broadcast := func(event Event) {
		raw, err := frame(seq+1, event)
		if err != nil {
			return
		}
		seq++
		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Slow client; drop rather than block the loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case c := <-b.changeCh:
			now := b.now().UTC()
			switch c.kind {
			case KindRecorded:
				broadcast(Event{Type: TypeRecorded, Data: Change{Handle: c.subject, At: now}})
			case KindReset:
				broadcast(Event{Type: TypeReset, Data: Change{At: now}})
			case KindChanged:
				broadcast(Event{Type: TypeChanged, Data: Change{Path: c.subject, At: now}})
			default:
				continue
			}

			if since := now.Sub(lastReport); since >= b.reportMin {
				lastReport = now
				broadcast(Event{Type: TypeReportUpdated, Data: Change{At: now}})
			} else if trailing == nil {
				trailing = time.NewTimer(b.reportMin - since)
				trailingCh = trailing.C
			}

		case <-trailingCh:
			trailing, trailingCh = nil, nil
			now := b.now().UTC()
			lastReport = now
			broadcast(Event{Type: TypeReportUpdated, Data: Change{At: now}})

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishTallyEvent publishes a change followed by a throttled
// report.updated event. subject is the handle for KindRecorded and the data
// file path for KindChanged. Unknown kinds are dropped.
func (b *Broker) PublishTallyEvent(kind, subject string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.changeCh <- change{kind: kind, subject: subject}:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "retry: 3000\n\n")
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	var tick <-chan time.Time
	if b.heartbeat > 0 {
		t := time.NewTicker(b.heartbeat)
		defer t.Stop()
		tick = t.C
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
