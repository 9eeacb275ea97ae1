package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncRecorder guards the recorder body so the test can read it while the
// handler goroutine is still writing.
type syncRecorder struct {
	mu sync.Mutex
	*httptest.ResponseRecorder
}

func (s *syncRecorder) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ResponseRecorder.Write(p)
}

func (s *syncRecorder) body() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ResponseRecorder.Body.String()
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "tally.recorded", Data: map[string]string{"handle": "ali"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: tally.recorded") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"handle":"ali"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishTallyEvent_ReportThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishTallyEvent(KindRecorded, "ali")
	b.PublishTallyEvent(KindReset, "")
	b.PublishTallyEvent("ignored-kind", "x")

	time.Sleep(50 * time.Millisecond)
	reportCount := 0
	var tallyEvents []string
loop:
	for {
		select {
		case msg := <-ch:
			s := string(msg)
			switch {
			case strings.Contains(s, "report.updated"):
				reportCount++
			case strings.Contains(s, "tally.recorded"):
				tallyEvents = append(tallyEvents, "recorded")
			case strings.Contains(s, "tally.reset"):
				tallyEvents = append(tallyEvents, "reset")
			default:
				t.Errorf("unexpected event %q", s)
			}
		default:
			break loop
		}
	}

	if strings.Join(tallyEvents, ",") != "recorded,reset" {
		t.Errorf("tally events = %v", tallyEvents)
	}
	if reportCount != 1 {
		t.Errorf("report events = %d, want 1 (throttled)", reportCount)
	}
}

func TestPublishTallyEvent_DocumentChanged(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishTallyEvent(KindChanged, "/var/lib/devtally/data.json")
	select {
	case msg := <-ch:
		if !strings.Contains(string(msg), "event: document.changed") || !strings.Contains(string(msg), "data.json") {
			t.Errorf("message = %q", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for document.changed")
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := &syncRecorder{ResponseRecorder: httptest.NewRecorder()}

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.Publish(Event{Type: "tally.reset", Data: map[string]string{}})
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	if body := w.body(); !strings.Contains(body, "event: tally.reset") {
		t.Errorf("handler output missing event: %q", body)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]int{"i": i}})
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	b.Publish(Event{Type: "tally.reset", Data: map[string]string{}})
	b.PublishTallyEvent(KindRecorded, "ali")
}

func TestEventIDsIncrease(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "a", Data: 1})
	b.Publish(Event{Type: "b", Data: 2})
	for _, want := range []string{"id: 1\nevent: a\n", "id: 2\nevent: b\n"} {
		select {
		case msg := <-ch:
			if !strings.HasPrefix(string(msg), want) {
				t.Errorf("frame = %q, want prefix %q", msg, want)
			}
		case <-time.After(time.Second):
			t.Fatal("timeout")
		}
	}
}

func TestChangePayloadCarriesClock(t *testing.T) {
	b := NewBroker(time.Hour)
	b.now = func() time.Time { return time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC) }
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishTallyEvent(KindRecorded, "ali")
	select {
	case msg := <-ch:
		if !strings.Contains(string(msg), `"at":"2025-05-01T12:00:00Z"`) {
			t.Errorf("frame = %q", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout")
	}
}

func TestHeartbeat(t *testing.T) {
	b := NewBroker(time.Second, WithHeartbeat(20*time.Millisecond))
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	w := &syncRecorder{ResponseRecorder: httptest.NewRecorder()}
	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()
	<-done

	body := w.body()
	if !strings.HasPrefix(body, "retry: 3000\n\n") {
		t.Errorf("missing retry hint: %q", body)
	}
	if !strings.Contains(body, ": ping\n\n") {
		t.Errorf("missing heartbeat: %q", body)
	}
}

func TestReportThrottleSendsTrailingUpdate(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for _, h := range []string{"ali", "omar", "sara"} {
		b.PublishTallyEvent(KindRecorded, h)
	}

	var events []string
	deadline := time.After(400 * time.Millisecond)
collect:
	for {
		select {
		case msg := <-ch:
			s := string(msg)
			switch {
			case strings.Contains(s, TypeReportUpdated):
				events = append(events, "report")
			case strings.Contains(s, TypeRecorded):
				events = append(events, "recorded")
			}
		case <-deadline:
			break collect
		}
	}

	want := "recorded,report,recorded,recorded,report"
	if got := strings.Join(events, ","); got != want {
		t.Errorf("events = %s, want %s", got, want)
	}
}
