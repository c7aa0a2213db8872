package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

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

	b.Publish(Event{Type: EventGuideCreated, Data: map[string]string{"slug": "tacos"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: guide.created") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"slug":"tacos"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestNotify_HistoryThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Notify(EventGuideCreated, map[string]string{"slug": "tacos"})
	// Within the throttle window: no second history.updated.
	b.Notify(EventSeedCompleted, map[string]int{"created": 48})

	time.Sleep(50 * time.Millisecond)
	historyCount := 0
	activityCount := 0
loop:
	for {
		select {
		case msg := <-ch:
			if strings.Contains(string(msg), EventHistoryUpdated) {
				historyCount++
			} else {
				activityCount++
			}
		default:
			break loop
		}
	}

	if activityCount != 2 {
		t.Errorf("activity events = %d, want 2", activityCount)
	}
	if historyCount != 1 {
		t.Errorf("history events = %d, want 1 (throttled)", historyCount)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	// Start handler in background.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.Publish(Event{Type: EventInboxFailed, Data: map[string]string{"file": "x.yaml"}})
	time.Sleep(50 * time.Millisecond)

	// Cancel context to disconnect.
	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: inbox.failed") {
		t.Errorf("handler output missing event: %q", body)
	}

	// Client should be cleaned up.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestSubscribeTypeFilter(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	failures := b.Subscribe(EventInboxFailed, " ")
	defer b.Unsubscribe(failures)
	all := b.Subscribe()
	defer b.Unsubscribe(all)

	b.Publish(Event{Type: EventGuideCreated, Data: map[string]string{"slug": "tacos"}})
	b.Publish(Event{Type: EventInboxFailed, Data: map[string]string{"file": "x.yaml"}})

	select {
	case msg := <-failures:
		if !strings.Contains(string(msg), "event: inbox.failed") {
			t.Errorf("filtered client got %q", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for filtered message")
	}
	for i := 0; i < 2; i++ {
		select {
		case <-all:
		case <-time.After(time.Second):
			t.Fatalf("unfiltered client missed message %d", i)
		}
	}
	select {
	case msg := <-failures:
		t.Errorf("unexpected extra message %q", msg)
	default:
	}
}

func TestEventIDsIncrease(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: EventGuideCreated, Data: 1})
	b.Publish(Event{Type: EventGuideCreated, Data: 2})

	for _, want := range []string{"id: 1\n", "id: 2\n"} {
		select {
		case msg := <-ch:
			if !strings.HasPrefix(string(msg), want) {
				t.Errorf("message %q does not start with %q", msg, want)
			}
		case <-time.After(time.Second):
			t.Fatal("timeout")
		}
	}
}

func TestSSEHandlerKeepAliveAndFilter(t *testing.T) {
	b := NewBroker(time.Hour)
	b.keepAlive = 20 * time.Millisecond
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/events?types=seed.completed", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	b.Publish(Event{Type: EventGuideCreated, Data: map[string]string{"slug": "x"}})
	b.Publish(Event{Type: EventSeedCompleted, Data: map[string]int{"created": 1}})
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := w.Body.String()
	if !strings.HasPrefix(body, "retry: 3000\n\n") {
		t.Errorf("missing retry hint: %q", body)
	}
	if !strings.Contains(body, ": keepalive") {
		t.Errorf("missing keepalive: %q", body)
	}
	if !strings.Contains(body, "event: seed.completed") || strings.Contains(body, "event: guide.created") {
		t.Errorf("filter not applied: %q", body)
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Fill buffer (capacity 64) and then one more should not block.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
	// If we reach here without deadlock, the test passes.
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

	// Should be safe no-op after close.
	b.Publish(Event{Type: EventGuideCreated, Data: map[string]string{"slug": "x"}})
	b.Notify(EventGuideCreated, map[string]string{"slug": "x"})
}
