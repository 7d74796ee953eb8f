package event

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Iron-Ham/svcdeck/internal/logging"
)

func TestBus_Subscribe(t *testing.T) {
	bus := NewBus(nil)

	called := false
	id := bus.Subscribe("test.event", func(e Event) {
		called = true
	})

	if id == "" {
		t.Error("Subscribe should return a non-empty ID")
	}
	if bus.SubscriptionCount() != 1 {
		t.Errorf("Expected 1 subscription, got %d", bus.SubscriptionCount())
	}
	if called {
		t.Error("Handler should not be called until an event is published")
	}
}

func TestBus_Publish(t *testing.T) {
	bus := NewBus(nil)

	var received Event
	bus.Subscribe(TypeServiceSpawned, func(e Event) {
		received = e
	})

	bus.Publish(NewServiceSpawnedEvent("auth", 4242, []string{"python3", "-u", "/p/auth.py"}))

	if received == nil {
		t.Fatal("Handler should have received the event")
	}
	spawned, ok := received.(ServiceSpawnedEvent)
	if !ok {
		t.Fatalf("received %T, want ServiceSpawnedEvent", received)
	}
	if spawned.Service != "auth" || spawned.PID != 4242 {
		t.Errorf("unexpected payload: %+v", spawned)
	}
	if spawned.Timestamp().IsZero() {
		t.Error("Timestamp should be set")
	}
}

func TestBus_PublishMultipleHandlers(t *testing.T) {
	bus := NewBus(nil)

	callCount := 0
	bus.Subscribe("test.event", func(e Event) { callCount++ })
	bus.Subscribe("test.event", func(e Event) { callCount++ })

	bus.Publish(newBaseEvent("test.event"))

	if callCount != 2 {
		t.Errorf("Expected both handlers to be called, got %d calls", callCount)
	}
}

func TestBus_PublishNoMatchingHandlers(t *testing.T) {
	bus := NewBus(nil)

	bus.Subscribe("other.event", func(e Event) {
		t.Error("Handler should not be called for non-matching event type")
	})

	bus.Publish(newBaseEvent("test.event"))
}

func TestBus_SubscribeAllRunsAfterSpecific(t *testing.T) {
	bus := NewBus(nil)

	var order []string
	bus.SubscribeAll(func(e Event) { order = append(order, "all") })
	bus.Subscribe(TypeSessionStopped, func(e Event) { order = append(order, "specific") })

	bus.Publish(NewSessionStoppedEvent("Services stopped"))
	bus.Publish(NewFileRemovedEvent("/p/a.txt"))

	want := []string{"specific", "all", "all"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(nil)

	calls := 0
	id := bus.Subscribe("test.event", func(e Event) { calls++ })

	if !bus.Unsubscribe(id) {
		t.Error("Unsubscribe should return true for a known ID")
	}
	if bus.Unsubscribe(id) {
		t.Error("Unsubscribe should return false the second time")
	}

	bus.Publish(newBaseEvent("test.event"))
	if calls != 0 {
		t.Errorf("handler called %d times after Unsubscribe", calls)
	}
	if bus.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", bus.SubscriptionCount())
	}
}

func TestBus_UnsubscribeOne(t *testing.T) {
	bus := NewBus(nil)

	var got []string
	first := bus.Subscribe("test.event", func(e Event) { got = append(got, "first") })
	bus.Subscribe("test.event", func(e Event) { got = append(got, "second") })

	bus.Unsubscribe(first)
	bus.Publish(newBaseEvent("test.event"))

	if len(got) != 1 || got[0] != "second" {
		t.Errorf("got %v, want [second]", got)
	}
}

func TestBus_Clear(t *testing.T) {
	bus := NewBus(nil)
	bus.Subscribe("a", func(Event) {})
	bus.Subscribe("b", func(Event) {})
	bus.SubscribeAll(func(Event) {})

	bus.Clear()

	if bus.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d after Clear, want 0", bus.SubscriptionCount())
	}
}

func TestBus_HandlerPanicRecovery(t *testing.T) {
	var buf bytes.Buffer
	bus := NewBus(logging.NewWriterLogger(&buf, logging.LevelDebug))

	secondCalled := false
	bus.Subscribe("test.event", func(e Event) { panic("boom") })
	bus.Subscribe("test.event", func(e Event) { secondCalled = true })

	bus.Publish(newBaseEvent("test.event"))

	if !secondCalled {
		t.Error("a panicking handler must not prevent later handlers from running")
	}
	if !strings.Contains(buf.String(), "event handler panicked") {
		t.Errorf("panic was not logged: %s", buf.String())
	}
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := NewBus(nil)

	var mu sync.Mutex
	count := 0
	bus.Subscribe("test.event", func(e Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(newBaseEvent("test.event"))
		}()
	}
	wg.Wait()

	if count != 50 {
		t.Errorf("count = %d, want 50", count)
	}
}

func TestFileChangeEvents(t *testing.T) {
	tests := []struct {
		name string
		e    FileChangeEvent
		want string
	}{
		{"added", NewFileAddedEvent("/p/a", time.Time{}), TypeFileAdded},
		{"removed", NewFileRemovedEvent("/p/a"), TypeFileRemoved},
		{"changed", NewFileChangedEvent("/p/a", time.Time{}), TypeFileChanged},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.e.EventType(); got != tt.want {
				t.Errorf("EventType() = %q, want %q", got, tt.want)
			}
			if tt.e.Path != "/p/a" {
				t.Errorf("Path = %q", tt.e.Path)
			}
		})
	}
}

func TestSessionFailedEvent_NotSuccess(t *testing.T) {
	e := NewSessionFailedEvent("boom", nil)
	if e.Success {
		t.Error("failed events must report Success=false")
	}
	if e.EventType() != TypeSessionFailed {
		t.Errorf("EventType() = %q", e.EventType())
	}
}

