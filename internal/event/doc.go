// Package event provides a pub-sub event bus for decoupled communication
// between the svcdeck core and whatever front end drives it.
//
// The supervisor publishes session and service events, and the change
// detector publishes filesystem events. Front ends subscribe without the
// core knowing who listens. Service output does not travel on the bus; it
// has its own broadcaster in package output.
//
// # Main Types
//
//   - [Event]: Interface that all events must implement, providing EventType() and Timestamp()
//   - [Bus]: Synchronous pub-sub event dispatcher with thread-safe operations
//   - [Handler]: Function type for event handlers (func(Event))
//
// # Event Categories
//
// Session:
//   - [SessionStateChangedEvent]: every committed idle/loading/running change
//   - [SessionStartedEvent], [SessionStoppedEvent], [SessionRestartedEvent]
//   - [SessionFailedEvent]: a transition failed and the session is idle
//
// Service:
//   - [ServiceSpawnedEvent], [ServiceSpawnFailedEvent], [ServiceExitedEvent]
//
// Filesystem:
//   - [FileChangeEvent]: fs.added, fs.removed, fs.changed
//   - [FileTreeRebuiltEvent]
//
// # Thread Safety
//
// The [Bus] type is safe for concurrent use. Handlers are called
// synchronously on the publishing goroutine and protected against panics.
//
// # Basic Usage
//
//	bus := event.NewBus(logger)
//
//	id := bus.Subscribe(event.TypeSessionFailed, func(e event.Event) {
//	    failed := e.(event.SessionFailedEvent)
//	    fmt.Println("start failed:", failed.Message)
//	})
//	defer bus.Unsubscribe(id)
package event
