// Package event provides the process-wide publish/subscribe channel used to
// announce command execution.
//
// The executor publishes a [CommandStartEvent] and a [CommandCompleteEvent]
// for every invocation, including cancelled and failed ones. These travel
// separately from the executor's return value: observers such as the spinner,
// the snapshot recorder, or history views react to them without being wired
// into the call chain.
//
// # Main Types
//
//   - [Event]: Interface that all events must implement, providing EventType() and Timestamp()
//   - [Bus]: Synchronous pub-sub event dispatcher with thread-safe operations
//   - [Handler]: Function type for event handlers (func(Event))
//
// # Event Types
//
//   - /command/start and /command/complete: invocation lifecycle
//   - /env/update: a tab's symbol table changed
//   - /command/stdout/<tab>/<exec>: streamed output of one invocation
//
// # Delivery
//
// Handlers are called synchronously, in registration order, on the
// publisher's goroutine. Subscribers must return quickly; one that needs to do
// real work hands the event to its own goroutine. A panicking handler is
// recovered and logged so it cannot stop delivery to the others. Events are
// values and are never modified after publishing.
package event
