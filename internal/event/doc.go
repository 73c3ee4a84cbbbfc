// Package event provides the pub-sub bus that carries session changes from
// the orchestrator to the terminal UI, the web event stream and the headless
// runner.
//
// # Main Types
//
//   - [Event]: interface implemented by every event (EventType, Timestamp)
//   - [SessionCarrier]: implemented by events that carry a session snapshot
//   - [Bus]: synchronous, panic-safe dispatcher
//   - [Handler]: func(Event)
//
// # Event Types
//
// Session lifecycle:
//   - [SessionCreatedEvent]: session.created
//   - [SessionUpdatedEvent]: session.updated
//   - [PhaseChangedEvent]: phase.changed
//   - [SessionResetEvent]: session.reset
//
// Commands:
//   - [AdjustRequestedEvent]: briefing.adjust_requested
//   - [CommandRejectedEvent]: command.rejected
//
// Simulation:
//   - [SimulationCancelledEvent]: simulation.cancelled
//   - [ContentFailedEvent]: content.failed
//
// # Ordering
//
// The orchestrator publishes events in the order the mutations were applied.
// Snapshots are deep copies, so a handler may keep them.
//
// Handlers run synchronously on the publishing goroutine. A handler must not
// issue orchestrator commands directly; hand the work to another goroutine
// (a tea.Cmd, a channel) instead.
//
// # Basic Usage
//
//	bus := event.NewBus()
//
//	bus.Subscribe(event.TypePhaseChanged, func(e event.Event) {
//	    pc := e.(event.PhaseChangedEvent)
//	    log.Printf("%s -> %s", pc.Transition.From, pc.Transition.To)
//	})
//
//	bus.SubscribeAll(func(e event.Event) {
//	    if c, ok := e.(event.SessionCarrier); ok {
//	        s, _ := c.SessionSnapshot()
//	        render(s)
//	    }
//	})
package event
