// ABOUTME: Closed enumeration of telemetry event types and the telemetered set
// ABOUTME: Adding a telemetered type is a compile-time-checked change here

package telemetry

// EventType identifies one kind of relay event.
type EventType string

// Event types observed on the relay. Only the telemetered subset is
// forwarded to the sink; everything else is relayed to the client only.
const (
	EventExecutionStarted       EventType = "execution_started"
	EventExecutionStepCompleted EventType = "execution_step_completed"
	EventExecutionToolInvoked   EventType = "execution_tool_invoked"
	EventSafeguardAlert         EventType = "safeguard_alert"
	EventSessionHeartbeat       EventType = "session_heartbeat"
	EventExecutionComplete      EventType = "execution_complete"
	EventError                  EventType = "error"
)

// telemetered is the allow-list of event types forwarded to the sink.
var telemetered = map[EventType]struct{}{
	EventExecutionStarted:       {},
	EventExecutionStepCompleted: {},
	EventExecutionToolInvoked:   {},
	EventSafeguardAlert:         {},
	EventSessionHeartbeat:       {},
}

// Telemetered reports whether events of this type are sent to the sink.
func (t EventType) Telemetered() bool {
	_, ok := telemetered[t]
	return ok
}
