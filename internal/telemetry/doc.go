// Package telemetry classifies relay events and forwards the telemetered
// subset to a sink. The allow-list is a closed enumeration (see events.go);
// sinks are fire-and-forget and never block the streaming relay.
package telemetry
