// Package upstream calls the backend execution service and exposes its
// NDJSON response body as a byte stream. Failure modes are typed so the
// relay can map each to a distinct in-band error event.
package upstream
