// Package gateway wires the mission-gateway HTTP surface: the streaming
// execution endpoint, the tenant-scoped control-plane CRUD routes, and the
// health checks, served over a TCP or Tailscale listener.
package gateway
