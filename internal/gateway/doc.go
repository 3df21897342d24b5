// Package gateway serves the WebSocket control plane. Every connection is
// one session: requests arrive as JSON text frames, are dispatched against
// the engine, the scene store, the plugin registry, and the log hub, and
// each is answered with exactly one reply carrying the request's id.
// Sessions that subscribe additionally receive state events pushed in
// sequence order, starting from a snapshot of the current state.
package gateway
