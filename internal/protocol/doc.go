// Package protocol defines the JSON messages spoken over the gateway's
// WebSocket: client requests, correlated replies, and pushed state
// events.
//
// It owns the wire DTOs and their conversions from engine, plugin, and
// scene types. Reuse these types when adding operations so the protocol
// stays stable for existing clients; the version field in the state
// payload is how clients detect incompatible changes.
package protocol
