// Package control provides the WebSocket client the CLI uses to drive a
// running daemon: one method per protocol operation, plus the event
// stream for watch-style commands.
package control
