// Package main hosts the glow CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into
// gateway requests against the daemon: animation and transport control,
// state inspection, scene management, log tailing, and daemon lifecycle
// plus configuration scaffolding. It centralizes configuration
// resolution and gateway address discovery so subcommands can focus on
// user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the
// internal packages first, then surface it through dedicated commands
// or flags here.
package main
