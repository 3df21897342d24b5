// Package daemon coordinates the long-running glow process and system
// integration points.
//
// It wires the engine, the configured transport, and the startup animation
// into a single lifecycle with flock-based locking to prevent multiple
// instances, and watches udev netlink for spidev hotplug so an operator can
// see why an spi bind fails.
//
// Keep orchestration logic here: rendering belongs to the engine and the
// control surface to the gateway; the daemon focuses on startup, shutdown,
// and high level coordination.
package daemon
