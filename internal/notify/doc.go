// Package notify pushes operator alerts through an ntfy-compatible HTTP
// endpoint. Engine-facing hooks fire asynchronously so the render loop
// never waits on the network; repeated identical alerts are suppressed
// inside a configurable window.
package notify
