// Package logging configures the process-wide slog logger and the helpers
// the rest of the daemon logs through.
//
// Two output formats exist: a console format for interactive use (timestamp,
// level, component prefix, key=value attrs) and a JSON format for log files
// and collectors. Both honor the same level configuration. An optional
// stream hub captures every record into a bounded in-memory ring so the
// control gateway can serve recent log lines to clients without touching
// the filesystem.
//
// Components derive their loggers with NewComponentLogger so every line
// carries a component attribute; tests pass NewNop().
package logging
