// Package scene persists named lighting presets in SQLite.
//
// A scene captures an animation name, its parameter set, and a master
// brightness so a look can be recalled later by name. The store applies
// WAL journaling and retries busy errors so the daemon and CLI can share
// the database safely.
package scene
