// Package plugin holds the registry of installable animation and transport
// implementations and the parameter schemas they declare.
//
// The registry is populated once at daemon startup from an explicit list of
// descriptors (see cmd/glowd); it performs no discovery of its own. After
// registration finishes it is read-only and safe for concurrent lookups from
// the engine and gateway.
//
// Parameter validation is the registry's second job: every instantiation and
// every live parameter update passes through the descriptor's Schema, which
// rejects unknown keys, enforces ranges and enumerations, normalizes values,
// and fills defaults. Validation failures carry the offending parameter name
// so control clients can surface it.
package plugin
