// Package preflight provides readiness checks for the directories and
// the transport target the daemon depends on.
//
// These checks run in two contexts:
//   - glowd runs RunAll at startup and logs failures as warnings. The
//     daemon still starts, because a controller that is offline now can
//     come back without a restart.
//   - The CLI "glow status" command renders the same results so an
//     operator can see at a glance why the stripe is dark.
package preflight
