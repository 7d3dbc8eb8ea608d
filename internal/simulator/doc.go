// Package simulator turns a radar.Radar and a set of target.Target values into
// a complex baseband matrix.
//
// Work is split into (channel, pulse) tiles that run on a bounded errgroup.
// Each tile owns a disjoint slice of the output and its own PCG noise stream
// keyed by (seed, tile index), so results do not depend on scheduling. The
// context is checked before every tile; an aborted run returns no matrix.
//
// Key types:
//   - Options: seed, worker count, delay iterations, noise switch, clock.
//   - Baseband: the immutable result, with copying accessors.
package simulator
