// Package crdt implements the four Conflict-free Replicated Data Types
// this store exposes as values: Counter, Bytes, Set and Dict.
//
// Each type is a State-based CRDT (CvRDT): its Merge method combines in a
// remote replica's state such that merging is commutative, associative
// and idempotent regardless of how many times or in what order replicas
// exchange state. There is deliberately no shared CRDT interface across
// the four types — per-variant dispatch happens one level up, in the
// object package, as a type switch rather than through polymorphism, so
// each Merge can take exactly the arguments its own convergence rule
// needs (a Counter merges whole per-node entries; Bytes needs the
// enclosing object's timestamps; Set and Dict merge per-member/per-field
// timestamp pairs).
package crdt
