// Package broadcast implements the state-broadcast relay: it fans incremental
// document/drawing updates out to every client editing the same entity and
// coalesces the latest state into the persistence sink.
package broadcast
