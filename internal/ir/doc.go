// Package ir provides the intermediate representation produced by the
// compiler and consumed by the emitter.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Node and IRValue are sealed: only types in this package implement them
//   - NO float values anywhere, emitted text must be exact
//   - Nodes are immutable once built; transforms construct, never patch
//   - IRObject keeps declaration order; canonical JSON sorts keys
package ir
