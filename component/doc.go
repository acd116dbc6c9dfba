// Package component defines the component/callback data model: immutable
// component descriptions, typed ports, declared-capability callbacks, and
// the invocation engine that runs a callback body against a piece of
// worker state.
//
// A Component is a pure description — fields, in/out ports, named
// callbacks — built once and never mutated afterward. Callbacks declare
// up front which fields they read, which they write, and which out-ports
// they may publish to; Call enforces those declarations against the
// running callback body rather than trusting it, because Go has no way to
// statically verify a closure's field accesses.
package component
