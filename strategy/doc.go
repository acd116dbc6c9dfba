// Package strategy merges and dispatches component.Strategy values.
//
// A strategy is split across two packages for the same reason as
// component.Strategy's doc comment explains: the data type lives in
// component (alongside Component, which it references) while the logic
// that operates on it — Merge, Complete, Dispatch — lives here, so this
// package depends on component and never the reverse.
package strategy
