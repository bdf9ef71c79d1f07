// Package session orchestrates one recording from setup through merge.
// It owns the state machine, wires audio routing, audio capture, and
// screen capture together, and guarantees that routing changes are
// rolled back on every exit path.
package session
