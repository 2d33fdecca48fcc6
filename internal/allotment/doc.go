// Package allotment holds the room allocation engine: the interval model,
// conflict lookups over a booking list, the per-request candidate filter and
// the greedy bulk scheduler. Everything here is pure and holds no state
// between calls.
package allotment
