// Package engine owns the live face state.
//
// A Store holds the current FaceState and fans every snapshot out to its
// observers in one global order. A BlinkLoop toggles the blink flag on a
// randomized schedule, and the Engine ties the two to the event log and
// metrics collector.
package engine
