// Package trigger turns raw key activity into press/release edges and feeds
// them to the dictation loop.
package trigger

import "murmur/internal/domain"

// EdgeDetector collapses a stream of key-down/key-up samples into edges.
// Auto-repeat key-downs while held produce nothing.
type EdgeDetector struct {
	down bool
}

// Feed records one sample and reports the edge it caused, if any.
func (e *EdgeDetector) Feed(down bool) (domain.TriggerEvent, bool) {
	if down == e.down {
		return domain.TriggerEvent{}, false
	}
	e.down = down
	return domain.TriggerEvent{Pressed: down}, true
}

// Down reports whether the key is currently held.
func (e *EdgeDetector) Down() bool {
	return e.down
}
