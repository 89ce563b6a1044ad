package renderer

import "github.com/Carmen-Shannon/oxy-pipes/engine/renderer/pipeline"

// DefaultFramesInFlight is the number of submitted frames that may still reference a retired object.
const DefaultFramesInFlight = 2

// retiredObject is a release deferred until frame due has ended.
type retiredObject struct {
	due     uint64
	release func()
}

// releaseQueue defers the destruction of GPU objects dropped from the pipeline caches until no
// submitted frame can reference them.
type releaseQueue struct {
	framesInFlight int
	frame          uint64
	pending        []retiredObject
}

var _ pipeline.Retirer = &releaseQueue{}

func newReleaseQueue(framesInFlight int) *releaseQueue {
	return &releaseQueue{framesInFlight: framesInFlight}
}

// Retire schedules release to run once framesInFlight more frames have ended.
func (q *releaseQueue) Retire(release func()) {
	if q.framesInFlight <= 0 {
		release()
		return
	}
	q.pending = append(q.pending, retiredObject{
		due:     q.frame + uint64(q.framesInFlight),
		release: release,
	})
}

// endFrame advances the frame counter and runs every release now due. It returns the number run.
func (q *releaseQueue) endFrame() int {
	q.frame++
	n := 0
	kept := q.pending[:0]
	for _, r := range q.pending {
		if r.due <= q.frame {
			r.release()
			n++
			continue
		}
		kept = append(kept, r)
	}
	clear(q.pending[len(kept):])
	q.pending = kept
	return n
}

// flush runs every pending release regardless of frame. Only safe once the device is idle.
func (q *releaseQueue) flush() int {
	n := len(q.pending)
	for _, r := range q.pending {
		r.release()
	}
	q.pending = nil
	return n
}

func (q *releaseQueue) len() int {
	return len(q.pending)
}
