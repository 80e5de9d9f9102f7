package evolve

import (
	"github.com/brinefold/vivarium/queue"
	"github.com/brinefold/vivarium/sim"
)

// replayRecorder wraps a generation's Observer, forwarding OnReady and
// OnUpdate unchanged while routing every OnTick broadcast through a
// queue.Queue before it lands in the in-memory buffer — the same
// batching facade a UI bridge would sit behind, here batching writes
// into a plain slice instead of across an isolate boundary.
type replayRecorder struct {
	inner  sim.Observer
	q      *queue.Queue
	frames []ReplayFrame
}

func newReplayRecorder(inner sim.Observer) *replayRecorder {
	if inner == nil {
		inner = sim.NopObserver{}
	}
	r := &replayRecorder{inner: inner}
	r.q = queue.New(func(batch []any) {
		for _, item := range batch {
			r.frames = append(r.frames, item.(ReplayFrame))
		}
	}, queue.DefaultMinInterval)
	return r
}

func (r *replayRecorder) OnReady() { r.inner.OnReady() }

func (r *replayRecorder) OnUpdate(simTime, physicsFPS float64) {
	r.inner.OnUpdate(simTime, physicsFPS)
}

func (r *replayRecorder) OnTick(tick int, transforms map[int][]float64) {
	r.inner.OnTick(tick, transforms)
	r.q.Push(ReplayFrame{Tick: tick, Transform: transforms})
}

// finish flushes any batched frames and returns creatureIndex's own
// recorded ticks, in tick order, discarding every other creature's
// transforms that happened to share a batch.
func (r *replayRecorder) finish(creatureIndex int) []ReplayFrame {
	r.q.Flush(true)
	out := make([]ReplayFrame, 0, len(r.frames))
	for _, f := range r.frames {
		transform, ok := f.Transform[creatureIndex]
		if !ok {
			continue
		}
		out = append(out, ReplayFrame{Tick: f.Tick, Transform: map[int][]float64{creatureIndex: transform}})
	}
	return out
}
