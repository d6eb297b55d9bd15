package engine

import (
	"context"

	"github.com/vargamartonaron/cogex/internal/timing"
)

// Run drives the engine at the scheduler's cadence until the run completes
// or ctx is cancelled. It is the single goroutine that owns all mutable
// experiment state: each tick it waits for the frame deadline, drains pending
// input events, advances the engine, and publishes a render snapshot.
//
// Snapshots are dropped rather than block the tick loop when the consumer
// falls behind; frames is closed when the loop exits.
func Run(ctx context.Context, clock timing.Clock, sched *timing.FrameScheduler, eng *Engine, events <-chan InputEvent, frames chan<- Snapshot) {
	defer close(frames)
	sched.Start()
	for {
		select {
		case <-ctx.Done():
			eng.Cancel()
		default:
		}

		sched.Wait()
		eng.SetDegraded(sched.Degraded())
		done := eng.Tick(drainEvents(events))

		snap := eng.Snapshot(clock.Now())
		select {
		case frames <- snap:
		default:
		}
		if done {
			return
		}
	}
}

func drainEvents(events <-chan InputEvent) []InputEvent {
	var out []InputEvent
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}
