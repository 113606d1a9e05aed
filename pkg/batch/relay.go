package batch

import "github.com/menta2k/mockup-crop/pkg/types"

// ProgressEvent is one completion notification
type ProgressEvent struct {
	Done   int
	Total  int
	Result types.ProcessResult
}

// Relay moves progress notifications from worker goroutines onto a channel
// so a single consumer goroutine owns all presentation state.
type Relay struct {
	events chan ProgressEvent
}

// NewRelay creates a relay with the given channel buffer
func NewRelay(buffer int) *Relay {
	return &Relay{events: make(chan ProgressEvent, max(0, buffer))}
}

// Sink returns a ProgressFunc that forwards to the channel. It blocks when
// the buffer is full until the consumer catches up.
func (r *Relay) Sink() types.ProgressFunc {
	return func(done, total int, result types.ProcessResult) {
		r.events <- ProgressEvent{Done: done, Total: total, Result: result}
	}
}

// Events is drained by the consumer until it is closed
func (r *Relay) Events() <-chan ProgressEvent {
	return r.events
}

// Close ends the event stream. Call it once the batch has returned.
func (r *Relay) Close() {
	close(r.events)
}

// Run executes the batch in a background goroutine, hands every event to
// handle on the calling goroutine and returns the ordered results.
func (s *Scheduler) Run(paths []string, opts Options, handle func(ProgressEvent)) []types.ProcessResult {
	relay := NewRelay(len(paths))
	resultsCh := make(chan []types.ProcessResult, 1)

	go func() {
		defer relay.Close()
		resultsCh <- s.ProcessBatch(paths, opts, relay.Sink())
	}()

	for ev := range relay.Events() {
		if handle != nil {
			handle(ev)
		}
	}
	return <-resultsCh
}
