package orchestration

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// turnAggregator accumulates streamed transcript deltas of the open turn.
type turnAggregator struct {
	mu     sync.Mutex
	input  strings.Builder
	output strings.Builder
}

func (t *turnAggregator) appendInput(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.input.WriteString(text)
}

func (t *turnAggregator) appendOutput(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.output.WriteString(text)
}

// discardOutput drops unflushed assistant text after a barge-in. What the
// user said is kept.
func (t *turnAggregator) discardOutput() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.output.Reset()
}

// flush closes the open turn. Both buffers are cleared either way; a segment
// is only produced when something was said.
func (t *turnAggregator) flush() (Segment, bool) {
	t.mu.Lock()
	input := strings.TrimSpace(t.input.String())
	output := strings.TrimSpace(t.output.String())
	t.input.Reset()
	t.output.Reset()
	t.mu.Unlock()

	if input == "" && output == "" {
		return Segment{}, false
	}
	return Segment{ID: uuid.New(), Input: input, Output: output, CreatedAt: time.Now()}, true
}

func (t *turnAggregator) pending() (input, output string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.input.String(), t.output.String()
}

func (t *turnAggregator) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.input.Reset()
	t.output.Reset()
}
