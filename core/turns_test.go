package orchestration

import (
	"strings"
	"testing"
)

func TestTurnAggregatorSkipsEmptyTurns(t *testing.T) {
	var turns turnAggregator
	turns.appendInput("   ")

	if _, ok := turns.flush(); ok {
		t.Fatalf("expected whitespace-only turn to produce no segment")
	}
	if input, output := turns.pending(); input != "" || output != "" {
		t.Fatalf("expected buffers cleared after empty flush")
	}
}

func TestTurnAggregatorRendersOneSidedTurns(t *testing.T) {
	var turns turnAggregator
	turns.appendOutput("Welcome back.")

	segment, ok := turns.flush()
	if !ok {
		t.Fatalf("expected segment for assistant-only turn")
	}
	if got := segment.String(); got != "Agent: Welcome back.\n" {
		t.Fatalf("unexpected segment %q", got)
	}
}

func TestTurnAggregatorConcatenatesDeltas(t *testing.T) {
	var turns turnAggregator
	inputs := []string{"I ", "need ", "reports"}
	outputs := []string{"Which ", "reports?"}
	for i := 0; i < 3; i++ {
		turns.appendInput(inputs[i])
		if i < len(outputs) {
			turns.appendOutput(outputs[i])
		}
	}

	segment, _ := turns.flush()
	if segment.Input != strings.Join(inputs, "") || segment.Output != strings.Join(outputs, "") {
		t.Fatalf("expected concatenated deltas, got %+v", segment)
	}
}

func TestTranscriptLogKeepsPriorText(t *testing.T) {
	log := NewTranscriptLog("User: earlier\n")
	log.Append(Segment{Input: "now"})

	if got := log.String(); got != "User: earlier\nUser: now\n" {
		t.Fatalf("unexpected transcript %q", got)
	}
	if len(log.Segments()) != 1 {
		t.Fatalf("expected prior text to not count as a segment")
	}
}

func TestTranscriptLogRestoreKeepsStoredSegments(t *testing.T) {
	stored := []Segment{{Input: "earlier", Output: "noted"}}
	log := NewTranscriptLog("")
	log.Restore(stored[0].String(), stored)
	log.Append(Segment{Input: "now"})

	segments := log.Segments()
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	if segments[0].Input != "earlier" || segments[1].Input != "now" {
		t.Fatalf("expected restored segment before new one, got %+v", segments)
	}
	if got := log.String(); got != "User: earlier\nAgent: noted\nUser: now\n" {
		t.Fatalf("unexpected transcript %q", got)
	}

	stored[0].Input = "changed"
	if log.Segments()[0].Input != "earlier" {
		t.Fatalf("expected restored segments to be copied")
	}
}

func TestComposeInstructions(t *testing.T) {
	if got := composeInstructions("base", "", "short"); got != "base" {
		t.Fatalf("expected short transcript to be ignored, got %q", got)
	}

	transcript := strings.Repeat("x", priorTranscriptThreshold+1)
	got := composeInstructions("base", "docs", transcript)
	contextAt := strings.Index(got, "=== BACKGROUND PROJECT DATA ===")
	transcriptAt := strings.Index(got, "=== PREVIOUS SESSION CONTEXT ===")
	if contextAt < 0 || transcriptAt < contextAt {
		t.Fatalf("expected uploaded context before previous session, got %q", got)
	}
	if !strings.HasSuffix(got, transcript) {
		t.Fatalf("expected transcript verbatim at the end")
	}
}
