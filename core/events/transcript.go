package events

const (
	// KindInputTranscriptDelta identifies appended user transcript text.
	KindInputTranscriptDelta Kind = "transcript.input_delta"
	// KindOutputTranscriptDelta identifies appended assistant transcript text.
	KindOutputTranscriptDelta Kind = "transcript.output_delta"
)

// InputTranscriptDelta carries a piece of what the user said.
type InputTranscriptDelta struct {
	Base
	Text string
}

// NewInputTranscriptDelta creates a user transcript delta event.
func NewInputTranscriptDelta(text string) InputTranscriptDelta {
	return InputTranscriptDelta{Base: NewBase(KindInputTranscriptDelta), Text: text}
}

// OutputTranscriptDelta carries a piece of what the assistant said.
type OutputTranscriptDelta struct {
	Base
	Text string
}

// NewOutputTranscriptDelta creates an assistant transcript delta event.
func NewOutputTranscriptDelta(text string) OutputTranscriptDelta {
	return OutputTranscriptDelta{Base: NewBase(KindOutputTranscriptDelta), Text: text}
}
