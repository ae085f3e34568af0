package gemini

import (
	"fmt"

	"github.com/koscakluka/ema-live/core/audio"
	"github.com/koscakluka/ema-live/core/events"
	"google.golang.org/genai"
)

// translateServerMessage demultiplexes one server message by field presence.
// A single message can carry several signals; they are emitted as input
// transcript, output transcript, turn complete, interruption, then audio.
func translateServerMessage(msg *genai.LiveServerMessage) []events.Event {
	if msg == nil {
		return nil
	}

	var translated []events.Event
	if content := msg.ServerContent; content != nil {
		if content.InputTranscription != nil && content.InputTranscription.Text != "" {
			translated = append(translated, events.NewInputTranscriptDelta(content.InputTranscription.Text))
		}
		if content.OutputTranscription != nil && content.OutputTranscription.Text != "" {
			translated = append(translated, events.NewOutputTranscriptDelta(content.OutputTranscription.Text))
		}
		if content.TurnComplete {
			translated = append(translated, events.NewTurnComplete())
		}
		if content.Interrupted {
			translated = append(translated, events.NewInterrupted())
		}
		if content.ModelTurn != nil {
			for _, part := range content.ModelTurn.Parts {
				if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
					continue
				}
				chunk, err := audio.ReadWireChunk(part.InlineData.Data, audio.Binary)
				if err != nil {
					continue
				}
				translated = append(translated, events.NewAudioDelta(chunk.Data))
			}
		}
	}

	if msg.GoAway != nil {
		translated = append(translated, events.NewError(
			fmt.Sprintf("Connection unstable, server closing in %s. If voice stops, please restart.", msg.GoAway.TimeLeft)))
	}

	return translated
}
