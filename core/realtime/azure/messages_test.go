package azure

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	"github.com/koscakluka/ema-live/core/events"
	"github.com/koscakluka/ema-live/core/realtime"
)

func TestTranslateMessageCatalog(t *testing.T) {
	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	testCases := []struct {
		name     string
		raw      string
		expected events.Kind
	}{
		{name: "audio delta", raw: `{"type":"response.audio.delta","delta":"` + base64.StdEncoding.EncodeToString(pcm) + `"}`, expected: events.KindAudioDelta},
		{name: "output transcript", raw: `{"type":"response.audio_transcript.delta","delta":"Hel"}`, expected: events.KindOutputTranscriptDelta},
		{name: "input transcript", raw: `{"type":"conversation.item.input_audio_transcription.completed","transcript":"hi"}`, expected: events.KindInputTranscriptDelta},
		{name: "response done", raw: `{"type":"response.done"}`, expected: events.KindTurnComplete},
		{name: "speech started", raw: `{"type":"input_audio_buffer.speech_started"}`, expected: events.KindInterrupted},
		{name: "error", raw: `{"type":"error","error":{"message":"bad"}}`, expected: events.KindError},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			translated, err := translateMessage([]byte(testCase.raw))
			if err != nil {
				t.Fatalf("expected message to translate, got %v", err)
			}
			if len(translated) != 1 {
				t.Fatalf("expected 1 event, got %d", len(translated))
			}
			if got := translated[0].Kind(); got != testCase.expected {
				t.Fatalf("expected kind %q, got %q", testCase.expected, got)
			}
		})
	}
}

func TestTranslateMessagePayloads(t *testing.T) {
	pcm := []byte{0x10, 0x20}
	translated, _ := translateMessage([]byte(`{"type":"response.audio.delta","delta":"` + base64.StdEncoding.EncodeToString(pcm) + `"}`))
	delta, ok := translated[0].(events.AudioDelta)
	if !ok || string(delta.Audio) != string(pcm) {
		t.Fatalf("expected decoded audio delta, got %#v", translated[0])
	}

	translated, _ = translateMessage([]byte(`{"type":"error","error":{"message":"quota exceeded"}}`))
	errEvent, ok := translated[0].(events.Error)
	if !ok {
		t.Fatalf("expected error event, got %#v", translated[0])
	}
	if errEvent.Message != "Azure Error: quota exceeded" {
		t.Fatalf("expected prefixed error message, got %q", errEvent.Message)
	}
	if errEvent.Fatal {
		t.Fatalf("expected provider error to be non-fatal")
	}

	translated, _ = translateMessage([]byte(`{"type":"conversation.item.input_audio_transcription.completed","transcript":"what now"}`))
	if input := translated[0].(events.InputTranscriptDelta); input.Text != "what now" {
		t.Fatalf("expected input transcript %q, got %q", "what now", input.Text)
	}
}

func TestTranslateMessageSkipsLifecycleAndRejectsUnknown(t *testing.T) {
	translated, err := translateMessage([]byte(`{"type":"session.created"}`))
	if err != nil || len(translated) != 0 {
		t.Fatalf("expected lifecycle message to be ignored, got %v events and err %v", len(translated), err)
	}

	if _, err := translateMessage([]byte(`{"type":"something.new"}`)); !errors.Is(err, errUnknownMessage) {
		t.Fatalf("expected unknown message error, got %v", err)
	}

	if _, err := translateMessage([]byte(`{"type":`)); err == nil {
		t.Fatalf("expected malformed message to fail")
	}

	if _, err := translateMessage([]byte(`{"type":"response.audio.delta","delta":"%%%"}`)); err == nil {
		t.Fatalf("expected undecodable audio to fail")
	}
}

func TestSessionUpdateShape(t *testing.T) {
	update := newSessionUpdate(realtime.NewOptions(
		realtime.WithInstructions("be brief"),
		realtime.WithVoice("alloy"),
	), DefaultTranscriptionModel)

	raw, err := json.Marshal(update)
	if err != nil {
		t.Fatalf("expected session update to marshal, got %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("expected session update to unmarshal, got %v", err)
	}
	if decoded["type"] != "session.update" {
		t.Fatalf("expected session.update type, got %v", decoded["type"])
	}
	session := decoded["session"].(map[string]any)
	if session["instructions"] != "be brief" || session["voice"] != "alloy" {
		t.Fatalf("expected instructions and voice to be set, got %v", session)
	}
	if session["input_audio_format"] != "pcm16" || session["output_audio_format"] != "pcm16" {
		t.Fatalf("expected pcm16 formats, got %v", session)
	}
	turnDetection := session["turn_detection"].(map[string]any)
	if turnDetection["type"] != "server_vad" {
		t.Fatalf("expected server_vad turn detection, got %v", turnDetection)
	}

	manual := newSessionUpdate(realtime.NewOptions(realtime.WithTurnDetection(realtime.TurnDetectionNone)), "")
	if manual.Session.TurnDetection != nil {
		t.Fatalf("expected manual turn-taking to send null turn detection")
	}
	if manual.Session.InputAudioTranscription != nil {
		t.Fatalf("expected input transcription to be omitted without a model")
	}
}

func TestControlMessages(t *testing.T) {
	testCases := map[realtime.Control]string{
		realtime.ControlClearInputBuffer:  "input_audio_buffer.clear",
		realtime.ControlCommitInputBuffer: "input_audio_buffer.commit",
		realtime.ControlCreateResponse:    "response.create",
	}
	for control, expected := range testCases {
		msg, err := controlMessage(control)
		if err != nil {
			t.Fatalf("expected control %q to be supported, got %v", control, err)
		}
		if msg.Type != expected {
			t.Fatalf("expected control %q to map to %q, got %q", control, expected, msg.Type)
		}
	}

	if _, err := controlMessage("rewind"); !errors.Is(err, realtime.ErrUnsupportedControl) {
		t.Fatalf("expected unsupported control error, got %v", err)
	}
}
