package azure

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/koscakluka/ema-live/core/audio"
	"github.com/koscakluka/ema-live/core/events"
	"github.com/koscakluka/ema-live/core/realtime"
)

const (
	typeSessionUpdate          = "session.update"
	typeInputAudioBufferAppend = "input_audio_buffer.append"
	typeInputAudioBufferClear  = "input_audio_buffer.clear"
	typeInputAudioBufferCommit = "input_audio_buffer.commit"
	typeResponseCreate         = "response.create"

	typeResponseAudioDelta           = "response.audio.delta"
	typeResponseAudioTranscriptDelta = "response.audio_transcript.delta"
	typeInputTranscriptionCompleted  = "conversation.item.input_audio_transcription.completed"
	typeResponseDone                 = "response.done"
	typeSpeechStarted                = "input_audio_buffer.speech_started"
	typeError                        = "error"
)

var errUnknownMessage = errors.New("unknown message type")

// lifecycle messages that carry nothing the session needs.
var ignoredTypes = map[string]struct{}{
	"session.created":                                    {},
	"session.updated":                                    {},
	"input_audio_buffer.speech_stopped":                  {},
	"input_audio_buffer.committed":                       {},
	"input_audio_buffer.cleared":                         {},
	"conversation.created":                               {},
	"conversation.item.created":                          {},
	"conversation.item.truncated":                        {},
	"conversation.item.deleted":                          {},
	"response.created":                                   {},
	"response.output_item.added":                         {},
	"response.output_item.done":                          {},
	"response.content_part.added":                        {},
	"response.content_part.done":                         {},
	"response.audio.done":                                {},
	"response.audio_transcript.done":                     {},
	"response.text.delta":                                {},
	"response.text.done":                                 {},
	"rate_limits.updated":                                {},
	"conversation.item.input_audio_transcription.failed": {},
}

type sessionUpdate struct {
	Type    string        `json:"type"`
	Session sessionConfig `json:"session"`
}

type sessionConfig struct {
	Modalities              []string             `json:"modalities"`
	Instructions            string               `json:"instructions"`
	Voice                   string               `json:"voice"`
	InputAudioFormat        string               `json:"input_audio_format"`
	OutputAudioFormat       string               `json:"output_audio_format"`
	InputAudioTranscription *transcriptionConfig `json:"input_audio_transcription,omitempty"`
	// TurnDetection is null when turn-taking is manual.
	TurnDetection *turnDetectionConfig `json:"turn_detection"`
}

type transcriptionConfig struct {
	Model string `json:"model"`
}

type turnDetectionConfig struct {
	Type string `json:"type"`
}

func newSessionUpdate(options realtime.Options, transcriptionModel string) sessionUpdate {
	config := sessionConfig{
		Modalities:        []string{"audio", "text"},
		Instructions:      options.Instructions,
		Voice:             options.Voice,
		InputAudioFormat:  "pcm16",
		OutputAudioFormat: "pcm16",
	}
	if transcriptionModel != "" {
		config.InputAudioTranscription = &transcriptionConfig{Model: transcriptionModel}
	}
	if options.TurnDetection != realtime.TurnDetectionNone {
		config.TurnDetection = &turnDetectionConfig{Type: string(realtime.TurnDetectionServerVAD)}
	}

	return sessionUpdate{Type: typeSessionUpdate, Session: config}
}

type clientMessage struct {
	Type  string `json:"type"`
	Audio string `json:"audio,omitempty"`
}

func newAppendMessage(pcm []byte) clientMessage {
	chunk := audio.WireChunk{Data: pcm, Direction: audio.Outbound, Transport: audio.Base64}
	return clientMessage{Type: typeInputAudioBufferAppend, Audio: chunk.Text()}
}

func controlMessage(control realtime.Control) (clientMessage, error) {
	switch control {
	case realtime.ControlClearInputBuffer:
		return clientMessage{Type: typeInputAudioBufferClear}, nil
	case realtime.ControlCommitInputBuffer:
		return clientMessage{Type: typeInputAudioBufferCommit}, nil
	case realtime.ControlCreateResponse:
		return clientMessage{Type: typeResponseCreate}, nil
	}
	return clientMessage{}, fmt.Errorf("azure control %q: %w", control, realtime.ErrUnsupportedControl)
}

type serverMessage struct {
	Type       string       `json:"type"`
	Delta      string       `json:"delta"`
	Transcript string       `json:"transcript"`
	Error      *serverError `json:"error"`
}

type serverError struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// translateMessage maps one server message to canonical events. Known
// lifecycle messages produce no events and no error.
func translateMessage(raw []byte) ([]events.Event, error) {
	var msg serverMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal azure message: %w", err)
	}

	switch msg.Type {
	case typeResponseAudioDelta:
		chunk, err := audio.ReadWireChunk([]byte(msg.Delta), audio.Base64)
		if err != nil {
			return nil, err
		}
		return []events.Event{events.NewAudioDelta(chunk.Data)}, nil

	case typeResponseAudioTranscriptDelta:
		return []events.Event{events.NewOutputTranscriptDelta(msg.Delta)}, nil

	case typeInputTranscriptionCompleted:
		return []events.Event{events.NewInputTranscriptDelta(msg.Transcript)}, nil

	case typeResponseDone:
		return []events.Event{events.NewTurnComplete()}, nil

	case typeSpeechStarted:
		return []events.Event{events.NewInterrupted()}, nil

	case typeError:
		message := "unknown error"
		if msg.Error != nil && strings.TrimSpace(msg.Error.Message) != "" {
			message = msg.Error.Message
		}
		return []events.Event{events.NewError("Azure Error: " + message)}, nil
	}

	if _, ok := ignoredTypes[msg.Type]; ok {
		return nil, nil
	}

	return nil, fmt.Errorf("%w: %q", errUnknownMessage, msg.Type)
}
