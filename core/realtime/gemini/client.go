package gemini

import (
	"context"
	"fmt"

	"github.com/koscakluka/ema-live/core/realtime"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"
)

const (
	DefaultModel = "gemini-2.5-flash-native-audio-preview-09-2025"
	DefaultVoice = "Kore"
)

// liveSession is the part of *genai.Session the transport uses.
type liveSession interface {
	SendRealtimeInput(input genai.LiveRealtimeInput) error
	Receive() (*genai.LiveServerMessage, error)
	Close() error
}

type connectFunc func(ctx context.Context, model string, config *genai.LiveConnectConfig) (liveSession, error)

// Client opens Gemini Live sessions.
type Client struct {
	apiKey string
	model  string
	voice  string

	connect connectFunc
}

type ClientOption func(*Client)

func WithAPIKey(apiKey string) ClientOption {
	return func(c *Client) { c.apiKey = apiKey }
}

func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

func WithVoice(voice string) ClientOption {
	return func(c *Client) {
		if voice != "" {
			c.voice = voice
		}
	}
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{model: DefaultModel, voice: DefaultVoice}
	c.connect = c.dial
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Name() string { return "gemini" }

func (c *Client) Validate() error {
	if c.apiKey == "" {
		return fmt.Errorf("gemini api key is required: %w", realtime.ErrMissingCredentials)
	}
	return nil
}

// Open connects a live session. Opened is emitted as soon as the connect
// call returns.
func (c *Client) Open(ctx context.Context, opts ...realtime.Option) (realtime.Transport, error) {
	ctx, span := tracer.Start(ctx, "open gemini session", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	if err := c.Validate(); err != nil {
		return nil, err
	}

	options := realtime.NewOptions(opts...)
	if options.Voice == "" {
		options.Voice = c.voice
	}
	if options.Model == "" {
		options.Model = c.model
	}
	span.SetAttributes(attribute.String("gemini.model", options.Model))

	live, err := c.connect(ctx, options.Model, liveConnectConfig(options))
	if err != nil {
		err = fmt.Errorf("failed to connect gemini live session: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s := newSession(live, options)
	s.start()
	return s, nil
}

func (c *Client) dial(ctx context.Context, model string, config *genai.LiveConnectConfig) (liveSession, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  c.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	session, err := client.Live.Connect(ctx, model, config)
	if err != nil {
		return nil, err
	}
	return session, nil
}

func liveConnectConfig(options realtime.Options) *genai.LiveConnectConfig {
	config := &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: options.Voice},
			},
		},
		InputAudioTranscription:  &genai.AudioTranscriptionConfig{},
		OutputAudioTranscription: &genai.AudioTranscriptionConfig{},
	}
	if options.Instructions != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: options.Instructions}}}
	}
	if options.TurnDetection == realtime.TurnDetectionNone {
		config.RealtimeInputConfig = &genai.RealtimeInputConfig{
			AutomaticActivityDetection: &genai.AutomaticActivityDetection{Disabled: true},
		}
	}
	return config
}
