package azure

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-live/core/realtime"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultDeployment = "gpt-4o-realtime-preview"
	DefaultAPIVersion = "2024-10-01-preview"
	DefaultVoice      = "alloy"

	// DefaultTranscriptionModel transcribes user audio so input transcript
	// events are produced.
	DefaultTranscriptionModel = "whisper-1"
)

// Client opens Azure OpenAI realtime sockets.
type Client struct {
	apiKey             string
	endpoint           string
	deployment         string
	apiVersion         string
	voice              string
	transcriptionModel string

	dialer *websocket.Dialer
}

type ClientOption func(*Client)

func WithAPIKey(apiKey string) ClientOption {
	return func(c *Client) { c.apiKey = apiKey }
}

// WithEndpoint sets the resource endpoint, with or without a scheme.
func WithEndpoint(endpoint string) ClientOption {
	return func(c *Client) { c.endpoint = endpoint }
}

func WithDeployment(deployment string) ClientOption {
	return func(c *Client) {
		if deployment != "" {
			c.deployment = deployment
		}
	}
}

func WithAPIVersion(apiVersion string) ClientOption {
	return func(c *Client) {
		if apiVersion != "" {
			c.apiVersion = apiVersion
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

// WithTranscriptionModel sets the model used for input transcription. An
// empty model disables input transcripts.
func WithTranscriptionModel(model string) ClientOption {
	return func(c *Client) { c.transcriptionModel = model }
}

func WithDialer(dialer *websocket.Dialer) ClientOption {
	return func(c *Client) { c.dialer = dialer }
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		deployment:         DefaultDeployment,
		apiVersion:         DefaultAPIVersion,
		voice:              DefaultVoice,
		transcriptionModel: DefaultTranscriptionModel,
		dialer:             websocket.DefaultDialer,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Name() string { return "azure" }

func (c *Client) Validate() error {
	if c.apiKey == "" || c.endpoint == "" {
		return fmt.Errorf("azure api key and endpoint are required: %w", realtime.ErrMissingCredentials)
	}
	return nil
}

// Open dials the realtime endpoint and configures the session. The Opened
// event is the first event once the session configuration was sent.
func (c *Client) Open(ctx context.Context, opts ...realtime.Option) (realtime.Transport, error) {
	ctx, span := tracer.Start(ctx, "open azure socket", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	if err := c.Validate(); err != nil {
		return nil, err
	}

	options := realtime.NewOptions(opts...)
	if options.Voice == "" {
		options.Voice = c.voice
	}

	socketURL := c.socketURL()
	span.SetAttributes(
		attribute.String("azure.deployment", c.deployment),
		attribute.String("azure.api_version", c.apiVersion),
	)

	conn, _, err := c.dialer.DialContext(ctx, socketURL, http.Header{"api-key": {c.apiKey}})
	if err != nil {
		err = fmt.Errorf("failed to open socket connection to azure: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s := newSocket(conn, options)
	if err := s.writeJSON(newSessionUpdate(options, c.transcriptionModel)); err != nil {
		_ = conn.Close()
		err = fmt.Errorf("failed to configure azure session: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.AddEvent("session configured")
	s.start()
	return s, nil
}

// socketURL strips any scheme and trailing slash from the endpoint. Plain
// http endpoints dial ws, everything else dials wss.
func (c *Client) socketURL() string {
	scheme := "wss"
	host := c.endpoint
	if rest, ok := strings.CutPrefix(host, "http://"); ok {
		scheme = "ws"
		host = rest
	} else if rest, ok := strings.CutPrefix(host, "ws://"); ok {
		scheme = "ws"
		host = rest
	} else if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	host = strings.TrimRight(host, "/")

	query := url.Values{}
	query.Set("api-version", c.apiVersion)
	query.Set("deployment", c.deployment)

	u := url.URL{Scheme: scheme, Host: host, Path: "/openai/realtime", RawQuery: query.Encode()}
	return u.String()
}
