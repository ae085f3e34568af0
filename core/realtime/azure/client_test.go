package azure

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-live/core/events"
	"github.com/koscakluka/ema-live/core/realtime"
)

func TestSocketURLNormalizesEndpoint(t *testing.T) {
	testCases := []struct {
		endpoint string
		expected string
	}{
		{endpoint: "https://example.openai.azure.com/", expected: "wss://example.openai.azure.com/openai/realtime?api-version=2024-10-01-preview&deployment=gpt-4o-realtime-preview"},
		{endpoint: "example.openai.azure.com", expected: "wss://example.openai.azure.com/openai/realtime?api-version=2024-10-01-preview&deployment=gpt-4o-realtime-preview"},
		{endpoint: "http://127.0.0.1:8080", expected: "ws://127.0.0.1:8080/openai/realtime?api-version=2024-10-01-preview&deployment=gpt-4o-realtime-preview"},
	}

	for _, testCase := range testCases {
		client := NewClient(WithEndpoint(testCase.endpoint), WithAPIKey("key"))
		if got := client.socketURL(); got != testCase.expected {
			t.Fatalf("expected url %q, got %q", testCase.expected, got)
		}
	}
}

func TestValidateRequiresCredentials(t *testing.T) {
	if err := NewClient(WithEndpoint("example.com")).Validate(); !errors.Is(err, realtime.ErrMissingCredentials) {
		t.Fatalf("expected missing credentials error, got %v", err)
	}
	if err := NewClient(WithEndpoint("example.com"), WithAPIKey("key")).Validate(); err != nil {
		t.Fatalf("expected configured client to validate, got %v", err)
	}
}

type testServer struct {
	*httptest.Server
	received chan map[string]any
	outbound chan string
	apiKey   chan string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	upgrader := websocket.Upgrader{}
	server := &testServer{
		received: make(chan map[string]any, 32),
		outbound: make(chan string, 32),
		apiKey:   make(chan string, 1),
	}
	server.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		server.apiKey <- r.Header.Get("api-key")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		go func() {
			for {
				_, msg, err := conn.ReadMessage()
				if err != nil {
					return
				}
				var decoded map[string]any
				if json.Unmarshal(msg, &decoded) == nil {
					server.received <- decoded
				}
			}
		}()

		for msg := range server.outbound {
			if msg == "close" {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
				time.Sleep(50 * time.Millisecond)
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
	}))
	t.Cleanup(func() {
		close(server.outbound)
		server.Close()
	})
	return server
}

func (s *testServer) next(t *testing.T) map[string]any {
	t.Helper()
	select {
	case msg := <-s.received:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatalf("expected message from client")
		return nil
	}
}

func TestOpenSendsSessionUpdateAndTranslatesEvents(t *testing.T) {
	server := newTestServer(t)
	client := NewClient(WithEndpoint(server.URL), WithAPIKey("secret"))

	transport, err := client.Open(context.Background(), realtime.WithInstructions("interview me"))
	if err != nil {
		t.Fatalf("expected socket to open, got %v", err)
	}
	defer transport.Close()

	if got := <-server.apiKey; got != "secret" {
		t.Fatalf("expected api-key header %q, got %q", "secret", got)
	}

	update := server.next(t)
	if update["type"] != "session.update" {
		t.Fatalf("expected first message to be session.update, got %v", update["type"])
	}
	if session := update["session"].(map[string]any); session["instructions"] != "interview me" {
		t.Fatalf("expected instructions in session update, got %v", session["instructions"])
	}

	audioPayload := base64.StdEncoding.EncodeToString([]byte{1, 0, 2, 0})
	for _, msg := range []string{
		`{"type":"session.created"}`,
		`{"type":"totally.unknown"}`,
		`{not json`,
		`{"type":"response.audio.delta","delta":"` + audioPayload + `"}`,
		`{"type":"response.audio_transcript.delta","delta":"Hello"}`,
		`{"type":"conversation.item.input_audio_transcription.completed","transcript":"Hi"}`,
		`{"type":"input_audio_buffer.speech_started"}`,
		`{"type":"response.done"}`,
		`{"type":"error","error":{"message":"slow down"}}`,
		"close",
	} {
		server.outbound <- msg
	}

	var kinds []events.Kind
	timeout := time.After(2 * time.Second)
	for done := false; !done; {
		select {
		case event, ok := <-transport.Events():
			if !ok {
				done = true
				continue
			}
			kinds = append(kinds, event.Kind())
		case <-timeout:
			t.Fatalf("expected event stream to close, got %v so far", kinds)
		}
	}

	want := []events.Kind{
		events.KindOpened,
		events.KindAudioDelta,
		events.KindOutputTranscriptDelta,
		events.KindInputTranscriptDelta,
		events.KindInterrupted,
		events.KindTurnComplete,
		events.KindError,
		events.KindClosed,
	}
	if len(kinds) != len(want) {
		t.Fatalf("expected events %v, got %v", want, kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("expected event %d to be %q, got %q", i, want[i], kinds[i])
		}
	}
}

func TestSendAudioAndInterruptionControls(t *testing.T) {
	server := newTestServer(t)
	client := NewClient(WithEndpoint(server.URL), WithAPIKey("secret"))

	transport, err := client.Open(context.Background())
	if err != nil {
		t.Fatalf("expected socket to open, got %v", err)
	}
	defer transport.Close()
	_ = server.next(t) // session.update

	if err := transport.SendAudio([]byte{0xff, 0x7f}); err != nil {
		t.Fatalf("expected audio to send, got %v", err)
	}
	appendMsg := server.next(t)
	if appendMsg["type"] != "input_audio_buffer.append" {
		t.Fatalf("expected append message, got %v", appendMsg["type"])
	}
	if appendMsg["audio"] != base64.StdEncoding.EncodeToString([]byte{0xff, 0x7f}) {
		t.Fatalf("expected base64 audio payload, got %v", appendMsg["audio"])
	}

	aware, ok := transport.(realtime.InterruptionAware)
	if !ok {
		t.Fatalf("expected azure transport to handle interruptions")
	}
	if err := aware.HandleInterruption(context.Background()); err != nil {
		t.Fatalf("expected interruption to clear input, got %v", err)
	}
	if clearMsg := server.next(t); clearMsg["type"] != "input_audio_buffer.clear" {
		t.Fatalf("expected clear message, got %v", clearMsg["type"])
	}

	if err := transport.Close(); err != nil {
		t.Fatalf("expected close to succeed, got %v", err)
	}
	if err := transport.SendAudio([]byte{0}); !errors.Is(err, realtime.ErrTransportClosed) {
		t.Fatalf("expected closed transport error, got %v", err)
	}
}

func TestInterruptionWithoutServerTurnDetectionSendsNothing(t *testing.T) {
	server := newTestServer(t)
	client := NewClient(WithEndpoint(server.URL), WithAPIKey("secret"))

	transport, err := client.Open(context.Background(), realtime.WithTurnDetection(realtime.TurnDetectionNone))
	if err != nil {
		t.Fatalf("expected socket to open, got %v", err)
	}
	defer transport.Close()
	_ = server.next(t)

	if err := transport.(realtime.InterruptionAware).HandleInterruption(context.Background()); err != nil {
		t.Fatalf("expected interruption to be a no-op, got %v", err)
	}
	if err := transport.SendControl(context.Background(), realtime.ControlCommitInputBuffer); err != nil {
		t.Fatalf("expected commit to send, got %v", err)
	}
	if msg := server.next(t); msg["type"] != "input_audio_buffer.commit" {
		t.Fatalf("expected commit to be the next message, got %v", msg["type"])
	}
}

func TestDroppedSocketReportsConnectionFailure(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_, _, _ = conn.ReadMessage()
		_ = conn.UnderlyingConn().Close()
	}))
	defer server.Close()

	transport, err := NewClient(WithEndpoint(server.URL), WithAPIKey("key")).Open(context.Background())
	if err != nil {
		t.Fatalf("expected socket to open, got %v", err)
	}
	defer transport.Close()

	var got []events.Event
	timeout := time.After(2 * time.Second)
	for done := false; !done; {
		select {
		case event, ok := <-transport.Events():
			if !ok {
				done = true
				continue
			}
			got = append(got, event)
		case <-timeout:
			t.Fatalf("expected event stream to close, got %d events so far", len(got))
		}
	}

	if len(got) != 3 {
		t.Fatalf("expected opened, error and closed, got %d events", len(got))
	}
	failure, ok := got[1].(events.Error)
	if !ok || !failure.Fatal || failure.Message != connectionFailedMessage {
		t.Fatalf("expected fatal %q, got %+v", connectionFailedMessage, got[1])
	}
	if got[2].Kind() != events.KindClosed {
		t.Fatalf("expected closed last, got %q", got[2].Kind())
	}
}
