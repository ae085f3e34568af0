// Package events defines the canonical provider event contract.
//
// Every provider adapter translates its wire messages into these events, so
// nothing above the adapter layer sees provider-specific payloads.
//
// connection events
//
//   - Opened (connection.opened): transport is ready for audio.
//   - Closed (connection.closed): transport ended; always the last event.
//   - Error (connection.error): provider error; Fatal errors precede Closed.
//
// audio events
//
//   - AudioDelta (audio.delta): decoded PCM16 assistant audio chunk.
//
// transcript events
//
//   - InputTranscriptDelta (transcript.input_delta): append-only user text.
//   - OutputTranscriptDelta (transcript.output_delta): append-only assistant
//     text.
//
// turn events
//
//   - TurnComplete (turn.complete): the current exchange ended; buffered
//     transcript text should be flushed.
//   - Interrupted (turn.interrupted): the user barged in; queued assistant
//     audio and unflushed assistant text are discarded.
package events
