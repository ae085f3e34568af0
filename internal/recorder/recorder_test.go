package recorder

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	orchestration "github.com/koscakluka/ema-live/core"
	"github.com/koscakluka/ema-live/core/backup"
	"github.com/koscakluka/ema-live/core/sessionstore"
)

func openStore(t *testing.T) *sessionstore.Store {
	t.Helper()
	store, err := sessionstore.Open("")
	if err != nil {
		t.Fatalf("expected in-memory store to open, got %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func storedRecord(t *testing.T, store *sessionstore.Store) sessionstore.Record {
	t.Helper()
	record := sessionstore.Record{
		SessionID:       "stored-session",
		Provider:        "azure",
		Transcript:      "User: We need a supplier portal\nAgent: Who are the suppliers?\n",
		UploadedContext: "Budget: 40k",
		Segments: []sessionstore.Segment{
			{Input: "We need a supplier portal", Output: "Who are the suppliers?", CreatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)},
		},
	}
	if err := store.Save(context.Background(), record); err != nil {
		t.Fatalf("expected record to save, got %v", err)
	}
	return record
}

func TestResumeKeepsStoredSegmentsAcrossSave(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	stored := storedRecord(t, store)

	rec := New(store, backup.NewUploader(""))
	session := orchestration.NewSession(rec.Resume(ctx)...)
	rec.Attach(session)

	if got := rec.SessionID(); got != stored.SessionID {
		t.Fatalf("expected resumed session id %q, got %q", stored.SessionID, got)
	}
	if got := session.UploadedContext(); got != stored.UploadedContext {
		t.Fatalf("expected uploaded context %q, got %q", stored.UploadedContext, got)
	}

	rec.Save(ctx)

	latest, err := store.Latest(ctx)
	if err != nil {
		t.Fatalf("expected latest record, got %v", err)
	}
	if latest.Transcript != stored.Transcript {
		t.Fatalf("expected transcript %q, got %q", stored.Transcript, latest.Transcript)
	}
	if len(latest.Segments) != 1 {
		t.Fatalf("expected stored segment to survive the save, got %d segments", len(latest.Segments))
	}
	if got := latest.Segments[0]; got.Input != stored.Segments[0].Input || !got.CreatedAt.Equal(stored.Segments[0].CreatedAt) {
		t.Fatalf("unexpected segment after save %+v", got)
	}

	if report := backup.MarkdownReport(latest); !strings.Contains(report, "**User:** We need a supplier portal") {
		t.Fatalf("expected report to include the earlier conversation, got %q", report)
	}
}

func TestResumeWithoutStoredSessionStartsFresh(t *testing.T) {
	rec := New(openStore(t), backup.NewUploader(""))
	if opts := rec.Resume(context.Background()); len(opts) != 0 {
		t.Fatalf("expected no resume options, got %d", len(opts))
	}
	if rec.SessionID() == "" {
		t.Fatalf("expected a fresh session id")
	}
}

func TestForgetClearsStoredSession(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	stored := storedRecord(t, store)

	rec := New(store, backup.NewUploader(""))
	rec.Attach(orchestration.NewSession(rec.Resume(ctx)...))

	if err := rec.Forget(ctx); err != nil {
		t.Fatalf("expected forget to succeed, got %v", err)
	}
	if _, err := store.Latest(ctx); !errors.Is(err, sessionstore.ErrNotFound) {
		t.Fatalf("expected no latest record, got %v", err)
	}
	if rec.SessionID() == stored.SessionID {
		t.Fatalf("expected a new session id after forget")
	}
}

func TestExportSkipsShortConversations(t *testing.T) {
	rec := New(openStore(t), backup.NewUploader("https://example.invalid/export"))
	rec.Attach(orchestration.NewSession())

	exportID, err := rec.Export(context.Background())
	if err != nil || exportID != "" {
		t.Fatalf("expected short conversation to be skipped, got %q, %v", exportID, err)
	}
}

func TestRecordRequiresSession(t *testing.T) {
	rec := New(openStore(t), backup.NewUploader(""))
	if _, err := rec.Record(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}
