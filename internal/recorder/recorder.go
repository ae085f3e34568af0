// Package recorder keeps the stored session record in step with a live
// session and exports it when the program ends.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"

	orchestration "github.com/koscakluka/ema-live/core"
	"github.com/koscakluka/ema-live/core/backup"
	"github.com/koscakluka/ema-live/core/sessionstore"
)

var ErrNoSession = errors.New("no session attached")

type Recorder struct {
	store    *sessionstore.Store
	uploader *backup.Uploader

	mu        sync.Mutex
	session   *orchestration.Session
	sessionID string
}

func New(store *sessionstore.Store, uploader *backup.Uploader) *Recorder {
	return &Recorder{store: store, uploader: uploader, sessionID: uuid.NewString()}
}

// Resume loads the latest stored session, if any, adopts its id and returns
// the options that carry its transcript, segments and uploaded context into
// a new session.
func (r *Recorder) Resume(ctx context.Context) []orchestration.SessionOption {
	record, err := r.store.Latest(ctx)
	if err != nil {
		if !errors.Is(err, sessionstore.ErrNotFound) {
			logger.Warn("failed to load latest session", "error", err)
		}
		return nil
	}

	var segments []orchestration.Segment
	if err := copier.Copy(&segments, record.Segments); err != nil {
		logger.Warn("failed to restore stored segments", "session", record.SessionID, "error", err)
		segments = nil
	}
	for i := range segments {
		segments[i].ID = uuid.New()
	}

	r.mu.Lock()
	r.sessionID = record.SessionID
	r.mu.Unlock()

	logger.Info("resuming stored session", "session", record.SessionID, "segments", len(segments))
	return []orchestration.SessionOption{
		orchestration.WithResumedConversation(record.Transcript, segments),
		orchestration.WithUploadedContext(record.UploadedContext),
	}
}

func (r *Recorder) Attach(session *orchestration.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session = session
}

func (r *Recorder) SessionID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessionID
}

func (r *Recorder) Record() (sessionstore.Record, error) {
	r.mu.Lock()
	session, sessionID := r.session, r.sessionID
	r.mu.Unlock()
	if session == nil {
		return sessionstore.Record{}, ErrNoSession
	}

	return sessionstore.NewRecord(
		sessionID,
		session.ProviderName(),
		session.Transcript(),
		session.UploadedContext(),
		session.Segments(),
	)
}

// Save persists the current record. Failures are logged, never returned:
// saving runs from session callbacks.
func (r *Recorder) Save(ctx context.Context) {
	record, err := r.Record()
	if err != nil {
		logger.Warn("failed to build session record", "error", err)
		return
	}
	if err := r.store.Save(ctx, record); err != nil {
		logger.Warn("failed to save session record", "error", err)
	}
}

// Export uploads the session when it holds a meaningful conversation and
// returns the export id.
func (r *Recorder) Export(ctx context.Context) (string, error) {
	record, err := r.Record()
	if err != nil {
		return "", err
	}
	if !backup.ShouldUpload(record.Transcript) {
		return "", nil
	}

	result, err := r.uploader.Upload(ctx, record)
	if err != nil {
		return result.ExportID, fmt.Errorf("export %s: %w", result.ExportID, err)
	}
	return result.ExportID, nil
}

// Forget clears the stored session so the next run starts fresh.
func (r *Recorder) Forget(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.store.Clear(ctx, r.sessionID); err != nil {
		return err
	}
	r.sessionID = uuid.NewString()
	return nil
}
