// Package backup exports finished sessions to a remote storage endpoint as
// JSON plus a markdown report.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/koscakluka/ema-live/core/sessionstore"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// MinTranscriptLength is the transcript length above which a session is
// worth exporting.
const MinTranscriptLength = 50

var ErrNotConfigured = errors.New("storage endpoint not configured")

type Uploader struct {
	endpoint string
	client   *http.Client
}

type Option func(*Uploader)

func WithHTTPClient(client *http.Client) Option {
	return func(u *Uploader) { u.client = client }
}

func NewUploader(endpoint string, opts ...Option) *Uploader {
	u := &Uploader{
		endpoint: endpoint,
		client:   &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport), Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Configured reports whether the endpoint points somewhere real.
func (u *Uploader) Configured() bool {
	return u.endpoint != "" && !strings.Contains(u.endpoint, "placeholder")
}

func ShouldUpload(transcript string) bool {
	return len(transcript) > MinTranscriptLength
}

type payload struct {
	ExportID        string              `json:"export_id"`
	SessionID       string              `json:"session_id"`
	Timestamp       time.Time           `json:"timestamp"`
	ProjectName     string              `json:"project_name"`
	JSONData        sessionstore.Record `json:"json_data"`
	DocumentContent string              `json:"document_content"`
	DocumentFormat  string              `json:"document_format"`
}

// Result identifies an export, including failed ones.
type Result struct {
	ExportID string
	Message  string
}

// Upload posts the record and its markdown report. The export id is returned
// even when the upload fails.
func (u *Uploader) Upload(ctx context.Context, record sessionstore.Record) (Result, error) {
	exportID := uuid.NewString()
	ctx, span := tracer.Start(ctx, "upload session export")
	defer span.End()
	span.SetAttributes(attribute.String("export.id", exportID), attribute.String("session.id", record.SessionID))

	if !u.Configured() {
		return Result{ExportID: exportID, Message: "Placeholder endpoint: configure STORAGE_ENDPOINT"}, ErrNotConfigured
	}

	body, err := json.Marshal(payload{
		ExportID:        exportID,
		SessionID:       record.SessionID,
		Timestamp:       time.Now().UTC(),
		ProjectName:     projectName(record),
		JSONData:        record,
		DocumentContent: MarkdownReport(record),
		DocumentFormat:  "markdown",
	})
	if err != nil {
		return Result{ExportID: exportID}, fmt.Errorf("failed to encode export: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{ExportID: exportID}, fmt.Errorf("failed to create export request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Export-ID", exportID)

	logger.Info("pushing session export", "export", exportID, "endpoint", u.endpoint)
	resp, err := u.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{ExportID: exportID, Message: err.Error()}, fmt.Errorf("failed to upload export: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("server returned %s", resp.Status)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{ExportID: exportID, Message: err.Error()}, err
	}

	return Result{ExportID: exportID, Message: "Upload successful"}, nil
}

func projectName(record sessionstore.Record) string {
	for _, segment := range record.Segments {
		if segment.Input == "" {
			continue
		}
		name := []rune(segment.Input)
		if len(name) > 50 {
			name = name[:50]
		}
		return string(name)
	}
	return "Untitled Project"
}

// MarkdownReport renders the session as a markdown document.
func MarkdownReport(record sessionstore.Record) string {
	var b strings.Builder
	b.WriteString("# Session Transcript\n")
	fmt.Fprintf(&b, "**Session ID:** %s\n", record.SessionID)
	fmt.Fprintf(&b, "**Date:** %s\n", record.UpdatedAt.Format(time.DateOnly))
	if record.Provider != "" {
		fmt.Fprintf(&b, "**Provider:** %s\n", record.Provider)
	}
	b.WriteString("\n## Conversation\n\n")

	if len(record.Segments) == 0 {
		if record.Transcript == "" {
			b.WriteString("*No conversation captured.*\n")
		} else {
			b.WriteString("```\n" + record.Transcript + "```\n")
		}
	}
	for _, segment := range record.Segments {
		if segment.Input != "" {
			fmt.Fprintf(&b, "**User:** %s\n\n", segment.Input)
		}
		if segment.Output != "" {
			fmt.Fprintf(&b, "**Agent:** %s\n\n", segment.Output)
		}
	}

	if record.UploadedContext != "" {
		b.WriteString("## Uploaded Context\n\n")
		b.WriteString(strings.TrimSpace(record.UploadedContext) + "\n")
	}
	return b.String()
}
