package sessionstore

import (
	"time"

	"github.com/invopop/jsonschema"
	"github.com/jinzhu/copier"
)

// Record is everything needed to resume a conversation after a restart.
type Record struct {
	SessionID       string    `json:"session_id" jsonschema:"required,description=Stable identifier of the conversation"`
	Provider        string    `json:"provider,omitempty" jsonschema:"enum=azure,enum=gemini"`
	Transcript      string    `json:"transcript" jsonschema:"description=Role-prefixed transcript lines"`
	UploadedContext string    `json:"uploaded_context,omitempty"`
	Segments        []Segment `json:"segments,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type Segment struct {
	Input     string    `json:"input,omitempty"`
	Output    string    `json:"output,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewRecord builds a record from any segment slice whose elements carry
// Input, Output and CreatedAt fields.
func NewRecord(sessionID, provider, transcript, uploadedContext string, segments any) (Record, error) {
	record := Record{
		SessionID:       sessionID,
		Provider:        provider,
		Transcript:      transcript,
		UploadedContext: uploadedContext,
		UpdatedAt:       time.Now().UTC(),
	}
	if segments != nil {
		if err := copier.Copy(&record.Segments, segments); err != nil {
			return Record{}, err
		}
	}
	return record, nil
}

// Schema describes the stored JSON document.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{DoNotReference: true}
	return reflector.Reflect(&Record{})
}
