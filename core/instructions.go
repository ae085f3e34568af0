package orchestration

import "strings"

// priorTranscriptThreshold is the transcript length above which a reconnect
// resumes the earlier conversation.
const priorTranscriptThreshold = 50

const (
	backgroundDataHeader = "\n\n=== BACKGROUND PROJECT DATA ===\n" +
		"The user has uploaded the following project context/documents. " +
		"Use this information to inform your questions and validate requirements. " +
		"Do not ask for information that is already clearly defined here, unless you need clarification:\n"
	previousSessionHeader = "\n\n=== PREVIOUS SESSION CONTEXT ===\n" +
		"The following is a transcript of the interview so far. " +
		"You must resume the interview from where it left off, utilizing the established facts. " +
		"Do not restart the interview.\n\n"
)

func composeInstructions(base, uploadedContext, transcript string) string {
	var b strings.Builder
	b.WriteString(base)
	if uploadedContext != "" {
		b.WriteString(backgroundDataHeader)
		b.WriteString(uploadedContext)
	}
	if len(transcript) > priorTranscriptThreshold {
		b.WriteString(previousSessionHeader)
		b.WriteString(transcript)
	}
	return b.String()
}
