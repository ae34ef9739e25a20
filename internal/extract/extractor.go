// Package extract turns transcript text into a purchase candidate through a
// chat completion boundary.
package extract

import (
	"context"

	"github.com/outlaylabs/outlay/internal/ledger"
)

// MaxTranscriptChars bounds how much transcript text is submitted for
// extraction. Longer transcripts are truncated, not rejected.
const MaxTranscriptChars = 1000

// Extractor derives a validated purchase candidate from a transcript.
type Extractor interface {
	Extract(ctx context.Context, transcript string) (ledger.Candidate, error)
}

// Truncate bounds the transcript to MaxTranscriptChars runes.
func Truncate(transcript string) string {
	runes := []rune(transcript)
	if len(runes) <= MaxTranscriptChars {
		return transcript
	}
	return string(runes[:MaxTranscriptChars])
}
