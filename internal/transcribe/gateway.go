// Package transcribe converts recorded answers to text. Failures are
// reported in-band as fixed sentinel strings, never as errors.
package transcribe

import (
	"context"
	"strings"
)

const (
	SentinelNotFound        = "Audio file not found."
	SentinelTooShort        = "Recording too short or invalid. Please try recording again."
	SentinelUnsupported     = "Audio format not supported. Please try recording again."
	SentinelInvalid         = "Invalid audio file. Please check your microphone and try again."
	SentinelUnavailable     = "Transcription service temporarily unavailable. Please try again."
	SentinelServiceError    = "Transcription service error. Please try again."
	SentinelUnableToProcess = "Unable to process audio. Please try again."
	SentinelNoSpeech        = "No speech detected in the recording. Please try speaking more clearly."
)

// MinAudioBytes is the smallest recording sent upstream.
const MinAudioBytes = 1000

type Gateway interface {
	Transcribe(ctx context.Context, audio []byte, filename string) string
}

var failurePhrases = []string{
	"unable to transcribe",
	"audio file not found",
	"recording too short",
	"audio format not supported",
	"transcription service",
	"unable to process",
}

// IsFailure reports whether a transcript is one of the gateway's failure
// sentinels. Matching is a case-insensitive substring test.
//
// SentinelInvalid and SentinelNoSpeech do not match any phrase and are
// therefore treated as ordinary (if empty-sounding) answers.
func IsFailure(transcript string) bool {
	lower := strings.ToLower(transcript)
	for _, phrase := range failurePhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
