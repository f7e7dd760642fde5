// Package services implements the business logic layer: chat session and
// message orchestration, document uploads, and the symptom/lab ingestion
// entry points the HTTP handlers call into. This file centralizes
// service-level error sentinels so handlers can map them to HTTP results
// consistently.
package services

import "errors"

var (
	// ErrSessionNotFound indicates the requested chat session does not
	// exist or is not owned by the caller.
	ErrSessionNotFound = errors.New("chat session not found")

	// ErrEmptyMessage is returned when a message-send request carries no
	// content.
	ErrEmptyMessage = errors.New("message content is empty")

	// ErrMessageTooLong is returned when a message exceeds the configured
	// maximum length.
	ErrMessageTooLong = errors.New("message content too long")

	// ErrStreamConflict indicates a stream is already active for the
	// session; at most one is allowed at a time.
	ErrStreamConflict = errors.New("a response is already streaming for this session")

	// ErrDocumentNotFound indicates the requested document does not exist
	// or is not owned by the caller.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrInvalidSymptomSeverity is returned when a symptom entry's
	// severity falls outside the allowed 0-10 range.
	ErrInvalidSymptomSeverity = errors.New("symptom severity must be between 0 and 10")
)
