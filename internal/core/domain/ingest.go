package domain

import (
	"time"
)

// IngestState is a step of the per-document ingestion state machine.
type IngestState string

// Ingestion moves Pending -> Validating -> (Skipped | Extracting ->
// PersistingText -> ProcessingImages -> Cached -> Done) | Failed.
const (
	StatePending          IngestState = "pending"
	StateValidating       IngestState = "validating"
	StateSkipped          IngestState = "skipped"
	StateExtracting       IngestState = "extracting"
	StatePersistingText   IngestState = "persisting_text"
	StateProcessingImages IngestState = "processing_images"
	StateCached           IngestState = "cached"
	StateDone             IngestState = "done"
	StateFailed           IngestState = "failed"
)

// Terminal reports whether no further transition can follow s.
func (s IngestState) Terminal() bool {
	return s == StateSkipped || s == StateDone || s == StateFailed
}

// IngestResult is the outcome of ingesting one document.
type IngestResult struct {
	// Path is the ingested file.
	Path string

	// DocumentID is set once the document row exists.
	DocumentID int64

	// State is the final state reached.
	State IngestState

	// Trace lists every state visited, in order.
	Trace []IngestState

	// Pages is the number of pages persisted.
	Pages int

	// Images is the number of embedded images found.
	Images int

	// OCRTexts is the number of non-empty OCR results persisted.
	OCRTexts int

	// Streamed is true when the document was processed in page windows.
	Streamed bool

	// Err is set when State is StateFailed.
	Err error

	// Duration is the wall time spent on the document.
	Duration time.Duration
}

// Transition records a move to state.
func (r *IngestResult) Transition(state IngestState) {
	r.State = state
	r.Trace = append(r.Trace, state)
}

// Fail moves the result to StateFailed with err.
func (r *IngestResult) Fail(err error) {
	r.Err = err
	r.Transition(StateFailed)
}

// Succeeded reports whether the document is now present and complete.
func (r IngestResult) Succeeded() bool {
	return r.State == StateDone || r.State == StateSkipped
}

// BatchResult collects the per-document outcomes of a folder ingestion.
type BatchResult struct {
	// ID identifies the batch in logs.
	ID string

	// Folder is the ingested directory.
	Folder string

	// Results holds one entry per discovered PDF, in discovery order.
	Results []IngestResult

	StartedAt   time.Time
	CompletedAt time.Time
}

// Failed returns the results that ended in StateFailed.
func (b BatchResult) Failed() []IngestResult {
	var out []IngestResult
	for _, r := range b.Results {
		if r.State == StateFailed {
			out = append(out, r)
		}
	}
	return out
}

// Count returns how many results ended in state.
func (b BatchResult) Count(state IngestState) int {
	n := 0
	for _, r := range b.Results {
		if r.State == state {
			n++
		}
	}
	return n
}

// Succeeded returns the results whose document is present and complete.
func (b BatchResult) Succeeded() []IngestResult {
	var out []IngestResult
	for _, r := range b.Results {
		if r.Succeeded() {
			out = append(out, r)
		}
	}
	return out
}
