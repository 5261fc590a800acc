package journal

import (
	"strings"
	"time"
)

// Outcome names a recorded pipeline event.
type Outcome string

const (
	// OutcomeExtracted marks text captured from a document.
	OutcomeExtracted Outcome = "extracted"
	// OutcomeExtractionFailed marks a document whose text could not be read.
	OutcomeExtractionFailed Outcome = "extraction_failed"
	// OutcomeDeleteFailed marks a document that was read but could not be removed.
	OutcomeDeleteFailed Outcome = "delete_failed"
	// OutcomeDelivered marks a message accepted by the mail server.
	OutcomeDelivered Outcome = "delivered"
	// OutcomeDeliveryFailed marks a message that was dropped after a send failure.
	OutcomeDeliveryFailed Outcome = "delivery_failed"
	// OutcomeSkippedMissing marks a queued path that vanished before extraction.
	OutcomeSkippedMissing Outcome = "skipped_missing"
	// OutcomeAbandoned marks work cut short by shutdown.
	OutcomeAbandoned Outcome = "abandoned"
)

var knownOutcomes = []Outcome{
	OutcomeExtracted,
	OutcomeExtractionFailed,
	OutcomeDeleteFailed,
	OutcomeDelivered,
	OutcomeDeliveryFailed,
	OutcomeSkippedMissing,
	OutcomeAbandoned,
}

// Outcomes lists every recognised outcome in pipeline order.
func Outcomes() []Outcome {
	out := make([]Outcome, len(knownOutcomes))
	copy(out, knownOutcomes)
	return out
}

// ParseOutcome normalizes a user-supplied outcome name.
func ParseOutcome(value string) (Outcome, bool) {
	normalized := Outcome(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range knownOutcomes {
		if known == normalized {
			return known, true
		}
	}
	return "", false
}

// IsFailure reports whether the outcome represents a failure.
func (o Outcome) IsFailure() bool {
	switch o {
	case OutcomeExtractionFailed, OutcomeDeleteFailed, OutcomeDeliveryFailed:
		return true
	default:
		return false
	}
}

// Entry is one journal row.
type Entry struct {
	ID           int64
	ItemID       string
	SourcePath   string
	Outcome      Outcome
	Route        string
	Subject      string
	Recipients   []string
	TextLength   int
	ErrorKind    string
	ErrorMessage string
	CreatedAt    time.Time
}

// Summary aggregates outcome counts.
type Summary struct {
	Total    int
	ByStatus map[Outcome]int
	Failures int
}
