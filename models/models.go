package models

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when no item has the requested id.
	ErrNotFound = errors.New("item not found")
	// ErrDuplicate is returned by stores when an insert violates the
	// uniqueness of the id or URL hash.
	ErrDuplicate = errors.New("item already exists")
	// ErrInvalidStatus is returned for status values outside the lifecycle.
	ErrInvalidStatus = errors.New("status must be one of active, muted, archived")
	// ErrInvalidPin is returned for pin values other than 0 and 1.
	ErrInvalidPin = errors.New("pin must be 0 or 1")
)

// Status is the lifecycle state of an item.
type Status string

const (
	StatusActive   Status = "active"
	StatusMuted    Status = "muted"
	StatusArchived Status = "archived"
)

// ParseStatus validates s as a lifecycle status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusActive, StatusMuted, StatusArchived:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// ValidatePin checks that pin is a 0/1 flag.
func ValidatePin(pin int) error {
	if pin != 0 && pin != 1 {
		return fmt.Errorf("%w: %d", ErrInvalidPin, pin)
	}
	return nil
}

// DefaultSource labels items ingested without an explicit source.
const DefaultSource = "manual"

// Item is a persisted, scored, deduplicated content record.
type Item struct {
	ID            string     `json:"id"`
	Source        string     `json:"source"`
	URL           string     `json:"url"`
	URLHash       string     `json:"url_hash"`
	Title         string     `json:"title"`
	SummaryShort  string     `json:"summary_short"`
	SummaryLong   string     `json:"summary_long"`
	Tags          []string   `json:"tags"`
	PersonalScore float64    `json:"personal_score"`
	OrgScore      float64    `json:"org_score"`
	Novelty       float64    `json:"novelty"`
	BaseScore     float64    `json:"base_score"`
	Status        Status     `json:"status"`
	Pin           int        `json:"pin"`
	ContentPath   string     `json:"content_path"`
	CreatedAt     time.Time  `json:"created_at"`
	ProcessedAt   *time.Time `json:"processed_at"`
}

// IngestContext carries the extracted document through one ingestion run.
type IngestContext struct {
	ID          string
	URL         string
	Title       string
	CleanText   string
	ContentPath string
}

// ScoringResult is the validated output of the relevance scorer.
type ScoringResult struct {
	Title         string   `json:"title"`
	SummaryShort  string   `json:"summary_short"`
	SummaryLong   string   `json:"summary_long"`
	Tags          []string `json:"tags"`
	PersonalScore float64  `json:"personal_score"`
	OrgScore      float64  `json:"org_score"`
}

// CurationContext is the vocabulary the scorer ranks documents against.
// OrgThemes and TagVocabulary are ordered most important first.
type CurationContext struct {
	Interests     []string `json:"interests" yaml:"interests"`
	OrgThemes     []string `json:"org_themes" yaml:"org_themes"`
	TagVocabulary []string `json:"tag_vocabulary" yaml:"tag_vocabulary"`
}

// Match is a similarity index hit.
type Match struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// IngestRequest is the input of an ingestion.
type IngestRequest struct {
	URL    string `json:"url" validate:"required,max=4096"`
	Source string `json:"source,omitempty" validate:"omitempty,max=64"`
}

// IngestResponse summarizes a newly created item.
type IngestResponse struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	SummaryShort string  `json:"summary_short"`
	BaseScore    float64 `json:"base_score"`
	Status       Status  `json:"status"`
}

// DuplicateResponse reports that the canonical URL was already ingested.
type DuplicateResponse struct {
	ID        string `json:"id"`
	Duplicate bool   `json:"duplicate"`
	Message   string `json:"message"`
}

// ClampScore bounds v to [0,1].
func ClampScore(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
