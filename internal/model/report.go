package model

import (
	"time"

	"github.com/google/uuid"
)

// ArticleViews is one row of the popular articles report.
type ArticleViews struct {
	Title string `json:"title" db:"title"`
	Views int64  `json:"views" db:"count"`
}

// AuthorViews is one row of the popular authors report.
type AuthorViews struct {
	Name  string `json:"name" db:"name"`
	Views int64  `json:"views" db:"views"`
}

// ErrorDay is a calendar day whose error rate exceeded the threshold.
// Day is already formatted as "Mon DD, YYYY".
type ErrorDay struct {
	Day          string  `json:"day" db:"day"`
	ErrorPercent float64 `json:"error_percent" db:"error_percent"`
}

// Snapshot is the archived result of one run.
type Snapshot struct {
	RunID          uuid.UUID      `json:"run_id"`
	GeneratedAt    time.Time      `json:"generated_at"`
	Database       string         `json:"database"`
	ArticleLimit   int            `json:"article_limit"`
	ErrorThreshold float64        `json:"error_threshold"`
	Articles       []ArticleViews `json:"articles,omitempty"`
	Authors        []AuthorViews  `json:"authors,omitempty"`
	ErrorDays      []ErrorDay     `json:"error_days,omitempty"`
	Failed         []string       `json:"failed,omitempty"`
}

// NewSnapshot starts an empty snapshot for a run against database.
func NewSnapshot(database string, now time.Time) *Snapshot {
	return &Snapshot{
		RunID:       uuid.New(),
		GeneratedAt: now.UTC(),
		Database:    database,
	}
}

// Record stores a report's raw rows in the matching field. Other types are ignored.
func (s *Snapshot) Record(rows any) {
	switch r := rows.(type) {
	case []ArticleViews:
		s.Articles = r
	case []AuthorViews:
		s.Authors = r
	case []ErrorDay:
		s.ErrorDays = r
	}
}
