package model

import "time"

// LogEntry is one row of the externally populated access log table.
type LogEntry struct {
	Time   time.Time `db:"time"`
	Path   string    `db:"path"`
	Status string    `db:"status"` // e.g. "200 OK", "404 NOT FOUND"
}

// Author is reference data for article authors.
type Author struct {
	ID   int    `db:"id"`
	Name string `db:"name"`
}

// Article is reference data; its slug appears in request paths as /article/<slug>.
type Article struct {
	Slug   string `db:"slug"`
	Author int    `db:"author"`
	Title  string `db:"title"`
}
