// Package models defines the domain types shared across zklink packages.
package models

import "time"

// NoteMetadata describes a Markdown file found under a notes directory.
type NoteMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
