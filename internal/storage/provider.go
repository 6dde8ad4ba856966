// Package storage defines the notes directory file-system abstraction.
package storage

import "github.com/starford/zklink/internal/models"

// Provider is the interface for notes directory file operations.
type Provider interface {
	// Root returns the absolute root directory.
	Root() string
	// Rel converts an absolute path below the root to a root-relative one.
	Rel(abs string) (string, error)
	// List returns metadata for every .md file under dir (relative to root).
	List(dir string) ([]models.NoteMetadata, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to root).
	Delete(path string) error
}
