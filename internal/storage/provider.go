// Package storage persists the tally document.
package storage

import (
	"context"

	"github.com/starford/devtally/internal/models"
)

// Provider loads and saves the whole tally document. Every command reloads
// the document, mutates it in memory and saves it back in a single call.
type Provider interface {
	// Load returns the persisted document, or an empty one if nothing has
	// been saved yet.
	Load(ctx context.Context) (models.Document, error)
	// Save replaces the persisted document with doc.
	Save(ctx context.Context, doc models.Document) error
}
