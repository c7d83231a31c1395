// Package mirror keeps the document-store copy of institutions, campaigns and
// donations in step with the relational database.
//
// Every relational change records an outbox entry in the same transaction.
// The Relay delivers those entries to a Mirror, one document at a time and in
// the order they were recorded, retrying failures with backoff.
package mirror

import (
	"context"
	"errors"
)

// Mirror collections.
const (
	CollectionInstitutions = "institutions"
	CollectionCampaigns    = "campaigns"
	CollectionDonations    = "donations"
)

// ErrDocumentMissing is returned by Update when the target document does not
// exist in the mirror.
var ErrDocumentMissing = errors.New("mirror document does not exist")

// Mirror is a write-through document store.
type Mirror interface {
	// Set creates or replaces the document with the given fields.
	Set(ctx context.Context, collection, id string, doc map[string]any) error
	// Update merges fields into an existing document.
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	// Delete removes the document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error
	// Close releases the underlying connection.
	Close(ctx context.Context) error
}
