package domain

import "context"

// GraphStore is a minimal abstraction over durable backends holding the
// canonical graph document. It lets a process start from a stored graph
// instead of rebuilding it from the external knowledge base.
type GraphStore interface {
	// Load returns the stored document or ErrGraphNotStored.
	Load(ctx context.Context) (GraphDocument, error)
	// Store replaces the stored document.
	Store(ctx context.Context, doc GraphDocument) error
}
