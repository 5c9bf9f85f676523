package ports

import (
	"context"
	"errors"

	"github.com/songlist/editor/internal/domain/entities"
)

// ErrDocumentNotFound is returned by repositories when nothing was stored yet
var ErrDocumentNotFound = errors.New("document not found")

// DocumentService serves the song document over HTTP
type DocumentService interface {
	// Get never fails: unreadable storage degrades to an empty collection.
	Get(ctx context.Context) []byte
	Put(ctx context.Context, body []byte) error
}

// RemoteStore is the client's view of the server: one full read, one full
// overwrite.
type RemoteStore interface {
	FetchCollection(ctx context.Context) (*entities.Document, error)
	PutCollection(ctx context.Context, songs entities.Collection) (*entities.Ack, error)
}
