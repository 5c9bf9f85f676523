package ports

import (
	"context"
)

//go:generate mockgen -destination=../mocks/mock_ports.go -package=mocks github.com/songlist/editor/internal/ports DocumentRepository,RemoteStore

// DocumentRepository stores the single song document as raw bytes.
// Implementations do no locking: concurrent writers race and the last
// completed write wins.
type DocumentRepository interface {
	// Read returns the stored document. A document that was never written
	// yields an error satisfying errors.Is(err, ErrDocumentNotFound).
	Read(ctx context.Context) ([]byte, error)
	// Write overwrites the whole document.
	Write(ctx context.Context, data []byte) error
	// Name identifies the backend in logs and metrics.
	Name() string
}

// HealthChecker is implemented by repositories that can report reachability
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
