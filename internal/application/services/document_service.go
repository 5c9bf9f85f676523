package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/songlist/editor/internal/domain/entities"
	"github.com/songlist/editor/internal/infrastructure/logger"
	"github.com/songlist/editor/internal/infrastructure/metrics"
	"github.com/songlist/editor/internal/ports"
)

// WriteObserver is told about every document this process writes
type WriteObserver interface {
	ObserveWrite(data []byte)
}

// DocumentService reads and overwrites the song document. It has no opinion
// on the document's shape beyond it being JSON.
type DocumentService struct {
	repo     ports.DocumentRepository
	metrics  *metrics.Metrics
	observer WriteObserver
	logger   *logger.Logger
}

// NewDocumentService creates a new document service. m may be nil.
func NewDocumentService(repo ports.DocumentRepository, m *metrics.Metrics, logger *logger.Logger) *DocumentService {
	return &DocumentService{
		repo:    repo,
		metrics: m,
		logger:  logger.WithComponent("document_service"),
	}
}

// SetWriteObserver registers o to be told about successful writes
func (s *DocumentService) SetWriteObserver(o WriteObserver) {
	s.observer = o
}

// Get returns the stored document. Any failure (missing, unreadable, empty or
// corrupt storage) is logged and answered with an empty song list.
func (s *DocumentService) Get(ctx context.Context) []byte {
	start := time.Now()
	data, err := s.repo.Read(ctx)
	s.logger.LogStorageOperation(s.repo.Name(), "read", len(data), msSince(start), err)

	if err != nil {
		if errors.Is(err, ports.ErrDocumentNotFound) {
			s.countRead("missing")
		} else {
			s.countRead("error")
		}
		return entities.EmptyDocument
	}

	var out bytes.Buffer
	if err := json.Compact(&out, data); err != nil || out.Len() == 0 {
		s.logger.Warnw("Stored document is not valid JSON, serving empty list", "backend", s.repo.Name(), "bytes", len(data))
		s.countRead("invalid")
		return entities.EmptyDocument
	}

	s.countRead("ok")
	return out.Bytes()
}

// Put overwrites the stored document with body, pretty-printed. Any JSON value
// is accepted and stored as given.
func (s *DocumentService) Put(ctx context.Context, body []byte) error {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, bytes.TrimSpace(body), "", "  "); err != nil || pretty.Len() == 0 {
		s.countWrite("invalid")
		return fmt.Errorf("%w: %v", entities.ErrInvalidDocument, err)
	}

	start := time.Now()
	err := s.repo.Write(ctx, pretty.Bytes())
	s.logger.LogStorageOperation(s.repo.Name(), "write", pretty.Len(), msSince(start), err)
	if err != nil {
		s.countWrite("error")
		return fmt.Errorf("failed to store document: %w", err)
	}

	s.countWrite("ok")
	if s.metrics != nil {
		s.metrics.DocumentBytes.Set(float64(pretty.Len()))
	}
	if s.observer != nil {
		s.observer.ObserveWrite(pretty.Bytes())
	}

	return nil
}

// Ready reports whether the backend is reachable, when it can tell
func (s *DocumentService) Ready(ctx context.Context) error {
	hc, ok := s.repo.(ports.HealthChecker)
	if !ok {
		return nil
	}
	return hc.HealthCheck(ctx)
}

// Backend names the storage backend
func (s *DocumentService) Backend() string {
	return s.repo.Name()
}

func (s *DocumentService) countRead(result string) {
	if s.metrics != nil {
		s.metrics.DocumentReads.WithLabelValues(s.repo.Name(), result).Inc()
	}
}

func (s *DocumentService) countWrite(result string) {
	if s.metrics != nil {
		s.metrics.DocumentWrites.WithLabelValues(s.repo.Name(), result).Inc()
	}
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Nanoseconds()) / 1000000
}
