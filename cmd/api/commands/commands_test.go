package commands

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/songlist/editor/internal/adapters/repository"
	"github.com/songlist/editor/internal/infrastructure/config"
	"github.com/songlist/editor/internal/infrastructure/logger"
)

func TestNewRepository_FileBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "songs.json")
	cfg := &config.Config{Storage: config.StorageConfig{Backend: config.BackendFile, FilePath: path}}

	repo, closeRepo, err := newRepository(context.Background(), cfg, logger.NewNop())
	if err != nil {
		t.Fatalf("Unexpected error: %s", err)
	}
	defer closeRepo()

	fileRepo, ok := repo.(*repository.FileRepositoryImpl)
	if !ok {
		t.Fatalf("Expected a file repository, got %T", repo)
	}
	if fileRepo.Path() != path {
		t.Errorf("Expected path %s, got %s", path, fileRepo.Path())
	}
}
