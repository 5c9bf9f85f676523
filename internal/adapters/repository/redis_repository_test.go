package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/songlist/editor/internal/ports"
)

// fakeRedis keeps keys in memory
type fakeRedis struct {
	values  map[string]string
	setErr  error
	pingErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	f.values[key] = string(value.([]byte))
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Ping(ctx context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", f.pingErr)
}

func TestRedisRepository_ReadMissing(t *testing.T) {
	repo := NewRedisRepository(newFakeRedis(), "songlist:songs")

	_, err := repo.Read(context.Background())
	if !errors.Is(err, ports.ErrDocumentNotFound) {
		t.Errorf("Expected ErrDocumentNotFound, got %v", err)
	}
}

func TestRedisRepository_WriteThenRead(t *testing.T) {
	client := newFakeRedis()
	repo := NewRedisRepository(client, "songlist:songs")
	ctx := context.Background()

	if err := repo.Write(ctx, []byte(`{"songs":[]}`)); err != nil {
		t.Fatalf("Unexpected error writing key: %s", err)
	}

	got, err := repo.Read(ctx)
	if err != nil {
		t.Fatalf("Unexpected error reading key: %s", err)
	}
	if string(got) != `{"songs":[]}` {
		t.Errorf("Expected stored document, got %s", got)
	}
	if _, ok := client.values["songlist:songs"]; !ok {
		t.Errorf("Expected the configured key to be used")
	}
}

func TestRedisRepository_Errors(t *testing.T) {
	client := newFakeRedis()
	client.setErr = errors.New("READONLY")
	client.pingErr = errors.New("connection refused")
	repo := NewRedisRepository(client, "songlist:songs")

	if err := repo.Write(context.Background(), []byte(`{}`)); !errors.Is(err, client.setErr) {
		t.Errorf("Expected wrapped set error, got %v", err)
	}
	if err := repo.HealthCheck(context.Background()); err == nil {
		t.Errorf("Expected health check error")
	}
}
