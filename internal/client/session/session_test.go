package session_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/go-test/deep"
	"github.com/golang/mock/gomock"

	"github.com/songlist/editor/internal/client/remote"
	"github.com/songlist/editor/internal/client/session"
	"github.com/songlist/editor/internal/domain/entities"
	"github.com/songlist/editor/internal/infrastructure/logger"
	"github.com/songlist/editor/internal/mocks"
)

// memoryStore acts like the server: whole-document reads and overwrites
type memoryStore struct {
	mu     sync.Mutex
	stored entities.Collection
	puts   []entities.Collection
}

func (m *memoryStore) FetchCollection(ctx context.Context) (*entities.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	songs := make(entities.Collection, len(m.stored))
	copy(songs, m.stored)
	return &entities.Document{Songs: songs}, nil
}

func (m *memoryStore) PutCollection(ctx context.Context, songs entities.Collection) (*entities.Ack, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stored = songs
	m.puts = append(m.puts, songs)
	return &entities.Ack{OK: true}, nil
}

func song(id any, title string) entities.Song {
	return entities.Song{"id": id, "title": title}
}

func titles(songs entities.Collection) []string {
	out := make([]string, 0, len(songs))
	for _, s := range songs {
		title, _ := s["title"].(string)
		out = append(out, title)
	}
	return out
}

func TestAdd_AppendsInOrder(t *testing.T) {
	store := &memoryStore{}
	uut := session.New(store, logger.NewNop())
	ctx := context.Background()

	if err := uut.Add(ctx, song(1, "A")).Wait(); err != nil {
		t.Fatalf("Unexpected save error: %s", err)
	}
	if err := uut.Add(ctx, song(2, "B")).Wait(); err != nil {
		t.Fatalf("Unexpected save error: %s", err)
	}

	expected := entities.Collection{song(1, "A"), song(2, "B")}
	if diff := deep.Equal(uut.Songs(), expected); diff != nil {
		t.Errorf("Unexpected collection: %v", diff)
	}
	if diff := deep.Equal(store.stored, expected); diff != nil {
		t.Errorf("Unexpected stored collection: %v", diff)
	}
}

func TestAdd_VisibleBeforeSaveCompletes(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	release := make(chan struct{})
	store := mocks.NewMockRemoteStore(ctrl)
	store.EXPECT().
		PutCollection(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, songs entities.Collection) (*entities.Ack, error) {
			<-release
			return &entities.Ack{OK: true}, nil
		})

	uut := session.New(store, logger.NewNop())
	task := uut.Add(context.Background(), song(1, "A"))

	if got := len(uut.Songs()); got != 1 {
		t.Errorf("Expected the song to be visible immediately, got %d songs", got)
	}
	select {
	case <-task.Done():
		t.Errorf("Expected save to still be running")
	default:
	}
	if task.Err() != nil {
		t.Errorf("Expected no error while the save is running")
	}

	close(release)
	if err := task.Wait(); err != nil {
		t.Errorf("Unexpected save error: %s", err)
	}
}

func TestUpdate_PreservesPosition(t *testing.T) {
	store := &memoryStore{stored: entities.Collection{song(1, "A"), song(2, "B"), song(3, "C")}}
	uut := session.New(store, logger.NewNop())
	ctx := context.Background()

	if err := uut.Load(ctx); err != nil {
		t.Fatalf("Unexpected load error: %s", err)
	}
	uut.Update(ctx, song(2, "B2")).Wait()

	if diff := deep.Equal(titles(uut.Songs()), []string{"A", "B2", "C"}); diff != nil {
		t.Errorf("Unexpected order: %v", diff)
	}
}

func TestUpdate_UnknownIDIsNoOp(t *testing.T) {
	store := &memoryStore{stored: entities.Collection{song(1, "A")}}
	uut := session.New(store, logger.NewNop())
	ctx := context.Background()
	uut.Load(ctx)

	if err := uut.Update(ctx, song(99, "Z")).Wait(); err != nil {
		t.Errorf("Expected no error for an unknown id, got %s", err)
	}

	if diff := deep.Equal(uut.Songs(), entities.Collection{song(1, "A")}); diff != nil {
		t.Errorf("Expected collection unchanged: %v", diff)
	}
	if len(store.puts) != 1 {
		t.Errorf("Expected a save even for an unknown id, got %d", len(store.puts))
	}
}

func TestUpdate_FirstMatchOnly(t *testing.T) {
	store := &memoryStore{stored: entities.Collection{song(1, "A"), song(1, "A-dup")}}
	uut := session.New(store, logger.NewNop())
	ctx := context.Background()
	uut.Load(ctx)

	uut.Update(ctx, song(1, "A2")).Wait()

	if diff := deep.Equal(titles(uut.Songs()), []string{"A2", "A-dup"}); diff != nil {
		t.Errorf("Expected only the first duplicate replaced: %v", diff)
	}
}

func TestUpdate_StrictIDEquality(t *testing.T) {
	store := &memoryStore{stored: entities.Collection{song(1, "A")}}
	uut := session.New(store, logger.NewNop())
	ctx := context.Background()
	uut.Load(ctx)

	uut.Update(ctx, song("1", "string id")).Wait()

	if diff := deep.Equal(titles(uut.Songs()), []string{"A"}); diff != nil {
		t.Errorf("Expected id \"1\" not to match id 1: %v", diff)
	}
}

func TestUpdate_RefreshesActiveSelection(t *testing.T) {
	store := &memoryStore{stored: entities.Collection{song(1, "A"), song(2, "B")}}
	uut := session.New(store, logger.NewNop())
	ctx := context.Background()
	uut.Load(ctx)
	uut.SetActive(uut.Songs()[0])

	uut.Update(ctx, song(1, "A2")).Wait()

	active, ok := uut.Active()
	if !ok || active["title"] != "A2" {
		t.Errorf("Expected active selection to carry the new payload, got %v", active)
	}

	uut.Update(ctx, song(2, "B2")).Wait()

	active, _ = uut.Active()
	if active["title"] != "A2" {
		t.Errorf("Expected active selection unchanged by another id, got %v", active)
	}
}

func TestDelete_RemovesEveryMatch(t *testing.T) {
	store := &memoryStore{stored: entities.Collection{song(1, "A"), song(2, "B"), song(1, "A-dup"), song(3, "C")}}
	uut := session.New(store, logger.NewNop())
	ctx := context.Background()
	uut.Load(ctx)

	if err := uut.Delete(ctx, entities.IDOf(1)).Wait(); err != nil {
		t.Fatalf("Unexpected save error: %s", err)
	}

	if diff := deep.Equal(titles(uut.Songs()), []string{"B", "C"}); diff != nil {
		t.Errorf("Expected every id 1 removed: %v", diff)
	}
	if diff := deep.Equal(titles(store.stored), []string{"B", "C"}); diff != nil {
		t.Errorf("Expected deletion persisted: %v", diff)
	}
}

func TestDelete_ClearsMatchingActiveSelection(t *testing.T) {
	store := &memoryStore{stored: entities.Collection{song(1, "A"), song(2, "B")}}
	uut := session.New(store, logger.NewNop())
	ctx := context.Background()
	uut.Load(ctx)

	uut.SetActive(song(2, "B"))
	uut.Delete(ctx, entities.IDOf(1)).Wait()
	if _, ok := uut.Active(); !ok {
		t.Errorf("Expected active selection kept when another id is deleted")
	}

	uut.Delete(ctx, entities.IDOf(2)).Wait()
	if _, ok := uut.Active(); ok {
		t.Errorf("Expected active selection cleared")
	}
}

func TestMixedSequence_Order(t *testing.T) {
	store := &memoryStore{}
	uut := session.New(store, logger.NewNop())
	ctx := context.Background()

	uut.Add(ctx, song(1, "A"))
	uut.Add(ctx, song(2, "B"))
	uut.Add(ctx, song(3, "C"))
	uut.Update(ctx, song(1, "A2"))
	uut.Delete(ctx, entities.IDOf(2))
	uut.Add(ctx, song(4, "D"))
	uut.Update(ctx, song(3, "C2"))
	uut.Wait()

	if diff := deep.Equal(titles(uut.Songs()), []string{"A2", "C2", "D"}); diff != nil {
		t.Errorf("Unexpected order: %v", diff)
	}
	if len(store.puts) != 7 {
		t.Errorf("Expected one save per mutation, got %d", len(store.puts))
	}
}

func TestSetActive_NoSideEffects(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockRemoteStore(ctrl)
	store.EXPECT().PutCollection(gomock.Any(), gomock.Any()).Times(0)

	uut := session.New(store, logger.NewNop())
	uut.SetActive(song(42, "not in collection"))

	active, ok := uut.Active()
	if !ok || !active.HasID(entities.IDOf(42)) {
		t.Errorf("Expected any song to be selectable, got %v", active)
	}
	if len(uut.Songs()) != 0 {
		t.Errorf("Expected collection untouched")
	}

	uut.ClearActive()
	if _, ok := uut.Active(); ok {
		t.Errorf("Expected selection cleared")
	}
}

func TestLoad_FailureKeepsCollection(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockRemoteStore(ctrl)
	gomock.InOrder(
		store.EXPECT().FetchCollection(gomock.Any()).Return(&entities.Document{Songs: entities.Collection{song(1, "A")}}, nil),
		store.EXPECT().FetchCollection(gomock.Any()).Return(nil, &remote.RetrievalError{StatusCode: 500}),
	)

	uut := session.New(store, logger.NewNop())
	ctx := context.Background()

	if err := uut.Load(ctx); err != nil {
		t.Fatalf("Unexpected load error: %s", err)
	}

	err := uut.Load(ctx)
	if !remote.IsRetrievalError(err) {
		t.Errorf("Expected RetrievalError, got %v", err)
	}
	if diff := deep.Equal(titles(uut.Songs()), []string{"A"}); diff != nil {
		t.Errorf("Expected collection kept after failed load: %v", diff)
	}
}

func TestLoad_LeavesActiveSelectionStale(t *testing.T) {
	store := &memoryStore{stored: entities.Collection{song(1, "A")}}
	uut := session.New(store, logger.NewNop())
	ctx := context.Background()
	uut.Load(ctx)
	uut.SetActive(uut.Songs()[0])

	store.stored = entities.Collection{song(2, "B")}
	uut.Load(ctx)

	active, ok := uut.Active()
	if !ok || !active.HasID(entities.IDOf(1)) {
		t.Errorf("Expected stale selection to survive a load, got %v", active)
	}
}

func TestSave_FailureDoesNotRollBack(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockRemoteStore(ctrl)
	store.EXPECT().
		PutCollection(gomock.Any(), gomock.Any()).
		Return(nil, &remote.PersistenceError{StatusCode: 500}).
		Times(2)

	uut := session.New(store, logger.NewNop())
	ctx := context.Background()

	err := uut.Add(ctx, song(1, "A")).Wait()
	if !remote.IsPersistenceError(err) {
		t.Errorf("Expected PersistenceError from the save task, got %v", err)
	}
	if len(uut.Songs()) != 1 {
		t.Errorf("Expected optimistic change kept after failed save")
	}

	if err := uut.Save(ctx); !remote.IsPersistenceError(err) {
		t.Errorf("Expected Save to propagate PersistenceError, got %v", err)
	}
}

// orderedStore blocks every put until released, then stores it
type orderedStore struct {
	memoryStore
	arrived chan entities.Collection
	release map[int]chan struct{}
	mu      sync.Mutex
	n       int
}

func (o *orderedStore) PutCollection(ctx context.Context, songs entities.Collection) (*entities.Ack, error) {
	o.mu.Lock()
	gate := o.release[o.n]
	o.n++
	o.mu.Unlock()

	o.arrived <- songs
	<-gate
	return o.memoryStore.PutCollection(ctx, songs)
}

func newOrderedStore() *orderedStore {
	return &orderedStore{
		arrived: make(chan entities.Collection, 2),
		release: map[int]chan struct{}{0: make(chan struct{}), 1: make(chan struct{})},
	}
}

func TestSave_SnapshotsCollectionAtIssue(t *testing.T) {
	store := newOrderedStore()
	uut := session.New(store, logger.NewNop())
	ctx := context.Background()

	first := uut.Add(ctx, song(1, "A"))
	sentFirst := <-store.arrived
	second := uut.Add(ctx, song(2, "B"))
	sentSecond := <-store.arrived

	close(store.release[0])
	close(store.release[1])
	first.Wait()
	second.Wait()

	if diff := deep.Equal(titles(sentFirst), []string{"A"}); diff != nil {
		t.Errorf("Expected the first save to carry the collection as it was when issued: %v", diff)
	}
	if diff := deep.Equal(titles(sentSecond), []string{"A", "B"}); diff != nil {
		t.Errorf("Unexpected second save: %v", diff)
	}
}

func TestOverlappingSaves_LastCompletedWins(t *testing.T) {
	store := newOrderedStore()
	uut := session.New(store, logger.NewNop())
	ctx := context.Background()

	first := uut.Add(ctx, song(1, "A"))
	<-store.arrived
	second := uut.Add(ctx, song(2, "B"))
	<-store.arrived

	// the logically later save lands first
	close(store.release[1])
	if err := second.Wait(); err != nil {
		t.Fatalf("Unexpected save error: %s", err)
	}
	close(store.release[0])
	if err := first.Wait(); err != nil {
		t.Fatalf("Unexpected save error: %s", err)
	}

	if diff := deep.Equal(titles(store.stored), []string{"A"}); diff != nil {
		t.Errorf("Expected the last completed write to be persisted: %v", diff)
	}
	if diff := deep.Equal(titles(uut.Songs()), []string{"A", "B"}); diff != nil {
		t.Errorf("Expected local state to hold the latest mutation: %v", diff)
	}
}

func TestDelete_MatchesDecodedNumericID(t *testing.T) {
	store := &memoryStore{}
	uut := session.New(store, logger.NewNop())
	ctx := context.Background()

	decoded, err := entities.DecodeSong([]byte(`{"id": 3, "title": "C"}`))
	if err != nil {
		t.Fatalf("Unexpected decode error: %s", err)
	}
	uut.Add(ctx, decoded).Wait()

	uut.Delete(ctx, entities.IDOf(3)).Wait()
	if len(uut.Songs()) != 0 {
		t.Errorf("Expected decoded id %v to match numeric id 3", decoded["id"])
	}
	if _, ok := decoded["id"].(json.Number); !ok {
		t.Errorf("Expected decoded ids to stay json.Number, got %T", decoded["id"])
	}
}

func TestSaveTask_ErrBeforeDone(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	boom := errors.New("boom")
	release := make(chan struct{})
	store := mocks.NewMockRemoteStore(ctrl)
	store.EXPECT().
		PutCollection(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, songs entities.Collection) (*entities.Ack, error) {
			<-release
			return nil, boom
		})

	uut := session.New(store, logger.NewNop())
	task := uut.Delete(context.Background(), entities.IDOf(1))
	if task.Err() != nil {
		t.Errorf("Expected nil error before completion")
	}

	close(release)
	<-task.Done()
	if !errors.Is(task.Err(), boom) {
		t.Errorf("Expected save error after completion, got %v", task.Err())
	}
}

func TestSongs_ReturnsIndependentCopies(t *testing.T) {
	store := newOrderedStore()
	uut := session.New(store, logger.NewNop())
	ctx := context.Background()

	task := uut.Add(ctx, entities.Song{"id": 1, "title": "A", "tags": []any{"x"}})
	<-store.arrived
	uut.SetActive(uut.Songs()[0])

	// change every copy handed out while the save is still in flight
	listed := uut.Songs()
	listed[0]["title"] = "listed"
	listed[0]["tags"].([]any)[0] = "y"
	active, _ := uut.Active()
	active["title"] = "active"

	close(store.release[0])
	if err := task.Wait(); err != nil {
		t.Fatalf("Unexpected save error: %s", err)
	}

	expected := entities.Collection{{"id": 1, "title": "A", "tags": []any{"x"}}}
	if diff := deep.Equal(store.stored, expected); diff != nil {
		t.Errorf("Unexpected stored collection: %v", diff)
	}
	if diff := deep.Equal(uut.Songs(), expected); diff != nil {
		t.Errorf("Unexpected session collection: %v", diff)
	}
	if got, _ := uut.Active(); got["title"] != "A" {
		t.Errorf("Expected active selection unaffected, got %v", got)
	}
}
