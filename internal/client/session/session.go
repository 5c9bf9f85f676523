// Package session holds one client's copy of the song collection and its
// active selection. Every mutation is applied locally first and then the whole
// collection is saved; the save is not awaited unless the caller asks.
package session

import (
	"context"
	"sync"

	"github.com/songlist/editor/internal/domain/entities"
	"github.com/songlist/editor/internal/infrastructure/logger"
	"github.com/songlist/editor/internal/ports"
)

// Session is the state container of a single client session
type Session struct {
	store  ports.RemoteStore
	logger *logger.Logger

	mu     sync.RWMutex
	songs  entities.Collection
	active entities.Song

	inflight sync.WaitGroup
}

// New creates an empty session backed by store
func New(store ports.RemoteStore, logger *logger.Logger) *Session {
	return &Session{
		store:  store,
		logger: logger.WithComponent("session"),
		songs:  entities.Collection{},
	}
}

// Songs returns a copy of the collection in display order. The songs are
// copies too; changing them does not touch the session.
func (s *Session) Songs() entities.Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshot()
}

// Active returns the active selection, if any
func (s *Session) Active() (entities.Song, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.active.Clone(), s.active != nil
}

// Load replaces the collection with the server's. The active selection is
// not revalidated and may point at a song that no longer exists. On failure
// the collection is left as it was.
func (s *Session) Load(ctx context.Context) error {
	doc, err := s.store.FetchCollection(ctx)
	if err != nil {
		return err
	}

	songs := make(entities.Collection, len(doc.Songs))
	for i, song := range doc.Songs {
		songs[i] = song.Clone()
	}

	s.mu.Lock()
	s.songs = songs
	s.mu.Unlock()

	s.logger.Debugw("Collection loaded", "songs", len(doc.Songs))
	return nil
}

// Save writes the current collection to the server. Local state is never
// rolled back when it fails.
func (s *Session) Save(ctx context.Context) error {
	s.mu.RLock()
	songs := s.snapshot()
	s.mu.RUnlock()

	return s.put(ctx, songs)
}

// SetActive replaces the active selection. song need not be in the collection.
func (s *Session) SetActive(song entities.Song) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = song.Clone()
}

// ClearActive drops the active selection
func (s *Session) ClearActive() {
	s.SetActive(nil)
}

// Add appends song and starts a save
func (s *Session) Add(ctx context.Context, song entities.Song) *SaveTask {
	song = song.Clone()

	s.mu.Lock()
	s.songs = append(s.songs, song)
	songs := s.snapshot()
	s.mu.Unlock()

	return s.startSave(ctx, songs)
}

// Update replaces the first song with song's id, keeping its position. An
// unknown id changes nothing but a save is still started.
func (s *Session) Update(ctx context.Context, song entities.Song) *SaveTask {
	id := song.ID()
	song = song.Clone()

	s.mu.Lock()
	for i := range s.songs {
		if s.songs[i].HasID(id) {
			s.songs[i] = song
			if s.active != nil && s.active.HasID(id) {
				s.active = song.Clone()
			}
			break
		}
	}
	songs := s.snapshot()
	s.mu.Unlock()

	return s.startSave(ctx, songs)
}

// Delete removes every song with id, clears a matching active selection and
// starts a save.
func (s *Session) Delete(ctx context.Context, id entities.ID) *SaveTask {
	s.mu.Lock()
	kept := make(entities.Collection, 0, len(s.songs))
	for _, song := range s.songs {
		if !song.HasID(id) {
			kept = append(kept, song)
		}
	}
	s.songs = kept
	if s.active != nil && s.active.HasID(id) {
		s.active = nil
	}
	songs := s.snapshot()
	s.mu.Unlock()

	return s.startSave(ctx, songs)
}

// Wait blocks until every save started by a mutation has finished
func (s *Session) Wait() {
	s.inflight.Wait()
}

// startSave issues the save in the background. Saves are neither queued nor
// coalesced, so overlapping saves may land out of order.
func (s *Session) startSave(ctx context.Context, songs entities.Collection) *SaveTask {
	task := newSaveTask()
	s.inflight.Add(1)

	go func() {
		defer s.inflight.Done()

		err := s.put(ctx, songs)
		if err != nil {
			s.logger.Warnw("Background save failed, local changes are not persisted", "error", err, "songs", len(songs))
		}
		task.finish(err)
	}()

	return task
}

func (s *Session) put(ctx context.Context, songs entities.Collection) error {
	_, err := s.store.PutCollection(ctx, songs)
	return err
}

// snapshot deep-copies the collection; callers hold mu
func (s *Session) snapshot() entities.Collection {
	out := make(entities.Collection, len(s.songs))
	for i, song := range s.songs {
		out[i] = song.Clone()
	}
	return out
}
