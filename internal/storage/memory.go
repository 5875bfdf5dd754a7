package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type memorySession struct {
	artifacts map[string]Artifact
	createdAt time.Time
}

// MemoryStore — SessionStore в памяти процесса с фоновой очисткой
// просроченных сессий.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memorySession
	ttl      time.Duration
	logger   zerolog.Logger
	stop     chan struct{}
	stopOnce sync.Once
}

func NewMemoryStore(ttl, cleanupInterval time.Duration, logger zerolog.Logger) *MemoryStore {
	store := &MemoryStore{
		sessions: make(map[string]*memorySession),
		ttl:      ttl,
		logger:   logger,
		stop:     make(chan struct{}),
	}

	if ttl > 0 && cleanupInterval > 0 {
		go store.janitor(cleanupInterval)
	}

	return store
}

func (s *MemoryStore) Create(ctx context.Context) (string, error) {
	id := uuid.New().String()

	s.mu.Lock()
	s.sessions[id] = &memorySession{
		artifacts: make(map[string]Artifact),
		createdAt: time.Now(),
	}
	s.mu.Unlock()

	s.logger.Debug().Str("session_id", id).Msg("Session created")
	return id, nil
}

func (s *MemoryStore) Put(ctx context.Context, sessionID string, artifact Artifact) error {
	if artifact.CreatedAt.IsZero() {
		artifact.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	session.artifacts[artifact.Name] = artifact
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, sessionID, name string) (*Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	artifact, ok := session.artifacts[name]
	if !ok {
		return nil, ErrArtifactNotFound
	}
	return &artifact, nil
}

func (s *MemoryStore) List(ctx context.Context, sessionID string) ([]Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	artifacts := make([]Artifact, 0, len(session.artifacts))
	for _, a := range session.artifacts {
		artifacts = append(artifacts, a)
	}
	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].Name < artifacts[j].Name
	})
	return artifacts, nil
}

// Delete идемпотентен: удаление несуществующей сессии не ошибка.
func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}

// Count возвращает число живых сессий (для /stats).
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *MemoryStore) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *MemoryStore) sweep() {
	cutoff := time.Now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, session := range s.sessions {
		if session.createdAt.Before(cutoff) {
			delete(s.sessions, id)
			s.logger.Debug().Str("session_id", id).Msg("Expired session removed")
		}
	}
}
