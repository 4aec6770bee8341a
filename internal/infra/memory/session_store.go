package memory

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"live-session-service/internal/aggregate"
	"live-session-service/internal/domain"
)

// SessionLoader fetches authored sessions from a backing store
// (e.g. Postgres JSONB).
type SessionLoader interface {
	LoadSession(ctx context.Context, sessionID string) (*domain.Session, error)
}

// SessionStore is the authoritative in-process live state of sessions.
// A single logical owner process serializes transitions per session;
// all mutations go through compare-and-swap methods guarded by a
// per-session lock held only for the duration of the swap.
type SessionStore struct {
	loader SessionLoader
	sf     singleflight.Group
	clock  func() time.Time

	mu       sync.RWMutex
	sessions map[string]*liveSession
}

type liveSession struct {
	mu   sync.Mutex
	sess *domain.Session
}

func NewSessionStore(loader SessionLoader) *SessionStore {
	return &SessionStore{
		loader:   loader,
		clock:    time.Now,
		sessions: make(map[string]*liveSession),
	}
}

// Put seeds or replaces a session's live state directly.
func (s *SessionStore) Put(sess *domain.Session) {
	normalizeSession(sess)
	s.mu.Lock()
	s.sessions[sess.ID] = &liveSession{sess: sess.Clone()}
	s.mu.Unlock()
}

// GetSession returns a deep snapshot, faulting authored sessions in
// from the loader on first access. Concurrent first accesses share one
// load via singleflight.
func (s *SessionStore) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	live, err := s.live(ctx, id)
	if err != nil {
		return nil, err
	}
	live.mu.Lock()
	defer live.mu.Unlock()
	return live.sess.Clone(), nil
}

func (s *SessionStore) CompareAndSwapSessionStatus(ctx context.Context, sessionID string, from, to domain.SessionStatus) error {
	live, err := s.live(ctx, sessionID)
	if err != nil {
		return err
	}
	live.mu.Lock()
	defer live.mu.Unlock()
	if live.sess.Status != from {
		return domain.ErrStatusConflict
	}
	live.sess.Status = to
	switch to {
	case domain.SessionRunning:
		live.sess.StartedAt = s.clock()
	case domain.SessionCompleted:
		live.sess.FinishedAt = s.clock()
	}
	return nil
}

func (s *SessionStore) CompareAndSwapBlockStatus(ctx context.Context, sessionID, blockID string, from, to domain.BlockStatus) error {
	live, err := s.live(ctx, sessionID)
	if err != nil {
		return err
	}
	live.mu.Lock()
	defer live.mu.Unlock()
	block := live.sess.Block(blockID)
	if block == nil {
		return domain.ErrBlockNotFound
	}
	if block.Status != from {
		return domain.ErrStatusConflict
	}
	block.Status = to
	return nil
}

func (s *SessionStore) CompareAndSwapActiveBlock(ctx context.Context, sessionID, expected, next string) error {
	live, err := s.live(ctx, sessionID)
	if err != nil {
		return err
	}
	live.mu.Lock()
	defer live.mu.Unlock()
	if live.sess.ActiveBlockID != expected {
		return domain.ErrStatusConflict
	}
	live.sess.ActiveBlockID = next
	return nil
}

func (s *SessionStore) CompareAndSwapResults(ctx context.Context, sessionID, instanceID string, expectedVersion int64, next domain.ElementResults) error {
	live, err := s.live(ctx, sessionID)
	if err != nil {
		return err
	}
	live.mu.Lock()
	defer live.mu.Unlock()
	instance, _ := live.sess.Instance(instanceID)
	if instance == nil {
		return domain.ErrInstanceNotFound
	}
	if instance.Results.Version != expectedVersion {
		return domain.ErrVersionConflict
	}
	instance.Results = next.Clone()
	return nil
}

func (s *SessionStore) live(ctx context.Context, id string) (*liveSession, error) {
	s.mu.RLock()
	live, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return live, nil
	}
	if s.loader == nil {
		return nil, domain.ErrSessionNotFound
	}

	result, err, _ := s.sf.Do(id, func() (interface{}, error) {
		s.mu.RLock()
		live, ok := s.sessions[id]
		s.mu.RUnlock()
		if ok {
			return live, nil
		}

		sess, err := s.loader.LoadSession(ctx, id)
		if err != nil {
			return nil, err
		}
		normalizeSession(sess)
		live = &liveSession{sess: sess}
		s.mu.Lock()
		s.sessions[id] = live
		s.mu.Unlock()
		return live, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*liveSession), nil
}

// normalizeSession fills defaults an authoring payload may omit: the
// PREPARED/SCHEDULED statuses and the zero aggregate per instance type.
func normalizeSession(sess *domain.Session) {
	if sess.Status == "" {
		sess.Status = domain.SessionPrepared
	}
	for _, b := range sess.Blocks {
		if b.Status == "" {
			b.Status = domain.BlockScheduled
		}
		for _, in := range b.Instances {
			in.BlockID = b.ID
			if in.Results.Choices == nil && in.Results.Responses == nil && in.Results.Total == 0 && in.Results.Viewed == 0 {
				in.Results = aggregate.Initial(in.Type, len(in.Question.Choices))
			}
		}
	}
}

// StaticSessionLoader serves authored sessions from a map (tests/demos).
type StaticSessionLoader struct {
	sessions map[string]*domain.Session
}

func NewStaticSessionLoader(sessions map[string]*domain.Session) *StaticSessionLoader {
	return &StaticSessionLoader{sessions: sessions}
}

func (l *StaticSessionLoader) LoadSession(_ context.Context, sessionID string) (*domain.Session, error) {
	if sess, ok := l.sessions[sessionID]; ok {
		return sess.Clone(), nil
	}
	return nil, domain.ErrSessionNotFound
}
