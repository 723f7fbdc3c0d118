package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"dinecall/internal/metrics"
)

const (
	keyPrefix      = "dinecall:session:"
	activeSetKey   = "dinecall:active_sessions"
	pendingTimeout = 5 * time.Minute
)

type Config struct {
	IdleTimeout        time.Duration
	DashboardRetention time.Duration
	MaxSessions        int
}

type retained struct {
	view      View
	expiresAt time.Time
}

type pendingCaller struct {
	number string
	at     time.Time
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// Store owns every session in the process. Sessions are independent; access
// to one id is serialized with Lock while other ids proceed concurrently.
// A non-nil Redis client mirrors dashboard views so they survive restarts.
type Store struct {
	mu      sync.RWMutex
	active  map[string]*Session
	ended   map[string]retained
	pending map[string]pendingCaller
	lockMu  sync.Mutex
	locks   map[string]*sessionLock
	rdb     *redis.Client
	cfg     Config
	log     *zap.Logger
	now     func() time.Time
}

func NewStore(cfg Config, rdb *redis.Client, log *zap.Logger) *Store {
	return &Store{
		active:  make(map[string]*Session),
		ended:   make(map[string]retained),
		pending: make(map[string]pendingCaller),
		locks:   make(map[string]*sessionLock),
		rdb:     rdb,
		cfg:     cfg,
		log:     log,
		now:     time.Now,
	}
}

// Lock serializes work on one session id. The returned func releases it.
func (s *Store) Lock(id string) func() {
	s.lockMu.Lock()
	l := s.locks[id]
	if l == nil {
		l = &sessionLock{}
		s.locks[id] = l
	}
	l.refs++
	s.lockMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.lockMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.lockMu.Unlock()
	}
}

// RememberCaller records the caller number for a call that has not started
// its conversation yet (TwiML webhook arrives before the websocket).
func (s *Store) RememberCaller(id, number string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[id] = pendingCaller{number: number, at: s.now()}
}

// GetOrCreate returns a copy of the session, creating it on first use.
func (s *Store) GetOrCreate(ctx context.Context, id string) (*Session, bool, error) {
	s.mu.Lock()
	if sess, ok := s.active[id]; ok {
		c := sess.Clone()
		s.mu.Unlock()
		return c, false, nil
	}
	if _, ok := s.ended[id]; ok {
		s.mu.Unlock()
		return nil, false, ErrSessionClosed
	}
	if s.cfg.MaxSessions > 0 && len(s.active) >= s.cfg.MaxSessions {
		s.mu.Unlock()
		return nil, false, ErrCapacity
	}
	caller := s.pending[id].number
	delete(s.pending, id)
	sess := New(id, caller, s.now())
	s.active[id] = sess
	metrics.ActiveSessions.Set(float64(len(s.active)))
	view := sess.View()
	s.mu.Unlock()

	s.mirror(ctx, view, s.cfg.IdleTimeout+s.cfg.DashboardRetention)
	return sess.Clone(), true, nil
}

// Put stores a copy of sess. Writes for a call that already ended are
// rejected so an abandoned turn cannot resurrect it.
func (s *Store) Put(ctx context.Context, sess *Session) error {
	s.mu.Lock()
	if _, ok := s.active[sess.ID]; !ok {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	c := sess.Clone()
	c.LastActivity = s.now()
	s.active[sess.ID] = c
	view := c.View()
	s.mu.Unlock()

	s.mirror(ctx, view, s.cfg.IdleTimeout+s.cfg.DashboardRetention)
	return nil
}

// Evict ends the call. The dashboard view stays readable for the retention window.
func (s *Store) Evict(ctx context.Context, id string) {
	s.mu.Lock()
	sess, ok := s.active[id]
	if !ok {
		delete(s.pending, id)
		s.mu.Unlock()
		return
	}
	delete(s.active, id)
	now := s.now()
	sess.EndedAt = now
	view := sess.View()
	s.ended[id] = retained{view: view, expiresAt: now.Add(s.cfg.DashboardRetention)}
	metrics.ActiveSessions.Set(float64(len(s.active)))
	s.mu.Unlock()

	s.mirror(ctx, view, s.cfg.DashboardRetention)
	if s.rdb != nil {
		s.rdb.SRem(ctx, activeSetKey, id)
	}
}

// GetForDashboard returns the read-only view or ErrSessionNotFound.
func (s *Store) GetForDashboard(ctx context.Context, id string) (View, error) {
	s.mu.RLock()
	if sess, ok := s.active[id]; ok {
		v := sess.View()
		s.mu.RUnlock()
		return v, nil
	}
	r, ok := s.ended[id]
	s.mu.RUnlock()
	if ok && s.now().Before(r.expiresAt) {
		return r.view, nil
	}
	if ok {
		return View{}, ErrSessionNotFound
	}

	if s.rdb == nil {
		return View{}, ErrSessionNotFound
	}
	raw, err := s.rdb.HGet(ctx, keyPrefix+id, "view").Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn("dashboard mirror read failed", zap.String("session_id", id), zap.Error(err))
		}
		return View{}, ErrSessionNotFound
	}
	var v View
	if err := sonic.Unmarshal(raw, &v); err != nil {
		return View{}, ErrSessionNotFound
	}
	return v, nil
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.active)
}

// CleanupExpired evicts idle sessions and forgets views past retention.
// It returns the ids evicted for idleness.
func (s *Store) CleanupExpired(ctx context.Context) []string {
	now := s.now()
	var idle []string

	s.mu.Lock()
	for id, sess := range s.active {
		if s.cfg.IdleTimeout > 0 && now.Sub(sess.LastActivity) > s.cfg.IdleTimeout {
			idle = append(idle, id)
		}
	}
	for id, r := range s.ended {
		if !now.Before(r.expiresAt) {
			delete(s.ended, id)
		}
	}
	for id, p := range s.pending {
		if now.Sub(p.at) > pendingTimeout {
			delete(s.pending, id)
		}
	}
	s.mu.Unlock()

	for _, id := range idle {
		s.log.Info("evicting idle session", zap.String("session_id", id))
		s.Evict(ctx, id)
	}
	return idle
}

// StartCleanupRoutine runs CleanupExpired on every tick until ctx is done.
func (s *Store) StartCleanupRoutine(ctx context.Context, interval time.Duration, onEvict func(id string)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, id := range s.CleanupExpired(ctx) {
				if onEvict != nil {
					onEvict(id)
				}
			}
		}
	}
}

func (s *Store) mirror(ctx context.Context, v View, ttl time.Duration) {
	if s.rdb == nil {
		return
	}
	payload, err := sonic.Marshal(v)
	if err != nil {
		s.log.Warn("encode dashboard view", zap.String("session_id", v.ID), zap.Error(err))
		return
	}
	key := keyPrefix + v.ID
	status := "active"
	if v.Ended {
		status = "ended"
	}
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"state":      string(v.State),
		"status":     status,
		"updated_at": v.UpdatedAt.Format(time.RFC3339),
		"view":       payload,
	})
	if !v.Ended {
		pipe.SAdd(ctx, activeSetKey, v.ID)
	}
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn("dashboard mirror write failed", zap.String("session_id", v.ID), zap.Error(err))
	}
}
