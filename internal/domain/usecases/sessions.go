// Package usecases - sessions.go keeps conversation history per session and
// runs chat turns through the router.
package usecases

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/0xcro3dile/kluagent/internal/domain/entities"
)

const (
	// DefaultMaxSessions bounds the number of live sessions.
	DefaultMaxSessions = 1000
	// DefaultSessionTTL is how long an idle session is kept.
	DefaultSessionTTL = 24 * time.Hour

	untitledSession = "New Chat"
	titleMaxRunes   = 50
)

// QueryRouter answers one query with citations.
type QueryRouter interface {
	RouteQuery(ctx context.Context, query string) entities.RouteResult
}

// SessionStoreConfig sets the lifecycle policy. Zero disables a limit.
type SessionStoreConfig struct {
	MaxSessions int
	TTL         time.Duration
}

// session is one conversation thread.
// turnMu serializes whole turns; mu guards the message list and is only held briefly.
type session struct {
	id        string
	createdAt time.Time

	// inFlight counts running turns; guarded by SessionStore.mu. A pinned session is never evicted or expired.
	inFlight int

	turnMu sync.Mutex

	mu       sync.Mutex
	messages []entities.ChatMessage
	touched  time.Time
}

func (sess *session) lastActivity() time.Time {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.touched
}

// SessionStore owns all in-process sessions. State is lost on restart.
// Lock order: store.mu before session.mu; session.turnMu is never taken while holding either.
type SessionStore struct {
	router QueryRouter
	cfg    SessionStoreConfig
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[string]*session

	now   func() time.Time
	newID func() string
}

// NewSessionStore creates an empty store that answers turns with router.
func NewSessionStore(router QueryRouter, cfg SessionStoreConfig, logger *zap.Logger) *SessionStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionStore{
		router:   router,
		cfg:      cfg,
		logger:   logger.Named("sessions"),
		sessions: make(map[string]*session),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// ResolveSession returns id when it names a live session. Otherwise a new
// session is created under a fresh id; an unknown client id is never adopted.
func (s *SessionStore) ResolveSession(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolveLocked(id).id
}

// pin resolves id and marks the session busy until unpin.
func (s *SessionStore) pin(id string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.resolveLocked(id)
	sess.inFlight++
	return sess
}

func (s *SessionStore) unpin(sess *session) {
	s.mu.Lock()
	sess.inFlight--
	s.mu.Unlock()
}

func (s *SessionStore) resolveLocked(id string) *session {
	if id != "" {
		if sess, ok := s.sessions[id]; ok {
			return sess
		}
	}

	newID := s.newID()
	for _, taken := s.sessions[newID]; taken; _, taken = s.sessions[newID] {
		newID = s.newID()
	}

	if s.cfg.MaxSessions > 0 {
		for len(s.sessions) >= s.cfg.MaxSessions {
			if !s.evictOldestLocked() {
				// every session is mid-turn; go over the limit rather than drop a reply
				break
			}
		}
	}

	now := s.now()
	sess := &session{id: newID, createdAt: now, touched: now}
	s.sessions[newID] = sess
	s.logger.Debug("session created", zap.String("session_id", newID), zap.Int("live", len(s.sessions)))
	return sess
}

func (s *SessionStore) evictOldestLocked() bool {
	var (
		oldestID string
		oldestAt time.Time
	)
	for id, sess := range s.sessions {
		if sess.inFlight > 0 {
			continue
		}
		at := sess.lastActivity()
		if oldestID == "" || at.Before(oldestAt) {
			oldestID, oldestAt = id, at
		}
	}
	if oldestID == "" {
		return false
	}
	delete(s.sessions, oldestID)
	s.logger.Info("session evicted", zap.String("session_id", oldestID), zap.Time("last_activity", oldestAt))
	return true
}

// AppendTurn records the user message, routes it and records the reply.
// Turns on the same session never interleave.
func (s *SessionStore) AppendTurn(ctx context.Context, sessionID, userText string) entities.ChatResult {
	sess := s.pin(sessionID)
	defer s.unpin(sess)

	sess.turnMu.Lock()
	defer sess.turnMu.Unlock()

	sess.append(entities.ChatMessage{
		Role:      entities.RoleUser,
		Content:   userText,
		Sources:   []entities.Citation{},
		Timestamp: s.now(),
	})

	start := time.Now()
	res := s.router.RouteQuery(ctx, userText)
	elapsed := time.Since(start)

	citations := res.Citations
	if citations == nil {
		citations = []entities.Citation{}
	}
	replyAt := s.now()
	sess.append(entities.ChatMessage{
		Role:      entities.RoleAssistant,
		Content:   res.Answer,
		Sources:   citations,
		Timestamp: replyAt,
	})

	if !res.Success {
		s.logger.Warn("turn answered with error",
			zap.String("session_id", sess.id),
			zap.String("kind", string(res.ErrorKind)),
			zap.String("detail", res.ErrorDetail))
	}

	return entities.ChatResult{
		Answer:         res.Answer,
		Sources:        citations,
		SessionID:      sess.id,
		ElapsedSeconds: elapsed.Seconds(),
		Timestamp:      replyAt,
	}
}

func (sess *session) append(msg entities.ChatMessage) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.messages = append(sess.messages, msg)
	if msg.Timestamp.After(sess.touched) {
		sess.touched = msg.Timestamp
	}
}

// GetHistory returns a copy of the session's messages in conversation order.
func (s *SessionStore) GetHistory(sessionID string) ([]entities.ChatMessage, bool) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok {
		return nil, false
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	out := make([]entities.ChatMessage, len(sess.messages))
	copy(out, sess.messages)
	return out, true
}

// ClearHistory deletes the session and reports whether it existed.
func (s *SessionStore) ClearHistory(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return false
	}
	delete(s.sessions, sessionID)
	return true
}

// ListSessions summarizes every session, most recently active first.
func (s *SessionStore) ListSessions() []entities.SessionSummary {
	s.mu.Lock()
	live := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		live = append(live, sess)
	}
	s.mu.Unlock()

	out := make([]entities.SessionSummary, 0, len(live))
	for _, sess := range live {
		out = append(out, sess.summary())
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].LastMessageAt.Equal(out[j].LastMessageAt) {
			return out[i].SessionID < out[j].SessionID
		}
		return out[i].LastMessageAt.After(out[j].LastMessageAt)
	})
	return out
}

func (sess *session) summary() entities.SessionSummary {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	title := untitledSession
	for _, m := range sess.messages {
		if m.Role == entities.RoleUser {
			title = truncateRunes(m.Content, titleMaxRunes)
			if title != m.Content {
				title += "..."
			}
			break
		}
	}

	last := sess.createdAt
	if n := len(sess.messages); n > 0 {
		last = sess.messages[n-1].Timestamp
	}

	return entities.SessionSummary{
		SessionID:     sess.id,
		Title:         title,
		MessageCount:  len(sess.messages),
		CreatedAt:     sess.createdAt,
		LastMessageAt: last,
	}
}

// ExpireIdle removes sessions idle for longer than the TTL and returns how many were removed.
func (s *SessionStore) ExpireIdle() int {
	if s.cfg.TTL <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.cfg.TTL)

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sess := range s.sessions {
		if sess.inFlight == 0 && sess.lastActivity().Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
