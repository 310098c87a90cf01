package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"squarecrop/crop"
)

var errSessionNotFound = errors.New("crop session not found")

// Session is one crop interaction over a single image. The engine is not
// concurrency safe, so every call goes through the session lock.
type Session struct {
	ID       string
	Filename string

	mu     sync.Mutex
	engine *crop.Engine
}

type sessionView struct {
	ID        string          `json:"id"`
	Filename  string          `json:"filename"`
	Phase     crop.Phase      `json:"phase"`
	Source    crop.Dimensions `json:"source"`
	Rect      crop.Rect       `json:"rect"`
	Frame     crop.Frame      `json:"frame"`
	Settled   bool            `json:"settled"`
	Result    *crop.Result    `json:"result,omitempty"`
	Operation *Operation      `json:"operation,omitempty"`
}

// Do runs fn with exclusive access to the engine.
func (s *Session) Do(fn func(e *crop.Engine) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.engine)
}

// view must be called with the lock held.
func (s *Session) view() sessionView {
	return sessionView{
		ID:       s.ID,
		Filename: s.Filename,
		Phase:    s.engine.Phase(),
		Source:   s.engine.Source(),
		Rect:     s.engine.Rect(),
		Frame:    s.engine.Frame(),
		Settled:  s.engine.Settled(),
	}
}

// SessionStore keeps crop sessions in memory and drops idle ones.
type SessionStore struct {
	sessions    *cache.Cache
	calibration crop.Calibration
	oriented    crop.Prober
	header      crop.Prober
}

func NewSessionStore(ttl time.Duration, cal crop.Calibration, oriented, header crop.Prober) *SessionStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SessionStore{
		sessions:    cache.New(ttl, ttl/2),
		calibration: cal,
		oriented:    oriented,
		header:      header,
	}
}

// Start opens a session for the image at path. filename is the name the
// client knows the image by.
func (s *SessionStore) Start(ctx context.Context, filename, path string) (*Session, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}

	sess := &Session{
		ID:       id.String(),
		Filename: filename,
		engine:   crop.NewEngine(ctx, s.calibration),
	}
	if _, err := sess.engine.EstablishSourceDimensions(ctx, path, s.oriented, s.header); err != nil {
		return nil, err
	}

	s.sessions.SetDefault(sess.ID, sess)
	log.Ctx(ctx).Debug().Str("session", sess.ID).Str("filename", filename).Msg("crop session started")
	return sess, nil
}

// Get returns a live session and refreshes its expiry.
func (s *SessionStore) Get(id string) (*Session, error) {
	v, ok := s.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", errSessionNotFound, id)
	}
	sess := v.(*Session)
	if err := s.touch(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// touch restarts the expiry of a stored session. Replace fails once the
// session was cancelled or expired, so a lookup racing a Cancel never
// puts the session back.
func (s *SessionStore) touch(sess *Session) error {
	if err := s.sessions.Replace(sess.ID, sess, cache.DefaultExpiration); err != nil {
		return fmt.Errorf("%w: %s", errSessionNotFound, sess.ID)
	}
	return nil
}

// Cancel discards a session's geometry and forgets it.
func (s *SessionStore) Cancel(id string) error {
	sess, err := s.Get(id)
	if err != nil {
		return err
	}
	_ = sess.Do(func(e *crop.Engine) error {
		e.Cancel()
		return nil
	})
	s.sessions.Delete(id)
	return nil
}

func (s *SessionStore) Len() int {
	return s.sessions.ItemCount()
}
