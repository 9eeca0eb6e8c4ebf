package shared

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "bizdesk:session:"

// FlashMessage represents a one-time notification stored in session.
type FlashMessage struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// SessionManager stores cookie sessions in Redis.
type SessionManager struct {
	client     *redis.Client
	cookieName string
	ttl        time.Duration
	secure     bool
}

// Session holds per-request session state.
type Session struct {
	ID        string
	values    map[string]string
	userID    string
	email     string
	flashes   []FlashMessage
	isNew     bool
	dirty     bool
	destroyed bool
	// previousID is deleted from Redis on the next commit after Renew.
	previousID string
}

type sessionPayload struct {
	Values  map[string]string `json:"values"`
	UserID  string            `json:"user_id"`
	Email   string            `json:"email,omitempty"`
	Flashes []FlashMessage    `json:"flashes,omitempty"`
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(client *redis.Client, cookieName string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{
		client:     client,
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
	}
}

// Load returns the session referenced by the request cookie or a fresh one.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(sm.cookieName)
	if errors.Is(err, http.ErrNoCookie) || (err == nil && cookie.Value == "") {
		return sm.newSession(), nil
	}
	if err != nil {
		return nil, err
	}

	raw, err := sm.client.Get(ctx, sessionKeyPrefix+cookie.Value).Bytes()
	if errors.Is(err, redis.Nil) {
		// Expired or unknown id: rotate instead of trusting a client chosen id.
		return sm.newSession(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: load: %w", err)
	}

	var stored sessionPayload
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("session: decode: %w", err)
	}
	values := stored.Values
	if values == nil {
		values = make(map[string]string)
	}
	return &Session{
		ID:      cookie.Value,
		values:  values,
		userID:  stored.UserID,
		email:   stored.Email,
		flashes: stored.Flashes,
	}, nil
}

// Commit persists the session and writes the cookie.
func (sm *SessionManager) Commit(ctx context.Context, w http.ResponseWriter, sess *Session) error {
	if sess == nil {
		return nil
	}
	if sess.destroyed {
		if err := sm.client.Del(ctx, sessionKeyPrefix+sess.ID).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("session: delete: %w", err)
		}
		http.SetCookie(w, &http.Cookie{
			Name:     sm.cookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   sm.secure,
			SameSite: http.SameSiteLaxMode,
		})
		return nil
	}

	if sess.previousID != "" {
		if err := sm.client.Del(ctx, sessionKeyPrefix+sess.previousID).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("session: delete previous: %w", err)
		}
		sess.previousID = ""
	}

	if sess.dirty || sess.isNew {
		data, err := json.Marshal(sessionPayload{
			Values:  sess.values,
			UserID:  sess.userID,
			Email:   sess.email,
			Flashes: sess.flashes,
		})
		if err != nil {
			return fmt.Errorf("session: encode: %w", err)
		}
		if err := sm.client.Set(ctx, sessionKeyPrefix+sess.ID, data, sm.ttl).Err(); err != nil {
			return fmt.Errorf("session: save: %w", err)
		}
		sess.dirty = false
		sess.isNew = false
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(sm.ttl),
	})
	return nil
}

// Destroy marks the session for deletion on commit.
func (sm *SessionManager) Destroy(sess *Session) {
	if sess != nil {
		sess.destroyed = true
	}
}

// Renew moves the session to a fresh id. Call it whenever the owner changes.
func (sm *SessionManager) Renew(sess *Session) {
	if sess == nil {
		return
	}
	if !sess.isNew && sess.previousID == "" {
		sess.previousID = sess.ID
	}
	sess.ID = uuid.NewString()
	sess.dirty = true
}

// TTL exposes the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

// CookieName returns the cookie identifier used for sessions.
func (sm *SessionManager) CookieName() string {
	return sm.cookieName
}

func (sm *SessionManager) newSession() *Session {
	return &Session{
		ID:     uuid.NewString(),
		values: make(map[string]string),
		isNew:  true,
	}
}

// Set stores a key-value pair.
func (s *Session) Set(key, value string) {
	if s.values == nil {
		s.values = make(map[string]string)
	}
	s.values[key] = value
	s.dirty = true
}

// Get retrieves a value.
func (s *Session) Get(key string) string {
	return s.values[key]
}

// Delete removes a value.
func (s *Session) Delete(key string) {
	if _, ok := s.values[key]; !ok {
		return
	}
	delete(s.values, key)
	s.dirty = true
}

// SetUser binds the session to an authenticated owner.
func (s *Session) SetUser(id, email string) {
	s.userID = id
	s.email = email
	s.dirty = true
}

// Clear drops the owner and all stored values. Queued flashes survive.
func (s *Session) Clear() {
	s.userID = ""
	s.email = ""
	s.values = make(map[string]string)
	s.dirty = true
}

// User returns the owner id, empty for anonymous sessions.
func (s *Session) User() string {
	return s.userID
}

// Email returns the login e-mail of the owner.
func (s *Session) Email() string {
	return s.email
}

// AddFlash queues a flash message.
func (s *Session) AddFlash(msg FlashMessage) {
	s.flashes = append(s.flashes, msg)
	s.dirty = true
}

// PopFlashes retrieves and clears every queued flash message, oldest first.
func (s *Session) PopFlashes() []FlashMessage {
	if len(s.flashes) == 0 {
		return nil
	}
	out := s.flashes
	s.flashes = nil
	s.dirty = true
	return out
}

// PopFlash retrieves and clears the oldest flash message.
func (s *Session) PopFlash() *FlashMessage {
	if len(s.flashes) == 0 {
		return nil
	}
	msg := s.flashes[0]
	s.flashes = s.flashes[1:]
	s.dirty = true
	return &msg
}
