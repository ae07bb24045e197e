package domain

import (
	"sync"
	"time"
)

// Session is the ephemeral per-connection state. It is created when a
// socket connects, destroyed when it disconnects, and never persisted:
// a reconnect is a brand-new session that must re-join its room and
// re-fetch history.
type Session struct {
	ID            string
	userID        string
	username      string
	currentRoomID string
	createdAt     time.Time
	lastActiveAt  time.Time
	mu            sync.RWMutex
}

func NewSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		createdAt:    now,
		lastActiveAt: now,
	}
}

// SetIdentity records the participant identity supplied at upgrade or join
// time.
func (s *Session) SetIdentity(userID, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = userID
	s.username = username
	s.lastActiveAt = time.Now()
}

func (s *Session) Identity() (userID, username string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID, s.username
}

func (s *Session) JoinRoom(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentRoomID = roomID
	s.lastActiveAt = time.Now()
}

func (s *Session) LeaveRoom() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentRoomID = ""
	s.lastActiveAt = time.Now()
}

func (s *Session) CurrentRoom() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentRoomID
}

func (s *Session) IsInRoom() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentRoomID != ""
}

func (s *Session) UpdateActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActiveAt = time.Now()
}
