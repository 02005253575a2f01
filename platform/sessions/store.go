package sessions

import (
	"fmt"
	"sync"

	"monopolyserver/app/models"
)

var ErrSessionExists = fmt.Errorf("session already exists")
var ErrSessionNotFound = fmt.Errorf("session not found")

// Session wraps one live game with the lock that serializes access to it.
// The game itself is not safe for concurrent use; every interaction goes
// through Do.
type Session struct {
	mu   sync.Mutex
	game *models.Game
}

// Do runs fn with exclusive access to the session's game.
func (s *Session) Do(fn func(*models.Game) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.game)
}

// Store holds every live game in the process, keyed by room code. The
// store lock only guards the map; per-game work holds the session lock, so
// a slow action in one room never blocks another.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Create registers a new game under its room code.
func (st *Store) Create(gameId string) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.sessions[gameId]; ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionExists, gameId)
	}
	session := &Session{game: models.NewGame(gameId)}
	st.sessions[gameId] = session
	return session, nil
}

func (st *Store) Get(gameId string) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	session, ok := st.sessions[gameId]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, gameId)
	}
	return session, nil
}

// Do is the common path: look the session up and run fn under its lock.
func (st *Store) Do(gameId string, fn func(*models.Game) error) error {
	session, err := st.Get(gameId)
	if err != nil {
		return err
	}
	return session.Do(fn)
}

func (st *Store) Delete(gameId string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, gameId)
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// shared is the process-wide store: the HTTP lobby handlers create
// sessions here and the socket server drives them.
var shared = NewStore()

func Shared() *Store { return shared }
