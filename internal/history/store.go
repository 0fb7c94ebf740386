// Package history owns the conversation state: the ordered message history and
// the remote thread id. Every mutation is written through to a storage.KV
// before the call returns.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/comigor/lifeline/internal/logger"
	"github.com/comigor/lifeline/internal/storage"
)

// Storage keys.
const (
	HistoryKey  = "chat_messages"
	ThreadIDKey = "chat_thread_id"
)

// Store is the single source of truth for one session. It is safe for
// concurrent use.
type Store struct {
	kv storage.KV

	mu         sync.Mutex
	session    Session
	generation uint64
}

// NewStore returns a store populated from kv (see Load).
func NewStore(kv storage.KV) *Store {
	s := &Store{kv: kv}
	s.Load()
	return s
}

// Load replaces the in-memory session with what kv holds. Missing, empty or
// unparsable history yields the default session: a single welcome message and
// no thread id. Load never fails.
func (s *Store) Load() Session {
	loaded, err := s.read()
	if err != nil {
		logger.L.Warn("discarding persisted session", "error", err)
		loaded = Session{History: []Message{Welcome()}}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = loaded
	s.generation++
	return s.session.clone()
}

func (s *Store) read() (Session, error) {
	raw, ok, err := s.kv.Get(HistoryKey)
	if err != nil {
		return Session{}, fmt.Errorf("reading history: %w", err)
	}
	if !ok {
		return Session{}, errors.New("no persisted history")
	}
	var msgs []Message
	if err := json.Unmarshal([]byte(raw), &msgs); err != nil {
		return Session{}, fmt.Errorf("parsing history: %w", err)
	}
	if len(msgs) == 0 {
		return Session{}, errors.New("persisted history is empty")
	}
	for i := range msgs {
		msgs[i].Streaming = false
	}

	threadID, _, err := s.kv.Get(ThreadIDKey)
	if err != nil {
		logger.L.Warn("reading thread id; starting without one", "error", err)
		threadID = ""
	}
	return Session{ThreadID: threadID, History: msgs}, nil
}

// Session returns a copy of the current state.
func (s *Store) Session() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.clone()
}

// ThreadID returns the current thread id, or "" when none exists.
func (s *Store) ThreadID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.ThreadID
}

// Generation changes every time the session is replaced by Load or Reset.
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Append adds msg to the end of the history.
func (s *Store) Append(msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(msg)
}

// AppendIfCurrent appends msg only if no Load or Reset happened since gen was
// observed. It reports whether the message was appended.
func (s *Store) AppendIfCurrent(gen uint64, msg Message) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return false, nil
	}
	return true, s.appendLocked(msg)
}

func (s *Store) appendLocked(msg Message) error {
	msg.Streaming = false
	next := make([]Message, len(s.session.History), len(s.session.History)+1)
	copy(next, s.session.History)
	next = append(next, msg)

	// memory is updated even when the write fails
	err := s.writeHistory(next)
	s.session.History = next
	return err
}

// SetThreadID records the thread id. An empty id deletes the persisted value.
func (s *Store) SetThreadID(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if id == "" {
		err = s.kv.Delete(ThreadIDKey)
	} else {
		err = s.kv.Set(ThreadIDKey, id)
	}
	s.session.ThreadID = id
	if err != nil {
		return fmt.Errorf("persisting thread id: %w", err)
	}
	return nil
}

// EnsureThreadID returns the current thread id, creating and persisting one
// with newID when there is none. Nothing happens if a Load or Reset occurred
// since gen was observed; ok is false in that case.
func (s *Store) EnsureThreadID(gen uint64, newID func() string) (id string, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return "", false, nil
	}
	if s.session.ThreadID != "" {
		return s.session.ThreadID, true, nil
	}

	id = newID()
	s.session.ThreadID = id
	if err := s.kv.Set(ThreadIDKey, id); err != nil {
		return id, true, fmt.Errorf("persisting thread id: %w", err)
	}
	return id, true, nil
}

// Reset replaces the history with a fresh welcome message and forgets the
// thread id. Both keys are written in one storage.Apply.
func (s *Store) Reset() error {
	fresh := Session{History: []Message{Welcome()}}
	raw, err := json.Marshal(fresh.History)
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	err = s.kv.Apply(storage.Set(HistoryKey, string(raw)), storage.Delete(ThreadIDKey))
	s.session = fresh
	s.generation++
	if err != nil {
		return fmt.Errorf("persisting reset: %w", err)
	}
	return nil
}

func (s *Store) writeHistory(msgs []Message) error {
	raw, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}
	if err := s.kv.Set(HistoryKey, string(raw)); err != nil {
		return fmt.Errorf("persisting history: %w", err)
	}
	return nil
}
