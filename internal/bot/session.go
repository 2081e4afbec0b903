package bot

import (
	"sync"

	"github.com/khasanov/eventbot/internal/domain"
)

// step is the position inside a multi-message dialog (registration,
// event creation, field editing).
type step int

const (
	stepNone step = iota
	stepRegisterName
	stepRegisterDepartment
	stepRegisterPhone
	stepEventTitle
	stepEventDate
	stepEventTime
	stepEventPlace
	stepEventComment
	stepEventConfirm
	stepEditValue
)

type session struct {
	step step

	// Registration draft.
	fullName   string
	department string

	// Event creation draft.
	draft domain.Event

	// Field edit in progress.
	editEventID int64
	editField   string
}

// sessionStore keeps per-chat dialog state in memory. Losing it on restart
// only aborts half-finished dialogs, which users simply start over.
type sessionStore struct {
	mu     sync.Mutex
	byChat map[int64]*session
}

func newSessionStore() *sessionStore {
	return &sessionStore{byChat: make(map[int64]*session)}
}

func (s *sessionStore) get(chatID int64) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byChat[chatID]
}

func (s *sessionStore) set(chatID int64, sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byChat[chatID] = sess
}

func (s *sessionStore) clear(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byChat, chatID)
}
