package verification

import "sync"

type Step int

const (
	StepAwaitingIdentifier Step = iota
	StepAwaitingTxHash
)

// Session is the in-flight state of one user's verification for one role.
// Sessions live in memory only: a process restart loses them and the user
// starts over from the role menu. A session is only meaningful while its
// thread exists; when the thread is gone the session must be dropped, not
// reused.
type Session struct {
	ThreadID            string
	Step                Step
	CandidateAddress    string
	CandidateIdentifier string
}

// SessionStore keeps at most one session per (user, role type).
type SessionStore interface {
	Get(userID, roleType string) (*Session, bool)
	Set(userID, roleType string, sess *Session)
	Delete(userID, roleType string)
}

type sessionKey struct {
	userID   string
	roleType string
}

type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[sessionKey]*Session
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[sessionKey]*Session)}
}

func (m *MemorySessionStore) Get(userID, roleType string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[sessionKey{userID, roleType}]
	return sess, ok
}

func (m *MemorySessionStore) Set(userID, roleType string, sess *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionKey{userID, roleType}] = sess
}

func (m *MemorySessionStore) Delete(userID, roleType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionKey{userID, roleType})
}
