package proctor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gokatarajesh/exam-proctor/internal/auth"
	"github.com/gokatarajesh/exam-proctor/internal/db/repository"
)

type fakeDirectory struct {
	users map[uuid.UUID]repository.User
	err   error
}

func (d *fakeDirectory) GetByID(_ context.Context, id uuid.UUID) (repository.User, error) {
	if d.err != nil {
		return repository.User{}, d.err
	}
	u, ok := d.users[id]
	if !ok {
		return repository.User{}, repository.ErrNotFound
	}
	return u, nil
}

func directoryWith(students ...uuid.UUID) *fakeDirectory {
	d := &fakeDirectory{users: map[uuid.UUID]repository.User{}}
	for _, id := range students {
		d.users[id] = repository.User{ID: id, Role: auth.RoleStudent}
	}
	return d
}

type fakeExams struct {
	known map[uuid.UUID]bool
	err   error
}

func (e *fakeExams) Exists(_ context.Context, examID uuid.UUID) (bool, error) {
	if e.err != nil {
		return false, e.err
	}
	return e.known[examID], nil
}

func examsWith(ids ...uuid.UUID) *fakeExams {
	e := &fakeExams{known: map[uuid.UUID]bool{}}
	for _, id := range ids {
		e.known[id] = true
	}
	return e
}

type fakeAudit struct {
	mu     sync.Mutex
	events []repository.SessionEvent
	err    error
}

func (a *fakeAudit) Record(_ context.Context, examID, studentID uuid.UUID, action string, issuedBy *uuid.UUID) (repository.SessionEvent, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return repository.SessionEvent{}, a.err
	}
	ev := repository.SessionEvent{
		ID:        int64(len(a.events) + 1),
		ExamID:    examID,
		StudentID: studentID,
		Action:    action,
		IssuedBy:  issuedBy,
		CreatedAt: time.Now().UTC(),
	}
	a.events = append(a.events, ev)
	return ev, nil
}

func (a *fakeAudit) Latest(_ context.Context, examID, studentID uuid.UUID) (repository.SessionEvent, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := len(a.events) - 1; i >= 0; i-- {
		if a.events[i].ExamID == examID && a.events[i].StudentID == studentID {
			return a.events[i], nil
		}
	}
	return repository.SessionEvent{}, repository.ErrNotFound
}

func (a *fakeAudit) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.events)
}

type memState struct {
	mu       sync.Mutex
	sessions map[string]Session
}

func newMemState() *memState {
	return &memState{sessions: map[string]Session{}}
}

func (m *memState) Get(_ context.Context, examID, studentID uuid.UUID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[stateKey(examID, studentID)]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memState) Put(_ context.Context, sess Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[stateKey(sess.ExamID, sess.StudentID)] = sess
	return nil
}

func (m *memState) clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = map[string]Session{}
}

type recordingPublisher struct {
	mu   sync.Mutex
	cmds []Command
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, cmd Command) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cmds = append(p.cmds, cmd)
	return p.err
}
