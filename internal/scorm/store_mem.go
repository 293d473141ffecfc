package scorm

import (
	"context"
	"sort"
	"sync"
)

// memoryStore is the db-less Store used by tests and offline dev.
type memoryStore struct {
	mu          sync.RWMutex
	courses     map[string]Course
	scos        map[string]SCO
	enrollments map[string]Enrollment
	attempts    map[string]Attempt
}

func NewInMemoryStore() Store {
	return &memoryStore{
		courses:     map[string]Course{},
		scos:        map[string]SCO{},
		enrollments: map[string]Enrollment{},
		attempts:    map[string]Attempt{},
	}
}

func (m *memoryStore) PutCourse(_ context.Context, c Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.courses[c.ID] = c
	return nil
}

func (m *memoryStore) GetCourse(_ context.Context, id string) (Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.courses[id]
	if !ok {
		return Course{}, ErrCourseNotFound
	}
	return c, nil
}

func (m *memoryStore) PutSCO(_ context.Context, s SCO) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scos[s.ID] = s
	return nil
}

func (m *memoryStore) GetSCO(_ context.Context, id string) (SCO, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.scos[id]
	if !ok {
		return SCO{}, ErrSCONotFound
	}
	return s, nil
}

func (m *memoryStore) ListCourseSCOs(_ context.Context, courseID string) ([]SCO, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]SCO, 0)
	for _, s := range m.scos {
		if s.CourseID == courseID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderIndex != out[j].OrderIndex {
			return out[i].OrderIndex < out[j].OrderIndex
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memoryStore) PutEnrollment(_ context.Context, e Enrollment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enrollments[e.ID] = e
	return nil
}

func (m *memoryStore) GetActiveEnrollment(_ context.Context, userID, courseID string) (Enrollment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.enrollments {
		if e.UserID == userID && e.CourseID == courseID && e.IsActive {
			return e, nil
		}
	}
	return Enrollment{}, ErrEnrollmentNotFound
}

func (m *memoryStore) FindOpenAttempt(_ context.Context, userID, scoID string) (Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.attempts {
		if a.UserID == userID && a.SCOID == scoID && a.Open() {
			return a, nil
		}
	}
	return Attempt{}, ErrAttemptNotFound
}

func (m *memoryStore) CountAttempts(_ context.Context, userID, scoID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, a := range m.attempts {
		if a.UserID == userID && a.SCOID == scoID {
			n++
		}
	}
	return n, nil
}

func (m *memoryStore) InsertAttempt(_ context.Context, a Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.Open() {
		for _, ex := range m.attempts {
			if ex.UserID == a.UserID && ex.SCOID == a.SCOID && ex.Open() {
				return ErrOpenAttemptExists
			}
		}
	}
	m.attempts[a.ID] = a
	return nil
}

func (m *memoryStore) GetAttempt(_ context.Context, id string) (Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[id]
	if !ok {
		return Attempt{}, ErrAttemptNotFound
	}
	return a, nil
}

func (m *memoryStore) SaveAttempt(_ context.Context, a Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.attempts[a.ID]; !ok {
		return ErrAttemptNotFound
	}
	m.attempts[a.ID] = a
	return nil
}

func (m *memoryStore) ListAttempts(_ context.Context, userID, scoID string) ([]Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Attempt, 0)
	for _, a := range m.attempts {
		if a.UserID == userID && a.SCOID == scoID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AttemptNumber > out[j].AttemptNumber })
	return out, nil
}

func (m *memoryStore) LatestAttempt(ctx context.Context, userID, scoID string) (Attempt, error) {
	list, err := m.ListAttempts(ctx, userID, scoID)
	if err != nil {
		return Attempt{}, err
	}
	if len(list) == 0 {
		return Attempt{}, ErrAttemptNotFound
	}
	return list[0], nil
}
