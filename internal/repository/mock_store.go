package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/quizhive/quizhive/internal/domain"
)

// MockStore is a hand-written, in-memory implementation of Store used in
// unit tests. No mock-generation library needed.
//
// Call counters let tests assert how many times a lookup fired (loader
// deduplication, no-op digest cycles); error overrides simulate failure paths.
type MockStore struct {
	mu        sync.RWMutex
	Quizzes   map[string]*domain.Quiz
	Users     map[string]*domain.User
	Instances map[string]*domain.Instance
	Seasons   []*domain.Season
	Grades    []*domain.Grade
	Responses []*domain.Response

	// marks[quizID][kind] is set by MarkNotified and read by FindUnnotified.
	marks map[string]map[domain.NotificationKind]bool

	// Optional error overrides.
	GetQuizzesErr     error
	GetUsersErr       error
	GetInstancesErr   error
	ListSeasonsErr    error
	ListGradesErr     error
	GetResponsesErr   error
	FindUnnotifiedErr error
	MarkNotifiedErr   error
	ListMembersErr    error

	// Call counters.
	GetQuizzesCalls     int
	GetUsersCalls       int
	GetInstancesCalls   int
	ListSeasonsCalls    int
	ListGradesCalls     int
	GetResponsesCalls   int
	FindUnnotifiedCalls int
	MarkNotifiedCalls   int
	ListMembersCalls    int

	// ListSeasonsWindows records the (from, to) pair of every grouped season
	// call so tests can verify window partitioning.
	ListSeasonsWindows [][2]*time.Time
}

func NewMockStore() *MockStore {
	return &MockStore{
		Quizzes:   make(map[string]*domain.Quiz),
		Users:     make(map[string]*domain.User),
		Instances: make(map[string]*domain.Instance),
		marks:     make(map[string]map[domain.NotificationKind]bool),
	}
}

func (m *MockStore) GetQuizzesByIDs(_ context.Context, ids []string) ([]*domain.Quiz, error) {
	m.mu.Lock()
	m.GetQuizzesCalls++
	m.mu.Unlock()
	if m.GetQuizzesErr != nil {
		return nil, m.GetQuizzesErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Quiz
	for _, id := range ids {
		if q, ok := m.Quizzes[id]; ok {
			clone := *q
			result = append(result, &clone)
		}
	}
	return result, nil
}

func (m *MockStore) FindUnnotified(_ context.Context, kind domain.NotificationKind, now time.Time) ([]*domain.Quiz, error) {
	m.mu.Lock()
	m.FindUnnotifiedCalls++
	m.mu.Unlock()
	if m.FindUnnotifiedErr != nil {
		return nil, m.FindUnnotifiedErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Quiz
	for _, q := range m.Quizzes {
		if m.marks[q.ID][kind] {
			continue
		}
		var due bool
		switch kind {
		case domain.KindContentAvailable:
			due = !q.OpensAt.After(now)
		case domain.KindAnswerRevealed:
			due = !q.ClosesAt.After(now)
		}
		if due {
			clone := *q
			result = append(result, &clone)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *MockStore) MarkNotified(_ context.Context, kind domain.NotificationKind, quizIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MarkNotifiedCalls++
	if m.MarkNotifiedErr != nil {
		return m.MarkNotifiedErr
	}
	for _, id := range quizIDs {
		if m.marks[id] == nil {
			m.marks[id] = make(map[domain.NotificationKind]bool)
		}
		m.marks[id][kind] = true
	}
	return nil
}

// Marked reports whether the quiz has been marked for kind.
func (m *MockStore) Marked(quizID string, kind domain.NotificationKind) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.marks[quizID][kind]
}

// MarkCount returns how many (quiz, kind) marks exist for the quiz.
func (m *MockStore) MarkCount(quizID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.marks[quizID])
}

func (m *MockStore) GetUsersByIDs(_ context.Context, ids []string) ([]*domain.User, error) {
	m.mu.Lock()
	m.GetUsersCalls++
	m.mu.Unlock()
	if m.GetUsersErr != nil {
		return nil, m.GetUsersErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.User
	for _, id := range ids {
		if u, ok := m.Users[id]; ok {
			clone := *u
			result = append(result, &clone)
		}
	}
	return result, nil
}

func (m *MockStore) ListSubscribedMembers(_ context.Context, instanceID string) ([]*domain.User, error) {
	m.mu.Lock()
	m.ListMembersCalls++
	m.mu.Unlock()
	if m.ListMembersErr != nil {
		return nil, m.ListMembersErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.User
	for _, u := range m.Users {
		if u.InstanceID == instanceID && u.NotifyDigest {
			clone := *u
			result = append(result, &clone)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *MockStore) GetInstancesByIDs(_ context.Context, ids []string) ([]*domain.Instance, error) {
	m.mu.Lock()
	m.GetInstancesCalls++
	m.mu.Unlock()
	if m.GetInstancesErr != nil {
		return nil, m.GetInstancesErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Instance
	for _, id := range ids {
		if inst, ok := m.Instances[id]; ok {
			clone := *inst
			result = append(result, &clone)
		}
	}
	return result, nil
}

func (m *MockStore) ListSeasonsByInstanceIDs(_ context.Context, instanceIDs []string, from, to *time.Time) (map[string][]*domain.Season, error) {
	m.mu.Lock()
	m.ListSeasonsCalls++
	m.ListSeasonsWindows = append(m.ListSeasonsWindows, [2]*time.Time{from, to})
	m.mu.Unlock()
	if m.ListSeasonsErr != nil {
		return nil, m.ListSeasonsErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	wanted := make(map[string]bool, len(instanceIDs))
	for _, id := range instanceIDs {
		wanted[id] = true
	}
	result := make(map[string][]*domain.Season)
	for _, s := range m.Seasons {
		if !wanted[s.InstanceID] {
			continue
		}
		if from != nil && s.StartsAt.Before(*from) {
			continue
		}
		if to != nil && s.StartsAt.After(*to) {
			continue
		}
		clone := *s
		result[s.InstanceID] = append(result[s.InstanceID], &clone)
	}
	for _, list := range result {
		sort.Slice(list, func(i, j int) bool { return list[i].StartsAt.Before(list[j].StartsAt) })
	}
	return result, nil
}

func (m *MockStore) GetGradesByIDs(_ context.Context, ids []string) ([]*domain.Grade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var result []*domain.Grade
	for _, g := range m.Grades {
		if wanted[g.ID] {
			clone := *g
			result = append(result, &clone)
		}
	}
	return result, nil
}

func (m *MockStore) ListGradesByUserIDs(_ context.Context, userIDs []string, from, to *time.Time) (map[string][]*domain.Grade, error) {
	m.mu.Lock()
	m.ListGradesCalls++
	m.mu.Unlock()
	if m.ListGradesErr != nil {
		return nil, m.ListGradesErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	wanted := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = true
	}
	result := make(map[string][]*domain.Grade)
	for _, g := range m.Grades {
		if !wanted[g.UserID] {
			continue
		}
		if from != nil && g.GradedAt.Before(*from) {
			continue
		}
		if to != nil && g.GradedAt.After(*to) {
			continue
		}
		clone := *g
		result[g.UserID] = append(result[g.UserID], &clone)
	}
	for _, list := range result {
		sort.Slice(list, func(i, j int) bool { return list[i].GradedAt.Before(list[j].GradedAt) })
	}
	return result, nil
}

func (m *MockStore) GetResponsesForUser(_ context.Context, userID string, quizIDs []string) (map[string]*domain.Response, error) {
	m.mu.Lock()
	m.GetResponsesCalls++
	m.mu.Unlock()
	if m.GetResponsesErr != nil {
		return nil, m.GetResponsesErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	wanted := make(map[string]bool, len(quizIDs))
	for _, id := range quizIDs {
		wanted[id] = true
	}
	result := make(map[string]*domain.Response)
	for _, r := range m.Responses {
		if r.UserID == userID && wanted[r.QuizID] {
			clone := *r
			result[r.QuizID] = &clone
		}
	}
	return result, nil
}

// Calls returns the total number of persistence calls issued, across all
// methods. Useful for "construction does no I/O" assertions.
func (m *MockStore) Calls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.GetQuizzesCalls + m.GetUsersCalls + m.GetInstancesCalls +
		m.ListSeasonsCalls + m.ListGradesCalls + m.GetResponsesCalls +
		m.FindUnnotifiedCalls + m.MarkNotifiedCalls + m.ListMembersCalls
}

// compile-time check that MockStore implements Store
var _ Store = (*MockStore)(nil)
