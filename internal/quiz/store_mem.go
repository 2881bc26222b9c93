package quiz

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// memoryStore is a map-backed Store used by tests and for quick local
// runs without a database file.
type memoryStore struct {
	mu            sync.RWMutex
	quizzes       map[string]Quiz
	questions     map[string]Question
	customFields  map[string]CustomField
	attempts      map[string]Attempt
	answers       map[string]Answer
	attemptFields map[string][]AttemptFieldValue
}

func NewInMemoryStore() Store {
	return &memoryStore{
		quizzes:       map[string]Quiz{},
		questions:     map[string]Question{},
		customFields:  map[string]CustomField{},
		attempts:      map[string]Attempt{},
		answers:       map[string]Answer{},
		attemptFields: map[string][]AttemptFieldValue{},
	}
}

func (m *memoryStore) CreateQuiz(_ context.Context, q Quiz) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quizzes[q.ID] = q
	return nil
}

func (m *memoryStore) GetQuiz(_ context.Context, id string) (Quiz, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.quizzes[id]
	if !ok {
		return Quiz{}, ErrNotFound
	}
	return q, nil
}

func (m *memoryStore) UpdateQuiz(_ context.Context, q Quiz, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.quizzes[q.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.CreatedBy != ownerID {
		return ErrForbidden
	}
	q.CreatedBy = cur.CreatedBy
	q.IsPublished = cur.IsPublished
	m.quizzes[q.ID] = q
	return nil
}

func (m *memoryStore) DeleteQuiz(_ context.Context, id, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.quizzes[id]
	if !ok {
		return ErrNotFound
	}
	if cur.CreatedBy != ownerID {
		return ErrForbidden
	}
	delete(m.quizzes, id)
	for qid, q := range m.questions {
		if q.QuizID == id {
			delete(m.questions, qid)
		}
	}
	for fid, f := range m.customFields {
		if f.QuizID == id {
			delete(m.customFields, fid)
		}
	}
	for aid, a := range m.attempts {
		if a.QuizID != id {
			continue
		}
		delete(m.attempts, aid)
		delete(m.attemptFields, aid)
		for ansID, ans := range m.answers {
			if ans.AttemptID == aid {
				delete(m.answers, ansID)
			}
		}
	}
	return nil
}

func (m *memoryStore) SetPublished(_ context.Context, id, ownerID string, published bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quizzes[id]
	if !ok {
		return ErrNotFound
	}
	if q.CreatedBy != ownerID {
		return ErrForbidden
	}
	if published {
		n := 0
		for _, qq := range m.questions {
			if qq.QuizID == id {
				n++
			}
		}
		if n == 0 {
			return fmt.Errorf("%w: cannot publish a quiz with no questions", ErrValidation)
		}
	}
	q.IsPublished = published
	m.quizzes[id] = q
	return nil
}

func (m *memoryStore) ListQuizzes(_ context.Context, opts ListOpts) ([]QuizSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []QuizSummary{}
	for _, q := range m.quizzes {
		if opts.Q != "" && !strings.Contains(strings.ToLower(q.Title), strings.ToLower(opts.Q)) {
			continue
		}
		switch opts.ViewerRole {
		case "teacher", "admin":
			if opts.ViewerID != "" && q.CreatedBy != opts.ViewerID {
				continue
			}
		default:
			if !q.IsPublished || !q.IsPublic {
				continue
			}
		}
		count := 0
		for _, qq := range m.questions {
			if qq.QuizID == q.ID {
				count++
			}
		}
		out = append(out, QuizSummary{
			ID: q.ID, Title: q.Title, Description: q.Description,
			CreatedBy: q.CreatedBy, IsPublic: q.IsPublic, IsPublished: q.IsPublished,
			QuestionCount: count, CreatedAt: q.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryStore) CreateQuestion(_ context.Context, q Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.questions[q.ID] = q
	return nil
}

func (m *memoryStore) GetQuestion(_ context.Context, id string) (Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.questions[id]
	if !ok {
		return Question{}, ErrNotFound
	}
	return q, nil
}

func (m *memoryStore) UpdateQuestion(_ context.Context, q Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.questions[q.ID]; !ok {
		return ErrNotFound
	}
	m.questions[q.ID] = q
	return nil
}

func (m *memoryStore) DeleteQuestion(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.questions, id)
	return nil
}

func (m *memoryStore) ListQuestions(_ context.Context, quizID string) ([]Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Question{}
	for _, q := range m.questions {
		if q.QuizID == quizID {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (m *memoryStore) CreateCustomField(_ context.Context, f CustomField) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customFields[f.ID] = f
	return nil
}

func (m *memoryStore) DeleteCustomField(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.customFields, id)
	return nil
}

func (m *memoryStore) ListCustomFields(_ context.Context, quizID string) ([]CustomField, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []CustomField{}
	for _, f := range m.customFields {
		if f.QuizID == quizID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (m *memoryStore) CreateAttempt(_ context.Context, a Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quizzes[a.QuizID]; !ok {
		return ErrNotFound
	}
	m.attempts[a.ID] = a
	return nil
}

func (m *memoryStore) GetAttempt(_ context.Context, id string) (Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[id]
	if !ok {
		return Attempt{}, ErrNotFound
	}
	return a, nil
}

func (m *memoryStore) CompleteAttempt(_ context.Context, id string, score float64, graded bool, completedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[id]
	if !ok {
		return ErrNotFound
	}
	a.CompletedAt = &completedAt
	a.Score = score
	a.IsGraded = graded
	m.attempts[id] = a
	return nil
}

func (m *memoryStore) UpdateAttemptScore(_ context.Context, id string, score float64, graded bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[id]
	if !ok {
		return ErrNotFound
	}
	a.Score = score
	a.IsGraded = graded
	m.attempts[id] = a
	return nil
}

func (m *memoryStore) ListAttempts(_ context.Context, opts AttemptListOpts) ([]Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Attempt{}
	for _, a := range m.attempts {
		if opts.QuizID != "" && a.QuizID != opts.QuizID {
			continue
		}
		if opts.UserID != "" && a.UserID != opts.UserID {
			continue
		}
		switch opts.Completed {
		case "completed":
			if a.CompletedAt == nil {
				continue
			}
		case "in_progress":
			if a.CompletedAt != nil {
				continue
			}
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

func (m *memoryStore) QuizStats(_ context.Context, quizID string) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := Stats{QuizID: quizID}
	var scoreSum, maxSum float64
	for _, a := range m.attempts {
		if a.QuizID != quizID {
			continue
		}
		st.AttemptCount++
		if a.CompletedAt == nil {
			continue
		}
		st.CompletedCount++
		scoreSum += a.Score
		maxSum += a.MaxScore
		if !a.IsGraded {
			st.PendingGrading++
		}
	}
	if st.CompletedCount > 0 {
		st.AvgScore = scoreSum / float64(st.CompletedCount)
		st.AvgMaxScore = maxSum / float64(st.CompletedCount)
	}
	return st, nil
}

func (m *memoryStore) InsertAnswer(_ context.Context, a Answer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answers[a.ID] = a
	return nil
}

func sortAnswers(out []Answer) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
}

func (m *memoryStore) ListAnswers(_ context.Context, attemptID string) ([]Answer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Answer{}
	for _, a := range m.answers {
		if a.AttemptID == attemptID {
			out = append(out, a)
		}
	}
	sortAnswers(out)
	return out, nil
}

func (m *memoryStore) ListPendingAnswers(_ context.Context, attemptID string) ([]Answer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Answer{}
	for _, a := range m.answers {
		if a.AttemptID == attemptID && a.IsCorrect == nil {
			out = append(out, a)
		}
	}
	sortAnswers(out)
	return out, nil
}

func (m *memoryStore) UpdateAnswerGrade(_ context.Context, answerID string, g GradeUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.answers[answerID]
	if !ok {
		return ErrNotFound
	}
	correct := g.IsCorrect
	points := g.PointsAwarded
	feedback := g.Feedback
	gradedAt := g.GradedAt
	gradedBy := g.GradedBy
	a.IsCorrect = &correct
	a.PointsAwarded = &points
	a.Feedback = &feedback
	a.GradedAt = &gradedAt
	a.GradedBy = &gradedBy
	m.answers[answerID] = a
	return nil
}

func (m *memoryStore) InsertAttemptFields(_ context.Context, values []AttemptFieldValue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range values {
		m.attemptFields[v.AttemptID] = append(m.attemptFields[v.AttemptID], v)
	}
	return nil
}

func (m *memoryStore) ListAttemptFields(_ context.Context, attemptID string) ([]AttemptFieldValue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]AttemptFieldValue(nil), m.attemptFields[attemptID]...), nil
}
