package quiz

import (
	"fmt"
	"math/rand"
	"sync"
)

// State is the taking session's current phase. The linear flow is
// password -> intake -> answering -> submitting -> complete, with the
// first two entered only when the quiz configures them.
type State string

const (
	StatePassword   State = "password"
	StateIntake     State = "intake"
	StateAnswering  State = "answering"
	StateSubmitting State = "submitting"
	StateComplete   State = "complete"
)

// Session owns one in-progress attempt: the served question list, the
// current question pointer and the per-question answers collected so
// far. It is safe for concurrent use, though a single respondent drives
// it sequentially in practice.
type Session struct {
	mu sync.Mutex

	AttemptID string
	UserID    string
	Quiz      Quiz

	all    []Question // every question on the quiz, pre-truncation
	served []Question
	fields []CustomField

	phase     State
	idx       int
	responses map[string]Response
}

// ServeQuestions builds the question list one respondent sees: shuffled
// when the quiz randomizes question order, each question's own options
// shuffled independently when it randomizes answer order, then truncated
// to the configured limit. A limit at or above the question count serves
// everything unmodified.
func ServeQuestions(q Quiz, questions []Question, rng *rand.Rand) []Question {
	served := make([]Question, len(questions))
	copy(served, questions)
	if q.RandomizeQuestions {
		rng.Shuffle(len(served), func(i, j int) {
			served[i], served[j] = served[j], served[i]
		})
	}
	if q.RandomizeAnswers {
		for i := range served {
			if len(served[i].Options) == 0 {
				continue
			}
			opts := make([]Option, len(served[i].Options))
			copy(opts, served[i].Options)
			rng.Shuffle(len(opts), func(a, b int) {
				opts[a], opts[b] = opts[b], opts[a]
			})
			served[i].Options = opts
		}
	}
	if q.QuestionLimit != nil && *q.QuestionLimit < len(served) {
		served = served[:*q.QuestionLimit]
	}
	return served
}

// NewSession positions a freshly created attempt at the first gate the
// quiz configures: password, custom-field intake, or question 0.
func NewSession(attemptID, userID string, q Quiz, questions []Question, fields []CustomField, rng *rand.Rand) *Session {
	s := &Session{
		AttemptID: attemptID,
		UserID:    userID,
		Quiz:      q,
		all:       questions,
		served:    ServeQuestions(q, questions, rng),
		fields:    fields,
		responses: map[string]Response{},
	}
	switch {
	case q.Password != nil && *q.Password != "":
		s.phase = StatePassword
	case len(fields) > 0:
		s.phase = StateIntake
	default:
		s.phase = StateAnswering
	}
	return s
}

func (s *Session) Phase() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Served returns the question subset this respondent sees.
func (s *Session) Served() []Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Question, len(s.served))
	copy(out, s.served)
	return out
}

// AllQuestions returns every question on the quiz, including ones the
// serving limit cut. The graded flag at submission depends on the whole
// quiz, not the served subset.
func (s *Session) AllQuestions() []Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Question, len(s.all))
	copy(out, s.all)
	return out
}

func (s *Session) Fields() []CustomField {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fields
}

// SubmitPassword checks the candidate against the quiz password. A
// mismatch keeps the session at the gate; there is no retry limit.
func (s *Session) SubmitPassword(candidate string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != StatePassword {
		return fmt.Errorf("%w: not at password gate", ErrValidation)
	}
	if s.Quiz.Password == nil || candidate != *s.Quiz.Password {
		return ErrPasswordMismatch
	}
	if len(s.fields) > 0 {
		s.phase = StateIntake
	} else {
		s.phase = StateAnswering
	}
	return nil
}

// SubmitFields collects the intake values, requiring every required
// field to be non-empty, and returns the rows to persist.
func (s *Session) SubmitFields(values map[string]string) ([]AttemptFieldValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != StateIntake {
		return nil, fmt.Errorf("%w: not at custom-fields intake", ErrValidation)
	}
	for _, f := range s.fields {
		if f.IsRequired && values[f.FieldName] == "" {
			return nil, fmt.Errorf("%w: field %q is required", ErrValidation, f.FieldName)
		}
	}
	out := make([]AttemptFieldValue, 0, len(s.fields))
	for _, f := range s.fields {
		out = append(out, AttemptFieldValue{
			AttemptID:  s.AttemptID,
			FieldName:  f.FieldName,
			FieldValue: values[f.FieldName],
		})
	}
	s.phase = StateAnswering
	return out, nil
}

// Current returns the question at the cursor and its index.
func (s *Session) Current() (Question, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != StateAnswering {
		return Question{}, 0, fmt.Errorf("%w: session is not answering", ErrValidation)
	}
	if len(s.served) == 0 {
		return Question{}, 0, fmt.Errorf("%w: no questions served", ErrValidation)
	}
	return s.served[s.idx], s.idx, nil
}

// SetResponse records the respondent's in-progress value for a question.
// Values are mutable until submission begins.
func (s *Session) SetResponse(questionID string, r Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != StateAnswering {
		return fmt.Errorf("%w: session is not answering", ErrValidation)
	}
	for _, q := range s.served {
		if q.ID == questionID {
			s.responses[questionID] = r
			return nil
		}
	}
	return fmt.Errorf("%w: question %s is not part of this attempt", ErrValidation, questionID)
}

func (s *Session) Response(questionID string) (Response, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.responses[questionID]
	return r, ok
}

// Next advances the cursor. It is gated on the current question's
// completeness rule and refuses to run off the end of the list.
func (s *Session) Next() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != StateAnswering {
		return fmt.Errorf("%w: session is not answering", ErrValidation)
	}
	if s.idx >= len(s.served)-1 {
		return fmt.Errorf("%w: already at the last question", ErrValidation)
	}
	cur := s.served[s.idx]
	if !Complete(cur, s.responses[cur.ID]) {
		return fmt.Errorf("%w: answer question %d before continuing", ErrValidation, s.idx+1)
	}
	s.idx++
	return nil
}

// Prev is unconditional except at the first question.
func (s *Session) Prev() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != StateAnswering {
		return fmt.Errorf("%w: session is not answering", ErrValidation)
	}
	if s.idx == 0 {
		return fmt.Errorf("%w: already at the first question", ErrValidation)
	}
	s.idx--
	return nil
}

// UnansweredCount is computed on the finish action; a non-zero count
// warns the respondent but does not hard-block submission.
func (s *Session) UnansweredCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unansweredLocked()
}

func (s *Session) unansweredLocked() int {
	n := 0
	for _, q := range s.served {
		if !Complete(q, s.responses[q.ID]) {
			n++
		}
	}
	return n
}

// BeginSubmit transitions into submitting, after which no answer
// mutation is permitted. Without force it refuses while unanswered
// questions remain, reporting how many.
func (s *Session) BeginSubmit(force bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == StateSubmitting || s.phase == StateComplete {
		return 0, fmt.Errorf("%w: attempt already submitted", ErrValidation)
	}
	if s.phase != StateAnswering {
		return 0, fmt.Errorf("%w: session is not answering", ErrValidation)
	}
	if n := s.unansweredLocked(); n > 0 && !force {
		return n, fmt.Errorf("%w: %d questions unanswered", ErrValidation, n)
	}
	s.phase = StateSubmitting
	return 0, nil
}

// Finish marks the session terminal.
func (s *Session) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = StateComplete
}

// Responses returns a copy of the collected answer map.
func (s *Session) Responses() map[string]Response {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Response, len(s.responses))
	for k, v := range s.responses {
		out[k] = v
	}
	return out
}

// Sessions holds live taking sessions keyed by attempt id. Abandoned
// sessions are simply dropped; the attempt row they created stays with a
// NULL completion timestamp.
type Sessions struct {
	mu sync.RWMutex
	m  map[string]*Session
}

func NewSessions() *Sessions {
	return &Sessions{m: map[string]*Session{}}
}

func (s *Sessions) Put(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[sess.AttemptID] = sess
}

func (s *Sessions) Get(attemptID string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.m[attemptID]
	return sess, ok
}

func (s *Sessions) Delete(attemptID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, attemptID)
}
