package quiz

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Recorder receives attempt lifecycle events for the audit log. Failures
// to record are deliberately ignored: the log is an observer, not a
// participant.
type Recorder interface {
	Record(ctx context.Context, typ, key string, data any)
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, string, string, any) {}

// TakeService drives the quiz-taking flow: it creates attempts, holds
// their live sessions, and hands finished sessions to the Submitter.
type TakeService struct {
	store     Store
	sessions  *Sessions
	submitter *Submitter
	events    Recorder

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewTakeService(store Store, events Recorder) *TakeService {
	if events == nil {
		events = nopRecorder{}
	}
	return &TakeService{
		store:     store,
		sessions:  NewSessions(),
		submitter: NewSubmitter(store),
		events:    events,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// StartAttempt loads the quiz, verifies it is published, creates the
// attempt row and positions a new session at the first gate. The
// attempt's max score is the point sum of the question subset served to
// this respondent.
func (t *TakeService) StartAttempt(ctx context.Context, quizID, userID string) (*Session, Attempt, error) {
	q, err := t.store.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, Attempt{}, err
	}
	if !q.IsPublished {
		return nil, Attempt{}, ErrNotPublished
	}
	questions, err := t.store.ListQuestions(ctx, quizID)
	if err != nil {
		return nil, Attempt{}, err
	}
	// Deleting every question does not unpublish a quiz, so the check at
	// publish time is not enough.
	if len(questions) == 0 {
		return nil, Attempt{}, fmt.Errorf("%w: quiz has no questions", ErrValidation)
	}
	fields, err := t.store.ListCustomFields(ctx, quizID)
	if err != nil {
		return nil, Attempt{}, err
	}

	attemptID := uuid.NewString()
	t.rngMu.Lock()
	sess := NewSession(attemptID, userID, q, questions, fields, t.rng)
	t.rngMu.Unlock()

	maxScore := 0.0
	for _, sq := range sess.Served() {
		maxScore += float64(sq.Points)
	}
	a := Attempt{
		ID:        attemptID,
		QuizID:    quizID,
		UserID:    userID,
		StartedAt: time.Now(),
		MaxScore:  maxScore,
	}
	if err := t.store.CreateAttempt(ctx, a); err != nil {
		return nil, Attempt{}, err
	}
	t.sessions.Put(sess)
	t.events.Record(ctx, "AttemptStarted", attemptID, map[string]string{
		"quiz_id": quizID, "user_id": userID,
	})
	return sess, a, nil
}

// Session returns the live session for an attempt, or ErrNotFound when
// it was never started or has been abandoned.
func (t *TakeService) Session(attemptID string) (*Session, error) {
	sess, ok := t.sessions.Get(attemptID)
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

// SubmitFields persists the intake values collected by the session.
func (t *TakeService) SubmitFields(ctx context.Context, sess *Session, values map[string]string) error {
	rows, err := sess.SubmitFields(values)
	if err != nil {
		return err
	}
	for i := range rows {
		rows[i].ID = uuid.NewString()
	}
	return t.store.InsertAttemptFields(ctx, rows)
}

// Finish runs the finish action: it reports the unanswered count when
// force is unset, otherwise moves the session into submitting and runs
// the submission orchestrator. The session is dropped afterwards.
func (t *TakeService) Finish(ctx context.Context, sess *Session, force bool) (Result, error) {
	if _, err := sess.BeginSubmit(force); err != nil {
		return Result{}, err
	}
	res, err := t.submitter.Submit(ctx, sess)
	if err != nil {
		return Result{}, err
	}
	t.sessions.Delete(sess.AttemptID)
	t.events.Record(ctx, "AttemptSubmitted", sess.AttemptID, res)
	return res, nil
}

// Abandon drops a session without submitting. The attempt row stays
// behind with a NULL completion timestamp; no cleanup is attempted.
func (t *TakeService) Abandon(attemptID string) {
	t.sessions.Delete(attemptID)
}
