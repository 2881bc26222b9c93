package quiz

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Result is what the respondent sees after submission. Percent is only
// meaningful when Pending is false: a quiz with any free-text question
// reports pending manual grading instead of a score.
type Result struct {
	AttemptID string  `json:"attempt_id"`
	Score     float64 `json:"score"`
	MaxScore  float64 `json:"max_score"`
	Pending   bool    `json:"pending"`
	Percent   float64 `json:"percent,omitempty"`
}

// Submitter walks the served question list once at submit time: encode,
// evaluate, persist one answer row per question, then finalize the
// attempt. The per-question writes are sequential and not wrapped in a
// transaction; a mid-loop failure leaves the earlier rows persisted and
// the attempt unfinalized. That matches the observed behavior and no
// retry is attempted.
type Submitter struct {
	store Store
	eval  *Evaluator
	now   func() time.Time
}

func NewSubmitter(store Store) *Submitter {
	return &Submitter{store: store, eval: NewEvaluator(), now: time.Now}
}

// Submit consumes a session that BeginSubmit already moved into the
// submitting phase.
func (s *Submitter) Submit(ctx context.Context, sess *Session) (Result, error) {
	if sess.Phase() != StateSubmitting {
		return Result{}, fmt.Errorf("%w: session is not submitting", ErrValidation)
	}

	served := sess.Served()
	responses := sess.Responses()

	total := 0.0
	for i, q := range served {
		resp, answered := responses[q.ID]

		row := Answer{
			ID:         uuid.NewString(),
			AttemptID:  sess.AttemptID,
			QuestionID: q.ID,
			Position:   i,
		}

		if answered && Complete(q, resp) {
			enc, err := EncodeResponse(q, resp)
			if err != nil {
				return Result{}, err
			}
			row.UserAnswer = enc

			out, err := s.eval.Evaluate(q, resp)
			if err != nil {
				return Result{}, err
			}
			if out.Decided {
				correct := out.Correct
				points := out.Points
				row.IsCorrect = &correct
				row.PointsAwarded = &points
				total += points
			}
			// Undecided (free-text) rows keep NULL correctness and NULL
			// points until a grader decides.
		} else {
			// Forced finish with this question unanswered: the row is
			// recorded as answered-nothing, incorrect.
			if q.Type != Text {
				correct := false
				points := 0.0
				row.IsCorrect = &correct
				row.PointsAwarded = &points
			}
		}

		if err := s.store.InsertAnswer(ctx, row); err != nil {
			return Result{}, fmt.Errorf("persist answer for question %s: %w", q.ID, err)
		}
	}

	// The graded flag depends on the whole quiz: any free-text question
	// leaves the attempt awaiting manual review.
	pending := false
	for _, q := range sess.AllQuestions() {
		if q.Type == Text {
			pending = true
			break
		}
	}

	completedAt := s.now()
	if err := s.store.CompleteAttempt(ctx, sess.AttemptID, total, !pending, completedAt); err != nil {
		return Result{}, fmt.Errorf("finalize attempt: %w", err)
	}
	sess.Finish()

	maxScore := 0.0
	for _, q := range served {
		maxScore += float64(q.Points)
	}
	res := Result{
		AttemptID: sess.AttemptID,
		Score:     total,
		MaxScore:  maxScore,
		Pending:   pending,
	}
	if !pending && maxScore > 0 {
		res.Percent = total / maxScore * 100
	}
	return res, nil
}
