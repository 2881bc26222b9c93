package quiz

import (
	"context"
	"fmt"
	"time"
)

// PendingItem is one ungraded free-text answer paired with its
// originating question, as presented to the grader.
type PendingItem struct {
	Answer         Answer `json:"answer"`
	QuestionText   string `json:"question_text"`
	QuestionPoints int    `json:"question_points"`
	UserText       string `json:"user_text"`
	ExpectedText   string `json:"expected_text"`
	Graded         bool   `json:"graded"`
}

// GradingWorkflow iterates an attempt's pending answers one at a time,
// accepting a correctness decision and awarded points per item. Grading
// the last pending item finalizes the attempt's score.
type GradingWorkflow struct {
	store     Store
	attemptID string
	gradedBy  string
	items     []PendingItem
	cursor    int
	now       func() time.Time
}

// NewGradingWorkflow loads the attempt's answer rows whose correctness
// is still NULL, joined with their questions.
func NewGradingWorkflow(ctx context.Context, store Store, attemptID, gradedBy string) (*GradingWorkflow, error) {
	pending, err := store.ListPendingAnswers(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	items := make([]PendingItem, 0, len(pending))
	for _, a := range pending {
		q, err := store.GetQuestion(ctx, a.QuestionID)
		if err != nil {
			// A question deleted after the attempt leaves an orphaned
			// answer row; skip it rather than block grading.
			continue
		}
		resp, err := DecodeResponse(q.Type, a.UserAnswer)
		if err != nil {
			return nil, err
		}
		key, _ := DecodeKey(q.Type, q.Correct)
		items = append(items, PendingItem{
			Answer:         a,
			QuestionText:   q.Content,
			QuestionPoints: q.Points,
			UserText:       resp.Text,
			ExpectedText:   key.Text,
		})
	}
	return &GradingWorkflow{
		store:     store,
		attemptID: attemptID,
		gradedBy:  gradedBy,
		items:     items,
		now:       time.Now,
	}, nil
}

// Items returns the pending list in cursor order.
func (g *GradingWorkflow) Items() []PendingItem { return g.items }

func (g *GradingWorkflow) Cursor() int { return g.cursor }

// Next and Prev move freely across pending items without re-validating
// already graded ones.
func (g *GradingWorkflow) Next() {
	if g.cursor < len(g.items)-1 {
		g.cursor++
	}
}

func (g *GradingWorkflow) Prev() {
	if g.cursor > 0 {
		g.cursor--
	}
}

// RecordGrade writes the decision for the item at index and advances the
// cursor. When the last pending item is graded it triggers Finalize.
func (g *GradingWorkflow) RecordGrade(ctx context.Context, index int, isCorrect bool, points float64, feedback string) error {
	if index < 0 || index >= len(g.items) {
		return fmt.Errorf("%w: grade index %d out of range", ErrValidation, index)
	}
	item := &g.items[index]
	err := g.store.UpdateAnswerGrade(ctx, item.Answer.ID, GradeUpdate{
		IsCorrect:     isCorrect,
		PointsAwarded: points,
		Feedback:      feedback,
		GradedBy:      g.gradedBy,
		GradedAt:      g.now(),
	})
	if err != nil {
		return err
	}
	item.Graded = true
	item.Answer.IsCorrect = &isCorrect
	item.Answer.PointsAwarded = &points

	if index < len(g.items)-1 {
		g.cursor = index + 1
	}
	if g.allGraded() {
		_, err = g.Finalize(ctx)
		return err
	}
	return nil
}

func (g *GradingWorkflow) allGraded() bool {
	for _, it := range g.items {
		if !it.Graded {
			return false
		}
	}
	return true
}

// Finalize re-sums the attempt's score from every answer row: a correct
// answer contributes its question's full point value, an incorrect one
// contributes whatever points the grader awarded. It then marks the
// attempt graded. Running it again after all grades are in leaves the
// score unchanged.
func (g *GradingWorkflow) Finalize(ctx context.Context) (Attempt, error) {
	answers, err := g.store.ListAnswers(ctx, g.attemptID)
	if err != nil {
		return Attempt{}, err
	}
	total := 0.0
	for _, a := range answers {
		switch {
		case a.IsCorrect != nil && *a.IsCorrect:
			q, err := g.store.GetQuestion(ctx, a.QuestionID)
			if err != nil {
				continue
			}
			total += float64(q.Points)
		case a.PointsAwarded != nil:
			total += *a.PointsAwarded
		}
	}
	if err := g.store.UpdateAttemptScore(ctx, g.attemptID, total, true); err != nil {
		return Attempt{}, err
	}
	return g.store.GetAttempt(ctx, g.attemptID)
}
