package quiz

import (
	"context"
	"time"
)

type ListOpts struct {
	Q          string
	Limit      int
	Offset     int
	ViewerID   string
	ViewerRole string // "student" | "teacher" | "admin"
}

type AttemptListOpts struct {
	QuizID string
	UserID string
	// Completed filters on the completion timestamp: "completed",
	// "in_progress", or empty for both.
	Completed string
	Limit     int
	Offset    int
}

// GradeUpdate is one manual grading decision applied to an answer row.
type GradeUpdate struct {
	IsCorrect     bool
	PointsAwarded float64
	Feedback      string
	GradedBy      string
	GradedAt      time.Time
}

// Store is the persistence boundary of the quiz domain. There is a SQL
// implementation for sqlite/postgres and an in-memory one used by tests.
type Store interface {
	// Quiz authoring. Mutations are owner-scoped: ownerID must match the
	// quiz's created_by or the call fails with ErrForbidden.
	CreateQuiz(ctx context.Context, q Quiz) error
	GetQuiz(ctx context.Context, id string) (Quiz, error)
	UpdateQuiz(ctx context.Context, q Quiz, ownerID string) error
	DeleteQuiz(ctx context.Context, id, ownerID string) error
	// SetPublished enforces the publish invariant: a quiz with zero
	// questions cannot be published.
	SetPublished(ctx context.Context, id, ownerID string, published bool) error
	ListQuizzes(ctx context.Context, opts ListOpts) ([]QuizSummary, error)

	// Questions.
	CreateQuestion(ctx context.Context, q Question) error
	GetQuestion(ctx context.Context, id string) (Question, error)
	UpdateQuestion(ctx context.Context, q Question) error
	DeleteQuestion(ctx context.Context, id string) error
	ListQuestions(ctx context.Context, quizID string) ([]Question, error)

	// Custom intake fields.
	CreateCustomField(ctx context.Context, f CustomField) error
	DeleteCustomField(ctx context.Context, id string) error
	ListCustomFields(ctx context.Context, quizID string) ([]CustomField, error)

	// Attempts.
	CreateAttempt(ctx context.Context, a Attempt) error
	GetAttempt(ctx context.Context, id string) (Attempt, error)
	// CompleteAttempt finalizes after submission: sets completed_at,
	// the auto-computed score and the graded flag.
	CompleteAttempt(ctx context.Context, id string, score float64, graded bool, completedAt time.Time) error
	// UpdateAttemptScore re-writes score and graded after manual grading.
	UpdateAttemptScore(ctx context.Context, id string, score float64, graded bool) error
	ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error)
	QuizStats(ctx context.Context, quizID string) (Stats, error)

	// Answer records.
	InsertAnswer(ctx context.Context, a Answer) error
	ListAnswers(ctx context.Context, attemptID string) ([]Answer, error)
	// ListPendingAnswers returns this attempt's rows with NULL
	// correctness, ordered by serving position.
	ListPendingAnswers(ctx context.Context, attemptID string) ([]Answer, error)
	UpdateAnswerGrade(ctx context.Context, answerID string, g GradeUpdate) error

	// Attempt-scoped custom field values.
	InsertAttemptFields(ctx context.Context, values []AttemptFieldValue) error
	ListAttemptFields(ctx context.Context, attemptID string) ([]AttemptFieldValue, error)
}
