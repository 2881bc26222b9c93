package quiz

import (
	"encoding/json"
	"time"
)

// QuestionType is the closed set of supported question kinds.
type QuestionType string

const (
	SingleChoice   QuestionType = "single_choice"
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	Text           QuestionType = "text"
	Number         QuestionType = "number"
	Matching       QuestionType = "matching"
)

// Valid reports whether t is one of the known question types.
func (t QuestionType) Valid() bool {
	switch t {
	case SingleChoice, MultipleChoice, TrueFalse, Text, Number, Matching:
		return true
	}
	return false
}

type GradingMethod string

const (
	GradeAutomatic GradingMethod = "automatic"
	GradeManual    GradingMethod = "manual"
)

// MethodFor returns the grading method a question type admits.
// Free-text is always graded by a human; everything else is automatic.
func MethodFor(t QuestionType) GradingMethod {
	if t == Text {
		return GradeManual
	}
	return GradeAutomatic
}

// Option is one answer option of a choice or matching question.
// For matching questions MatchingText carries the right-column value
// the left-column Text must be paired with.
type Option struct {
	ID           string `json:"id"`
	Text         string `json:"text"`
	MatchingText string `json:"matchingText,omitempty"`
}

type Quiz struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	CreatedBy   string `json:"created_by"`
	IsPublic    bool   `json:"is_public"`
	IsPublished bool   `json:"is_published"`

	TimeLimit *int    `json:"time_limit,omitempty"` // minutes
	Password  *string `json:"password,omitempty"`

	RandomizeQuestions  bool `json:"randomize_questions"`
	RandomizeAnswers    bool `json:"randomize_answers"`
	ShowFeedback        bool `json:"show_feedback"`
	ShowQuestionNumbers bool `json:"show_question_numbers"`
	ShowProgressBar     bool `json:"show_progress_bar"`
	QuestionLimit       *int `json:"question_limit,omitempty"`
	ShowElapsedTime     bool `json:"show_elapsed_time"`
	PreventCopy         bool `json:"prevent_copy"`
	PreventBackButton   bool `json:"prevent_back_button"`
	ConfirmLastNext     bool `json:"confirm_last_next"`
	ConfirmFinish       bool `json:"confirm_finish"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// QuizSummary is the list-view projection of a quiz.
type QuizSummary struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	CreatedBy     string    `json:"created_by"`
	IsPublic      bool      `json:"is_public"`
	IsPublished   bool      `json:"is_published"`
	QuestionCount int       `json:"question_count"`
	CreatedAt     time.Time `json:"created_at"`
}

type Question struct {
	ID       string        `json:"id"`
	QuizID   string        `json:"quiz_id"`
	Position int           `json:"position"`
	Content  string        `json:"content"`
	ImageURL *string       `json:"image_url,omitempty"`
	Points   int           `json:"points"`
	Type     QuestionType  `json:"question_type"`
	Method   GradingMethod `json:"grading_method"`

	Options []Option        `json:"options,omitempty"`
	Correct json.RawMessage `json:"correct_answers,omitempty"`
}

type Attempt struct {
	ID          string     `json:"id"`
	QuizID      string     `json:"quiz_id"`
	UserID      string     `json:"user_id"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Score       float64    `json:"score"`
	MaxScore    float64    `json:"max_score"`
	IsGraded    bool       `json:"is_graded"`
}

// Answer is one persisted answer record: one per question per attempt.
// IsCorrect nil means the answer awaits manual grading.
type Answer struct {
	ID            string          `json:"id"`
	AttemptID     string          `json:"attempt_id"`
	QuestionID    string          `json:"question_id"`
	Position      int             `json:"position"`
	UserAnswer    json.RawMessage `json:"user_answer,omitempty"`
	IsCorrect     *bool           `json:"is_correct"`
	PointsAwarded *float64        `json:"points_awarded,omitempty"`
	Feedback      *string         `json:"feedback,omitempty"`
	GradedAt      *time.Time      `json:"graded_at,omitempty"`
	GradedBy      *string         `json:"graded_by,omitempty"`
}

// CustomField is an author-defined intake field collected once per
// attempt before the first question is shown.
type CustomField struct {
	ID         string `json:"id"`
	QuizID     string `json:"quiz_id"`
	FieldName  string `json:"field_name"`
	FieldLabel string `json:"field_label"`
	IsRequired bool   `json:"is_required"`
	Position   int    `json:"position"`
}

type AttemptFieldValue struct {
	ID         string `json:"id"`
	AttemptID  string `json:"attempt_id"`
	FieldName  string `json:"field_name"`
	FieldValue string `json:"field_value"`
}

// Stats is the aggregate view of a quiz's attempts.
type Stats struct {
	QuizID         string  `json:"quiz_id"`
	AttemptCount   int     `json:"attempt_count"`
	CompletedCount int     `json:"completed_count"`
	PendingGrading int     `json:"pending_grading"`
	AvgScore       float64 `json:"avg_score"`
	AvgMaxScore    float64 `json:"avg_max_score"`
}
