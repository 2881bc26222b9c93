package quiz_test

import (
	"errors"
	"testing"

	"github.com/quizcraft/quizcraft-server/internal/quiz"
)

func threeQuestions(t *testing.T, quizID string) []quiz.Question {
	t.Helper()
	return []quiz.Question{
		singleChoiceQ(t, "q1", quizID, 0, 1, "a"),
		singleChoiceQ(t, "q2", quizID, 1, 1, "b"),
		singleChoiceQ(t, "q3", quizID, 2, 1, "c"),
	}
}

func TestServeQuestions_LimitBoundary(t *testing.T) {
	qs := threeQuestions(t, "quiz")

	limit := 2
	served := quiz.ServeQuestions(quiz.Quiz{QuestionLimit: &limit}, qs, fixedRand())
	if len(served) != 2 {
		t.Fatalf("limit 2 of 3 should serve 2, got %d", len(served))
	}

	limit = 3
	served = quiz.ServeQuestions(quiz.Quiz{QuestionLimit: &limit}, qs, fixedRand())
	if len(served) != 3 {
		t.Fatalf("limit equal to count serves everything, got %d", len(served))
	}

	limit = 10
	served = quiz.ServeQuestions(quiz.Quiz{QuestionLimit: &limit}, qs, fixedRand())
	if len(served) != 3 {
		t.Fatalf("limit above count serves everything, got %d", len(served))
	}
}

func TestServeQuestions_NoShuffleKeepsOrder(t *testing.T) {
	served := quiz.ServeQuestions(quiz.Quiz{}, threeQuestions(t, "quiz"), fixedRand())
	for i, want := range []string{"q1", "q2", "q3"} {
		if served[i].ID != want {
			t.Fatalf("position %d: got %s, want %s", i, served[i].ID, want)
		}
	}
}

func TestServeQuestions_RandomizeAnswersLeavesOriginalUntouched(t *testing.T) {
	qs := threeQuestions(t, "quiz")
	quiz.ServeQuestions(quiz.Quiz{RandomizeAnswers: true}, qs, fixedRand())
	if qs[0].Options[0].ID != "a" {
		t.Fatalf("serving must not mutate the source question options")
	}
}

func TestSession_PasswordGate(t *testing.T) {
	pw := "sesame"
	q := quiz.Quiz{ID: "quiz", Password: &pw}
	sess := quiz.NewSession("att", "u1", q, threeQuestions(t, "quiz"), nil, fixedRand())

	if sess.Phase() != quiz.StatePassword {
		t.Fatalf("expected password phase, got %s", sess.Phase())
	}
	// Wrong guesses re-prompt without limit.
	for i := 0; i < 3; i++ {
		if err := sess.SubmitPassword("nope"); !errors.Is(err, quiz.ErrPasswordMismatch) {
			t.Fatalf("expected ErrPasswordMismatch, got %v", err)
		}
		if sess.Phase() != quiz.StatePassword {
			t.Fatalf("mismatch must keep the gate, got %s", sess.Phase())
		}
	}
	if _, _, err := sess.Current(); err == nil {
		t.Fatalf("questions must be unreachable behind the gate")
	}
	if err := sess.SubmitPassword("sesame"); err != nil {
		t.Fatalf("correct password: %v", err)
	}
	if sess.Phase() != quiz.StateAnswering {
		t.Fatalf("expected answering, got %s", sess.Phase())
	}
}

func TestSession_PasswordThenIntake(t *testing.T) {
	pw := "sesame"
	fields := []quiz.CustomField{
		{ID: "f1", QuizID: "quiz", FieldName: "name", FieldLabel: "Your name", IsRequired: true, Position: 0},
	}
	q := quiz.Quiz{ID: "quiz", Password: &pw}
	sess := quiz.NewSession("att", "u1", q, threeQuestions(t, "quiz"), fields, fixedRand())

	if sess.Phase() != quiz.StatePassword {
		t.Fatalf("expected password phase, got %s", sess.Phase())
	}
	// Intake is gated behind the password too.
	if _, err := sess.SubmitFields(map[string]string{"name": "Ada"}); !errors.Is(err, quiz.ErrValidation) {
		t.Fatalf("fields must be unreachable behind the gate, got %v", err)
	}
	if err := sess.SubmitPassword("sesame"); err != nil {
		t.Fatalf("correct password: %v", err)
	}
	if sess.Phase() != quiz.StateIntake {
		t.Fatalf("expected intake after password, got %s", sess.Phase())
	}
	if _, err := sess.SubmitFields(map[string]string{"name": "Ada"}); err != nil {
		t.Fatalf("submit fields: %v", err)
	}
	if sess.Phase() != quiz.StateAnswering {
		t.Fatalf("expected answering after intake, got %s", sess.Phase())
	}
}

func TestSession_IntakeFields(t *testing.T) {
	fields := []quiz.CustomField{
		{ID: "f1", QuizID: "quiz", FieldName: "name", FieldLabel: "Your name", IsRequired: true, Position: 0},
		{ID: "f2", QuizID: "quiz", FieldName: "team", FieldLabel: "Team", Position: 1},
	}
	sess := quiz.NewSession("att", "u1", quiz.Quiz{ID: "quiz"}, threeQuestions(t, "quiz"), fields, fixedRand())

	if sess.Phase() != quiz.StateIntake {
		t.Fatalf("expected intake phase, got %s", sess.Phase())
	}
	if _, err := sess.SubmitFields(map[string]string{"team": "blue"}); !errors.Is(err, quiz.ErrValidation) {
		t.Fatalf("missing required field must fail, got %v", err)
	}
	rows, err := sess.SubmitFields(map[string]string{"name": "Ada"})
	if err != nil {
		t.Fatalf("optional field may stay empty: %v", err)
	}
	if len(rows) != 2 || rows[0].FieldValue != "Ada" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	if sess.Phase() != quiz.StateAnswering {
		t.Fatalf("expected answering after intake, got %s", sess.Phase())
	}
}

func TestSession_Navigation(t *testing.T) {
	sess := quiz.NewSession("att", "u1", quiz.Quiz{ID: "quiz"}, threeQuestions(t, "quiz"), nil, fixedRand())

	if err := sess.Prev(); !errors.Is(err, quiz.ErrValidation) {
		t.Fatalf("prev at question 0 must fail, got %v", err)
	}
	if err := sess.Next(); !errors.Is(err, quiz.ErrValidation) {
		t.Fatalf("next without an answer must fail, got %v", err)
	}
	if err := sess.SetResponse("q1", quiz.Response{OptionID: "a"}); err != nil {
		t.Fatalf("set response: %v", err)
	}
	if err := sess.Next(); err != nil {
		t.Fatalf("next after answering: %v", err)
	}
	// Prev is unconditional even though q2 is unanswered.
	if err := sess.Prev(); err != nil {
		t.Fatalf("prev: %v", err)
	}
	q, idx, err := sess.Current()
	if err != nil || idx != 0 || q.ID != "q1" {
		t.Fatalf("expected q1 at index 0, got %s at %d (%v)", q.ID, idx, err)
	}
	// The earlier answer survives revisiting.
	if r, ok := sess.Response("q1"); !ok || r.OptionID != "a" {
		t.Fatalf("answer lost on revisit: %+v ok=%v", r, ok)
	}
}

func TestSession_SetResponseRejectsForeignQuestion(t *testing.T) {
	sess := quiz.NewSession("att", "u1", quiz.Quiz{ID: "quiz"}, threeQuestions(t, "quiz"), nil, fixedRand())
	if err := sess.SetResponse("other", quiz.Response{OptionID: "a"}); !errors.Is(err, quiz.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestSession_BeginSubmit(t *testing.T) {
	sess := quiz.NewSession("att", "u1", quiz.Quiz{ID: "quiz"}, threeQuestions(t, "quiz"), nil, fixedRand())
	_ = sess.SetResponse("q1", quiz.Response{OptionID: "a"})

	n, err := sess.BeginSubmit(false)
	if !errors.Is(err, quiz.ErrValidation) || n != 2 {
		t.Fatalf("expected 2 unanswered blocking submit, got n=%d err=%v", n, err)
	}
	if sess.Phase() != quiz.StateAnswering {
		t.Fatalf("refused submit must keep answering, got %s", sess.Phase())
	}
	if _, err := sess.BeginSubmit(true); err != nil {
		t.Fatalf("forced submit: %v", err)
	}
	if _, err := sess.BeginSubmit(true); err == nil {
		t.Fatalf("double submit must fail")
	}
}
