package quiz_test

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/quizcraft/quizcraft-server/internal/quiz"
)

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func abcOptions() []quiz.Option {
	return []quiz.Option{
		{ID: "a", Text: "Alpha"},
		{ID: "b", Text: "Beta"},
		{ID: "c", Text: "Gamma"},
	}
}

func singleChoiceQ(t *testing.T, id, quizID string, pos, points int, correct string) quiz.Question {
	t.Helper()
	return quiz.Question{
		ID: id, QuizID: quizID, Position: pos, Content: "pick one",
		Points: points, Type: quiz.SingleChoice, Method: quiz.GradeAutomatic,
		Options: abcOptions(), Correct: mustJSON(t, []string{correct}),
	}
}

func multipleChoiceQ(t *testing.T, id, quizID string, pos, points int, correct []string) quiz.Question {
	t.Helper()
	return quiz.Question{
		ID: id, QuizID: quizID, Position: pos, Content: "pick all that apply",
		Points: points, Type: quiz.MultipleChoice, Method: quiz.GradeAutomatic,
		Options: abcOptions(), Correct: mustJSON(t, correct),
	}
}

func trueFalseQ(t *testing.T, id, quizID string, pos, points int, correct string) quiz.Question {
	t.Helper()
	return quiz.Question{
		ID: id, QuizID: quizID, Position: pos, Content: "true or false",
		Points: points, Type: quiz.TrueFalse, Method: quiz.GradeAutomatic,
		Options: quiz.TrueFalseOptions(), Correct: mustJSON(t, []string{correct}),
	}
}

func numberQ(t *testing.T, id, quizID string, pos, points int, correct float64) quiz.Question {
	t.Helper()
	return quiz.Question{
		ID: id, QuizID: quizID, Position: pos, Content: "how many",
		Points: points, Type: quiz.Number, Method: quiz.GradeAutomatic,
		Correct: mustJSON(t, []float64{correct}),
	}
}

func textQ(t *testing.T, id, quizID string, pos, points int, reference string) quiz.Question {
	t.Helper()
	return quiz.Question{
		ID: id, QuizID: quizID, Position: pos, Content: "explain",
		Points: points, Type: quiz.Text, Method: quiz.GradeManual,
		Correct: mustJSON(t, []string{reference}),
	}
}

func matchingQ(t *testing.T, id, quizID string, pos, points int) quiz.Question {
	t.Helper()
	opts := []quiz.Option{
		{ID: "l1", Text: "France", MatchingText: "Paris"},
		{ID: "l2", Text: "Japan", MatchingText: "Tokyo"},
		{ID: "l3", Text: "Peru", MatchingText: "Lima"},
	}
	ids := []string{"l1", "l2", "l3"}
	return quiz.Question{
		ID: id, QuizID: quizID, Position: pos, Content: "match countries to capitals",
		Points: points, Type: quiz.Matching, Method: quiz.GradeAutomatic,
		Options: opts, Correct: mustJSON(t, ids),
	}
}

func fixedRand() *rand.Rand { return rand.New(rand.NewSource(1)) }

func fptr(f float64) *float64 { return &f }
