package quiz_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/quizcraft/quizcraft-server/internal/db"
	"github.com/quizcraft/quizcraft-server/internal/quiz"
)

func openTestStore(t *testing.T) quiz.Store {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") + "?_pragma=foreign_keys(1)"
	dbh, err := db.Open(ctx, db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = dbh.Close() })
	return quiz.NewSQLStore(dbh)
}

func TestSQLStore_QuizRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	tl := 30
	pw := "sesame"
	ql := 5
	now := time.Now().Truncate(time.Second)
	in := quiz.Quiz{
		ID: "quiz-1", Title: "Geography", Description: "capitals",
		CreatedBy: "teacher-1", IsPublic: true,
		TimeLimit: &tl, Password: &pw, QuestionLimit: &ql,
		RandomizeQuestions: true, ShowFeedback: true, ShowQuestionNumbers: true,
		ConfirmFinish: true,
		CreatedAt:     now, UpdatedAt: now,
	}
	if err := store.CreateQuiz(ctx, in); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := store.GetQuiz(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Geography" || !got.RandomizeQuestions || got.IsPublished {
		t.Fatalf("round trip lost fields: %+v", got)
	}
	if got.TimeLimit == nil || *got.TimeLimit != 30 || got.Password == nil || *got.Password != "sesame" {
		t.Fatalf("nullable settings lost: %+v", got)
	}
	if !got.CreatedAt.Equal(now) {
		t.Fatalf("created_at drifted: %v != %v", got.CreatedAt, now)
	}

	got.Title = "World Geography"
	got.Password = nil
	if err := store.UpdateQuiz(ctx, got, "teacher-1"); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ = store.GetQuiz(ctx, "quiz-1")
	if got.Title != "World Geography" || got.Password != nil {
		t.Fatalf("update lost: %+v", got)
	}

	if err := store.UpdateQuiz(ctx, got, "someone-else"); !errors.Is(err, quiz.ErrForbidden) {
		t.Fatalf("non-owner update must fail, got %v", err)
	}
	if err := store.DeleteQuiz(ctx, "quiz-1", "someone-else"); !errors.Is(err, quiz.ErrForbidden) {
		t.Fatalf("non-owner delete must fail, got %v", err)
	}
	if _, err := store.GetQuiz(ctx, "missing"); !errors.Is(err, quiz.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLStore_PublishRequiresQuestions(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	now := time.Now()
	if err := store.CreateQuiz(ctx, quiz.Quiz{ID: "quiz-1", Title: "Empty", CreatedBy: "t1", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.SetPublished(ctx, "quiz-1", "t1", true); !errors.Is(err, quiz.ErrValidation) {
		t.Fatalf("publishing an empty quiz must fail, got %v", err)
	}
	if err := store.CreateQuestion(ctx, singleChoiceQ(t, "q1", "quiz-1", 0, 1, "a")); err != nil {
		t.Fatalf("create question: %v", err)
	}
	if err := store.SetPublished(ctx, "quiz-1", "t1", true); err != nil {
		t.Fatalf("publish: %v", err)
	}
	got, _ := store.GetQuiz(ctx, "quiz-1")
	if !got.IsPublished {
		t.Fatalf("expected published")
	}
	if err := store.SetPublished(ctx, "quiz-1", "t1", false); err != nil {
		t.Fatalf("unpublish: %v", err)
	}
}

func TestSQLStore_QuestionJSONPayloads(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	now := time.Now()
	if err := store.CreateQuiz(ctx, quiz.Quiz{ID: "quiz-1", Title: "Q", CreatedBy: "t1", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	in := matchingQ(t, "q1", "quiz-1", 0, 2)
	if err := store.CreateQuestion(ctx, in); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := store.GetQuestion(ctx, "q1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Type != quiz.Matching || got.Method != quiz.GradeAutomatic {
		t.Fatalf("type lost: %+v", got)
	}
	if len(got.Options) != 3 || got.Options[0].MatchingText != "Paris" {
		t.Fatalf("options payload lost: %+v", got.Options)
	}
	key, err := quiz.DecodeKey(got.Type, got.Correct)
	if err != nil || len(key.OptionIDs) != 3 {
		t.Fatalf("correct payload lost: %+v / %v", key, err)
	}

	list, err := store.ListQuestions(ctx, "quiz-1")
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v / %d", err, len(list))
	}
}

func TestSQLStore_AttemptAndAnswers(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	now := time.Now().Truncate(time.Second)
	if err := store.CreateQuiz(ctx, quiz.Quiz{ID: "quiz-1", Title: "Q", CreatedBy: "t1", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	a := quiz.Attempt{ID: "att-1", QuizID: "quiz-1", UserID: "u1", StartedAt: now, MaxScore: 6}
	if err := store.CreateAttempt(ctx, a); err != nil {
		t.Fatalf("create attempt: %v", err)
	}

	correct := true
	pts := 1.0
	if err := store.InsertAnswer(ctx, quiz.Answer{
		ID: "ans-1", AttemptID: "att-1", QuestionID: "q1", Position: 0,
		UserAnswer: mustJSON(t, "a"), IsCorrect: &correct, PointsAwarded: &pts,
	}); err != nil {
		t.Fatalf("insert graded answer: %v", err)
	}
	if err := store.InsertAnswer(ctx, quiz.Answer{
		ID: "ans-2", AttemptID: "att-1", QuestionID: "q2", Position: 1,
		UserAnswer: mustJSON(t, "essay text"),
	}); err != nil {
		t.Fatalf("insert pending answer: %v", err)
	}

	answers, err := store.ListAnswers(ctx, "att-1")
	if err != nil || len(answers) != 2 {
		t.Fatalf("list answers: %v / %d", err, len(answers))
	}
	if answers[0].IsCorrect == nil || answers[1].IsCorrect != nil {
		t.Fatalf("NULL correctness mishandled: %+v", answers)
	}

	pending, err := store.ListPendingAnswers(ctx, "att-1")
	if err != nil || len(pending) != 1 || pending[0].ID != "ans-2" {
		t.Fatalf("pending list wrong: %v / %+v", err, pending)
	}

	gradedAt := now
	if err := store.UpdateAnswerGrade(ctx, "ans-2", quiz.GradeUpdate{
		IsCorrect: false, PointsAwarded: 2.5, Feedback: "close", GradedBy: "t1", GradedAt: gradedAt,
	}); err != nil {
		t.Fatalf("grade: %v", err)
	}
	pending, _ = store.ListPendingAnswers(ctx, "att-1")
	if len(pending) != 0 {
		t.Fatalf("graded row must leave the pending list")
	}
	answers, _ = store.ListAnswers(ctx, "att-1")
	for _, ans := range answers {
		if ans.ID != "ans-2" {
			continue
		}
		if ans.PointsAwarded == nil || *ans.PointsAwarded != 2.5 || ans.Feedback == nil || *ans.Feedback != "close" {
			t.Fatalf("grade fields lost: %+v", ans)
		}
		if ans.GradedBy == nil || *ans.GradedBy != "t1" || ans.GradedAt == nil {
			t.Fatalf("grader audit fields lost: %+v", ans)
		}
	}

	if err := store.CompleteAttempt(ctx, "att-1", 3.5, true, now); err != nil {
		t.Fatalf("complete: %v", err)
	}
	got, _ := store.GetAttempt(ctx, "att-1")
	if got.CompletedAt == nil || !got.IsGraded || got.Score != 3.5 {
		t.Fatalf("completion lost: %+v", got)
	}
}

func TestSQLStore_AnswerOrderFollowsPosition(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	now := time.Now().Truncate(time.Second)
	if err := store.CreateQuiz(ctx, quiz.Quiz{ID: "quiz-1", Title: "Q", CreatedBy: "t1", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	if err := store.CreateAttempt(ctx, quiz.Attempt{ID: "att-1", QuizID: "quiz-1", UserID: "u1", StartedAt: now}); err != nil {
		t.Fatalf("create attempt: %v", err)
	}

	// Rows land within the same second and their random ids sort against
	// the order they were written in; the position column must win.
	for i, id := range []string{"z-first", "m-second", "a-third"} {
		if err := store.InsertAnswer(ctx, quiz.Answer{
			ID: id, AttemptID: "att-1", QuestionID: fmt.Sprintf("q%d", i+1), Position: i,
		}); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}

	answers, err := store.ListAnswers(ctx, "att-1")
	if err != nil {
		t.Fatalf("list answers: %v", err)
	}
	want := []string{"z-first", "m-second", "a-third"}
	for i, a := range answers {
		if a.ID != want[i] || a.Position != i {
			t.Fatalf("row %d out of order: %+v", i, a)
		}
	}

	pending, err := store.ListPendingAnswers(ctx, "att-1")
	if err != nil || len(pending) != 3 {
		t.Fatalf("pending list: %v / %d", err, len(pending))
	}
	for i, a := range pending {
		if a.ID != want[i] {
			t.Fatalf("pending row %d out of order: %+v", i, a)
		}
	}
}

func TestSQLStore_AttemptFieldValues(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	now := time.Now()
	if err := store.CreateQuiz(ctx, quiz.Quiz{ID: "quiz-1", Title: "Q", CreatedBy: "t1", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	if err := store.CreateCustomField(ctx, quiz.CustomField{
		ID: "f1", QuizID: "quiz-1", FieldName: "name", FieldLabel: "Your name", IsRequired: true,
	}); err != nil {
		t.Fatalf("create field: %v", err)
	}
	fields, err := store.ListCustomFields(ctx, "quiz-1")
	if err != nil || len(fields) != 1 || !fields[0].IsRequired {
		t.Fatalf("fields: %v / %+v", err, fields)
	}

	if err := store.CreateAttempt(ctx, quiz.Attempt{ID: "att-1", QuizID: "quiz-1", UserID: "u1", StartedAt: now}); err != nil {
		t.Fatalf("create attempt: %v", err)
	}
	if err := store.InsertAttemptFields(ctx, []quiz.AttemptFieldValue{
		{ID: "v1", AttemptID: "att-1", FieldName: "name", FieldValue: "Ada"},
	}); err != nil {
		t.Fatalf("insert values: %v", err)
	}
	vals, err := store.ListAttemptFields(ctx, "att-1")
	if err != nil || len(vals) != 1 || vals[0].FieldValue != "Ada" {
		t.Fatalf("values: %v / %+v", err, vals)
	}
}

func TestSQLStore_ListQuizzesViewerScoping(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	now := time.Now()

	mk := func(id, owner string, public, published bool) {
		q := quiz.Quiz{ID: id, Title: id, CreatedBy: owner, IsPublic: public, CreatedAt: now, UpdatedAt: now}
		if err := store.CreateQuiz(ctx, q); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
		if published {
			if err := store.CreateQuestion(ctx, singleChoiceQ(t, "q-"+id, id, 0, 1, "a")); err != nil {
				t.Fatalf("question %s: %v", id, err)
			}
			if err := store.SetPublished(ctx, id, owner, true); err != nil {
				t.Fatalf("publish %s: %v", id, err)
			}
		}
	}
	mk("pub-live", "t1", true, true)
	mk("private-live", "t1", false, true)
	mk("pub-draft", "t1", true, false)

	student, err := store.ListQuizzes(ctx, quiz.ListOpts{ViewerID: "s1", ViewerRole: "student", Limit: 10})
	if err != nil {
		t.Fatalf("student list: %v", err)
	}
	if len(student) != 1 || student[0].ID != "pub-live" {
		t.Fatalf("students see published public quizzes only, got %+v", student)
	}
	if student[0].QuestionCount != 1 {
		t.Fatalf("question count wrong: %+v", student[0])
	}

	teacher, err := store.ListQuizzes(ctx, quiz.ListOpts{ViewerID: "t1", ViewerRole: "teacher", Limit: 10})
	if err != nil {
		t.Fatalf("teacher list: %v", err)
	}
	if len(teacher) != 3 {
		t.Fatalf("teachers see all their quizzes, got %d", len(teacher))
	}
}

func TestSQLStore_QuizStats(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	now := time.Now().Truncate(time.Second)
	if err := store.CreateQuiz(ctx, quiz.Quiz{ID: "quiz-1", Title: "Q", CreatedBy: "t1", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	seed := func(id string, completed bool, score float64, graded bool) {
		a := quiz.Attempt{ID: id, QuizID: "quiz-1", UserID: "u-" + id, StartedAt: now, MaxScore: 10}
		if err := store.CreateAttempt(ctx, a); err != nil {
			t.Fatalf("attempt %s: %v", id, err)
		}
		if completed {
			if err := store.CompleteAttempt(ctx, id, score, graded, now); err != nil {
				t.Fatalf("complete %s: %v", id, err)
			}
		}
	}
	seed("a1", true, 8, true)
	seed("a2", true, 4, false)
	seed("a3", false, 0, false)

	st, err := store.QuizStats(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.AttemptCount != 3 || st.CompletedCount != 2 || st.PendingGrading != 1 {
		t.Fatalf("counts wrong: %+v", st)
	}
	if st.AvgScore != 6 || st.AvgMaxScore != 10 {
		t.Fatalf("averages wrong: %+v", st)
	}
}

func TestSQLStore_DeleteQuizCascades(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	now := time.Now()
	if err := store.CreateQuiz(ctx, quiz.Quiz{ID: "quiz-1", Title: "Q", CreatedBy: "t1", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	if err := store.CreateQuestion(ctx, singleChoiceQ(t, "q1", "quiz-1", 0, 1, "a")); err != nil {
		t.Fatalf("create question: %v", err)
	}
	if err := store.CreateAttempt(ctx, quiz.Attempt{ID: "att-1", QuizID: "quiz-1", UserID: "u1", StartedAt: now}); err != nil {
		t.Fatalf("create attempt: %v", err)
	}
	if err := store.DeleteQuiz(ctx, "quiz-1", "t1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetQuestion(ctx, "q1"); !errors.Is(err, quiz.ErrNotFound) {
		t.Fatalf("question should cascade away, got %v", err)
	}
	if _, err := store.GetAttempt(ctx, "att-1"); !errors.Is(err, quiz.ErrNotFound) {
		t.Fatalf("attempt should cascade away, got %v", err)
	}
}
