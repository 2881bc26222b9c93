package quiz_test

import (
	"context"
	"errors"
	"testing"

	"github.com/quizcraft/quizcraft-server/internal/quiz"
)

func seedQuiz(t *testing.T, store quiz.Store, q quiz.Quiz, questions ...quiz.Question) {
	t.Helper()
	ctx := context.Background()
	q.IsPublished = true
	if q.CreatedBy == "" {
		q.CreatedBy = "teacher-1"
	}
	if err := store.CreateQuiz(ctx, q); err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	for _, qq := range questions {
		if err := store.CreateQuestion(ctx, qq); err != nil {
			t.Fatalf("create question: %v", err)
		}
	}
}

func TestSubmit_AllCorrectAutoGraded(t *testing.T) {
	ctx := context.Background()
	store := quiz.NewInMemoryStore()
	seedQuiz(t, store, quiz.Quiz{ID: "quiz"}, singleChoiceQ(t, "q1", "quiz", 0, 2, "b"))
	svc := quiz.NewTakeService(store, nil)

	sess, a, err := svc.StartAttempt(ctx, "quiz", "u1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if a.MaxScore != 2 {
		t.Fatalf("max score should be 2, got %v", a.MaxScore)
	}
	if err := sess.SetResponse("q1", quiz.Response{OptionID: "b"}); err != nil {
		t.Fatalf("answer: %v", err)
	}
	res, err := svc.Finish(ctx, sess, false)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if res.Score != 2 || res.Pending || res.Percent != 100 {
		t.Fatalf("expected score 2 and 100%%, got %+v", res)
	}

	got, err := store.GetAttempt(ctx, a.ID)
	if err != nil {
		t.Fatalf("reload attempt: %v", err)
	}
	if got.CompletedAt == nil || !got.IsGraded || got.Score != 2 {
		t.Fatalf("attempt not finalized as graded: %+v", got)
	}
	answers, _ := store.ListAnswers(ctx, a.ID)
	if len(answers) != 1 || answers[0].IsCorrect == nil || !*answers[0].IsCorrect {
		t.Fatalf("expected one correct answer row, got %+v", answers)
	}
}

func TestSubmit_MultipleChoiceSubsetEarnsZero(t *testing.T) {
	ctx := context.Background()
	store := quiz.NewInMemoryStore()
	seedQuiz(t, store, quiz.Quiz{ID: "quiz"}, multipleChoiceQ(t, "q1", "quiz", 0, 3, []string{"a", "c"}))
	svc := quiz.NewTakeService(store, nil)

	sess, a, err := svc.StartAttempt(ctx, "quiz", "u1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	_ = sess.SetResponse("q1", quiz.Response{OptionIDs: []string{"a"}})
	res, err := svc.Finish(ctx, sess, false)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if res.Score != 0 || res.Pending {
		t.Fatalf("subset pick earns zero, graded immediately: %+v", res)
	}
	got, _ := store.GetAttempt(ctx, a.ID)
	if !got.IsGraded {
		t.Fatalf("attempt with no free text must end graded")
	}
}

func TestSubmit_TextQuestionLeavesAttemptPending(t *testing.T) {
	ctx := context.Background()
	store := quiz.NewInMemoryStore()
	seedQuiz(t, store, quiz.Quiz{ID: "quiz"},
		singleChoiceQ(t, "q1", "quiz", 0, 1, "a"),
		textQ(t, "q2", "quiz", 1, 5, "reference"),
	)
	svc := quiz.NewTakeService(store, nil)

	sess, a, err := svc.StartAttempt(ctx, "quiz", "u1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	_ = sess.SetResponse("q1", quiz.Response{OptionID: "a"})
	_ = sess.SetResponse("q2", quiz.Response{Text: "my essay"})

	res, err := svc.Finish(ctx, sess, false)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if !res.Pending || res.Score != 1 || res.Percent != 0 {
		t.Fatalf("auto score counts choices only and reports pending: %+v", res)
	}

	got, _ := store.GetAttempt(ctx, a.ID)
	if got.IsGraded {
		t.Fatalf("attempt with free text must not end graded")
	}
	pending, _ := store.ListPendingAnswers(ctx, a.ID)
	if len(pending) != 1 || pending[0].QuestionID != "q2" {
		t.Fatalf("expected the text answer pending, got %+v", pending)
	}
	if pending[0].PointsAwarded != nil {
		t.Fatalf("pending row must carry NULL points")
	}
}

func TestSubmit_ForcedFinishRecordsUnansweredAsIncorrect(t *testing.T) {
	ctx := context.Background()
	store := quiz.NewInMemoryStore()
	seedQuiz(t, store, quiz.Quiz{ID: "quiz"},
		singleChoiceQ(t, "q1", "quiz", 0, 1, "a"),
		singleChoiceQ(t, "q2", "quiz", 1, 1, "b"),
	)
	svc := quiz.NewTakeService(store, nil)

	sess, a, err := svc.StartAttempt(ctx, "quiz", "u1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	_ = sess.SetResponse("q1", quiz.Response{OptionID: "a"})

	if _, err := svc.Finish(ctx, sess, false); !errors.Is(err, quiz.ErrValidation) {
		t.Fatalf("unforced finish with gaps must fail, got %v", err)
	}
	res, err := svc.Finish(ctx, sess, true)
	if err != nil {
		t.Fatalf("forced finish: %v", err)
	}
	if res.Score != 1 || res.MaxScore != 2 {
		t.Fatalf("expected 1/2, got %+v", res)
	}
	answers, _ := store.ListAnswers(ctx, a.ID)
	if len(answers) != 2 {
		t.Fatalf("every served question gets a row, got %d", len(answers))
	}
	for _, ans := range answers {
		if ans.QuestionID == "q2" {
			if ans.IsCorrect == nil || *ans.IsCorrect || ans.UserAnswer != nil {
				t.Fatalf("unanswered row must be incorrect with no payload: %+v", ans)
			}
		}
	}
}

func TestStartAttempt_UnpublishedQuizRefused(t *testing.T) {
	ctx := context.Background()
	store := quiz.NewInMemoryStore()
	if err := store.CreateQuiz(ctx, quiz.Quiz{ID: "quiz", CreatedBy: "teacher-1"}); err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	svc := quiz.NewTakeService(store, nil)
	if _, _, err := svc.StartAttempt(ctx, "quiz", "u1"); !errors.Is(err, quiz.ErrNotPublished) {
		t.Fatalf("expected ErrNotPublished, got %v", err)
	}
}

func TestStartAttempt_EmptyQuizRefused(t *testing.T) {
	ctx := context.Background()
	store := quiz.NewInMemoryStore()
	// Published quizzes keep their flag when the last question is
	// deleted, so an attempt could otherwise start with nothing to
	// serve.
	seedQuiz(t, store, quiz.Quiz{ID: "quiz"}, singleChoiceQ(t, "q1", "quiz", 0, 1, "a"))
	if err := store.DeleteQuestion(ctx, "q1"); err != nil {
		t.Fatalf("delete question: %v", err)
	}
	svc := quiz.NewTakeService(store, nil)
	if _, _, err := svc.StartAttempt(ctx, "quiz", "u1"); !errors.Is(err, quiz.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	attempts, err := store.ListAttempts(ctx, quiz.AttemptListOpts{QuizID: "quiz", Limit: 10})
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if len(attempts) != 0 {
		t.Fatalf("no attempt row should be created, got %d", len(attempts))
	}
}

func TestSubmit_QuestionLimitScoresServedSubsetOnly(t *testing.T) {
	ctx := context.Background()
	store := quiz.NewInMemoryStore()
	limit := 2
	seedQuiz(t, store, quiz.Quiz{ID: "quiz", QuestionLimit: &limit},
		singleChoiceQ(t, "q1", "quiz", 0, 1, "a"),
		singleChoiceQ(t, "q2", "quiz", 1, 1, "b"),
		singleChoiceQ(t, "q3", "quiz", 2, 1, "c"),
	)
	svc := quiz.NewTakeService(store, nil)

	sess, a, err := svc.StartAttempt(ctx, "quiz", "u1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	served := sess.Served()
	if len(served) != 2 || a.MaxScore != 2 {
		t.Fatalf("expected 2 served questions worth 2, got %d / %v", len(served), a.MaxScore)
	}
	for _, q := range served {
		key, _ := quiz.DecodeKey(q.Type, q.Correct)
		_ = sess.SetResponse(q.ID, quiz.Response{OptionID: key.OptionIDs[0]})
	}
	res, err := svc.Finish(ctx, sess, false)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if res.Score != 2 || res.MaxScore != 2 {
		t.Fatalf("only the served subset is scored, got %+v", res)
	}
	answers, _ := store.ListAnswers(ctx, a.ID)
	if len(answers) != 2 {
		t.Fatalf("cut questions get no rows, got %d", len(answers))
	}
}
