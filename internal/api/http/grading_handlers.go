package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quizcraft/quizcraft-server/internal/quiz"
	"github.com/quizcraft/quizcraft-server/internal/rbac"
)

// GET /attempts/{attemptID}/grading
// Returns the attempt's answers still awaiting a manual grade, in the
// order they were persisted. Grading the last one finalizes the score.
func GetPendingGradingHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID := chi.URLParam(r, "attemptID")
		a, err := store.GetAttempt(r.Context(), attemptID)
		if err != nil {
			writeErr(w, err)
			return
		}
		wf, err := quiz.NewGradingWorkflow(r.Context(), store, attemptID, rbac.SubjectFromContext(r.Context()))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"attempt": a,
			"items":   wf.Items(),
		})
	}
}

type recordGradeReq struct {
	Index     int     `json:"index"`
	IsCorrect bool    `json:"is_correct"`
	Points    float64 `json:"points"`
	Feedback  string  `json:"feedback"`
}

// POST /attempts/{attemptID}/grading
// Index refers to the pending list as returned by the GET; each applied
// grade removes its item, so clients re-fetch between decisions.
func RecordGradeHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID := chi.URLParam(r, "attemptID")
		var req recordGradeReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		wf, err := quiz.NewGradingWorkflow(r.Context(), store, attemptID, rbac.SubjectFromContext(r.Context()))
		if err != nil {
			writeErr(w, err)
			return
		}
		if err := wf.RecordGrade(r.Context(), req.Index, req.IsCorrect, req.Points, req.Feedback); err != nil {
			writeErr(w, err)
			return
		}
		a, err := store.GetAttempt(r.Context(), attemptID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"attempt":   a,
			"remaining": len(wf.Items()) - 1,
		})
	}
}

// POST /attempts/{attemptID}/grading/finalize
// Recomputes the score from the answer rows as they stand and marks the
// attempt graded, whether or not every pending item got a decision.
func FinalizeGradingHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID := chi.URLParam(r, "attemptID")
		wf, err := quiz.NewGradingWorkflow(r.Context(), store, attemptID, rbac.SubjectFromContext(r.Context()))
		if err != nil {
			writeErr(w, err)
			return
		}
		a, err := wf.Finalize(r.Context())
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// GET /attempts/{attemptID}/answers — graded review, teacher or owner.
func ListAnswersHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID := chi.URLParam(r, "attemptID")
		a, err := store.GetAttempt(r.Context(), attemptID)
		if err != nil {
			writeErr(w, err)
			return
		}
		role := rbac.RoleFromContext(r.Context())
		if role != "teacher" && role != "admin" && a.UserID != rbac.SubjectFromContext(r.Context()) {
			writeErr(w, quiz.ErrForbidden)
			return
		}
		answers, err := store.ListAnswers(r.Context(), attemptID)
		if err != nil {
			writeErr(w, err)
			return
		}
		fields, err := store.ListAttemptFields(r.Context(), attemptID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"attempt": a,
			"answers": answers,
			"fields":  fields,
		})
	}
}
