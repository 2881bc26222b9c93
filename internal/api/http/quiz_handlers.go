package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/quizcraft/quizcraft-server/internal/quiz"
	"github.com/quizcraft/quizcraft-server/internal/rbac"
)

// quizPayload is the authoring request body for create and update.
type quizPayload struct {
	Title       string `json:"title" validate:"required,min=1,max=200"`
	Description string `json:"description" validate:"max=2000"`
	IsPublic    bool   `json:"is_public"`

	TimeLimit     *int    `json:"time_limit" validate:"omitempty,min=1,max=600"`
	Password      *string `json:"password" validate:"omitempty,min=1"`
	QuestionLimit *int    `json:"question_limit" validate:"omitempty,min=1"`

	RandomizeQuestions  bool `json:"randomize_questions"`
	RandomizeAnswers    bool `json:"randomize_answers"`
	ShowFeedback        bool `json:"show_feedback"`
	ShowQuestionNumbers bool `json:"show_question_numbers"`
	ShowProgressBar     bool `json:"show_progress_bar"`
	ShowElapsedTime     bool `json:"show_elapsed_time"`
	PreventCopy         bool `json:"prevent_copy"`
	PreventBackButton   bool `json:"prevent_back_button"`
	ConfirmLastNext     bool `json:"confirm_last_next"`
	ConfirmFinish       bool `json:"confirm_finish"`
}

func (p quizPayload) apply(q *quiz.Quiz) {
	q.Title = strings.TrimSpace(p.Title)
	q.Description = strings.TrimSpace(p.Description)
	q.IsPublic = p.IsPublic
	q.TimeLimit = p.TimeLimit
	q.Password = p.Password
	q.QuestionLimit = p.QuestionLimit
	q.RandomizeQuestions = p.RandomizeQuestions
	q.RandomizeAnswers = p.RandomizeAnswers
	q.ShowFeedback = p.ShowFeedback
	q.ShowQuestionNumbers = p.ShowQuestionNumbers
	q.ShowProgressBar = p.ShowProgressBar
	q.ShowElapsedTime = p.ShowElapsedTime
	q.PreventCopy = p.PreventCopy
	q.PreventBackButton = p.PreventBackButton
	q.ConfirmLastNext = p.ConfirmLastNext
	q.ConfirmFinish = p.ConfirmFinish
}

func CreateQuizHandler(store quiz.Store, v *validator.Validate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p quizPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := v.Struct(p); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		now := time.Now()
		q := quiz.Quiz{
			ID:        uuid.NewString(),
			CreatedBy: rbac.SubjectFromContext(r.Context()),
			CreatedAt: now,
			UpdatedAt: now,
		}
		p.apply(&q)
		if err := store.CreateQuiz(r.Context(), q); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, q)
	}
}

func GetQuizHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := store.GetQuiz(r.Context(), chi.URLParam(r, "quizID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		// The password only travels back to its author.
		if rbac.SubjectFromContext(r.Context()) != q.CreatedBy {
			q.Password = nil
		}
		writeJSON(w, http.StatusOK, q)
	}
}

func UpdateQuizHandler(store quiz.Store, v *validator.Validate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p quizPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := v.Struct(p); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		q, err := store.GetQuiz(r.Context(), chi.URLParam(r, "quizID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		p.apply(&q)
		q.UpdatedAt = time.Now()
		if err := store.UpdateQuiz(r.Context(), q, rbac.SubjectFromContext(r.Context())); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

func DeleteQuizHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := store.DeleteQuiz(r.Context(), chi.URLParam(r, "quizID"), rbac.SubjectFromContext(r.Context()))
		if err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// SetPublishedHandler serves both publish and unpublish routes.
func SetPublishedHandler(store quiz.Store, published bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "quizID")
		err := store.SetPublished(r.Context(), id, rbac.SubjectFromContext(r.Context()), published)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "is_published": published})
	}
}

// GET /quizzes?q=...&limit=50&offset=0
// Students see published quizzes that are public; teachers additionally
// see everything they authored.
func ListQuizzesHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := strings.TrimSpace(r.URL.Query().Get("q"))
		limit := parseIntDefault(r.URL.Query().Get("limit"), 50)
		offset := parseIntDefault(r.URL.Query().Get("offset"), 0)

		list, err := store.ListQuizzes(r.Context(), quiz.ListOpts{
			Q:          q,
			Limit:      limit,
			Offset:     offset,
			ViewerID:   rbac.SubjectFromContext(r.Context()),
			ViewerRole: rbac.RoleFromContext(r.Context()),
		})
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /quizzes/{quizID}/stats
func QuizStatsHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "quizID")
		if _, err := store.GetQuiz(r.Context(), id); err != nil {
			writeErr(w, err)
			return
		}
		stats, err := store.QuizStats(r.Context(), id)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}
