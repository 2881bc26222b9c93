package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/quizcraft/quizcraft-server/internal/quiz"
	"github.com/quizcraft/quizcraft-server/internal/rbac"
)

type questionPayload struct {
	Content        string          `json:"content" validate:"required,min=1"`
	ImageURL       *string         `json:"image_url"`
	Points         int             `json:"points" validate:"min=0,max=1000"`
	Type           string          `json:"question_type" validate:"required"`
	Position       int             `json:"position" validate:"min=0"`
	Options        []quiz.Option   `json:"options"`
	CorrectAnswers json.RawMessage `json:"correct_answers"`
}

// build validates the payload against the question type's codec
// contracts before anything is stored.
func (p questionPayload) build(id, quizID string) (quiz.Question, error) {
	t := quiz.QuestionType(p.Type)
	if !t.Valid() {
		return quiz.Question{}, errBadType(p.Type)
	}
	opts := p.Options
	if t == quiz.TrueFalse && len(opts) == 0 {
		opts = quiz.TrueFalseOptions()
	}
	optsRaw, err := quiz.EncodeOptions(opts)
	if err != nil {
		return quiz.Question{}, err
	}
	if _, err := quiz.DecodeOptions(t, optsRaw); err != nil {
		return quiz.Question{}, err
	}
	if _, err := quiz.DecodeKey(t, p.CorrectAnswers); err != nil {
		return quiz.Question{}, err
	}
	points := p.Points
	if points == 0 {
		points = 1
	}
	return quiz.Question{
		ID:       id,
		QuizID:   quizID,
		Position: p.Position,
		Content:  strings.TrimSpace(p.Content),
		ImageURL: p.ImageURL,
		Points:   points,
		Type:     t,
		Method:   quiz.MethodFor(t),
		Options:  opts,
		Correct:  p.CorrectAnswers,
	}, nil
}

func errBadType(t string) error {
	return &badTypeError{t}
}

type badTypeError struct{ t string }

func (e *badTypeError) Error() string { return "unknown question type: " + e.t }
func (e *badTypeError) Unwrap() error { return quiz.ErrValidation }

// requireQuizOwner loads the quiz and checks the caller authored it.
// Admins pass regardless.
func requireQuizOwner(store quiz.Store, w http.ResponseWriter, r *http.Request, quizID string) bool {
	q, err := store.GetQuiz(r.Context(), quizID)
	if err != nil {
		writeErr(w, err)
		return false
	}
	if rbac.RoleFromContext(r.Context()) != "admin" && q.CreatedBy != rbac.SubjectFromContext(r.Context()) {
		writeErr(w, quiz.ErrForbidden)
		return false
	}
	return true
}

// POST /quizzes/{quizID}/questions
func CreateQuestionHandler(store quiz.Store, v *validator.Validate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID := chi.URLParam(r, "quizID")
		if !requireQuizOwner(store, w, r, quizID) {
			return
		}
		var p questionPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := v.Struct(p); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		q, err := p.build(uuid.NewString(), quizID)
		if err != nil {
			writeErr(w, err)
			return
		}
		if err := store.CreateQuestion(r.Context(), q); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, q)
	}
}

// PUT /quizzes/{quizID}/questions/{questionID}
func UpdateQuestionHandler(store quiz.Store, v *validator.Validate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID := chi.URLParam(r, "quizID")
		if !requireQuizOwner(store, w, r, quizID) {
			return
		}
		existing, err := store.GetQuestion(r.Context(), chi.URLParam(r, "questionID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		if existing.QuizID != quizID {
			writeErr(w, quiz.ErrNotFound)
			return
		}
		var p questionPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := v.Struct(p); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		q, err := p.build(existing.ID, quizID)
		if err != nil {
			writeErr(w, err)
			return
		}
		if err := store.UpdateQuestion(r.Context(), q); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

// DELETE /quizzes/{quizID}/questions/{questionID}
func DeleteQuestionHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID := chi.URLParam(r, "quizID")
		if !requireQuizOwner(store, w, r, quizID) {
			return
		}
		existing, err := store.GetQuestion(r.Context(), chi.URLParam(r, "questionID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		if existing.QuizID != quizID {
			writeErr(w, quiz.ErrNotFound)
			return
		}
		if err := store.DeleteQuestion(r.Context(), existing.ID); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// GET /quizzes/{quizID}/questions — authoring view with answer keys.
func ListQuestionsHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID := chi.URLParam(r, "quizID")
		if !requireQuizOwner(store, w, r, quizID) {
			return
		}
		list, err := store.ListQuestions(r.Context(), quizID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}
