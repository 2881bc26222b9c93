package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/quizcraft/quizcraft-server/internal/quiz"
)

type customFieldPayload struct {
	FieldName  string `json:"field_name" validate:"required,min=1,max=64"`
	FieldLabel string `json:"field_label" validate:"required,min=1,max=200"`
	IsRequired bool   `json:"is_required"`
	Position   int    `json:"position" validate:"min=0"`
}

// POST /quizzes/{quizID}/fields
func CreateCustomFieldHandler(store quiz.Store, v *validator.Validate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID := chi.URLParam(r, "quizID")
		if !requireQuizOwner(store, w, r, quizID) {
			return
		}
		var p customFieldPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := v.Struct(p); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f := quiz.CustomField{
			ID:         uuid.NewString(),
			QuizID:     quizID,
			FieldName:  p.FieldName,
			FieldLabel: p.FieldLabel,
			IsRequired: p.IsRequired,
			Position:   p.Position,
		}
		if err := store.CreateCustomField(r.Context(), f); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, f)
	}
}

// DELETE /quizzes/{quizID}/fields/{fieldID}
func DeleteCustomFieldHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID := chi.URLParam(r, "quizID")
		if !requireQuizOwner(store, w, r, quizID) {
			return
		}
		if err := store.DeleteCustomField(r.Context(), chi.URLParam(r, "fieldID")); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// GET /quizzes/{quizID}/fields
func ListCustomFieldsHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.ListCustomFields(r.Context(), chi.URLParam(r, "quizID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}
