package http

import (
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/quizcraft/quizcraft-server/internal/quiz"
	"github.com/quizcraft/quizcraft-server/internal/storage"
)

// MountAssets wires question image upload and retrieval.
func MountAssets(r chi.Router, bs storage.BlobStore, store quiz.Store) {
	// POST /assets/quizzes/{quizID}/questions/{questionID}
	// Replaces the question's image; a previously stored blob is removed.
	r.Post("/quizzes/{quizID}/questions/{questionID}", func(w http.ResponseWriter, r *http.Request) {
		quizID := chi.URLParam(r, "quizID")
		questionID := chi.URLParam(r, "questionID")
		if !requireQuizOwner(store, w, r, quizID) {
			return
		}
		q, err := store.GetQuestion(r.Context(), questionID)
		if err != nil {
			writeErr(w, err)
			return
		}
		if q.QuizID != quizID {
			writeErr(w, quiz.ErrNotFound)
			return
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "file required", http.StatusBadRequest)
			return
		}
		defer f.Close()

		name := path.Base(hdr.Filename)
		if name == "" || name == "." || name == "/" {
			name = "image.bin"
		}
		key := "quizzes/" + quizID + "/questions/" + questionID + "/" + name
		if _, err := bs.Put(key, f); err != nil {
			http.Error(w, "store error: "+err.Error(), http.StatusInternalServerError)
			return
		}

		if q.ImageURL != nil {
			if old := strings.TrimPrefix(*q.ImageURL, "/assets/"); old != key {
				_ = bs.Delete(old)
			}
		}
		url := "/assets/" + key
		q.ImageURL = &url
		if err := store.UpdateQuestion(r.Context(), q); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"key": key, "image_url": url})
	})

	// DELETE /assets/quizzes/{quizID}/questions/{questionID}
	r.Delete("/quizzes/{quizID}/questions/{questionID}", func(w http.ResponseWriter, r *http.Request) {
		quizID := chi.URLParam(r, "quizID")
		questionID := chi.URLParam(r, "questionID")
		if !requireQuizOwner(store, w, r, quizID) {
			return
		}
		q, err := store.GetQuestion(r.Context(), questionID)
		if err != nil {
			writeErr(w, err)
			return
		}
		if q.ImageURL != nil {
			_ = bs.Delete(strings.TrimPrefix(*q.ImageURL, "/assets/"))
			q.ImageURL = nil
			if err := store.UpdateQuestion(r.Context(), q); err != nil {
				writeErr(w, err)
				return
			}
		}
		w.WriteHeader(http.StatusNoContent)
	})

	// GET /assets/*   -> returns the blob at whatever follows /assets/
	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "*")
		key = strings.TrimPrefix(key, "/")
		rc, err := bs.Get(key)
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		defer rc.Close()
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = io.Copy(w, rc)
	})
}
