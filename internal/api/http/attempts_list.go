package http

import (
	"net/http"
	"strings"

	"github.com/quizcraft/quizcraft-server/internal/quiz"
	"github.com/quizcraft/quizcraft-server/internal/rbac"
)

// GET /attempts?quiz_id=...&user_id=...&completed=...&limit=50&offset=0
// RBAC:
// - role with attempt:view-all can list any filters
// - role with attempt:view-own only sees its own (user_id forced to subject)
func ListAttemptsHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := rbac.RoleFromContext(r.Context())
		sub := rbac.SubjectFromContext(r.Context())

		quizID := strings.TrimSpace(r.URL.Query().Get("quiz_id"))
		userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
		completed := strings.TrimSpace(r.URL.Query().Get("completed"))
		limit := parseIntDefault(r.URL.Query().Get("limit"), 50)
		offset := parseIntDefault(r.URL.Query().Get("offset"), 0)

		if role == "" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		if role != "admin" && role != "teacher" {
			userID = sub
		}

		list, err := store.ListAttempts(r.Context(), quiz.AttemptListOpts{
			QuizID:    quizID,
			UserID:    userID,
			Completed: completed,
			Limit:     limit,
			Offset:    offset,
		})
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}
