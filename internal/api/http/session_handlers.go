package http

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/quizcraft/quizcraft-server/internal/quiz"
	"github.com/quizcraft/quizcraft-server/internal/rbac"
)

// sessionFor resolves the live session for the route's attempt and
// verifies the caller owns it.
func sessionFor(svc *quiz.TakeService, w http.ResponseWriter, r *http.Request) (*quiz.Session, bool) {
	sess, err := svc.Session(chi.URLParam(r, "attemptID"))
	if err != nil {
		writeErr(w, err)
		return nil, false
	}
	if sess.UserID != rbac.SubjectFromContext(r.Context()) {
		writeErr(w, quiz.ErrForbidden)
		return nil, false
	}
	return sess, true
}

// POST /attempts  { "quiz_id": "..." }
func StartAttemptHandler(svc *quiz.TakeService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			QuizID string `json:"quiz_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.QuizID == "" {
			http.Error(w, "quiz_id required", http.StatusBadRequest)
			return
		}
		sess, a, err := svc.StartAttempt(r.Context(), req.QuizID, rbac.SubjectFromContext(r.Context()))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"attempt": a,
			"phase":   sess.Phase(),
			"quiz":    clientQuizView(sess.Quiz),
			"total":   len(sess.Served()),
		})
	}
}

// clientQuizView strips the password and keeps the display settings the
// taking client needs.
func clientQuizView(q quiz.Quiz) map[string]any {
	return map[string]any{
		"id":                    q.ID,
		"title":                 q.Title,
		"description":           q.Description,
		"time_limit":            q.TimeLimit,
		"show_feedback":         q.ShowFeedback,
		"show_question_numbers": q.ShowQuestionNumbers,
		"show_progress_bar":     q.ShowProgressBar,
		"show_elapsed_time":     q.ShowElapsedTime,
		"prevent_copy":          q.PreventCopy,
		"prevent_back_button":   q.PreventBackButton,
		"confirm_last_next":     q.ConfirmLastNext,
		"confirm_finish":        q.ConfirmFinish,
		"has_password":          q.Password != nil && *q.Password != "",
	}
}

// POST /attempts/{attemptID}/password  { "password": "..." }
func QuizPasswordHandler(svc *quiz.TakeService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionFor(svc, w, r)
		if !ok {
			return
		}
		var req struct {
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := sess.SubmitPassword(req.Password); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"phase": sess.Phase()})
	}
}

// GET /attempts/{attemptID}/fields
func IntakeFieldsHandler(svc *quiz.TakeService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionFor(svc, w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, sess.Fields())
	}
}

// POST /attempts/{attemptID}/fields  { "values": {"name": "Ada"} }
func SubmitFieldsHandler(svc *quiz.TakeService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionFor(svc, w, r)
		if !ok {
			return
		}
		var req struct {
			Values map[string]string `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := svc.SubmitFields(r.Context(), sess, req.Values); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"phase": sess.Phase()})
	}
}

type servedOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// servedQuestion is the question as shown to a respondent: the answer
// key never leaves the server. Matching questions carry the left column
// in Options and the pairing targets in RightColumn.
type servedQuestion struct {
	ID          string            `json:"id"`
	Index       int               `json:"index"`
	Total       int               `json:"total"`
	Content     string            `json:"content"`
	ImageURL    *string           `json:"image_url,omitempty"`
	Points      int               `json:"points"`
	Type        quiz.QuestionType `json:"question_type"`
	Options     []servedOption    `json:"options,omitempty"`
	RightColumn []servedOption    `json:"right_column,omitempty"`
	Response    *quiz.Response    `json:"response,omitempty"`
}

func serveQuestion(sess *quiz.Session, q quiz.Question, idx int) servedQuestion {
	sq := servedQuestion{
		ID:       q.ID,
		Index:    idx,
		Total:    len(sess.Served()),
		Content:  q.Content,
		ImageURL: q.ImageURL,
		Points:   q.Points,
		Type:     q.Type,
	}
	for _, o := range q.Options {
		sq.Options = append(sq.Options, servedOption{ID: o.ID, Text: o.Text})
	}
	if q.Type == quiz.Matching {
		for _, o := range q.Options {
			sq.RightColumn = append(sq.RightColumn, servedOption{ID: o.ID, Text: o.MatchingText})
		}
		// Sorted by label so re-fetching the question renders the same
		// column without leaking the pairing order.
		sort.Slice(sq.RightColumn, func(i, j int) bool {
			return sq.RightColumn[i].Text < sq.RightColumn[j].Text
		})
	}
	if resp, ok := sess.Response(q.ID); ok {
		sq.Response = &resp
	}
	return sq
}

// GET /attempts/{attemptID}/current
func CurrentQuestionHandler(svc *quiz.TakeService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionFor(svc, w, r)
		if !ok {
			return
		}
		q, idx, err := sess.Current()
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, serveQuestion(sess, q, idx))
	}
}

// POST /attempts/{attemptID}/answer  { "question_id": "...", "response": {...} }
func SaveAnswerHandler(svc *quiz.TakeService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionFor(svc, w, r)
		if !ok {
			return
		}
		var req struct {
			QuestionID string        `json:"question_id"`
			Response   quiz.Response `json:"response"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.QuestionID == "" {
			http.Error(w, "question_id and response required", http.StatusBadRequest)
			return
		}
		if err := sess.SetResponse(req.QuestionID, req.Response); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"saved": true})
	}
}

// POST /attempts/{attemptID}/next and /prev move the cursor and return
// the question now under it.
func NextQuestionHandler(svc *quiz.TakeService) http.HandlerFunc {
	return navHandler(svc, (*quiz.Session).Next)
}

func PrevQuestionHandler(svc *quiz.TakeService) http.HandlerFunc {
	return navHandler(svc, (*quiz.Session).Prev)
}

func navHandler(svc *quiz.TakeService, move func(*quiz.Session) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionFor(svc, w, r)
		if !ok {
			return
		}
		if err := move(sess); err != nil {
			writeErr(w, err)
			return
		}
		q, idx, err := sess.Current()
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, serveQuestion(sess, q, idx))
	}
}

// POST /attempts/{attemptID}/finish  { "force": false }
// Without force a session with unanswered questions is not submitted;
// the response reports how many remain so the client can confirm.
func FinishAttemptHandler(svc *quiz.TakeService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionFor(svc, w, r)
		if !ok {
			return
		}
		var req struct {
			Force bool `json:"force"`
		}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&req)
		}
		if n := sess.UnansweredCount(); n > 0 && !req.Force {
			writeJSON(w, http.StatusConflict, map[string]any{
				"unanswered": n,
				"message":    "unanswered questions remain; finish with force to submit anyway",
			})
			return
		}
		res, err := svc.Finish(r.Context(), sess, req.Force)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// DELETE /attempts/{attemptID} abandons the session without submitting.
func AbandonAttemptHandler(svc *quiz.TakeService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := sessionFor(svc, w, r); !ok {
			return
		}
		svc.Abandon(chi.URLParam(r, "attemptID"))
		w.WriteHeader(http.StatusNoContent)
	}
}
