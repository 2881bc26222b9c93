package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SQLStore persists the quiz domain over database/sql. It works against
// both the sqlite and postgres schemas from internal/db; $n placeholders
// are accepted by both drivers.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// --- quizzes ---

func (s *SQLStore) CreateQuiz(ctx context.Context, q Quiz) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO quizzes
		(id,title,description,created_by,is_public,is_published,time_limit,password,
		 randomize_questions,randomize_answers,show_feedback,show_question_numbers,
		 show_progress_bar,question_limit,show_elapsed_time,prevent_copy,
		 prevent_back_button,confirm_last_next,confirm_finish,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)`,
		q.ID, q.Title, q.Description, q.CreatedBy, q.IsPublic, q.IsPublished,
		nullableInt(q.TimeLimit), nullableString(q.Password),
		q.RandomizeQuestions, q.RandomizeAnswers, q.ShowFeedback, q.ShowQuestionNumbers,
		q.ShowProgressBar, nullableInt(q.QuestionLimit), q.ShowElapsedTime, q.PreventCopy,
		q.PreventBackButton, q.ConfirmLastNext, q.ConfirmFinish,
		q.CreatedAt.Unix(), q.UpdatedAt.Unix())
	return err
}

func (s *SQLStore) GetQuiz(ctx context.Context, id string) (Quiz, error) {
	row := s.db.QueryRowContext(ctx, `SELECT
		id,title,description,created_by,is_public,is_published,time_limit,password,
		randomize_questions,randomize_answers,show_feedback,show_question_numbers,
		show_progress_bar,question_limit,show_elapsed_time,prevent_copy,
		prevent_back_button,confirm_last_next,confirm_finish,created_at,updated_at
		FROM quizzes WHERE id=$1`, id)
	return scanQuiz(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuiz(row rowScanner) (Quiz, error) {
	var q Quiz
	var timeLimit, questionLimit sql.NullInt64
	var password sql.NullString
	var createdAt, updatedAt int64
	err := row.Scan(&q.ID, &q.Title, &q.Description, &q.CreatedBy, &q.IsPublic, &q.IsPublished,
		&timeLimit, &password,
		&q.RandomizeQuestions, &q.RandomizeAnswers, &q.ShowFeedback, &q.ShowQuestionNumbers,
		&q.ShowProgressBar, &questionLimit, &q.ShowElapsedTime, &q.PreventCopy,
		&q.PreventBackButton, &q.ConfirmLastNext, &q.ConfirmFinish, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Quiz{}, ErrNotFound
		}
		return Quiz{}, err
	}
	if timeLimit.Valid {
		v := int(timeLimit.Int64)
		q.TimeLimit = &v
	}
	if questionLimit.Valid {
		v := int(questionLimit.Int64)
		q.QuestionLimit = &v
	}
	if password.Valid {
		q.Password = &password.String
	}
	q.CreatedAt = time.Unix(createdAt, 0)
	q.UpdatedAt = time.Unix(updatedAt, 0)
	return q, nil
}

func (s *SQLStore) UpdateQuiz(ctx context.Context, q Quiz, ownerID string) error {
	if err := s.requireOwner(ctx, q.ID, ownerID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `UPDATE quizzes SET
		title=$1,description=$2,is_public=$3,time_limit=$4,password=$5,
		randomize_questions=$6,randomize_answers=$7,show_feedback=$8,
		show_question_numbers=$9,show_progress_bar=$10,question_limit=$11,
		show_elapsed_time=$12,prevent_copy=$13,prevent_back_button=$14,
		confirm_last_next=$15,confirm_finish=$16,updated_at=$17
		WHERE id=$18`,
		q.Title, q.Description, q.IsPublic, nullableInt(q.TimeLimit), nullableString(q.Password),
		q.RandomizeQuestions, q.RandomizeAnswers, q.ShowFeedback,
		q.ShowQuestionNumbers, q.ShowProgressBar, nullableInt(q.QuestionLimit),
		q.ShowElapsedTime, q.PreventCopy, q.PreventBackButton,
		q.ConfirmLastNext, q.ConfirmFinish, time.Now().Unix(), q.ID)
	return err
}

// DeleteQuiz removes the quiz and, through the schema's ON DELETE
// CASCADE, its questions, custom fields, attempts and attempt-scoped
// rows.
func (s *SQLStore) DeleteQuiz(ctx context.Context, id, ownerID string) error {
	if err := s.requireOwner(ctx, id, ownerID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM quizzes WHERE id=$1`, id)
	return err
}

func (s *SQLStore) SetPublished(ctx context.Context, id, ownerID string, published bool) error {
	if err := s.requireOwner(ctx, id, ownerID); err != nil {
		return err
	}
	if published {
		var n int
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM questions WHERE quiz_id=$1`, id).Scan(&n); err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: cannot publish a quiz with no questions", ErrValidation)
		}
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE quizzes SET is_published=$1, updated_at=$2 WHERE id=$3`,
		published, time.Now().Unix(), id)
	return err
}

func (s *SQLStore) requireOwner(ctx context.Context, quizID, ownerID string) error {
	var createdBy string
	err := s.db.QueryRowContext(ctx,
		`SELECT created_by FROM quizzes WHERE id=$1`, quizID).Scan(&createdBy)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if createdBy != ownerID {
		return ErrForbidden
	}
	return nil
}

func (s *SQLStore) ListQuizzes(ctx context.Context, opts ListOpts) ([]QuizSummary, error) {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}
	where := []string{}
	args := []any{}
	n := 0
	arg := func(v any) string {
		n++
		args = append(args, v)
		return fmt.Sprintf("$%d", n)
	}
	if opts.Q != "" {
		p := arg("%" + strings.ToLower(opts.Q) + "%")
		where = append(where, fmt.Sprintf("LOWER(q.title) LIKE %s", p))
	}
	switch opts.ViewerRole {
	case "teacher", "admin":
		if opts.ViewerID != "" {
			where = append(where, fmt.Sprintf("q.created_by = %s", arg(opts.ViewerID)))
		}
	default:
		// Respondents browse the published public catalog only.
		where = append(where, "q.is_published = TRUE AND q.is_public = TRUE")
	}
	query := `SELECT q.id,q.title,q.description,q.created_by,q.is_public,q.is_published,
		(SELECT COUNT(*) FROM questions WHERE quiz_id=q.id) AS question_count,
		q.created_at FROM quizzes q`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY q.created_at DESC LIMIT %s OFFSET %s",
		arg(opts.Limit), arg(opts.Offset))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []QuizSummary{}
	for rows.Next() {
		var qs QuizSummary
		var createdAt int64
		if err := rows.Scan(&qs.ID, &qs.Title, &qs.Description, &qs.CreatedBy,
			&qs.IsPublic, &qs.IsPublished, &qs.QuestionCount, &createdAt); err != nil {
			return nil, err
		}
		qs.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, qs)
	}
	return out, rows.Err()
}

// --- questions ---

func (s *SQLStore) CreateQuestion(ctx context.Context, q Question) error {
	optsJSON, err := EncodeOptions(q.Options)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO questions
		(id,quiz_id,position,content,image_url,points,question_type,grading_method,options_json,correct_json)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		q.ID, q.QuizID, q.Position, q.Content, nullableString(q.ImageURL), q.Points,
		string(q.Type), string(q.Method), jsonText(optsJSON), jsonText(q.Correct))
	return err
}

func (s *SQLStore) GetQuestion(ctx context.Context, id string) (Question, error) {
	row := s.db.QueryRowContext(ctx, `SELECT
		id,quiz_id,position,content,image_url,points,question_type,grading_method,options_json,correct_json
		FROM questions WHERE id=$1`, id)
	return scanQuestion(row)
}

func scanQuestion(row rowScanner) (Question, error) {
	var q Question
	var imageURL sql.NullString
	var typ, method, optsJSON, correctJSON string
	err := row.Scan(&q.ID, &q.QuizID, &q.Position, &q.Content, &imageURL, &q.Points,
		&typ, &method, &optsJSON, &correctJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Question{}, ErrNotFound
		}
		return Question{}, err
	}
	if imageURL.Valid {
		q.ImageURL = &imageURL.String
	}
	q.Type = QuestionType(typ)
	q.Method = GradingMethod(method)
	if correctJSON != "" {
		q.Correct = json.RawMessage(correctJSON)
	}
	opts, err := DecodeOptions(q.Type, json.RawMessage(optsJSON))
	if err != nil {
		return Question{}, err
	}
	q.Options = opts
	return q, nil
}

func (s *SQLStore) UpdateQuestion(ctx context.Context, q Question) error {
	optsJSON, err := EncodeOptions(q.Options)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `UPDATE questions SET
		position=$1,content=$2,image_url=$3,points=$4,question_type=$5,
		grading_method=$6,options_json=$7,correct_json=$8 WHERE id=$9`,
		q.Position, q.Content, nullableString(q.ImageURL), q.Points, string(q.Type),
		string(q.Method), jsonText(optsJSON), jsonText(q.Correct), q.ID)
	return err
}

func (s *SQLStore) DeleteQuestion(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM questions WHERE id=$1`, id)
	return err
}

func (s *SQLStore) ListQuestions(ctx context.Context, quizID string) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		id,quiz_id,position,content,image_url,points,question_type,grading_method,options_json,correct_json
		FROM questions WHERE quiz_id=$1 ORDER BY position`, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// --- custom fields ---

func (s *SQLStore) CreateCustomField(ctx context.Context, f CustomField) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO quiz_custom_fields
		(id,quiz_id,field_name,field_label,is_required,position)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		f.ID, f.QuizID, f.FieldName, f.FieldLabel, f.IsRequired, f.Position)
	return err
}

func (s *SQLStore) DeleteCustomField(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM quiz_custom_fields WHERE id=$1`, id)
	return err
}

func (s *SQLStore) ListCustomFields(ctx context.Context, quizID string) ([]CustomField, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,quiz_id,field_name,field_label,is_required,position
		FROM quiz_custom_fields WHERE quiz_id=$1 ORDER BY position`, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []CustomField{}
	for rows.Next() {
		var f CustomField
		if err := rows.Scan(&f.ID, &f.QuizID, &f.FieldName, &f.FieldLabel, &f.IsRequired, &f.Position); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// --- attempts ---

func (s *SQLStore) CreateAttempt(ctx context.Context, a Attempt) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO quiz_attempts
		(id,quiz_id,user_id,started_at,completed_at,score,max_score,is_graded)
		VALUES ($1,$2,$3,$4,NULL,$5,$6,$7)`,
		a.ID, a.QuizID, a.UserID, a.StartedAt.Unix(), a.Score, a.MaxScore, a.IsGraded)
	return err
}

func (s *SQLStore) GetAttempt(ctx context.Context, id string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,quiz_id,user_id,started_at,completed_at,score,max_score,is_graded
		FROM quiz_attempts WHERE id=$1`, id)
	return scanAttempt(row)
}

func scanAttempt(row rowScanner) (Attempt, error) {
	var a Attempt
	var startedAt int64
	var completedAt sql.NullInt64
	err := row.Scan(&a.ID, &a.QuizID, &a.UserID, &startedAt, &completedAt,
		&a.Score, &a.MaxScore, &a.IsGraded)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, ErrNotFound
		}
		return Attempt{}, err
	}
	a.StartedAt = time.Unix(startedAt, 0)
	if completedAt.Valid {
		t := time.Unix(completedAt.Int64, 0)
		a.CompletedAt = &t
	}
	return a, nil
}

func (s *SQLStore) CompleteAttempt(ctx context.Context, id string, score float64, graded bool, completedAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE quiz_attempts SET completed_at=$1, score=$2, is_graded=$3 WHERE id=$4`,
		completedAt.Unix(), score, graded, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *SQLStore) UpdateAttemptScore(ctx context.Context, id string, score float64, graded bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE quiz_attempts SET score=$1, is_graded=$2 WHERE id=$3`, score, graded, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error) {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}
	where := []string{}
	args := []any{}
	n := 0
	arg := func(v any) string {
		n++
		args = append(args, v)
		return fmt.Sprintf("$%d", n)
	}
	if opts.QuizID != "" {
		where = append(where, "quiz_id = "+arg(opts.QuizID))
	}
	if opts.UserID != "" {
		where = append(where, "user_id = "+arg(opts.UserID))
	}
	switch opts.Completed {
	case "completed":
		where = append(where, "completed_at IS NOT NULL")
	case "in_progress":
		where = append(where, "completed_at IS NULL")
	}
	query := `SELECT id,quiz_id,user_id,started_at,completed_at,score,max_score,is_graded FROM quiz_attempts`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY started_at DESC LIMIT %s OFFSET %s", arg(opts.Limit), arg(opts.Offset))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Attempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) QuizStats(ctx context.Context, quizID string) (Stats, error) {
	st := Stats{QuizID: quizID}
	err := s.db.QueryRowContext(ctx, `SELECT
		COUNT(*),
		COUNT(completed_at),
		COALESCE(SUM(CASE WHEN completed_at IS NOT NULL AND NOT is_graded THEN 1 ELSE 0 END),0),
		COALESCE(AVG(CASE WHEN completed_at IS NOT NULL THEN score END),0),
		COALESCE(AVG(CASE WHEN completed_at IS NOT NULL THEN max_score END),0)
		FROM quiz_attempts WHERE quiz_id=$1`, quizID).
		Scan(&st.AttemptCount, &st.CompletedCount, &st.PendingGrading, &st.AvgScore, &st.AvgMaxScore)
	return st, err
}

// --- answers ---

func (s *SQLStore) InsertAnswer(ctx context.Context, a Answer) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO answers
		(id,attempt_id,question_id,position,user_answer,is_correct,points_awarded,feedback,graded_at,graded_by,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NULL,NULL,$9)`,
		a.ID, a.AttemptID, a.QuestionID, a.Position, jsonText(a.UserAnswer),
		nullableBool(a.IsCorrect), nullableFloat(a.PointsAwarded),
		nullableString(a.Feedback), time.Now().Unix())
	return err
}

func (s *SQLStore) ListAnswers(ctx context.Context, attemptID string) ([]Answer, error) {
	return s.queryAnswers(ctx,
		`SELECT id,attempt_id,question_id,position,user_answer,is_correct,points_awarded,feedback,graded_at,graded_by
		 FROM answers WHERE attempt_id=$1 ORDER BY position, id`, attemptID)
}

func (s *SQLStore) ListPendingAnswers(ctx context.Context, attemptID string) ([]Answer, error) {
	return s.queryAnswers(ctx,
		`SELECT id,attempt_id,question_id,position,user_answer,is_correct,points_awarded,feedback,graded_at,graded_by
		 FROM answers WHERE attempt_id=$1 AND is_correct IS NULL ORDER BY position, id`, attemptID)
}

func (s *SQLStore) queryAnswers(ctx context.Context, query string, args ...any) ([]Answer, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Answer{}
	for rows.Next() {
		var a Answer
		var userAnswer, feedback, gradedBy sql.NullString
		var isCorrect sql.NullBool
		var points sql.NullFloat64
		var gradedAt sql.NullInt64
		if err := rows.Scan(&a.ID, &a.AttemptID, &a.QuestionID, &a.Position, &userAnswer,
			&isCorrect, &points, &feedback, &gradedAt, &gradedBy); err != nil {
			return nil, err
		}
		if userAnswer.Valid && userAnswer.String != "" {
			a.UserAnswer = json.RawMessage(userAnswer.String)
		}
		if isCorrect.Valid {
			a.IsCorrect = &isCorrect.Bool
		}
		if points.Valid {
			a.PointsAwarded = &points.Float64
		}
		if feedback.Valid {
			a.Feedback = &feedback.String
		}
		if gradedAt.Valid {
			t := time.Unix(gradedAt.Int64, 0)
			a.GradedAt = &t
		}
		if gradedBy.Valid {
			a.GradedBy = &gradedBy.String
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) UpdateAnswerGrade(ctx context.Context, answerID string, g GradeUpdate) error {
	res, err := s.db.ExecContext(ctx, `UPDATE answers SET
		is_correct=$1, points_awarded=$2, feedback=$3, graded_at=$4, graded_by=$5
		WHERE id=$6`,
		g.IsCorrect, g.PointsAwarded, g.Feedback, g.GradedAt.Unix(), g.GradedBy, answerID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// --- attempt fields ---

func (s *SQLStore) InsertAttemptFields(ctx context.Context, values []AttemptFieldValue) error {
	for _, v := range values {
		if _, err := s.db.ExecContext(ctx, `INSERT INTO quiz_attempt_fields
			(id,attempt_id,field_name,field_value) VALUES ($1,$2,$3,$4)`,
			v.ID, v.AttemptID, v.FieldName, v.FieldValue); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLStore) ListAttemptFields(ctx context.Context, attemptID string) ([]AttemptFieldValue, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,attempt_id,field_name,field_value
		FROM quiz_attempt_fields WHERE attempt_id=$1`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []AttemptFieldValue{}
	for rows.Next() {
		var v AttemptFieldValue
		if err := rows.Scan(&v.ID, &v.AttemptID, &v.FieldName, &v.FieldValue); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// --- null helpers ---

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableBool(v *bool) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func jsonText(raw json.RawMessage) any {
	if len(raw) == 0 {
		return ""
	}
	return string(raw)
}
