package sqlxrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/sonalink/sonalink/core"
	"github.com/sonalink/sonalink/core/quiz"
)

const quizColumns = "id, course_id, creator_id, title, description, time_limit_minutes, due_date, created_at"

type (
	answerKeyRow struct {
		QuestionID int64             `db:"question_id"`
		Type       quiz.QuestionType `db:"question_type"`
		Points     int               `db:"points"`
		CorrectIDs pq.Int64Array     `db:"correct_ids"`
	}

	answerRow struct {
		ID                int64         `db:"id"`
		SubmissionID      int64         `db:"submission_id"`
		QuestionID        int64         `db:"question_id"`
		SelectedOptionIDs pq.Int64Array `db:"selected_option_ids"`
		AnswerText        null.String   `db:"answer_text"`
		IsCorrect         null.Bool     `db:"is_correct"`
		PointsAwarded     int           `db:"points_awarded"`
	}
)

type quizRepository struct {
	repo
}

var _ quiz.Repository = (*quizRepository)(nil) // interface compliance check

func NewQuizRepository(db *sqlx.DB) *quizRepository {
	return &quizRepository{repo{db: db}}
}

func (r quizRepository) CreateQuiz(ctx context.Context, q quiz.Quiz, exec ...core.DBExecutor) (quiz.Quiz, error) {
	stmt := `INSERT INTO quizzes (course_id, creator_id, title, description, time_limit_minutes, due_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING ` + quizColumns
	var created quiz.Quiz
	err := sqlx.GetContext(ctx, r.getExec(exec), &created, stmt,
		q.CourseID, q.CreatorID, q.Title, q.Description, q.TimeLimit, q.DueDate, q.CreatedAt)
	if err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "inserting quiz")
	}
	return created, nil
}

func (r quizRepository) GetQuiz(ctx context.Context, id int64, exec ...core.DBExecutor) (quiz.Quiz, error) {
	var q quiz.Quiz
	if err := sqlx.GetContext(ctx, r.getExec(exec), &q, "SELECT "+quizColumns+" FROM quizzes WHERE id = $1", id); err != nil {
		return quiz.Quiz{}, trapNoRows(err, quiz.ErrNotFound, "selecting quiz")
	}
	return q, nil
}

func (r quizRepository) ListQuizzes(ctx context.Context, courseID, userID int64) ([]quiz.Summary, error) {
	q := `SELECT q.id, q.course_id, q.creator_id, q.title, q.description, q.time_limit_minutes, q.due_date, q.created_at,
			(SELECT COUNT(*) FROM quiz_questions qq WHERE qq.quiz_id = q.id) AS total_questions,
			(SELECT COUNT(*) FROM quiz_submissions s WHERE s.quiz_id = q.id AND s.user_id = $2) AS submitted_count
		FROM quizzes q
		WHERE q.course_id = $1
		ORDER BY q.due_date ASC NULLS LAST, q.created_at DESC`
	summaries := make([]quiz.Summary, 0)
	if err := sqlx.SelectContext(ctx, r.db, &summaries, q, courseID, userID); err != nil {
		return nil, errors.Wrap(err, "selecting quizzes")
	}
	return summaries, nil
}

func (r quizRepository) ListQuestions(ctx context.Context, quizID int64) ([]quiz.Question, error) {
	questions := make([]quiz.Question, 0)
	q := `SELECT id, quiz_id, question_text, question_type, points, order_index
		FROM quiz_questions WHERE quiz_id = $1 ORDER BY order_index, id`
	if err := sqlx.SelectContext(ctx, r.db, &questions, q, quizID); err != nil {
		return nil, errors.Wrap(err, "selecting questions")
	}
	if len(questions) == 0 {
		return questions, nil
	}

	ids := make([]int64, 0, len(questions))
	idx := make(map[int64]int, len(questions))
	for i, qq := range questions {
		ids = append(ids, qq.ID)
		idx[qq.ID] = i
		questions[i].Options = []quiz.Option{}
	}

	var options []quiz.Option
	q = `SELECT id, question_id, option_text, is_correct
		FROM question_options WHERE question_id = ANY($1) ORDER BY id`
	if err := sqlx.SelectContext(ctx, r.db, &options, q, pq.Array(ids)); err != nil {
		return nil, errors.Wrap(err, "selecting options")
	}
	for _, opt := range options {
		i := idx[opt.QuestionID]
		questions[i].Options = append(questions[i].Options, opt)
	}
	return questions, nil
}

func (r quizRepository) NextOrderIndex(ctx context.Context, quizID int64, exec ...core.DBExecutor) (int, error) {
	var next int
	q := "SELECT COALESCE(MAX(order_index) + 1, 0) FROM quiz_questions WHERE quiz_id = $1"
	if err := sqlx.GetContext(ctx, r.getExec(exec), &next, q, quizID); err != nil {
		return 0, errors.Wrap(err, "selecting order index")
	}
	return next, nil
}

func (r quizRepository) CreateQuestion(ctx context.Context, qq quiz.Question, exec ...core.DBExecutor) (quiz.Question, error) {
	ex := r.getExec(exec)
	q := `INSERT INTO quiz_questions (quiz_id, question_text, question_type, points, order_index)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if err := sqlx.GetContext(ctx, ex, &qq.ID, q, qq.QuizID, qq.Text, qq.Type, qq.Points, qq.OrderIndex); err != nil {
		return quiz.Question{}, errors.Wrap(err, "inserting question")
	}

	q = "INSERT INTO question_options (question_id, option_text, is_correct) VALUES ($1, $2, $3) RETURNING id"
	options := make([]quiz.Option, 0, len(qq.Options))
	for _, opt := range qq.Options {
		opt.QuestionID = qq.ID
		if err := sqlx.GetContext(ctx, ex, &opt.ID, q, opt.QuestionID, opt.Text, opt.IsCorrect); err != nil {
			return quiz.Question{}, errors.Wrap(err, "inserting option")
		}
		options = append(options, opt)
	}
	qq.Options = options
	return qq, nil
}

func (r quizRepository) CreateSubmission(ctx context.Context, quizID, userID int64, submittedAt time.Time, exec ...core.DBExecutor) (int64, error) {
	var id int64
	q := "INSERT INTO quiz_submissions (quiz_id, user_id, submitted_at) VALUES ($1, $2, $3) RETURNING id"
	if err := sqlx.GetContext(ctx, r.getExec(exec), &id, q, quizID, userID, submittedAt); err != nil {
		return 0, errors.Wrap(err, "inserting submission")
	}
	return id, nil
}

func (r quizRepository) GetAnswerKeys(ctx context.Context, quizID int64, exec ...core.DBExecutor) ([]quiz.AnswerKey, error) {
	q := `SELECT qq.id AS question_id, qq.question_type, qq.points,
			COALESCE(ARRAY_AGG(o.id ORDER BY o.id) FILTER (WHERE o.is_correct), '{}') AS correct_ids
		FROM quiz_questions qq
		LEFT JOIN question_options o ON o.question_id = qq.id
		WHERE qq.quiz_id = $1
		GROUP BY qq.id
		ORDER BY qq.order_index, qq.id`
	var rows []answerKeyRow
	if err := sqlx.SelectContext(ctx, r.getExec(exec), &rows, q, quizID); err != nil {
		return nil, errors.Wrap(err, "selecting answer keys")
	}

	keys := make([]quiz.AnswerKey, 0, len(rows))
	for _, row := range rows {
		keys = append(keys, quiz.AnswerKey{
			QuestionID:       row.QuestionID,
			Type:             row.Type,
			Points:           row.Points,
			CorrectOptionIDs: []int64(row.CorrectIDs),
		})
	}
	return keys, nil
}

// CreateAnswers stores every graded answer of a submission with a single multi-row INSERT.
func (r quizRepository) CreateAnswers(ctx context.Context, answers []quiz.SubmissionAnswer, exec ...core.DBExecutor) error {
	if len(answers) == 0 {
		return nil
	}
	const cols = 6
	var q strings.Builder
	q.WriteString(`INSERT INTO submission_answers
		(submission_id, question_id, selected_option_ids, answer_text, is_correct, points_awarded) VALUES `)
	args := make([]interface{}, 0, cols*len(answers))
	for i, a := range answers {
		if i > 0 {
			q.WriteString(", ")
		}
		n := i * cols
		fmt.Fprintf(&q, "($%d, $%d, $%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4, n+5, n+6)

		selected := a.SelectedOptionIDs
		if selected == nil {
			selected = []int64{} // a nil array would be stored as NULL
		}
		args = append(args, a.SubmissionID, a.QuestionID, pq.Array(selected), a.AnswerText, a.IsCorrect, a.PointsAwarded)
	}
	_, err := r.getExec(exec).ExecContext(ctx, q.String(), args...)
	return errors.Wrapf(err, "inserting %d answers", len(answers))
}

func (r quizRepository) CompleteSubmission(ctx context.Context, id int64, score, maxScore int, completedAt time.Time, exec ...core.DBExecutor) error {
	q := "UPDATE quiz_submissions SET score = $2, max_possible_score = $3, completed_at = $4 WHERE id = $1"
	res, err := r.getExec(exec).ExecContext(ctx, q, id, score, maxScore, completedAt)
	if err != nil {
		return errors.Wrap(err, "updating submission")
	}
	return rowsAffected(res, quiz.ErrSubmissionNotFound)
}

func (r quizRepository) GetSubmission(ctx context.Context, id int64) (quiz.Submission, error) {
	var sub quiz.Submission
	q := `SELECT id, quiz_id, user_id, score, max_possible_score, submitted_at, completed_at
		FROM quiz_submissions WHERE id = $1`
	if err := sqlx.GetContext(ctx, r.db, &sub, q, id); err != nil {
		return quiz.Submission{}, trapNoRows(err, quiz.ErrSubmissionNotFound, "selecting submission")
	}

	var rows []answerRow
	q = `SELECT a.id, a.submission_id, a.question_id, a.selected_option_ids, a.answer_text, a.is_correct, a.points_awarded
		FROM submission_answers a
		JOIN quiz_questions qq ON qq.id = a.question_id
		WHERE a.submission_id = $1
		ORDER BY qq.order_index, qq.id`
	if err := sqlx.SelectContext(ctx, r.db, &rows, q, id); err != nil {
		return quiz.Submission{}, errors.Wrap(err, "selecting answers")
	}
	sub.Answers = make([]quiz.SubmissionAnswer, 0, len(rows))
	for _, row := range rows {
		selected := []int64(row.SelectedOptionIDs)
		if selected == nil {
			selected = []int64{}
		}
		sub.Answers = append(sub.Answers, quiz.SubmissionAnswer{
			ID:                row.ID,
			SubmissionID:      row.SubmissionID,
			QuestionID:        row.QuestionID,
			SelectedOptionIDs: selected,
			AnswerText:        row.AnswerText,
			IsCorrect:         row.IsCorrect,
			PointsAwarded:     row.PointsAwarded,
		})
	}
	return sub, nil
}

func (r quizRepository) ListDueReminders(ctx context.Context, from, to time.Time) ([]quiz.DueReminder, error) {
	q := `SELECT q.id AS quiz_id, q.title AS quiz_title, q.course_id, q.due_date, e.user_id
		FROM quizzes q
		JOIN enrollments e ON e.course_id = q.course_id
		WHERE q.due_date BETWEEN $1 AND $2
			AND NOT EXISTS (SELECT 1 FROM quiz_submissions s WHERE s.quiz_id = q.id AND s.user_id = e.user_id)
			AND NOT EXISTS (SELECT 1 FROM quiz_reminders qr WHERE qr.quiz_id = q.id AND qr.user_id = e.user_id)
		ORDER BY q.due_date, q.id, e.user_id`
	var reminders []quiz.DueReminder
	if err := sqlx.SelectContext(ctx, r.db, &reminders, q, from, to); err != nil {
		return nil, errors.Wrap(err, "selecting due reminders")
	}
	return reminders, nil
}

func (r quizRepository) MarkReminded(ctx context.Context, quizID, userID int64, exec ...core.DBExecutor) (bool, error) {
	q := "INSERT INTO quiz_reminders (quiz_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING"
	res, err := r.getExec(exec).ExecContext(ctx, q, quizID, userID)
	if err != nil {
		return false, errors.Wrap(err, "inserting reminder")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "counting affected rows")
	}
	return n == 1, nil
}
