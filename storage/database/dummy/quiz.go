package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/sonalink/sonalink/core"
	"github.com/sonalink/sonalink/core/quiz"
)

type quizRepository struct {
	db *DB
}

var _ quiz.Repository = (*quizRepository)(nil) // interface compliance check

func NewQuizRepository(db *DB) *quizRepository {
	return &quizRepository{db: db}
}

func (r *quizRepository) CreateQuiz(_ context.Context, q quiz.Quiz, exec ...core.DBExecutor) (quiz.Quiz, error) {
	err := r.db.lockWrite("CreateQuiz", exec)
	defer r.db.unlock()
	if err != nil {
		return quiz.Quiz{}, err
	}
	q.ID = r.db.nextID()
	r.db.t.quizzes[q.ID] = q
	return q, nil
}

func (r *quizRepository) GetQuiz(_ context.Context, id int64, _ ...core.DBExecutor) (quiz.Quiz, error) {
	err := r.db.lock("GetQuiz")
	defer r.db.mu.Unlock()
	if err != nil {
		return quiz.Quiz{}, err
	}
	if q, ok := r.db.t.quizzes[id]; ok {
		return q, nil
	}
	return quiz.Quiz{}, quiz.ErrNotFound
}

func (r *quizRepository) ListQuizzes(_ context.Context, courseID, userID int64) ([]quiz.Summary, error) {
	err := r.db.lock("ListQuizzes")
	defer r.db.mu.Unlock()
	if err != nil {
		return nil, err
	}
	summaries := make([]quiz.Summary, 0)
	for _, q := range r.db.t.quizzes {
		if q.CourseID != courseID {
			continue
		}
		s := quiz.Summary{Quiz: q}
		for _, qq := range r.db.t.questions {
			if qq.QuizID == q.ID {
				s.TotalQuestions++
			}
		}
		for _, sub := range r.db.t.submissions {
			if sub.QuizID == q.ID && sub.UserID == userID {
				s.SubmittedCount++
			}
		}
		summaries = append(summaries, s)
	}
	sort.Slice(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		if a.DueDate.Valid != b.DueDate.Valid {
			return a.DueDate.Valid // nulls last
		}
		if a.DueDate.Valid && !a.DueDate.Time.Equal(b.DueDate.Time) {
			return a.DueDate.Time.Before(b.DueDate.Time)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return summaries, nil
}

// questions returns the questions of a quiz in order.
func (r *quizRepository) questions(quizID int64) []quiz.Question {
	questions := make([]quiz.Question, 0)
	for _, qq := range r.db.t.questions {
		if qq.QuizID == quizID {
			questions = append(questions, qq)
		}
	}
	sort.Slice(questions, func(i, j int) bool {
		if questions[i].OrderIndex != questions[j].OrderIndex {
			return questions[i].OrderIndex < questions[j].OrderIndex
		}
		return questions[i].ID < questions[j].ID
	})
	return questions
}

func (r *quizRepository) ListQuestions(_ context.Context, quizID int64) ([]quiz.Question, error) {
	err := r.db.lock("ListQuestions")
	defer r.db.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return r.questions(quizID), nil
}

func (r *quizRepository) NextOrderIndex(_ context.Context, quizID int64, _ ...core.DBExecutor) (int, error) {
	err := r.db.lock("NextOrderIndex")
	defer r.db.mu.Unlock()
	if err != nil {
		return 0, err
	}
	next := 0
	for _, qq := range r.db.t.questions {
		if qq.QuizID == quizID && qq.OrderIndex >= next {
			next = qq.OrderIndex + 1
		}
	}
	return next, nil
}

func (r *quizRepository) CreateQuestion(_ context.Context, qq quiz.Question, exec ...core.DBExecutor) (quiz.Question, error) {
	err := r.db.lockWrite("CreateQuestion", exec)
	defer r.db.unlock()
	if err != nil {
		return quiz.Question{}, err
	}
	qq.ID = r.db.nextID()
	options := make([]quiz.Option, 0, len(qq.Options))
	for _, opt := range qq.Options {
		opt.ID = r.db.nextID()
		opt.QuestionID = qq.ID
		options = append(options, opt)
	}
	qq.Options = options
	r.db.t.questions[qq.ID] = qq
	return qq, nil
}

func (r *quizRepository) CreateSubmission(_ context.Context, quizID, userID int64, submittedAt time.Time, exec ...core.DBExecutor) (int64, error) {
	err := r.db.lockWrite("CreateSubmission", exec)
	defer r.db.unlock()
	if err != nil {
		return 0, err
	}
	id := r.db.nextID()
	r.db.t.submissions[id] = quiz.Submission{ID: id, QuizID: quizID, UserID: userID, SubmittedAt: submittedAt}
	return id, nil
}

func (r *quizRepository) GetAnswerKeys(_ context.Context, quizID int64, _ ...core.DBExecutor) ([]quiz.AnswerKey, error) {
	err := r.db.lock("GetAnswerKeys")
	defer r.db.mu.Unlock()
	if err != nil {
		return nil, err
	}
	questions := r.questions(quizID)
	keys := make([]quiz.AnswerKey, 0, len(questions))
	for _, qq := range questions {
		key := quiz.AnswerKey{QuestionID: qq.ID, Type: qq.Type, Points: qq.Points, CorrectOptionIDs: []int64{}}
		for _, opt := range qq.Options {
			if opt.IsCorrect {
				key.CorrectOptionIDs = append(key.CorrectOptionIDs, opt.ID)
			}
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (r *quizRepository) CreateAnswers(_ context.Context, answers []quiz.SubmissionAnswer, exec ...core.DBExecutor) error {
	err := r.db.lockWrite("CreateAnswers", exec)
	defer r.db.unlock()
	if err != nil {
		return err
	}
	for _, a := range answers {
		sub, ok := r.db.t.submissions[a.SubmissionID]
		if !ok {
			return quiz.ErrSubmissionNotFound
		}
		for _, existing := range sub.Answers {
			if existing.QuestionID == a.QuestionID {
				return core.NewConflictError("answer already recorded")
			}
		}
		a.ID = r.db.nextID()
		answers := make([]quiz.SubmissionAnswer, 0, len(sub.Answers)+1)
		sub.Answers = append(append(answers, sub.Answers...), a)
		r.db.t.submissions[sub.ID] = sub
	}
	return nil
}

func (r *quizRepository) CompleteSubmission(_ context.Context, id int64, score, maxScore int, completedAt time.Time, exec ...core.DBExecutor) error {
	err := r.db.lockWrite("CompleteSubmission", exec)
	defer r.db.unlock()
	if err != nil {
		return err
	}
	sub, ok := r.db.t.submissions[id]
	if !ok {
		return quiz.ErrSubmissionNotFound
	}
	sub.Score.SetValid(score)
	sub.MaxPossibleScore.SetValid(maxScore)
	sub.CompletedAt.SetValid(completedAt)
	r.db.t.submissions[id] = sub
	return nil
}

func (r *quizRepository) GetSubmission(_ context.Context, id int64) (quiz.Submission, error) {
	err := r.db.lock("GetSubmission")
	defer r.db.mu.Unlock()
	if err != nil {
		return quiz.Submission{}, err
	}
	sub, ok := r.db.t.submissions[id]
	if !ok {
		return quiz.Submission{}, quiz.ErrSubmissionNotFound
	}
	if sub.Answers == nil {
		sub.Answers = []quiz.SubmissionAnswer{}
	}
	return sub, nil
}

func (r *quizRepository) ListDueReminders(_ context.Context, from, to time.Time) ([]quiz.DueReminder, error) {
	err := r.db.lock("ListDueReminders")
	defer r.db.mu.Unlock()
	if err != nil {
		return nil, err
	}
	submitted := make(map[pair]bool)
	for _, sub := range r.db.t.submissions {
		submitted[pair{sub.QuizID, sub.UserID}] = true
	}

	reminders := make([]quiz.DueReminder, 0)
	for _, q := range r.db.t.quizzes {
		if !q.DueDate.Valid || q.DueDate.Time.Before(from) || q.DueDate.Time.After(to) {
			continue
		}
		for key := range r.db.t.enrollments {
			userID := key[1]
			if key[0] != q.CourseID || submitted[pair{q.ID, userID}] || r.db.t.reminders[pair{q.ID, userID}] {
				continue
			}
			reminders = append(reminders, quiz.DueReminder{
				QuizID:    q.ID,
				QuizTitle: q.Title,
				CourseID:  q.CourseID,
				DueDate:   q.DueDate.Time,
				UserID:    userID,
			})
		}
	}
	sort.Slice(reminders, func(i, j int) bool {
		a, b := reminders[i], reminders[j]
		if a.QuizID != b.QuizID {
			return a.QuizID < b.QuizID
		}
		return a.UserID < b.UserID
	})
	return reminders, nil
}

func (r *quizRepository) MarkReminded(_ context.Context, quizID, userID int64, exec ...core.DBExecutor) (bool, error) {
	err := r.db.lockWrite("MarkReminded", exec)
	defer r.db.unlock()
	if err != nil {
		return false, err
	}
	key := pair{quizID, userID}
	if r.db.t.reminders[key] {
		return false, nil
	}
	r.db.t.reminders[key] = true
	return true, nil
}
