package quiz

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/sonalink/sonalink/core"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound           = core.NewNotFoundError("Quiz not found.")
	ErrSubmissionNotFound = core.NewNotFoundError("Submission not found.")
	ErrNotCreator         = core.NewForbiddenError("Forbidden: Only the quiz creator can add questions.")
	ErrNotMember          = core.NewForbiddenError("Forbidden: You must be enrolled in this course.")
	ErrNotSubmitter       = core.NewForbiddenError("Forbidden: You can only view your own submissions.")

	errAnswersRequired = core.NewValidationError(
		errors.New("Answers array is required."),
		core.FieldError{Field: "answers", Error: "Answers array is required."},
	)
)

type (
	Repository interface {
		CreateQuiz(ctx context.Context, q Quiz, exec ...core.DBExecutor) (Quiz, error)
		GetQuiz(ctx context.Context, id int64, exec ...core.DBExecutor) (Quiz, error)
		ListQuizzes(ctx context.Context, courseID, userID int64) ([]Summary, error)
		// ListQuestions returns the questions of a quiz ordered by order_index then id, with their options.
		ListQuestions(ctx context.Context, quizID int64) ([]Question, error)
		NextOrderIndex(ctx context.Context, quizID int64, exec ...core.DBExecutor) (int, error)
		CreateQuestion(ctx context.Context, q Question, exec ...core.DBExecutor) (Question, error)

		CreateSubmission(ctx context.Context, quizID, userID int64, submittedAt time.Time, exec ...core.DBExecutor) (int64, error)
		GetAnswerKeys(ctx context.Context, quizID int64, exec ...core.DBExecutor) ([]AnswerKey, error)
		CreateAnswers(ctx context.Context, answers []SubmissionAnswer, exec ...core.DBExecutor) error
		CompleteSubmission(ctx context.Context, id int64, score, maxScore int, completedAt time.Time, exec ...core.DBExecutor) error
		GetSubmission(ctx context.Context, id int64) (Submission, error)

		ListDueReminders(ctx context.Context, from, to time.Time) ([]DueReminder, error)
		// MarkReminded records a reminder, returning false if one was already recorded.
		MarkReminded(ctx context.Context, quizID, userID int64, exec ...core.DBExecutor) (bool, error)
	}

	// Members tells whether a user is enrolled in a course.
	Members interface {
		IsMember(ctx context.Context, courseID, userID int64) (bool, error)
	}

	Service struct {
		tx      core.Transactor
		repo    Repository
		members Members
		logger  core.Logger
	}
)

func NewService(tx core.Transactor, repo Repository, members Members, logger core.Logger) *Service {
	return &Service{
		tx:      tx,
		repo:    repo,
		members: members,
		logger:  logger,
	}
}

func (svc *Service) checkMember(ctx context.Context, courseID, userID int64) error {
	ok, err := svc.members.IsMember(ctx, courseID, userID)
	if err != nil {
		return errors.Wrap(err, "checking course membership")
	}
	if !ok {
		return ErrNotMember
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, courseID, creatorID int64, nq NewQuiz) (Quiz, error) {
	if err := svc.checkMember(ctx, courseID, creatorID); err != nil {
		return Quiz{}, err
	}
	q := Quiz{
		CourseID:    courseID,
		CreatorID:   creatorID,
		Title:       nq.Title,
		Description: nq.Description,
		TimeLimit:   null.IntFromPtr(nq.TimeLimit),
		CreatedAt:   NowFunc().UTC(),
	}
	if nq.DueDate != nil {
		q.DueDate = null.TimeFrom(nq.DueDate.UTC())
	}
	return svc.repo.CreateQuiz(ctx, q)
}

func (svc *Service) AddQuestion(ctx context.Context, quizID, userID int64, nq NewQuestion) (Question, error) {
	var question Question
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		qz, err := svc.repo.GetQuiz(ctx, quizID, exec)
		if err != nil {
			return err
		}
		if qz.CreatorID != userID {
			return ErrNotCreator
		}

		question = Question{
			QuizID: quizID,
			Text:   nq.Text,
			Type:   nq.Type,
			Points: 1,
		}
		if nq.Points != nil {
			question.Points = *nq.Points
		}
		if nq.OrderIndex != nil {
			question.OrderIndex = *nq.OrderIndex
		} else if question.OrderIndex, err = svc.repo.NextOrderIndex(ctx, quizID, exec); err != nil {
			return errors.Wrap(err, "computing order index")
		}
		if nq.Type.IsChoice() {
			question.Options = make([]Option, 0, len(nq.Options))
			for _, opt := range nq.Options {
				question.Options = append(question.Options, Option{Text: opt.Text, IsCorrect: opt.IsCorrect})
			}
		}

		question, err = svc.repo.CreateQuestion(ctx, question, exec)
		return errors.Wrap(err, "creating question")
	})
	return question, err
}

// Get returns a quiz and its ordered questions; options do not disclose their correctness.
func (svc *Service) Get(ctx context.Context, quizID int64) (Detail, error) {
	qz, err := svc.repo.GetQuiz(ctx, quizID)
	if err != nil {
		return Detail{}, err
	}
	questions, err := svc.repo.ListQuestions(ctx, quizID)
	if err != nil {
		return Detail{}, errors.Wrap(err, "listing questions")
	}
	return Detail{Quiz: qz, Questions: questions}, nil
}

func (svc *Service) ListForCourse(ctx context.Context, courseID, userID int64) ([]Summary, error) {
	return svc.repo.ListQuizzes(ctx, courseID, userID)
}

// Submit records, grades and scores a submission in one transaction.
// Answers to questions outside of the quiz are dropped, so are repeated answers to the same question.
// Nothing is persisted when any step fails.
func (svc *Service) Submit(ctx context.Context, quizID, userID int64, answers []Answer) (SubmitResult, error) {
	if len(answers) == 0 {
		return SubmitResult{}, errAnswersRequired
	}

	var res SubmitResult
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		if _, err := svc.repo.GetQuiz(ctx, quizID, exec); err != nil {
			return err
		}

		subID, err := svc.repo.CreateSubmission(ctx, quizID, userID, NowFunc().UTC(), exec)
		if err != nil {
			return errors.Wrap(err, "creating submission")
		}

		keys, err := svc.repo.GetAnswerKeys(ctx, quizID, exec)
		if err != nil {
			return errors.Wrap(err, "loading answer keys")
		}

		grading := GradeSubmission(keys, answers)
		for _, qid := range grading.UnknownQuestions {
			svc.logger.Warn(fmt.Sprintf("submission %d: question %d is not part of quiz %d, answer dropped", subID, qid, quizID))
		}
		for _, qid := range grading.Duplicates {
			svc.logger.Warn(fmt.Sprintf("submission %d: question %d answered more than once, extra answers dropped", subID, qid))
		}

		for i := range grading.Answers {
			grading.Answers[i].SubmissionID = subID
		}
		if err = svc.repo.CreateAnswers(ctx, grading.Answers, exec); err != nil {
			return errors.Wrap(err, "saving answers")
		}

		err = svc.repo.CompleteSubmission(ctx, subID, grading.Score, grading.MaxPossibleScore, NowFunc().UTC(), exec)
		if err != nil {
			return errors.Wrap(err, "completing submission")
		}

		res = SubmitResult{
			SubmissionID:     subID,
			Score:            grading.Score,
			MaxPossibleScore: grading.MaxPossibleScore,
		}
		return nil
	})
	if err != nil {
		return SubmitResult{}, err
	}
	return res, nil
}

// GetSubmission returns a submission with its graded answers to the user who made it.
func (svc *Service) GetSubmission(ctx context.Context, id, userID int64) (Submission, error) {
	sub, err := svc.repo.GetSubmission(ctx, id)
	if err != nil {
		return Submission{}, err
	}
	if sub.UserID != userID {
		return Submission{}, ErrNotSubmitter
	}
	return sub, nil
}

// DueReminders lists the members who still have to submit a quiz due within window.
func (svc *Service) DueReminders(ctx context.Context, window time.Duration) ([]DueReminder, error) {
	now := NowFunc().UTC()
	return svc.repo.ListDueReminders(ctx, now, now.Add(window))
}

// MarkReminded records that userID was reminded of quizID. It returns false if it already was.
func (svc *Service) MarkReminded(ctx context.Context, quizID, userID int64) (bool, error) {
	return svc.repo.MarkReminded(ctx, quizID, userID)
}
