package quiz

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/sonalink/sonalink/core"
)

type QuestionType string

const (
	TypeSingleChoice QuestionType = "multiple_choice_single"
	TypeMultiChoice  QuestionType = "multiple_choice_multiple"
	TypeTrueFalse    QuestionType = "true_false"
	TypeShortAnswer  QuestionType = "short_answer"
)

var QuestionTypes = []QuestionType{TypeSingleChoice, TypeMultiChoice, TypeTrueFalse, TypeShortAnswer}

func (t QuestionType) Valid() bool {
	for _, qt := range QuestionTypes {
		if t == qt {
			return true
		}
	}
	return false
}

// IsChoice reports whether answers to the question are option selections.
// true_false questions are stored as two-option single choice questions.
func (t QuestionType) IsChoice() bool {
	return t == TypeSingleChoice || t == TypeMultiChoice || t == TypeTrueFalse
}

type Quiz struct {
	ID          int64     `json:"id" db:"id"`
	CourseID    int64     `json:"course_id" db:"course_id"`
	CreatorID   int64     `json:"creator_id" db:"creator_id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	TimeLimit   null.Int  `json:"time_limit_minutes" db:"time_limit_minutes"`
	DueDate     null.Time `json:"due_date" db:"due_date"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Summary is a Quiz as listed for a course member.
type Summary struct {
	Quiz
	TotalQuestions int `json:"total_questions" db:"total_questions"`
	SubmittedCount int `json:"submitted_count" db:"submitted_count"`
}

type Question struct {
	ID         int64        `json:"id" db:"id"`
	QuizID     int64        `json:"quiz_id" db:"quiz_id"`
	Text       string       `json:"question_text" db:"question_text"`
	Type       QuestionType `json:"question_type" db:"question_type"`
	Points     int          `json:"points" db:"points"`
	OrderIndex int          `json:"order_index" db:"order_index"`
	Options    []Option     `json:"options" db:"-"`
}

type Option struct {
	ID         int64  `json:"id" db:"id"`
	QuestionID int64  `json:"question_id" db:"question_id"`
	Text       string `json:"option_text" db:"option_text"`
	IsCorrect  bool   `json:"-" db:"is_correct"` // never shown to quiz takers
}

// Detail is a Quiz with its ordered questions.
type Detail struct {
	Quiz      Quiz       `json:"quiz"`
	Questions []Question `json:"questions"`
}

// AnswerKey is what grading needs to know about one question.
type AnswerKey struct {
	QuestionID       int64
	Type             QuestionType
	Points           int
	CorrectOptionIDs []int64
}

type Submission struct {
	ID               int64              `json:"id" db:"id"`
	QuizID           int64              `json:"quiz_id" db:"quiz_id"`
	UserID           int64              `json:"user_id" db:"user_id"`
	Score            null.Int           `json:"score" db:"score"`
	MaxPossibleScore null.Int           `json:"max_possible_score" db:"max_possible_score"`
	SubmittedAt      time.Time          `json:"submitted_at" db:"submitted_at"`
	CompletedAt      null.Time          `json:"completed_at" db:"completed_at"`
	Answers          []SubmissionAnswer `json:"answers" db:"-"`
}

type SubmissionAnswer struct {
	ID                int64       `json:"id"`
	SubmissionID      int64       `json:"submission_id"`
	QuestionID        int64       `json:"question_id"`
	SelectedOptionIDs []int64     `json:"selected_option_ids"`
	AnswerText        null.String `json:"answer_text"`
	IsCorrect         null.Bool   `json:"is_correct"` // null: not auto-gradable
	PointsAwarded     int         `json:"points_awarded"`
}

// Answer is one submitted answer.
type Answer struct {
	QuestionID        int64   `json:"question_id" validate:"required,gt=0"`
	SelectedOptionIDs []int64 `json:"selected_option_ids"`
	AnswerText        *string `json:"answer_text"`
}

type SubmitResult struct {
	SubmissionID     int64 `json:"submissionId"`
	Score            int   `json:"score"`
	MaxPossibleScore int   `json:"maxPossibleScore"`
}

// DueReminder is a member of a course who has not yet submitted a quiz that is due soon.
type DueReminder struct {
	QuizID    int64     `db:"quiz_id"`
	QuizTitle string    `db:"quiz_title"`
	CourseID  int64     `db:"course_id"`
	DueDate   time.Time `db:"due_date"`
	UserID    int64     `db:"user_id"`
}

// NewQuiz contains information needed to create a Quiz.
type NewQuiz struct {
	Title       string     `json:"title" validate:"required,notblank,max=255"`
	Description string     `json:"description"`
	TimeLimit   *int       `json:"time_limit_minutes" validate:"omitempty,gt=0"`
	DueDate     *time.Time `json:"due_date"`
}

func (nq *NewQuiz) Validate(validate *validator.Validate) error {
	nq.Title = core.CleanString(nq.Title)
	nq.Description = core.CleanString(nq.Description)
	return validate.Struct(nq)
}

type NewOption struct {
	Text      string `json:"option_text" validate:"required,notblank"`
	IsCorrect bool   `json:"is_correct"`
}

// NewQuestion contains information needed to add a Question to a Quiz.
type NewQuestion struct {
	Text       string       `json:"question_text" validate:"required,notblank"`
	Type       QuestionType `json:"question_type" validate:"required,questiontype"`
	Points     *int         `json:"points" validate:"omitempty,gt=0"`
	OrderIndex *int         `json:"order_index" validate:"omitempty,gte=0"`
	Options    []NewOption  `json:"options" validate:"dive"`
}

func (nq *NewQuestion) Validate(validate *validator.Validate) error {
	nq.Text = core.CleanString(nq.Text)
	for i := range nq.Options {
		nq.Options[i].Text = core.CleanString(nq.Options[i].Text)
	}
	return validate.Struct(nq)
}

// SubmitRequest is the body of a quiz submission.
type SubmitRequest struct {
	Answers []Answer `json:"answers" validate:"dive"`
}

func (sr *SubmitRequest) Validate(validate *validator.Validate) error {
	if len(sr.Answers) == 0 {
		return errAnswersRequired
	}
	return validate.Struct(sr)
}
