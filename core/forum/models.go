package forum

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sonalink/sonalink/core"
)

type Thread struct {
	ID         int64       `json:"id" db:"id"`
	CourseID   int64       `json:"course_id" db:"course_id"`
	CreatorID  int64       `json:"creator_id" db:"creator_id"`
	Title      string      `json:"title" db:"title"`
	Body       string      `json:"body" db:"body"`
	IsResolved bool        `json:"is_resolved" db:"is_resolved"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
	Creator    core.Author `json:"creator" db:"creator"`
	ReplyCount int         `json:"reply_count" db:"reply_count"`
}

type Reply struct {
	ID               int64       `json:"id" db:"id"`
	ThreadID         int64       `json:"thread_id" db:"thread_id"`
	CreatorID        int64       `json:"creator_id" db:"creator_id"`
	Body             string      `json:"body" db:"body"`
	IsAcceptedAnswer bool        `json:"is_accepted_answer" db:"is_accepted_answer"`
	CreatedAt        time.Time   `json:"created_at" db:"created_at"`
	Creator          core.Author `json:"creator" db:"creator"`
}

// ReplyContext is a reply as seen by the acceptance protocol: with its thread's owner and state.
type ReplyContext struct {
	ReplyID          int64  `db:"reply_id"`
	ReplyCreatorID   int64  `db:"reply_creator_id"`
	IsAcceptedAnswer bool   `db:"is_accepted_answer"`
	ThreadID         int64  `db:"thread_id"`
	ThreadTitle      string `db:"thread_title"`
	ThreadCreatorID  int64  `db:"thread_creator_id"`
	ThreadResolved   bool   `db:"thread_resolved"`
}

type AcceptedReply struct {
	ID               int64 `json:"id"`
	IsAcceptedAnswer bool  `json:"is_accepted_answer"`
}

type AcceptResult struct {
	Reply          AcceptedReply `json:"reply"`
	ThreadResolved bool          `json:"threadResolved"`
}

// Detail is a thread with its replies, the accepted one first.
type Detail struct {
	Thread  Thread  `json:"thread"`
	Replies []Reply `json:"replies"`
}

type Page struct {
	Threads    []Thread        `json:"threads"`
	Pagination core.Pagination `json:"pagination"`
}

// NewThread contains information needed to start a Thread.
type NewThread struct {
	Title string `json:"title" validate:"required,notblank,max=255"`
	Body  string `json:"body" validate:"required,notblank"`
}

func (nt *NewThread) Validate(validate *validator.Validate) error {
	nt.Title = core.CleanString(nt.Title)
	nt.Body = core.CleanString(nt.Body)
	return validate.Struct(nt)
}

// NewReply contains information needed to reply to a Thread.
type NewReply struct {
	Body string `json:"body" validate:"required,notblank"`
}

func (nr *NewReply) Validate(validate *validator.Validate) error {
	nr.Body = core.CleanString(nr.Body)
	return validate.Struct(nr)
}
