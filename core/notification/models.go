package notification

import "time"

type Type string

const (
	TypeNewReply       Type = "new_reply"
	TypeAnswerAccepted Type = "answer_accepted"
	TypeQuizDue        Type = "quiz_due"
)

type Notification struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Type      Type      `json:"type" db:"type"`
	Message   string    `json:"message" db:"message"`
	Link      string    `json:"link" db:"link"`
	IsRead    bool      `json:"is_read" db:"is_read"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewNotification contains information needed to notify a user.
type NewNotification struct {
	UserID  int64
	Type    Type
	Message string
	Link    string
}

type List struct {
	Items       []Notification `json:"items"`
	TotalItems  int            `json:"totalItems"`
	TotalUnread int            `json:"totalUnread"`
}
