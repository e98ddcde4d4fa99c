package course

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sonalink/sonalink/core"
)

type Course struct {
	ID          int64     `json:"id" db:"id"`
	Code        string    `json:"code" db:"code"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Listing is a Course as seen by a given user.
type Listing struct {
	Course
	MemberCount int  `json:"member_count" db:"member_count"`
	IsEnrolled  bool `json:"is_enrolled" db:"is_enrolled"`
}

type Member struct {
	core.Author
	EnrolledAt time.Time `json:"enrolled_at" db:"enrolled_at"`
}

// NewCourse contains information needed to create a Course.
type NewCourse struct {
	Code        string `json:"code" validate:"required,max=32,alphanum_"`
	Name        string `json:"name" validate:"required,notblank,max=255"`
	Description string `json:"description"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Code = strings.ToUpper(core.CleanString(nc.Code))
	nc.Name = core.CleanString(nc.Name)
	nc.Description = core.CleanString(nc.Description)
	return validate.Struct(nc)
}
