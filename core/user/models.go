package user

import (
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/sonalink/sonalink/core"
)

type User struct {
	ID                  int64       `json:"id" db:"id"`
	Name                string      `json:"name" db:"name"`
	Email               string      `json:"email" db:"email"`
	Bio                 string      `json:"bio" db:"bio"`
	AvatarURL           string      `json:"avatar_url" db:"avatar_url"`
	AvatarKey           null.String `json:"-" db:"avatar_key"`
	IsVerified          bool        `json:"is_verified" db:"is_verified"`
	VerificationToken   null.String `json:"-" db:"verification_token"`
	VerificationExpires null.Time   `json:"-" db:"verification_expires"`
	PasswordHash        []byte      `json:"-" db:"password_hash"`
	LastLogin           null.Time   `json:"last_login" db:"last_login"`
	CreatedAt           time.Time   `json:"created_at" db:"created_at"` // UTC
	UpdatedAt           time.Time   `json:"updated_at" db:"updated_at"` // UTC
}

func (u *User) SetPassword(pwd string, cost int) error {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), cost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) Author() core.Author {
	return core.Author{ID: u.ID, Name: u.Name, AvatarURL: u.AvatarURL}
}

// Profile is the public view of a User.
type Profile struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Bio       string    `json:"bio"`
	AvatarURL string    `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
}

func (u User) Profile() Profile {
	return Profile{
		ID:        u.ID,
		Name:      u.Name,
		Bio:       u.Bio,
		AvatarURL: u.AvatarURL,
		CreatedAt: u.CreatedAt,
	}
}

type Contributions struct {
	Materials       int `json:"materials" db:"materials"`
	Threads         int `json:"threads" db:"threads"`
	Replies         int `json:"replies" db:"replies"`
	AcceptedAnswers int `json:"accepted_answers" db:"accepted_answers"`
	Submissions     int `json:"quiz_submissions" db:"quiz_submissions"`
}

// NewUser contains information needed to sign up.
type NewUser struct {
	Name     string `json:"name" validate:"required,notblank,max=255"`
	Email    string `json:"email" validate:"required,email,campusemail"`
	Password string `json:"password" validate:"required"`
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	return validate.Struct(nu)
}

// UpdateProfile defines what information a User may change about themselves.
type UpdateProfile struct {
	Name *string `json:"name" validate:"omitempty,notblank,max=255"`
	Bio  *string `json:"bio" validate:"omitempty,max=1000"`
}

func (up *UpdateProfile) Validate(validate *validator.Validate) error {
	if up.Name != nil {
		name := core.CleanString(*up.Name)
		up.Name = &name
	}
	if up.Bio != nil {
		bio := core.CleanString(*up.Bio)
		up.Bio = &bio
	}
	return validate.Struct(up)
}

type ResetPassword struct {
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

func (rp *ResetPassword) Validate(validate *validator.Validate) error {
	return validate.Struct(rp)
}

// File is an uploaded avatar as received by the API.
type File struct {
	Filename string
	Size     int64
	Content  io.Reader
}
