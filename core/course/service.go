package course

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/sonalink/sonalink/core"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound        = core.NewNotFoundError("Course not found.")
	ErrNotEnrolled     = core.NewNotFoundError("You are not enrolled in this course.")
	ErrAlreadyEnrolled = core.NewConflictError("You are already enrolled in this course.")
	ErrCodeExists      = core.NewConflictError("A course with this code already exists.")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, c Course) (Course, error)
		GetCourse(ctx context.Context, id int64) (Course, error)
		ListCourses(ctx context.Context, userID int64) ([]Listing, error)
		ListUserCourses(ctx context.Context, userID int64) ([]Listing, error)
		// Enroll returns ErrAlreadyEnrolled when the enrollment exists.
		Enroll(ctx context.Context, courseID, userID int64, at time.Time) error
		// Unenroll returns ErrNotEnrolled when there was nothing to delete.
		Unenroll(ctx context.Context, courseID, userID int64) error
		IsMember(ctx context.Context, courseID, userID int64) (bool, error)
		ListMembers(ctx context.Context, courseID int64) ([]Member, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nc NewCourse) (Course, error) {
	return svc.repo.CreateCourse(ctx, Course{
		Code:        nc.Code,
		Name:        nc.Name,
		Description: nc.Description,
		CreatedAt:   NowFunc().UTC(),
	})
}

func (svc *Service) Get(ctx context.Context, id int64) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

func (svc *Service) List(ctx context.Context, userID int64) ([]Listing, error) {
	courses, err := svc.repo.ListCourses(ctx, userID)
	if courses == nil {
		courses = []Listing{}
	}
	return courses, err
}

func (svc *Service) MyCourses(ctx context.Context, userID int64) ([]Listing, error) {
	courses, err := svc.repo.ListUserCourses(ctx, userID)
	if courses == nil {
		courses = []Listing{}
	}
	return courses, err
}

func (svc *Service) Enroll(ctx context.Context, courseID, userID int64) error {
	if _, err := svc.repo.GetCourse(ctx, courseID); err != nil {
		return err
	}
	return svc.repo.Enroll(ctx, courseID, userID, NowFunc().UTC())
}

func (svc *Service) Unenroll(ctx context.Context, courseID, userID int64) error {
	return svc.repo.Unenroll(ctx, courseID, userID)
}

func (svc *Service) IsMember(ctx context.Context, courseID, userID int64) (bool, error) {
	return svc.repo.IsMember(ctx, courseID, userID)
}

func (svc *Service) Members(ctx context.Context, courseID int64) ([]Member, error) {
	if _, err := svc.repo.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}
	members, err := svc.repo.ListMembers(ctx, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "listing members")
	}
	if members == nil {
		members = []Member{}
	}
	return members, nil
}
