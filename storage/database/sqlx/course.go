package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/sonalink/sonalink/core/course"
)

const courseListing = `SELECT c.id, c.code, c.name, c.description, c.created_at,
		(SELECT COUNT(*) FROM enrollments e WHERE e.course_id = c.id) AS member_count,
		EXISTS (SELECT 1 FROM enrollments e WHERE e.course_id = c.id AND e.user_id = $1) AS is_enrolled
	FROM courses c`

type courseRepository struct {
	repo
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{repo{db: db}}
}

func (r courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	q := `INSERT INTO courses (code, name, description, created_at) VALUES ($1, $2, $3, $4)
		RETURNING id, code, name, description, created_at`
	var created course.Course
	if err := sqlx.GetContext(ctx, r.db, &created, q, c.Code, c.Name, c.Description, c.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return course.Course{}, course.ErrCodeExists
		}
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return created, nil
}

func (r courseRepository) GetCourse(ctx context.Context, id int64) (course.Course, error) {
	var c course.Course
	q := "SELECT id, code, name, description, created_at FROM courses WHERE id = $1"
	if err := sqlx.GetContext(ctx, r.db, &c, q, id); err != nil {
		return course.Course{}, trapNoRows(err, course.ErrNotFound, "selecting course")
	}
	return c, nil
}

func (r courseRepository) ListCourses(ctx context.Context, userID int64) ([]course.Listing, error) {
	var courses []course.Listing
	if err := sqlx.SelectContext(ctx, r.db, &courses, courseListing+" ORDER BY c.code", userID); err != nil {
		return nil, errors.Wrap(err, "selecting courses")
	}
	return courses, nil
}

func (r courseRepository) ListUserCourses(ctx context.Context, userID int64) ([]course.Listing, error) {
	q := courseListing + ` JOIN enrollments me ON me.course_id = c.id AND me.user_id = $1 ORDER BY c.code`
	var courses []course.Listing
	if err := sqlx.SelectContext(ctx, r.db, &courses, q, userID); err != nil {
		return nil, errors.Wrap(err, "selecting user courses")
	}
	return courses, nil
}

func (r courseRepository) Enroll(ctx context.Context, courseID, userID int64, at time.Time) error {
	q := "INSERT INTO enrollments (user_id, course_id, enrolled_at) VALUES ($1, $2, $3)"
	if _, err := r.db.ExecContext(ctx, q, userID, courseID, at); err != nil {
		if isUniqueViolation(err) {
			return course.ErrAlreadyEnrolled
		}
		return errors.Wrap(err, "inserting enrollment")
	}
	return nil
}

func (r courseRepository) Unenroll(ctx context.Context, courseID, userID int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM enrollments WHERE user_id = $1 AND course_id = $2", userID, courseID)
	if err != nil {
		return errors.Wrap(err, "deleting enrollment")
	}
	return rowsAffected(res, course.ErrNotEnrolled)
}

func (r courseRepository) IsMember(ctx context.Context, courseID, userID int64) (bool, error) {
	var ok bool
	q := "SELECT EXISTS (SELECT 1 FROM enrollments WHERE user_id = $1 AND course_id = $2)"
	if err := sqlx.GetContext(ctx, r.db, &ok, q, userID, courseID); err != nil {
		return false, errors.Wrap(err, "checking enrollment")
	}
	return ok, nil
}

func (r courseRepository) ListMembers(ctx context.Context, courseID int64) ([]course.Member, error) {
	q := `SELECT u.id, u.name, u.avatar_url, e.enrolled_at
		FROM enrollments e JOIN users u ON u.id = e.user_id
		WHERE e.course_id = $1
		ORDER BY u.name`
	var members []course.Member
	if err := sqlx.SelectContext(ctx, r.db, &members, q, courseID); err != nil {
		return nil, errors.Wrap(err, "selecting members")
	}
	return members, nil
}
