package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/sonalink/sonalink/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

func (r *courseRepository) CreateCourse(_ context.Context, c course.Course) (course.Course, error) {
	err := r.db.lockWrite("CreateCourse", nil)
	defer r.db.unlock()
	if err != nil {
		return course.Course{}, err
	}
	for _, existing := range r.db.t.courses {
		if existing.Code == c.Code {
			return course.Course{}, course.ErrCodeExists
		}
	}
	c.ID = r.db.nextID()
	r.db.t.courses[c.ID] = c
	return c, nil
}

func (r *courseRepository) GetCourse(_ context.Context, id int64) (course.Course, error) {
	err := r.db.lock("GetCourse")
	defer r.db.mu.Unlock()
	if err != nil {
		return course.Course{}, err
	}
	if c, ok := r.db.t.courses[id]; ok {
		return c, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (r *courseRepository) listing(c course.Course, userID int64) course.Listing {
	l := course.Listing{Course: c}
	for key := range r.db.t.enrollments {
		if key[0] == c.ID {
			l.MemberCount++
			if key[1] == userID {
				l.IsEnrolled = true
			}
		}
	}
	return l
}

func (r *courseRepository) list(method string, userID int64, onlyEnrolled bool) ([]course.Listing, error) {
	err := r.db.lock(method)
	defer r.db.mu.Unlock()
	if err != nil {
		return nil, err
	}
	courses := make([]course.Listing, 0, len(r.db.t.courses))
	for _, c := range r.db.t.courses {
		l := r.listing(c, userID)
		if onlyEnrolled && !l.IsEnrolled {
			continue
		}
		courses = append(courses, l)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].Code < courses[j].Code })
	return courses, nil
}

func (r *courseRepository) ListCourses(_ context.Context, userID int64) ([]course.Listing, error) {
	return r.list("ListCourses", userID, false)
}

func (r *courseRepository) ListUserCourses(_ context.Context, userID int64) ([]course.Listing, error) {
	return r.list("ListUserCourses", userID, true)
}

func (r *courseRepository) Enroll(_ context.Context, courseID, userID int64, at time.Time) error {
	err := r.db.lockWrite("Enroll", nil)
	defer r.db.unlock()
	if err != nil {
		return err
	}
	key := pair{courseID, userID}
	if _, ok := r.db.t.enrollments[key]; ok {
		return course.ErrAlreadyEnrolled
	}
	r.db.t.enrollments[key] = at
	return nil
}

func (r *courseRepository) Unenroll(_ context.Context, courseID, userID int64) error {
	err := r.db.lockWrite("Unenroll", nil)
	defer r.db.unlock()
	if err != nil {
		return err
	}
	key := pair{courseID, userID}
	if _, ok := r.db.t.enrollments[key]; !ok {
		return course.ErrNotEnrolled
	}
	delete(r.db.t.enrollments, key)
	return nil
}

func (r *courseRepository) IsMember(_ context.Context, courseID, userID int64) (bool, error) {
	err := r.db.lock("IsMember")
	defer r.db.mu.Unlock()
	if err != nil {
		return false, err
	}
	_, ok := r.db.t.enrollments[pair{courseID, userID}]
	return ok, nil
}

func (r *courseRepository) ListMembers(_ context.Context, courseID int64) ([]course.Member, error) {
	err := r.db.lock("ListMembers")
	defer r.db.mu.Unlock()
	if err != nil {
		return nil, err
	}
	members := make([]course.Member, 0)
	for key, at := range r.db.t.enrollments {
		if key[0] == courseID {
			members = append(members, course.Member{Author: r.db.author(key[1]), EnrolledAt: at})
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].Name < members[j].Name })
	return members, nil
}
