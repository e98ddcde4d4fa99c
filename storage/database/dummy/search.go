package dummydb

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/sonalink/sonalink/core/course"
	"github.com/sonalink/sonalink/core/forum"
	"github.com/sonalink/sonalink/core/material"
	"github.com/sonalink/sonalink/core/search"
)

// likeRegexp translates an ILIKE pattern (with `\` escapes) into a regexp.
func likeRegexp(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("(?is)^")
	escaped := false
	for _, c := range pattern {
		switch {
		case escaped:
			b.WriteString(regexp.QuoteMeta(string(c)))
			escaped = false
		case c == '\\':
			escaped = true
		case c == '%':
			b.WriteString(".*")
		case c == '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}

type searchRepository struct {
	db *DB
}

var _ search.Repository = (*searchRepository)(nil) // interface compliance check

func NewSearchRepository(db *DB) *searchRepository {
	return &searchRepository{db: db}
}

func (r *searchRepository) SuggestMaterials(_ context.Context, pattern string, limit int) ([]search.Suggestion, error) {
	err := r.db.lock("SuggestMaterials")
	defer r.db.mu.Unlock()
	if err != nil {
		return nil, err
	}
	re := likeRegexp(pattern)
	items := make([]material.Material, 0)
	for _, m := range r.db.t.materials {
		if re.MatchString(m.Title) {
			items = append(items, m)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	items = paginate(items, limit, 0)

	s := make([]search.Suggestion, 0, len(items))
	for _, m := range items {
		s = append(s, search.Suggestion{ID: m.ID, Label: m.Title, Type: "material"})
	}
	return s, nil
}

func (r *searchRepository) SuggestCourses(_ context.Context, pattern string, limit int) ([]search.Suggestion, error) {
	err := r.db.lock("SuggestCourses")
	defer r.db.mu.Unlock()
	if err != nil {
		return nil, err
	}
	re := likeRegexp(pattern)
	courses := make([]course.Course, 0)
	for _, c := range r.db.t.courses {
		if re.MatchString(c.Name) || re.MatchString(c.Code) {
			courses = append(courses, c)
		}
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].Name < courses[j].Name })
	courses = paginate(courses, limit, 0)

	s := make([]search.Suggestion, 0, len(courses))
	for _, c := range courses {
		s = append(s, search.Suggestion{ID: c.ID, Label: c.Name, Type: "course"})
	}
	return s, nil
}

func (r *searchRepository) SearchMaterials(_ context.Context, pattern string, limit, offset int) ([]material.Material, error) {
	err := r.db.lock("SearchMaterials")
	defer r.db.mu.Unlock()
	if err != nil {
		return nil, err
	}
	re := likeRegexp(pattern)
	view := (&materialRepository{db: r.db}).view
	items := make([]material.Material, 0)
	for _, m := range r.db.t.materials {
		if re.MatchString(m.Title) || re.MatchString(m.Description) {
			items = append(items, view(m))
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID > items[j].ID
	})
	return paginate(items, limit, offset), nil
}

func (r *searchRepository) SearchCourses(_ context.Context, pattern string, limit, offset int) ([]course.Course, error) {
	err := r.db.lock("SearchCourses")
	defer r.db.mu.Unlock()
	if err != nil {
		return nil, err
	}
	re := likeRegexp(pattern)
	courses := make([]course.Course, 0)
	for _, c := range r.db.t.courses {
		if re.MatchString(c.Name) || re.MatchString(c.Code) || re.MatchString(c.Description) {
			courses = append(courses, c)
		}
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].Name < courses[j].Name })
	return paginate(courses, limit, offset), nil
}

func (r *searchRepository) SearchThreads(_ context.Context, pattern string, limit, offset int) ([]forum.Thread, error) {
	err := r.db.lock("SearchThreads")
	defer r.db.mu.Unlock()
	if err != nil {
		return nil, err
	}
	re := likeRegexp(pattern)
	fr := &forumRepository{db: r.db}
	threads := make([]forum.Thread, 0)
	for _, t := range fr.threads(0) {
		if re.MatchString(t.Title) || re.MatchString(t.Body) {
			threads = append(threads, t)
		}
	}
	return paginate(threads, limit, offset), nil
}
