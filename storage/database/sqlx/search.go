package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/sonalink/sonalink/core/course"
	"github.com/sonalink/sonalink/core/forum"
	"github.com/sonalink/sonalink/core/material"
	"github.com/sonalink/sonalink/core/search"
)

type searchRepository struct {
	repo
}

var _ search.Repository = (*searchRepository)(nil) // interface compliance check

func NewSearchRepository(db *sqlx.DB) *searchRepository {
	return &searchRepository{repo{db: db}}
}

func (r searchRepository) SuggestMaterials(ctx context.Context, pattern string, limit int) ([]search.Suggestion, error) {
	q := `SELECT id, title AS label, 'material' AS type FROM materials
		WHERE title ILIKE $1 ORDER BY created_at DESC LIMIT $2`
	var s []search.Suggestion
	if err := sqlx.SelectContext(ctx, r.db, &s, q, pattern, limit); err != nil {
		return nil, errors.Wrap(err, "selecting material suggestions")
	}
	return s, nil
}

func (r searchRepository) SuggestCourses(ctx context.Context, pattern string, limit int) ([]search.Suggestion, error) {
	q := `SELECT id, name AS label, 'course' AS type FROM courses
		WHERE name ILIKE $1 OR code ILIKE $1 ORDER BY name LIMIT $2`
	var s []search.Suggestion
	if err := sqlx.SelectContext(ctx, r.db, &s, q, pattern, limit); err != nil {
		return nil, errors.Wrap(err, "selecting course suggestions")
	}
	return s, nil
}

func (r searchRepository) SearchMaterials(ctx context.Context, pattern string, limit, offset int) ([]material.Material, error) {
	q := materialSelect + ` WHERE m.title ILIKE $1 OR m.description ILIKE $1
		ORDER BY m.created_at DESC, m.id DESC LIMIT $2 OFFSET $3`
	var rows []materialRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, q, pattern, limit, offset); err != nil {
		return nil, errors.Wrap(err, "searching materials")
	}
	materials := make([]material.Material, 0, len(rows))
	for _, row := range rows {
		materials = append(materials, row.material())
	}
	return materials, nil
}

func (r searchRepository) SearchCourses(ctx context.Context, pattern string, limit, offset int) ([]course.Course, error) {
	q := `SELECT id, code, name, description, created_at FROM courses
		WHERE name ILIKE $1 OR code ILIKE $1 OR description ILIKE $1
		ORDER BY name LIMIT $2 OFFSET $3`
	var courses []course.Course
	if err := sqlx.SelectContext(ctx, r.db, &courses, q, pattern, limit, offset); err != nil {
		return nil, errors.Wrap(err, "searching courses")
	}
	return courses, nil
}

func (r searchRepository) SearchThreads(ctx context.Context, pattern string, limit, offset int) ([]forum.Thread, error) {
	q := threadSelect + ` WHERE t.title ILIKE $1 OR t.body ILIKE $1
		ORDER BY t.created_at DESC, t.id DESC LIMIT $2 OFFSET $3`
	var threads []forum.Thread
	if err := sqlx.SelectContext(ctx, r.db, &threads, q, pattern, limit, offset); err != nil {
		return nil, errors.Wrap(err, "searching threads")
	}
	return threads, nil
}
