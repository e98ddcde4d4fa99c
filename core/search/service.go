// Package search looks materials, courses and threads up by keyword.
package search

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/sonalink/sonalink/core"
	"github.com/sonalink/sonalink/core/course"
	"github.com/sonalink/sonalink/core/forum"
	"github.com/sonalink/sonalink/core/material"
)

const (
	minQueryLen     = 2
	suggestionLimit = 5
	defaultLimit    = 10
	maxLimit        = 50

	TypeAll       = "all"
	TypeMaterials = "materials"
	TypeCourses   = "courses"
	TypeThreads   = "threads"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type (
	Suggestion struct {
		ID    int64  `json:"id" db:"id"`
		Label string `json:"label" db:"label"`
		Type  string `json:"type" db:"type"`
	}

	Results struct {
		Materials []material.Material `json:"materials"`
		Courses   []course.Course     `json:"courses"`
		Threads   []forum.Thread      `json:"threads"`
	}

	// Repository matches patterns with ILIKE semantics: `pattern` is already escaped & wrapped in `%`.
	Repository interface {
		SuggestMaterials(ctx context.Context, pattern string, limit int) ([]Suggestion, error)
		SuggestCourses(ctx context.Context, pattern string, limit int) ([]Suggestion, error)
		SearchMaterials(ctx context.Context, pattern string, limit, offset int) ([]material.Material, error)
		SearchCourses(ctx context.Context, pattern string, limit, offset int) ([]course.Course, error)
		SearchThreads(ctx context.Context, pattern string, limit, offset int) ([]forum.Thread, error)
	}

	Service struct {
		repo   Repository
		cache  core.Cache
		ttl    time.Duration
		logger core.Logger
	}
)

func NewService(repo Repository, cache core.Cache, conf *core.Config, logger core.Logger) *Service {
	return &Service{
		repo:   repo,
		cache:  cache,
		ttl:    conf.Cache.SuggestionTTL,
		logger: logger,
	}
}

// likePattern returns the ILIKE pattern for q, or false when q is too short to search for.
func likePattern(q string) (string, bool) {
	q = core.CleanString(q)
	if len([]rune(q)) < minQueryLen {
		return "", false
	}
	return "%" + likeEscaper.Replace(q) + "%", true
}

// ValidType reports whether t names a search group.
func ValidType(t string) bool {
	switch t {
	case TypeAll, TypeMaterials, TypeCourses, TypeThreads:
		return true
	}
	return false
}

// Suggestions returns up to 5 materials followed by up to 5 courses matching q.
// Results are cached; a broken cache only costs a database round trip.
func (svc *Service) Suggestions(ctx context.Context, q string) ([]Suggestion, error) {
	pattern, ok := likePattern(q)
	if !ok {
		return []Suggestion{}, nil
	}

	key := "suggestions:" + core.CleanString(q, true /* lower */)
	var cached []Suggestion
	if found, err := svc.cache.Get(ctx, key, &cached); err != nil {
		svc.logger.Warn("reading suggestions cache: "+err.Error(), err)
	} else if found {
		return cached, nil
	}

	materials, err := svc.repo.SuggestMaterials(ctx, pattern, suggestionLimit)
	if err != nil {
		return nil, errors.Wrap(err, "suggesting materials")
	}
	courses, err := svc.repo.SuggestCourses(ctx, pattern, suggestionLimit)
	if err != nil {
		return nil, errors.Wrap(err, "suggesting courses")
	}

	suggestions := make([]Suggestion, 0, len(materials)+len(courses))
	suggestions = append(suggestions, materials...)
	suggestions = append(suggestions, courses...)

	if err = svc.cache.Set(ctx, key, suggestions, svc.ttl); err != nil {
		svc.logger.Warn("writing suggestions cache: "+err.Error(), err)
	}
	return suggestions, nil
}

// Search looks q up in the groups selected by typ. Unselected groups are returned empty.
func (svc *Service) Search(ctx context.Context, q, typ string, limit, offset int) (Results, error) {
	res := Results{
		Materials: []material.Material{},
		Courses:   []course.Course{},
		Threads:   []forum.Thread{},
	}
	pattern, ok := likePattern(q)
	if !ok {
		return res, nil
	}
	if typ == "" {
		typ = TypeAll
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}

	var err error
	if typ == TypeAll || typ == TypeMaterials {
		if res.Materials, err = svc.repo.SearchMaterials(ctx, pattern, limit, offset); err != nil {
			return Results{}, errors.Wrap(err, "searching materials")
		}
	}
	if typ == TypeAll || typ == TypeCourses {
		if res.Courses, err = svc.repo.SearchCourses(ctx, pattern, limit, offset); err != nil {
			return Results{}, errors.Wrap(err, "searching courses")
		}
	}
	if typ == TypeAll || typ == TypeThreads {
		if res.Threads, err = svc.repo.SearchThreads(ctx, pattern, limit, offset); err != nil {
			return Results{}, errors.Wrap(err, "searching threads")
		}
	}

	if res.Materials == nil {
		res.Materials = []material.Material{}
	}
	if res.Courses == nil {
		res.Courses = []course.Course{}
	}
	if res.Threads == nil {
		res.Threads = []forum.Thread{}
	}
	return res, nil
}
