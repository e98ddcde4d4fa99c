package dummydb

import (
	"context"
	"sort"

	"github.com/sonalink/sonalink/core"
	"github.com/sonalink/sonalink/core/material"
)

type materialRepository struct {
	db *DB
}

var _ material.Repository = (*materialRepository)(nil) // interface compliance check

func NewMaterialRepository(db *DB) *materialRepository {
	return &materialRepository{db: db}
}

// view fills the joined fields of a stored material.
func (r *materialRepository) view(m material.Material) material.Material {
	c := r.db.t.courses[m.CourseID]
	m.CourseCode, m.CourseName = c.Code, c.Name
	m.Uploader = r.db.author(m.UploaderID)
	tags := make([]string, len(m.Tags))
	copy(tags, m.Tags)
	sort.Strings(tags)
	m.Tags = tags
	return m
}

func (r *materialRepository) CreateMaterial(_ context.Context, m material.Material, exec ...core.DBExecutor) (material.Material, error) {
	err := r.db.lockWrite("CreateMaterial", exec)
	defer r.db.unlock()
	if err != nil {
		return material.Material{}, err
	}
	m.ID = r.db.nextID()
	m.Tags = nil
	r.db.t.materials[m.ID] = m
	return r.view(m), nil
}

func (r *materialRepository) SetTags(_ context.Context, materialID int64, tags []string, exec ...core.DBExecutor) error {
	err := r.db.lockWrite("SetTags", exec)
	defer r.db.unlock()
	if err != nil {
		return err
	}
	m, ok := r.db.t.materials[materialID]
	if !ok {
		return material.ErrNotFound
	}
	merged := make([]string, 0, len(m.Tags)+len(tags))
	seen := make(map[string]bool)
	for _, t := range append(append([]string{}, m.Tags...), tags...) {
		if !seen[t] {
			seen[t] = true
			merged = append(merged, t)
		}
	}
	m.Tags = merged
	r.db.t.materials[materialID] = m
	return nil
}

func (r *materialRepository) GetMaterial(_ context.Context, id int64, _ ...core.DBExecutor) (material.Material, error) {
	err := r.db.lock("GetMaterial")
	defer r.db.mu.Unlock()
	if err != nil {
		return material.Material{}, err
	}
	if m, ok := r.db.t.materials[id]; ok {
		return r.view(m), nil
	}
	return material.Material{}, material.ErrNotFound
}

func (r *materialRepository) filter(q material.Query) []material.Material {
	items := make([]material.Material, 0)
	for _, m := range r.db.t.materials {
		if q.CourseID != 0 && m.CourseID != q.CourseID {
			continue
		}
		if q.Tag != "" && !hasTag(m.Tags, q.Tag) {
			continue
		}
		items = append(items, r.view(m))
	}
	return items
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func materialField(m material.Material, field string) int64 {
	switch field {
	case "upvotes":
		return int64(m.Upvotes)
	case "downloads":
		return int64(m.Downloads)
	case "created_at":
		return m.CreatedAt.UnixNano()
	default:
		return m.ID
	}
}

func (r *materialRepository) ListMaterials(_ context.Context, q material.Query) ([]material.Material, error) {
	err := r.db.lock("ListMaterials")
	defer r.db.mu.Unlock()
	if err != nil {
		return nil, err
	}
	items := r.filter(q)
	sort.SliceStable(items, func(i, j int) bool {
		for _, ord := range q.Orderings {
			a, b := materialField(items[i], ord.Field), materialField(items[j], ord.Field)
			if a != b {
				return (a < b) == ord.Ascending
			}
		}
		return false
	})
	return paginate(items, q.Limit, q.Offset), nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return items[:0]
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func (r *materialRepository) CountMaterials(_ context.Context, q material.Query) (int, error) {
	err := r.db.lock("CountMaterials")
	defer r.db.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return len(r.filter(q)), nil
}

func (r *materialRepository) DeleteMaterial(_ context.Context, id int64, exec ...core.DBExecutor) error {
	err := r.db.lockWrite("DeleteMaterial", exec)
	defer r.db.unlock()
	if err != nil {
		return err
	}
	if _, ok := r.db.t.materials[id]; !ok {
		return material.ErrNotFound
	}
	delete(r.db.t.materials, id)
	for key := range r.db.t.upvotes {
		if key[0] == id {
			delete(r.db.t.upvotes, key)
		}
	}
	return nil
}

func (r *materialRepository) HasUpvoted(_ context.Context, materialID, userID int64, _ ...core.DBExecutor) (bool, error) {
	err := r.db.lock("HasUpvoted")
	defer r.db.mu.Unlock()
	if err != nil {
		return false, err
	}
	return r.db.t.upvotes[pair{materialID, userID}], nil
}

func (r *materialRepository) AddUpvote(_ context.Context, materialID, userID int64, exec ...core.DBExecutor) error {
	err := r.db.lockWrite("AddUpvote", exec)
	defer r.db.unlock()
	if err != nil {
		return err
	}
	r.db.t.upvotes[pair{materialID, userID}] = true
	return nil
}

func (r *materialRepository) RemoveUpvote(_ context.Context, materialID, userID int64, exec ...core.DBExecutor) error {
	err := r.db.lockWrite("RemoveUpvote", exec)
	defer r.db.unlock()
	if err != nil {
		return err
	}
	delete(r.db.t.upvotes, pair{materialID, userID})
	return nil
}

func (r *materialRepository) IncrementUpvotes(_ context.Context, materialID int64, delta int, exec ...core.DBExecutor) (int, error) {
	err := r.db.lockWrite("IncrementUpvotes", exec)
	defer r.db.unlock()
	if err != nil {
		return 0, err
	}
	m, ok := r.db.t.materials[materialID]
	if !ok {
		return 0, material.ErrNotFound
	}
	m.Upvotes += delta
	if m.Upvotes < 0 {
		m.Upvotes = 0
	}
	r.db.t.materials[materialID] = m
	return m.Upvotes, nil
}

func (r *materialRepository) IncrementDownloads(_ context.Context, materialID int64) (material.Material, error) {
	err := r.db.lockWrite("IncrementDownloads", nil)
	defer r.db.unlock()
	if err != nil {
		return material.Material{}, err
	}
	m, ok := r.db.t.materials[materialID]
	if !ok {
		return material.Material{}, material.ErrNotFound
	}
	m.Downloads++
	r.db.t.materials[materialID] = m
	return r.view(m), nil
}
