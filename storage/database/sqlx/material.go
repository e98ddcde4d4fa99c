package sqlxrepos

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/sonalink/sonalink/core"
	"github.com/sonalink/sonalink/core/material"
)

const materialSelect = `SELECT m.id, m.course_id, c.code AS course_code, c.name AS course_name, m.uploader_id,
		m.title, m.description, m.object_key, m.file_type, m.content_type, m.original_filename,
		m.size_bytes, m.upvotes, m.downloads, m.created_at,
		u.id AS "uploader.id", u.name AS "uploader.name", u.avatar_url AS "uploader.avatar_url",
		ARRAY(SELECT t.name FROM material_tags mt JOIN tags t ON t.id = mt.tag_id
			WHERE mt.material_id = m.id ORDER BY t.name) AS tag_list
	FROM materials m
	JOIN courses c ON c.id = m.course_id
	JOIN users u ON u.id = m.uploader_id`

var materialOrderFields = map[string]bool{"created_at": true, "upvotes": true, "downloads": true, "id": true}

type materialRow struct {
	material.Material
	TagList pq.StringArray `db:"tag_list"`
}

func (row materialRow) material() material.Material {
	m := row.Material
	m.Tags = []string(row.TagList)
	if m.Tags == nil {
		m.Tags = []string{}
	}
	return m
}

type materialRepository struct {
	repo
}

var _ material.Repository = (*materialRepository)(nil) // interface compliance check

func NewMaterialRepository(db *sqlx.DB) *materialRepository {
	return &materialRepository{repo{db: db}}
}

func (r materialRepository) CreateMaterial(ctx context.Context, m material.Material, exec ...core.DBExecutor) (material.Material, error) {
	q := `INSERT INTO materials (course_id, uploader_id, title, description, object_key, file_type,
			content_type, original_filename, size_bytes, created_at)
		VALUES (:course_id, :uploader_id, :title, :description, :object_key, :file_type,
			:content_type, :original_filename, :size_bytes, :created_at)
		RETURNING id`
	q, args, err := sqlx.Named(q, m)
	if err != nil {
		return material.Material{}, errors.Wrap(err, "binding material")
	}
	if err = sqlx.GetContext(ctx, r.getExec(exec), &m.ID, sqlx.Rebind(sqlx.DOLLAR, q), args...); err != nil {
		return material.Material{}, errors.Wrap(err, "inserting material")
	}
	return r.GetMaterial(ctx, m.ID, exec...)
}

func (r materialRepository) SetTags(ctx context.Context, materialID int64, tags []string, exec ...core.DBExecutor) error {
	ex := r.getExec(exec)
	q := "INSERT INTO tags (name) SELECT UNNEST($1::text[]) ON CONFLICT (name) DO NOTHING"
	if _, err := ex.ExecContext(ctx, q, pq.Array(tags)); err != nil {
		return errors.Wrap(err, "inserting tags")
	}
	q = `INSERT INTO material_tags (material_id, tag_id)
		SELECT $1, id FROM tags WHERE name = ANY($2)
		ON CONFLICT DO NOTHING`
	if _, err := ex.ExecContext(ctx, q, materialID, pq.Array(tags)); err != nil {
		return errors.Wrap(err, "linking tags")
	}
	return nil
}

// GetMaterial locks the material row when called inside a transaction.
func (r materialRepository) GetMaterial(ctx context.Context, id int64, exec ...core.DBExecutor) (material.Material, error) {
	q := materialSelect + " WHERE m.id = $1"
	if len(exec) > 0 {
		q += " FOR UPDATE OF m"
	}
	var row materialRow
	if err := sqlx.GetContext(ctx, r.getExec(exec), &row, q, id); err != nil {
		return material.Material{}, trapNoRows(err, material.ErrNotFound, "selecting material")
	}
	return row.material(), nil
}

func materialWhere(mq material.Query) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	if mq.CourseID != 0 {
		args = append(args, mq.CourseID)
		conds = append(conds, fmt.Sprintf("m.course_id = $%d", len(args)))
	}
	if mq.Tag != "" {
		args = append(args, mq.Tag)
		conds = append(conds, fmt.Sprintf(`EXISTS (SELECT 1 FROM material_tags mt JOIN tags t ON t.id = mt.tag_id
			WHERE mt.material_id = m.id AND t.name = $%d)`, len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func orderBy(alias string, orderings []core.DBOrdering, allowed map[string]bool) string {
	parts := make([]string, 0, len(orderings))
	for _, ord := range orderings {
		if !allowed[ord.Field] {
			continue
		}
		parts = append(parts, core.DBOrdering{Field: alias + "." + ord.Field, Ascending: ord.Ascending}.String())
	}
	if len(parts) == 0 {
		return ""
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

func (r materialRepository) ListMaterials(ctx context.Context, mq material.Query) ([]material.Material, error) {
	where, args := materialWhere(mq)
	args = append(args, mq.Limit, mq.Offset)
	q := materialSelect + where + orderBy("m", mq.Orderings, materialOrderFields) +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	var rows []materialRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting materials")
	}
	materials := make([]material.Material, 0, len(rows))
	for _, row := range rows {
		materials = append(materials, row.material())
	}
	return materials, nil
}

func (r materialRepository) CountMaterials(ctx context.Context, mq material.Query) (int, error) {
	where, args := materialWhere(mq)
	var total int
	if err := sqlx.GetContext(ctx, r.db, &total, "SELECT COUNT(*) FROM materials m"+where, args...); err != nil {
		return 0, errors.Wrap(err, "counting materials")
	}
	return total, nil
}

func (r materialRepository) DeleteMaterial(ctx context.Context, id int64, exec ...core.DBExecutor) error {
	res, err := r.getExec(exec).ExecContext(ctx, "DELETE FROM materials WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting material")
	}
	return rowsAffected(res, material.ErrNotFound)
}

func (r materialRepository) HasUpvoted(ctx context.Context, materialID, userID int64, exec ...core.DBExecutor) (bool, error) {
	var ok bool
	q := "SELECT EXISTS (SELECT 1 FROM upvotes WHERE material_id = $1 AND user_id = $2)"
	if err := sqlx.GetContext(ctx, r.getExec(exec), &ok, q, materialID, userID); err != nil {
		return false, errors.Wrap(err, "checking upvote")
	}
	return ok, nil
}

func (r materialRepository) AddUpvote(ctx context.Context, materialID, userID int64, exec ...core.DBExecutor) error {
	q := "INSERT INTO upvotes (user_id, material_id, vote_type) VALUES ($1, $2, 1)"
	_, err := r.getExec(exec).ExecContext(ctx, q, userID, materialID)
	return errors.Wrap(err, "inserting upvote")
}

func (r materialRepository) RemoveUpvote(ctx context.Context, materialID, userID int64, exec ...core.DBExecutor) error {
	q := "DELETE FROM upvotes WHERE user_id = $1 AND material_id = $2"
	_, err := r.getExec(exec).ExecContext(ctx, q, userID, materialID)
	return errors.Wrap(err, "deleting upvote")
}

func (r materialRepository) IncrementUpvotes(ctx context.Context, materialID int64, delta int, exec ...core.DBExecutor) (int, error) {
	var upvotes int
	q := "UPDATE materials SET upvotes = GREATEST(upvotes + $2, 0) WHERE id = $1 RETURNING upvotes"
	if err := sqlx.GetContext(ctx, r.getExec(exec), &upvotes, q, materialID, delta); err != nil {
		return 0, trapNoRows(err, material.ErrNotFound, "updating upvotes")
	}
	return upvotes, nil
}

func (r materialRepository) IncrementDownloads(ctx context.Context, materialID int64) (material.Material, error) {
	res, err := r.db.ExecContext(ctx, "UPDATE materials SET downloads = downloads + 1 WHERE id = $1", materialID)
	if err != nil {
		return material.Material{}, errors.Wrap(err, "updating downloads")
	}
	if err = rowsAffected(res, material.ErrNotFound); err != nil {
		return material.Material{}, err
	}
	return r.GetMaterial(ctx, materialID)
}
