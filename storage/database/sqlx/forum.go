package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/sonalink/sonalink/core"
	"github.com/sonalink/sonalink/core/forum"
)

const (
	threadSelect = `SELECT t.id, t.course_id, t.creator_id, t.title, t.body, t.is_resolved, t.created_at,
		u.id AS "creator.id", u.name AS "creator.name", u.avatar_url AS "creator.avatar_url",
		(SELECT COUNT(*) FROM forum_replies r WHERE r.thread_id = t.id) AS reply_count
	FROM forum_threads t
	JOIN users u ON u.id = t.creator_id`

	replySelect = `SELECT r.id, r.thread_id, r.creator_id, r.body, r.is_accepted_answer, r.created_at,
		u.id AS "creator.id", u.name AS "creator.name", u.avatar_url AS "creator.avatar_url"
	FROM forum_replies r
	JOIN users u ON u.id = r.creator_id`
)

type forumRepository struct {
	repo
}

var _ forum.Repository = (*forumRepository)(nil) // interface compliance check

func NewForumRepository(db *sqlx.DB) *forumRepository {
	return &forumRepository{repo{db: db}}
}

func (r forumRepository) CreateThread(ctx context.Context, t forum.Thread, exec ...core.DBExecutor) (forum.Thread, error) {
	q := `INSERT INTO forum_threads (course_id, creator_id, title, body, created_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`
	var id int64
	err := sqlx.GetContext(ctx, r.getExec(exec), &id, q, t.CourseID, t.CreatorID, t.Title, t.Body, t.CreatedAt)
	if err != nil {
		return forum.Thread{}, errors.Wrap(err, "inserting thread")
	}
	return r.getThread(ctx, r.getExec(exec), id)
}

func (r forumRepository) getThread(ctx context.Context, exec sqlx.QueryerContext, id int64) (forum.Thread, error) {
	var t forum.Thread
	if err := sqlx.GetContext(ctx, exec, &t, threadSelect+" WHERE t.id = $1", id); err != nil {
		return forum.Thread{}, trapNoRows(err, forum.ErrThreadNotFound, "selecting thread")
	}
	return t, nil
}

func (r forumRepository) GetThread(ctx context.Context, id int64) (forum.Thread, error) {
	return r.getThread(ctx, r.db, id)
}

func (r forumRepository) ListThreads(ctx context.Context, courseID int64, limit, offset int) ([]forum.Thread, error) {
	q := threadSelect + " WHERE t.course_id = $1 ORDER BY t.created_at DESC, t.id DESC LIMIT $2 OFFSET $3"
	var threads []forum.Thread
	if err := sqlx.SelectContext(ctx, r.db, &threads, q, courseID, limit, offset); err != nil {
		return nil, errors.Wrap(err, "selecting threads")
	}
	return threads, nil
}

func (r forumRepository) CountThreads(ctx context.Context, courseID int64) (int, error) {
	var total int
	if err := sqlx.GetContext(ctx, r.db, &total, "SELECT COUNT(*) FROM forum_threads WHERE course_id = $1", courseID); err != nil {
		return 0, errors.Wrap(err, "counting threads")
	}
	return total, nil
}

func (r forumRepository) ListAllThreads(ctx context.Context, limit, offset int) ([]forum.Thread, error) {
	q := threadSelect + " ORDER BY t.created_at DESC, t.id DESC LIMIT $1 OFFSET $2"
	var threads []forum.Thread
	if err := sqlx.SelectContext(ctx, r.db, &threads, q, limit, offset); err != nil {
		return nil, errors.Wrap(err, "selecting threads")
	}
	return threads, nil
}

func (r forumRepository) CountAllThreads(ctx context.Context) (int, error) {
	var total int
	if err := sqlx.GetContext(ctx, r.db, &total, "SELECT COUNT(*) FROM forum_threads"); err != nil {
		return 0, errors.Wrap(err, "counting threads")
	}
	return total, nil
}

func (r forumRepository) CreateReply(ctx context.Context, reply forum.Reply, exec ...core.DBExecutor) (forum.Reply, error) {
	q := `INSERT INTO forum_replies (thread_id, creator_id, body, created_at)
		VALUES ($1, $2, $3, $4) RETURNING id`
	ex := r.getExec(exec)
	var id int64
	if err := sqlx.GetContext(ctx, ex, &id, q, reply.ThreadID, reply.CreatorID, reply.Body, reply.CreatedAt); err != nil {
		return forum.Reply{}, errors.Wrap(err, "inserting reply")
	}

	var created forum.Reply
	if err := sqlx.GetContext(ctx, ex, &created, replySelect+" WHERE r.id = $1", id); err != nil {
		return forum.Reply{}, errors.Wrap(err, "selecting reply")
	}
	return created, nil
}

func (r forumRepository) ListReplies(ctx context.Context, threadID int64) ([]forum.Reply, error) {
	q := replySelect + " WHERE r.thread_id = $1 ORDER BY r.is_accepted_answer DESC, r.created_at, r.id"
	var replies []forum.Reply
	if err := sqlx.SelectContext(ctx, r.db, &replies, q, threadID); err != nil {
		return nil, errors.Wrap(err, "selecting replies")
	}
	return replies, nil
}

// LockReply locks the thread first, then the replies of the thread, so that concurrent toggles on
// the same thread queue up behind each other in the same lock order.
func (r forumRepository) LockReply(ctx context.Context, replyID int64, exec ...core.DBExecutor) (forum.ReplyContext, error) {
	ex := r.getExec(exec)

	var threadID int64
	if err := sqlx.GetContext(ctx, ex, &threadID, "SELECT thread_id FROM forum_replies WHERE id = $1", replyID); err != nil {
		return forum.ReplyContext{}, trapNoRows(err, forum.ErrReplyNotFound, "selecting reply thread")
	}

	var rctx forum.ReplyContext
	q := `SELECT id AS thread_id, title AS thread_title, creator_id AS thread_creator_id, is_resolved AS thread_resolved
		FROM forum_threads WHERE id = $1 FOR UPDATE`
	if err := sqlx.GetContext(ctx, ex, &rctx, q, threadID); err != nil {
		return forum.ReplyContext{}, trapNoRows(err, forum.ErrReplyNotFound, "locking thread")
	}

	var replies []struct {
		ID               int64 `db:"id"`
		CreatorID        int64 `db:"creator_id"`
		IsAcceptedAnswer bool  `db:"is_accepted_answer"`
	}
	q = "SELECT id, creator_id, is_accepted_answer FROM forum_replies WHERE thread_id = $1 ORDER BY id FOR UPDATE"
	if err := sqlx.SelectContext(ctx, ex, &replies, q, threadID); err != nil {
		return forum.ReplyContext{}, errors.Wrap(err, "locking replies")
	}
	for _, reply := range replies {
		if reply.ID == replyID {
			rctx.ReplyID = reply.ID
			rctx.ReplyCreatorID = reply.CreatorID
			rctx.IsAcceptedAnswer = reply.IsAcceptedAnswer
			return rctx, nil
		}
	}
	// deleted, or moved, between the two reads
	return forum.ReplyContext{}, forum.ErrReplyNotFound
}

func (r forumRepository) ClearAcceptedReplies(ctx context.Context, threadID, exceptReplyID int64, exec ...core.DBExecutor) error {
	q := `UPDATE forum_replies SET is_accepted_answer = FALSE
		WHERE thread_id = $1 AND id <> $2 AND is_accepted_answer`
	_, err := r.getExec(exec).ExecContext(ctx, q, threadID, exceptReplyID)
	return errors.Wrap(err, "clearing accepted replies")
}

func (r forumRepository) SetAcceptedAnswer(ctx context.Context, replyID int64, accepted bool, exec ...core.DBExecutor) error {
	res, err := r.getExec(exec).ExecContext(ctx, "UPDATE forum_replies SET is_accepted_answer = $2 WHERE id = $1", replyID, accepted)
	if err != nil {
		return errors.Wrap(err, "updating reply")
	}
	return rowsAffected(res, forum.ErrReplyNotFound)
}

func (r forumRepository) HasAcceptedReply(ctx context.Context, threadID int64, exec ...core.DBExecutor) (bool, error) {
	var ok bool
	q := "SELECT EXISTS (SELECT 1 FROM forum_replies WHERE thread_id = $1 AND is_accepted_answer)"
	if err := sqlx.GetContext(ctx, r.getExec(exec), &ok, q, threadID); err != nil {
		return false, errors.Wrap(err, "checking accepted replies")
	}
	return ok, nil
}

func (r forumRepository) SetThreadResolved(ctx context.Context, threadID int64, resolved bool, exec ...core.DBExecutor) error {
	res, err := r.getExec(exec).ExecContext(ctx, "UPDATE forum_threads SET is_resolved = $2 WHERE id = $1", threadID, resolved)
	if err != nil {
		return errors.Wrap(err, "updating thread")
	}
	return rowsAffected(res, forum.ErrThreadNotFound)
}
