package dummydb

import (
	"context"
	"sort"

	"github.com/sonalink/sonalink/core"
	"github.com/sonalink/sonalink/core/forum"
)

type forumRepository struct {
	db *DB
}

var _ forum.Repository = (*forumRepository)(nil) // interface compliance check

func NewForumRepository(db *DB) *forumRepository {
	return &forumRepository{db: db}
}

func (r *forumRepository) threadView(t forum.Thread) forum.Thread {
	t.Creator = r.db.author(t.CreatorID)
	t.ReplyCount = 0
	for _, reply := range r.db.t.replies {
		if reply.ThreadID == t.ID {
			t.ReplyCount++
		}
	}
	return t
}

func (r *forumRepository) CreateThread(_ context.Context, t forum.Thread, exec ...core.DBExecutor) (forum.Thread, error) {
	err := r.db.lockWrite("CreateThread", exec)
	defer r.db.unlock()
	if err != nil {
		return forum.Thread{}, err
	}
	t.ID = r.db.nextID()
	r.db.t.threads[t.ID] = t
	return r.threadView(t), nil
}

func (r *forumRepository) GetThread(_ context.Context, id int64) (forum.Thread, error) {
	err := r.db.lock("GetThread")
	defer r.db.mu.Unlock()
	if err != nil {
		return forum.Thread{}, err
	}
	if t, ok := r.db.t.threads[id]; ok {
		return r.threadView(t), nil
	}
	return forum.Thread{}, forum.ErrThreadNotFound
}

func (r *forumRepository) threads(courseID int64) []forum.Thread {
	threads := make([]forum.Thread, 0)
	for _, t := range r.db.t.threads {
		if courseID == 0 || t.CourseID == courseID {
			threads = append(threads, r.threadView(t))
		}
	}
	sort.Slice(threads, func(i, j int) bool {
		if !threads[i].CreatedAt.Equal(threads[j].CreatedAt) {
			return threads[i].CreatedAt.After(threads[j].CreatedAt)
		}
		return threads[i].ID > threads[j].ID
	})
	return threads
}

func (r *forumRepository) ListThreads(_ context.Context, courseID int64, limit, offset int) ([]forum.Thread, error) {
	err := r.db.lock("ListThreads")
	defer r.db.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return paginate(r.threads(courseID), limit, offset), nil
}

func (r *forumRepository) CountThreads(_ context.Context, courseID int64) (int, error) {
	err := r.db.lock("CountThreads")
	defer r.db.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return len(r.threads(courseID)), nil
}

func (r *forumRepository) ListAllThreads(_ context.Context, limit, offset int) ([]forum.Thread, error) {
	err := r.db.lock("ListAllThreads")
	defer r.db.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return paginate(r.threads(0), limit, offset), nil
}

func (r *forumRepository) CountAllThreads(_ context.Context) (int, error) {
	err := r.db.lock("CountAllThreads")
	defer r.db.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return len(r.db.t.threads), nil
}

func (r *forumRepository) CreateReply(_ context.Context, reply forum.Reply, exec ...core.DBExecutor) (forum.Reply, error) {
	err := r.db.lockWrite("CreateReply", exec)
	defer r.db.unlock()
	if err != nil {
		return forum.Reply{}, err
	}
	if _, ok := r.db.t.threads[reply.ThreadID]; !ok {
		return forum.Reply{}, forum.ErrThreadNotFound
	}
	reply.ID = r.db.nextID()
	r.db.t.replies[reply.ID] = reply
	reply.Creator = r.db.author(reply.CreatorID)
	return reply, nil
}

func (r *forumRepository) ListReplies(_ context.Context, threadID int64) ([]forum.Reply, error) {
	err := r.db.lock("ListReplies")
	defer r.db.mu.Unlock()
	if err != nil {
		return nil, err
	}
	replies := make([]forum.Reply, 0)
	for _, reply := range r.db.t.replies {
		if reply.ThreadID == threadID {
			reply.Creator = r.db.author(reply.CreatorID)
			replies = append(replies, reply)
		}
	}
	sort.Slice(replies, func(i, j int) bool {
		a, b := replies[i], replies[j]
		if a.IsAcceptedAnswer != b.IsAcceptedAnswer {
			return a.IsAcceptedAnswer
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return replies, nil
}

// LockReply relies on the transactor: transactions run one at a time.
func (r *forumRepository) LockReply(_ context.Context, replyID int64, _ ...core.DBExecutor) (forum.ReplyContext, error) {
	err := r.db.lock("LockReply")
	defer r.db.mu.Unlock()
	if err != nil {
		return forum.ReplyContext{}, err
	}
	reply, ok := r.db.t.replies[replyID]
	if !ok {
		return forum.ReplyContext{}, forum.ErrReplyNotFound
	}
	t, ok := r.db.t.threads[reply.ThreadID]
	if !ok {
		return forum.ReplyContext{}, forum.ErrReplyNotFound
	}
	return forum.ReplyContext{
		ReplyID:          reply.ID,
		ReplyCreatorID:   reply.CreatorID,
		IsAcceptedAnswer: reply.IsAcceptedAnswer,
		ThreadID:         t.ID,
		ThreadTitle:      t.Title,
		ThreadCreatorID:  t.CreatorID,
		ThreadResolved:   t.IsResolved,
	}, nil
}

func (r *forumRepository) ClearAcceptedReplies(_ context.Context, threadID, exceptReplyID int64, exec ...core.DBExecutor) error {
	err := r.db.lockWrite("ClearAcceptedReplies", exec)
	defer r.db.unlock()
	if err != nil {
		return err
	}
	for id, reply := range r.db.t.replies {
		if reply.ThreadID == threadID && id != exceptReplyID && reply.IsAcceptedAnswer {
			reply.IsAcceptedAnswer = false
			r.db.t.replies[id] = reply
		}
	}
	return nil
}

func (r *forumRepository) SetAcceptedAnswer(_ context.Context, replyID int64, accepted bool, exec ...core.DBExecutor) error {
	err := r.db.lockWrite("SetAcceptedAnswer", exec)
	defer r.db.unlock()
	if err != nil {
		return err
	}
	reply, ok := r.db.t.replies[replyID]
	if !ok {
		return forum.ErrReplyNotFound
	}
	reply.IsAcceptedAnswer = accepted
	r.db.t.replies[replyID] = reply
	return nil
}

func (r *forumRepository) HasAcceptedReply(_ context.Context, threadID int64, _ ...core.DBExecutor) (bool, error) {
	err := r.db.lock("HasAcceptedReply")
	defer r.db.mu.Unlock()
	if err != nil {
		return false, err
	}
	for _, reply := range r.db.t.replies {
		if reply.ThreadID == threadID && reply.IsAcceptedAnswer {
			return true, nil
		}
	}
	return false, nil
}

func (r *forumRepository) SetThreadResolved(_ context.Context, threadID int64, resolved bool, exec ...core.DBExecutor) error {
	err := r.db.lockWrite("SetThreadResolved", exec)
	defer r.db.unlock()
	if err != nil {
		return err
	}
	t, ok := r.db.t.threads[threadID]
	if !ok {
		return forum.ErrThreadNotFound
	}
	t.IsResolved = resolved
	r.db.t.threads[threadID] = t
	return nil
}
