package forum

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/sonalink/sonalink/core"
	"github.com/sonalink/sonalink/core/notification"
)

const defaultPageLimit = 10

var (
	NowFunc = time.Now // mockable

	// errors
	ErrThreadNotFound = core.NewNotFoundError("Thread not found.")
	ErrReplyNotFound  = core.NewNotFoundError("Reply not found.")
	ErrNotCreator     = core.NewForbiddenError("Forbidden: Only the thread creator can accept an answer.")
	ErrNotMember      = core.NewForbiddenError("Forbidden: You must be enrolled in this course.")
)

type (
	Repository interface {
		CreateThread(ctx context.Context, t Thread, exec ...core.DBExecutor) (Thread, error)
		GetThread(ctx context.Context, id int64) (Thread, error)
		ListThreads(ctx context.Context, courseID int64, limit, offset int) ([]Thread, error)
		CountThreads(ctx context.Context, courseID int64) (int, error)
		// ListAllThreads & CountAllThreads ignore the course.
		ListAllThreads(ctx context.Context, limit, offset int) ([]Thread, error)
		CountAllThreads(ctx context.Context) (int, error)

		CreateReply(ctx context.Context, r Reply, exec ...core.DBExecutor) (Reply, error)
		ListReplies(ctx context.Context, threadID int64) ([]Reply, error)

		// LockReply fetches a reply with its thread, locking the thread row and its replies until the transaction ends.
		LockReply(ctx context.Context, replyID int64, exec ...core.DBExecutor) (ReplyContext, error)
		ClearAcceptedReplies(ctx context.Context, threadID, exceptReplyID int64, exec ...core.DBExecutor) error
		SetAcceptedAnswer(ctx context.Context, replyID int64, accepted bool, exec ...core.DBExecutor) error
		HasAcceptedReply(ctx context.Context, threadID int64, exec ...core.DBExecutor) (bool, error)
		SetThreadResolved(ctx context.Context, threadID int64, resolved bool, exec ...core.DBExecutor) error
	}

	// Members tells whether a user is enrolled in a course.
	Members interface {
		IsMember(ctx context.Context, courseID, userID int64) (bool, error)
	}

	// Notifier delivers in-app notifications.
	Notifier interface {
		Notify(ctx context.Context, nn notification.NewNotification) (notification.Notification, error)
	}

	Service struct {
		tx       core.Transactor
		repo     Repository
		members  Members
		notifier Notifier
		logger   core.Logger
	}
)

func NewService(tx core.Transactor, repo Repository, members Members, notifier Notifier, logger core.Logger) *Service {
	return &Service{
		tx:       tx,
		repo:     repo,
		members:  members,
		notifier: notifier,
		logger:   logger,
	}
}

func (svc *Service) CreateThread(ctx context.Context, courseID, userID int64, nt NewThread) (Thread, error) {
	ok, err := svc.members.IsMember(ctx, courseID, userID)
	if err != nil {
		return Thread{}, errors.Wrap(err, "checking course membership")
	}
	if !ok {
		return Thread{}, ErrNotMember
	}
	return svc.repo.CreateThread(ctx, Thread{
		CourseID:  courseID,
		CreatorID: userID,
		Title:     nt.Title,
		Body:      nt.Body,
		CreatedAt: NowFunc().UTC(),
	})
}

func (svc *Service) ListThreads(ctx context.Context, courseID int64, page core.Page) (Page, error) {
	page = core.NewPage(page.Number, page.Limit, defaultPageLimit)
	threads, err := svc.repo.ListThreads(ctx, courseID, page.Limit, page.Offset())
	if err != nil {
		return Page{}, errors.Wrap(err, "listing threads")
	}
	total, err := svc.repo.CountThreads(ctx, courseID)
	if err != nil {
		return Page{}, errors.Wrap(err, "counting threads")
	}
	return newPage(threads, page, total), nil
}

func (svc *Service) ListAllThreads(ctx context.Context, page core.Page) (Page, error) {
	page = core.NewPage(page.Number, page.Limit, defaultPageLimit)
	threads, err := svc.repo.ListAllThreads(ctx, page.Limit, page.Offset())
	if err != nil {
		return Page{}, errors.Wrap(err, "listing threads")
	}
	total, err := svc.repo.CountAllThreads(ctx)
	if err != nil {
		return Page{}, errors.Wrap(err, "counting threads")
	}
	return newPage(threads, page, total), nil
}

func newPage(threads []Thread, page core.Page, total int) Page {
	if threads == nil {
		threads = []Thread{}
	}
	return Page{Threads: threads, Pagination: page.Paginate(total)}
}

func (svc *Service) GetThread(ctx context.Context, id int64) (Detail, error) {
	thread, err := svc.repo.GetThread(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	replies, err := svc.repo.ListReplies(ctx, id)
	if err != nil {
		return Detail{}, errors.Wrap(err, "listing replies")
	}
	if replies == nil {
		replies = []Reply{}
	}
	thread.ReplyCount = len(replies)
	return Detail{Thread: thread, Replies: replies}, nil
}

// CreateReply adds a reply to a thread and lets the thread creator know about it.
func (svc *Service) CreateReply(ctx context.Context, threadID, userID int64, nr NewReply) (Reply, error) {
	thread, err := svc.repo.GetThread(ctx, threadID)
	if err != nil {
		return Reply{}, err
	}

	reply, err := svc.repo.CreateReply(ctx, Reply{
		ThreadID:  threadID,
		CreatorID: userID,
		Body:      nr.Body,
		CreatedAt: NowFunc().UTC(),
	})
	if err != nil {
		return Reply{}, errors.Wrap(err, "creating reply")
	}

	if thread.CreatorID != userID {
		svc.notify(ctx, notification.NewNotification{
			UserID:  thread.CreatorID,
			Type:    notification.TypeNewReply,
			Message: fmt.Sprintf("New reply on your thread %q.", thread.Title),
			Link:    fmt.Sprintf("/threads/%d", threadID),
		})
	}
	return reply, nil
}

// ToggleAcceptedAnswer flips the accepted flag of a reply on behalf of the thread creator.
// Accepting a reply un-accepts every other reply of the thread first, and the thread is
// resolved iff one of its replies ends up accepted. Both writes commit together.
func (svc *Service) ToggleAcceptedAnswer(ctx context.Context, replyID, userID int64) (AcceptResult, error) {
	var (
		res  AcceptResult
		rctx ReplyContext
	)
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		var err error
		rctx, err = svc.repo.LockReply(ctx, replyID, exec)
		if err != nil {
			return err
		}
		if rctx.ThreadCreatorID != userID {
			return ErrNotCreator
		}

		accepted := !rctx.IsAcceptedAnswer
		if accepted {
			// clear before set: two accepted replies must never be visible
			if err = svc.repo.ClearAcceptedReplies(ctx, rctx.ThreadID, replyID, exec); err != nil {
				return errors.Wrap(err, "clearing accepted replies")
			}
		}
		if err = svc.repo.SetAcceptedAnswer(ctx, replyID, accepted, exec); err != nil {
			return errors.Wrap(err, "setting accepted answer")
		}

		resolved, err := svc.repo.HasAcceptedReply(ctx, rctx.ThreadID, exec)
		if err != nil {
			return errors.Wrap(err, "checking accepted replies")
		}
		if err = svc.repo.SetThreadResolved(ctx, rctx.ThreadID, resolved, exec); err != nil {
			return errors.Wrap(err, "setting thread resolution")
		}

		res = AcceptResult{
			Reply:          AcceptedReply{ID: replyID, IsAcceptedAnswer: accepted},
			ThreadResolved: resolved,
		}
		return nil
	})
	if err != nil {
		return AcceptResult{}, err
	}

	if res.Reply.IsAcceptedAnswer && rctx.ReplyCreatorID != userID {
		svc.notify(ctx, notification.NewNotification{
			UserID:  rctx.ReplyCreatorID,
			Type:    notification.TypeAnswerAccepted,
			Message: fmt.Sprintf("Your reply was accepted as the answer to %q.", rctx.ThreadTitle),
			Link:    fmt.Sprintf("/threads/%d", rctx.ThreadID),
		})
	}
	return res, nil
}

// notify is best effort: failures are logged, never returned.
func (svc *Service) notify(ctx context.Context, nn notification.NewNotification) {
	if _, err := svc.notifier.Notify(ctx, nn); err != nil {
		svc.logger.Error(fmt.Sprintf("notifying user %d: %v", nn.UserID, err), err)
	}
}
