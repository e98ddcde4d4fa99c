package notification

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/sonalink/sonalink/core"
)

const (
	defaultLimit = 10
	maxLimit     = 50
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound = core.NewNotFoundError("Notification not found.")
)

type (
	Repository interface {
		CreateNotification(ctx context.Context, n Notification, exec ...core.DBExecutor) (Notification, error)
		ListNotifications(ctx context.Context, userID int64, limit, offset int) ([]Notification, error)
		CountNotifications(ctx context.Context, userID int64) (total int, unread int, err error)
		// MarkRead marks a notification of userID as read, returning ErrNotFound if userID does not own it.
		MarkRead(ctx context.Context, id, userID int64) (Notification, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Notify(ctx context.Context, nn NewNotification) (Notification, error) {
	n := Notification{
		UserID:    nn.UserID,
		Type:      nn.Type,
		Message:   nn.Message,
		Link:      nn.Link,
		CreatedAt: NowFunc().UTC(),
	}
	return svc.repo.CreateNotification(ctx, n)
}

// List returns the newest notifications of a user along with the total & unread counts.
func (svc *Service) List(ctx context.Context, userID int64, limit, offset int) (List, error) {
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}

	items, err := svc.repo.ListNotifications(ctx, userID, limit, offset)
	if err != nil {
		return List{}, errors.Wrap(err, "listing notifications")
	}
	total, unread, err := svc.repo.CountNotifications(ctx, userID)
	if err != nil {
		return List{}, errors.Wrap(err, "counting notifications")
	}
	if items == nil {
		items = []Notification{}
	}
	return List{Items: items, TotalItems: total, TotalUnread: unread}, nil
}

func (svc *Service) MarkRead(ctx context.Context, id, userID int64) (Notification, error) {
	return svc.repo.MarkRead(ctx, id, userID)
}
