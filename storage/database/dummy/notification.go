package dummydb

import (
	"context"
	"sort"

	"github.com/sonalink/sonalink/core"
	"github.com/sonalink/sonalink/core/notification"
)

type notificationRepository struct {
	db *DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *DB) *notificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) CreateNotification(_ context.Context, n notification.Notification, exec ...core.DBExecutor) (notification.Notification, error) {
	err := r.db.lockWrite("CreateNotification", exec)
	defer r.db.unlock()
	if err != nil {
		return notification.Notification{}, err
	}
	n.ID = r.db.nextID()
	r.db.t.notifications[n.ID] = n
	return n, nil
}

func (r *notificationRepository) ListNotifications(_ context.Context, userID int64, limit, offset int) ([]notification.Notification, error) {
	err := r.db.lock("ListNotifications")
	defer r.db.mu.Unlock()
	if err != nil {
		return nil, err
	}
	items := make([]notification.Notification, 0)
	for _, n := range r.db.t.notifications {
		if n.UserID == userID {
			items = append(items, n)
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

func (r *notificationRepository) CountNotifications(_ context.Context, userID int64) (int, int, error) {
	err := r.db.lock("CountNotifications")
	defer r.db.mu.Unlock()
	if err != nil {
		return 0, 0, err
	}
	var total, unread int
	for _, n := range r.db.t.notifications {
		if n.UserID == userID {
			total++
			if !n.IsRead {
				unread++
			}
		}
	}
	return total, unread, nil
}

func (r *notificationRepository) MarkRead(_ context.Context, id, userID int64) (notification.Notification, error) {
	err := r.db.lockWrite("MarkRead", nil)
	defer r.db.unlock()
	if err != nil {
		return notification.Notification{}, err
	}
	n, ok := r.db.t.notifications[id]
	if !ok || n.UserID != userID {
		return notification.Notification{}, notification.ErrNotFound
	}
	n.IsRead = true
	r.db.t.notifications[id] = n
	return n, nil
}
