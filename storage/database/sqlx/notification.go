package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/sonalink/sonalink/core"
	"github.com/sonalink/sonalink/core/notification"
)

const notificationColumns = "id, user_id, type, message, link, is_read, created_at"

type notificationRepository struct {
	repo
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *sqlx.DB) *notificationRepository {
	return &notificationRepository{repo{db: db}}
}

func (r notificationRepository) CreateNotification(ctx context.Context, n notification.Notification, exec ...core.DBExecutor) (notification.Notification, error) {
	q := `INSERT INTO notifications (user_id, type, message, link, created_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING ` + notificationColumns
	var created notification.Notification
	if err := sqlx.GetContext(ctx, r.getExec(exec), &created, q, n.UserID, n.Type, n.Message, n.Link, n.CreatedAt); err != nil {
		return notification.Notification{}, errors.Wrap(err, "inserting notification")
	}
	return created, nil
}

func (r notificationRepository) ListNotifications(ctx context.Context, userID int64, limit, offset int) ([]notification.Notification, error) {
	q := "SELECT " + notificationColumns + ` FROM notifications
		WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`
	var items []notification.Notification
	if err := sqlx.SelectContext(ctx, r.db, &items, q, userID, limit, offset); err != nil {
		return nil, errors.Wrap(err, "selecting notifications")
	}
	return items, nil
}

func (r notificationRepository) CountNotifications(ctx context.Context, userID int64) (int, int, error) {
	var counts struct {
		Total  int `db:"total"`
		Unread int `db:"unread"`
	}
	q := `SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE NOT is_read) AS unread
		FROM notifications WHERE user_id = $1`
	if err := sqlx.GetContext(ctx, r.db, &counts, q, userID); err != nil {
		return 0, 0, errors.Wrap(err, "counting notifications")
	}
	return counts.Total, counts.Unread, nil
}

func (r notificationRepository) MarkRead(ctx context.Context, id, userID int64) (notification.Notification, error) {
	q := "UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2 RETURNING " + notificationColumns
	var n notification.Notification
	if err := sqlx.GetContext(ctx, r.db, &n, q, id, userID); err != nil {
		return notification.Notification{}, trapNoRows(err, notification.ErrNotFound, "updating notification")
	}
	return n, nil
}
