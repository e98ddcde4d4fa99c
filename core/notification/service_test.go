package notification_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonalink/sonalink/core/notification"
	dummydb "github.com/sonalink/sonalink/storage/database/dummy"
)

func TestNotifications(t *testing.T) {
	ctx := context.Background()
	svc := notification.NewService(dummydb.NewNotificationRepository(dummydb.Open()))

	start := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	defer func() { notification.NowFunc = time.Now }()

	var ids []int64
	for i := 0; i < 12; i++ {
		notification.NowFunc = func() time.Time { return start.Add(time.Duration(i) * time.Minute) }
		n, err := svc.Notify(ctx, notification.NewNotification{
			UserID:  1,
			Type:    notification.TypeNewReply,
			Message: fmt.Sprintf("reply %d", i),
			Link:    "/threads/1",
		})
		require.NoError(t, err)
		ids = append(ids, n.ID)
	}
	_, err := svc.Notify(ctx, notification.NewNotification{UserID: 2, Type: notification.TypeQuizDue, Message: "due"})
	require.NoError(t, err)

	t.Run("newest first, default limit", func(t *testing.T) {
		list, err := svc.List(ctx, 1, 0, 0)
		require.NoError(t, err)
		assert.Len(t, list.Items, 10)
		assert.Equal(t, "reply 11", list.Items[0].Message)
		assert.Equal(t, 12, list.TotalItems)
		assert.Equal(t, 12, list.TotalUnread)
	})

	t.Run("offset", func(t *testing.T) {
		list, err := svc.List(ctx, 1, 5, 10)
		require.NoError(t, err)
		assert.Len(t, list.Items, 2)
		assert.Equal(t, "reply 0", list.Items[1].Message)
	})

	t.Run("mark read", func(t *testing.T) {
		n, err := svc.MarkRead(ctx, ids[0], 1)
		require.NoError(t, err)
		assert.True(t, n.IsRead)

		list, err := svc.List(ctx, 1, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, 11, list.TotalUnread)
	})

	t.Run("someone else's notification", func(t *testing.T) {
		_, err := svc.MarkRead(ctx, ids[1], 2)
		assert.Equal(t, notification.ErrNotFound, err)
	})

	t.Run("empty list", func(t *testing.T) {
		list, err := svc.List(ctx, 3, 0, 0)
		require.NoError(t, err)
		assert.NotNil(t, list.Items)
		assert.Empty(t, list.Items)
	})
}
