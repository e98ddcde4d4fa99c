package dummydb

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonalink/sonalink/core"
	"github.com/sonalink/sonalink/core/notification"
	"github.com/sonalink/sonalink/core/quiz"
)

func TestTransactor_rollbackKeepsConcurrentWrites(t *testing.T) {
	db := Open()
	ctx := context.Background()
	quizzes := NewQuizRepository(db)
	notifs := NewNotificationRepository(db)
	errBoom := errors.New("boom")

	started := make(chan struct{})
	done := make(chan error, 1)
	err := NewTransactor(db).WithinTx(ctx, func(exec core.DBExecutor) error {
		if _, err := quizzes.CreateQuiz(ctx, quiz.Quiz{CourseID: 1, Title: "Draft"}, exec); err != nil {
			return err
		}
		go func() {
			close(started)
			_, err := notifs.CreateNotification(ctx, notification.Notification{UserID: 7, Message: "hi", CreatedAt: time.Now()})
			done <- err
		}()
		<-started
		time.Sleep(10 * time.Millisecond) // let the write reach the store
		return errBoom
	})
	assert.Equal(t, errBoom, err)
	require.NoError(t, <-done)

	list, err := notifs.ListNotifications(ctx, 7, 0, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1, "write made outside of the transaction was rolled back")

	db.mu.Lock()
	defer db.mu.Unlock()
	assert.Empty(t, db.t.quizzes)
}

func TestTransactor_commit(t *testing.T) {
	db := Open()
	ctx := context.Background()
	quizzes := NewQuizRepository(db)

	err := NewTransactor(db).WithinTx(ctx, func(exec core.DBExecutor) error {
		_, err := quizzes.CreateQuiz(ctx, quiz.Quiz{CourseID: 1, Title: "Week 1"}, exec)
		return err
	})
	require.NoError(t, err)

	// the transaction lock is released
	_, err = quizzes.CreateQuiz(ctx, quiz.Quiz{CourseID: 1, Title: "Week 2"})
	require.NoError(t, err)

	db.mu.Lock()
	defer db.mu.Unlock()
	assert.Len(t, db.t.quizzes, 2)
}
