package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/sonalink/sonalink/core"
	"github.com/sonalink/sonalink/core/notification"
	"github.com/sonalink/sonalink/core/quiz"
)

const reminderTimeout = 5 * time.Minute

type (
	reminderSource interface {
		DueReminders(ctx context.Context, window time.Duration) ([]quiz.DueReminder, error)
		MarkReminded(ctx context.Context, quizID, userID int64) (bool, error)
	}

	notifier interface {
		Notify(ctx context.Context, nn notification.NewNotification) (notification.Notification, error)
	}

	// quizReminderJob notifies members of the quizzes they have yet to submit before the due date.
	quizReminderJob struct {
		quizzes  reminderSource
		notifier notifier
		window   time.Duration
		logger   core.Logger
	}
)

var _ cron.Job = (*quizReminderJob)(nil)

func (j *quizReminderJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), reminderTimeout)
	defer cancel()

	sent, err := j.remind(ctx)
	if err != nil {
		j.logger.Error(fmt.Sprintf("quiz reminders: %v", err), err)
	}
	j.logger.Info(fmt.Sprintf("quiz reminders: %d sent", sent))
}

// remind sends one reminder per (quiz, user) pair. A failed notification does not stop the batch.
func (j *quizReminderJob) remind(ctx context.Context) (int, error) {
	due, err := j.quizzes.DueReminders(ctx, j.window)
	if err != nil {
		return 0, errors.Wrap(err, "listing due quizzes")
	}

	var sent int
	for _, r := range due {
		fresh, err := j.quizzes.MarkReminded(ctx, r.QuizID, r.UserID)
		if err != nil {
			j.logger.Error(fmt.Sprintf("marking quiz %d reminded for user %d: %v", r.QuizID, r.UserID, err), err)
			continue
		}
		if !fresh {
			continue
		}
		_, err = j.notifier.Notify(ctx, notification.NewNotification{
			UserID:  r.UserID,
			Type:    notification.TypeQuizDue,
			Message: fmt.Sprintf("Quiz %q is due on %s.", r.QuizTitle, r.DueDate.UTC().Format("Jan 2, 15:04 MST")),
			Link:    fmt.Sprintf("/quizzes/%d", r.QuizID),
		})
		if err != nil {
			j.logger.Error(fmt.Sprintf("notifying user %d of quiz %d: %v", r.UserID, r.QuizID, err), err)
			continue
		}
		sent++
	}
	return sent, nil
}

// startJobs schedules the background jobs. Callers stop the returned scheduler on shutdown.
func startJobs(conf *core.Config, quizzes reminderSource, notifier notifier, logger core.Logger) (*cron.Cron, error) {
	cronLogger := cron.PrintfLogger(log.New(os.Stdout, "CRON : ", log.LstdFlags|log.Lmicroseconds))
	scheduler := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	job := &quizReminderJob{
		quizzes:  quizzes,
		notifier: notifier,
		window:   conf.Jobs.QuizReminderWindow,
		logger:   logger,
	}
	if _, err := scheduler.AddJob(conf.Jobs.QuizReminderSpec, job); err != nil {
		return nil, errors.Wrapf(err, "scheduling quiz reminders %q", conf.Jobs.QuizReminderSpec)
	}

	scheduler.Start()
	return scheduler, nil
}
