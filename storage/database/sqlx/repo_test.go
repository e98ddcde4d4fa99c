package sqlxrepos_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonalink/sonalink/core"
	"github.com/sonalink/sonalink/core/course"
	"github.com/sonalink/sonalink/core/forum"
	"github.com/sonalink/sonalink/core/notification"
	"github.com/sonalink/sonalink/core/quiz"
	"github.com/sonalink/sonalink/core/user"
	"github.com/sonalink/sonalink/storage/database"
	sqlxrepos "github.com/sonalink/sonalink/storage/database/sqlx"
	testutil "github.com/sonalink/sonalink/tests"
)

const tables = "users, courses, enrollments, materials, tags, material_tags, upvotes, forum_threads, " +
	"forum_replies, quizzes, quiz_questions, question_options, quiz_submissions, submission_answers, " +
	"notifications, quiz_reminders"

// prepareDB migrates a postgres test database and empties it. Tests are skipped without TEST_DATABASE_HOST.
func prepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	host := os.Getenv("TEST_DATABASE_HOST")
	if host == "" {
		t.Skip("TEST_DATABASE_HOST not set")
	}
	conf := core.NewTestConfig()
	conf.Database.Host = host
	conf.Database.Name = "sonalink_test"

	require.NoError(t, database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(db.DB))
	_, err = db.Exec("TRUNCATE " + tables + " RESTART IDENTITY CASCADE")
	require.NoError(t, err)
	return db
}

func intPtr(i int) *int { return &i }

func TestQuizSubmit(t *testing.T) {
	db := prepareDB(t)
	ctx := context.Background()
	logger := new(testutil.Logger)

	users := sqlxrepos.NewUserRepository(db)
	courses := sqlxrepos.NewCourseRepository(db)
	courseSvc := course.NewService(courses)
	svc := quiz.NewService(database.NewTransactor(db), sqlxrepos.NewQuizRepository(db), courseSvc, logger)

	instructor := testutil.CreateUser(t, users, "Instructor", "instructor@sona.ac.in", "", true)
	student := testutil.CreateUser(t, users, "Student", "student@sona.ac.in", "", true)
	c := testutil.CreateCourse(t, courses, "CS101", "Programming", instructor.ID, student.ID)

	qz, err := svc.Create(ctx, c.ID, instructor.ID, quiz.NewQuiz{Title: "Week 1"})
	require.NoError(t, err)
	multi, err := svc.AddQuestion(ctx, qz.ID, instructor.ID, quiz.NewQuestion{
		Text:    "Pick the primes.",
		Type:    quiz.TypeMultiChoice,
		Points:  intPtr(3),
		Options: []quiz.NewOption{{Text: "2", IsCorrect: true}, {Text: "4"}, {Text: "5", IsCorrect: true}},
	})
	require.NoError(t, err)
	short, err := svc.AddQuestion(ctx, qz.ID, instructor.ID, quiz.NewQuestion{Text: "Why?", Type: quiz.TypeShortAnswer})
	require.NoError(t, err)
	assert.Equal(t, 1, short.OrderIndex)

	text := "because"
	res, err := svc.Submit(ctx, qz.ID, student.ID, []quiz.Answer{
		{QuestionID: multi.ID, SelectedOptionIDs: []int64{multi.Options[2].ID, multi.Options[0].ID}},
		{QuestionID: short.ID, AnswerText: &text},
		{QuestionID: 424242},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Score)
	assert.Equal(t, 4, res.MaxPossibleScore)

	sub, err := svc.GetSubmission(ctx, res.SubmissionID, student.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, sub.Score.Int)
	require.Len(t, sub.Answers, 2)
	for _, a := range sub.Answers {
		if a.QuestionID == short.ID {
			assert.False(t, a.IsCorrect.Valid) // pending manual review
			assert.Equal(t, "because", a.AnswerText.String)
			assert.Empty(t, a.SelectedOptionIDs)
		} else {
			assert.True(t, a.IsCorrect.Bool)
			assert.Equal(t, 3, a.PointsAwarded)
			assert.ElementsMatch(t, []int64{multi.Options[0].ID, multi.Options[2].ID}, a.SelectedOptionIDs)
		}
	}
	var stored int
	require.NoError(t, db.Get(&stored, "SELECT count(*) FROM submission_answers WHERE submission_id = $1", res.SubmissionID))
	assert.Equal(t, 2, stored)

	t.Run("unknown quiz leaves nothing behind", func(t *testing.T) {
		_, err := svc.Submit(ctx, 9999, student.ID, []quiz.Answer{{QuestionID: multi.ID}})
		assert.Equal(t, quiz.ErrNotFound, err)

		var n int
		require.NoError(t, db.Get(&n, "SELECT count(*) FROM quiz_submissions"))
		assert.Equal(t, 1, n)
	})

	t.Run("reminders are recorded once", func(t *testing.T) {
		ok, err := svc.MarkReminded(ctx, qz.ID, instructor.ID)
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = svc.MarkReminded(ctx, qz.ID, instructor.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestForumToggleAcceptedAnswer(t *testing.T) {
	db := prepareDB(t)
	ctx := context.Background()
	logger := new(testutil.Logger)

	users := sqlxrepos.NewUserRepository(db)
	courses := sqlxrepos.NewCourseRepository(db)
	notifSvc := notification.NewService(sqlxrepos.NewNotificationRepository(db))
	svc := forum.NewService(database.NewTransactor(db), sqlxrepos.NewForumRepository(db), course.NewService(courses), notifSvc, logger)

	asker := testutil.CreateUser(t, users, "Asker", "asker@sona.ac.in", "", true)
	helper := testutil.CreateUser(t, users, "Helper", "helper@sona.ac.in", "", true)
	c := testutil.CreateCourse(t, courses, "PHY201", "Mechanics", asker.ID, helper.ID)

	thread, err := svc.CreateThread(ctx, c.ID, asker.ID, forum.NewThread{Title: "Torque", Body: "Sign?"})
	require.NoError(t, err)
	r1, err := svc.CreateReply(ctx, thread.ID, helper.ID, forum.NewReply{Body: "Right hand rule."})
	require.NoError(t, err)
	r2, err := svc.CreateReply(ctx, thread.ID, helper.ID, forum.NewReply{Body: "Counter-clockwise."})
	require.NoError(t, err)

	steps := []struct {
		reply        int64
		wantAccepted bool
		wantResolved bool
	}{
		{reply: r1.ID, wantAccepted: true, wantResolved: true},
		{reply: r2.ID, wantAccepted: true, wantResolved: true},
		{reply: r2.ID, wantAccepted: false, wantResolved: false},
	}
	for _, s := range steps {
		res, err := svc.ToggleAcceptedAnswer(ctx, s.reply, asker.ID)
		require.NoError(t, err)
		assert.Equal(t, s.wantAccepted, res.Reply.IsAcceptedAnswer)
		assert.Equal(t, s.wantResolved, res.ThreadResolved)

		var accepted int
		require.NoError(t, db.Get(&accepted, "SELECT count(*) FROM forum_replies WHERE thread_id = $1 AND is_accepted_answer", thread.ID))
		assert.LessOrEqual(t, accepted, 1)
	}

	_, err = svc.ToggleAcceptedAnswer(ctx, r1.ID, helper.ID)
	assert.Equal(t, forum.ErrNotCreator, err)
}

func TestForumToggleAcceptedAnswer_concurrent(t *testing.T) {
	db := prepareDB(t)
	ctx := context.Background()
	logger := new(testutil.Logger)

	users := sqlxrepos.NewUserRepository(db)
	courses := sqlxrepos.NewCourseRepository(db)
	notifSvc := notification.NewService(sqlxrepos.NewNotificationRepository(db))
	svc := forum.NewService(database.NewTransactor(db), sqlxrepos.NewForumRepository(db), course.NewService(courses), notifSvc, logger)

	asker := testutil.CreateUser(t, users, "Asker", "asker@sona.ac.in", "", true)
	helper := testutil.CreateUser(t, users, "Helper", "helper@sona.ac.in", "", true)
	c := testutil.CreateCourse(t, courses, "PHY201", "Mechanics", asker.ID, helper.ID)

	thread, err := svc.CreateThread(ctx, c.ID, asker.ID, forum.NewThread{Title: "Torque", Body: "Sign?"})
	require.NoError(t, err)
	var replies []int64
	for i := 0; i < 5; i++ {
		r, err := svc.CreateReply(ctx, thread.ID, helper.ID, forum.NewReply{Body: fmt.Sprintf("Answer %d", i)})
		require.NoError(t, err)
		replies = append(replies, r.ID)
	}

	checkThread := func(t *testing.T) {
		t.Helper()
		var accepted int
		require.NoError(t, db.Get(&accepted, "SELECT count(*) FROM forum_replies WHERE thread_id = $1 AND is_accepted_answer", thread.ID))
		var resolved bool
		require.NoError(t, db.Get(&resolved, "SELECT is_resolved FROM forum_threads WHERE id = $1", thread.ID))
		assert.LessOrEqual(t, accepted, 1)
		assert.Equal(t, accepted > 0, resolved)
	}

	for round := 0; round < 3; round++ {
		t.Run(fmt.Sprintf("round %d", round), func(t *testing.T) {
			var wg sync.WaitGroup
			errs := make(chan error, 4*len(replies))
			for i := 0; i < 4*len(replies); i++ {
				wg.Add(1)
				go func(replyID int64) {
					defer wg.Done()
					if _, err := svc.ToggleAcceptedAnswer(ctx, replyID, asker.ID); err != nil {
						errs <- err
					}
				}(replies[(i+round)%len(replies)])
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				assert.NoError(t, err)
			}
			checkThread(t)
		})
	}
}

func TestConflicts(t *testing.T) {
	db := prepareDB(t)
	ctx := context.Background()

	users := sqlxrepos.NewUserRepository(db)
	courses := sqlxrepos.NewCourseRepository(db)
	usr := testutil.CreateUser(t, users, "Anu", "anu@sona.ac.in", "", true)

	_, err := users.CreateUser(ctx, user.User{Name: "Anu", Email: "anu@sona.ac.in", CreatedAt: time.Now(), UpdatedAt: time.Now()})
	assert.Equal(t, user.ErrEmailExists, err)

	c := testutil.CreateCourse(t, courses, "CS101", "Programming", usr.ID)
	_, err = courses.CreateCourse(ctx, course.Course{Code: "CS101", Name: "Again", CreatedAt: time.Now()})
	assert.Equal(t, course.ErrCodeExists, err)

	assert.Equal(t, course.ErrAlreadyEnrolled, courses.Enroll(ctx, c.ID, usr.ID, time.Now()))
	require.NoError(t, courses.Unenroll(ctx, c.ID, usr.ID))
	assert.Equal(t, course.ErrNotEnrolled, courses.Unenroll(ctx, c.ID, usr.ID))
}
