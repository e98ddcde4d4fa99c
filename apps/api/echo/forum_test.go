package echoapi_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/sonalink/sonalink/apps/api/echo"
	"github.com/sonalink/sonalink/core/forum"
	"github.com/sonalink/sonalink/core/notification"
	testutil "github.com/sonalink/sonalink/tests"
)

func Test_forumApi_acceptAnswer(t *testing.T) {
	app := setup(t)
	ctx := context.Background()

	asker := testutil.CreateUser(t, app.users, "Asker", "asker@sona.ac.in", "", true)
	helper := testutil.CreateUser(t, app.users, "Helper", "helper@sona.ac.in", "", true)
	c := testutil.CreateCourse(t, app.courses, "PHY201", "Mechanics", asker.ID, helper.ID)

	thread, err := app.forumSvc.CreateThread(ctx, c.ID, asker.ID, forum.NewThread{Title: "Free body diagrams", Body: "How?"})
	require.NoError(t, err)
	r1, err := app.forumSvc.CreateReply(ctx, thread.ID, helper.ID, forum.NewReply{Body: "Draw every force."})
	require.NoError(t, err)
	r2, err := app.forumSvc.CreateReply(ctx, thread.ID, asker.ID, forum.NewReply{Body: "Found it in chapter 4."})
	require.NoError(t, err)

	askerToken := getToken(t, app.conf, asker)
	path := func(id int64) string { return fmt.Sprintf("/api/replies/%d/accept", id) }
	result := func(msg string, id int64, accepted, resolved bool) []byte {
		return marchallObj(t, echoapi.AcceptResponse{
			Message: msg,
			AcceptResult: forum.AcceptResult{
				Reply:          forum.AcceptedReply{ID: id, IsAcceptedAnswer: accepted},
				ThreadResolved: resolved,
			},
		})
	}

	app.run(t, []httpTest{
		{name: "POST is not routed", method: http.MethodPost, path: path(r1.ID), token: askerToken, wantCode: http.StatusMethodNotAllowed},
		{name: "auth required", method: http.MethodPut, path: path(r1.ID), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "thread creator only", method: http.MethodPut, path: path(r1.ID), token: getToken(t, app.conf, helper),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "Forbidden: Only the thread creator can accept an answer."}),
		},
		{
			name: "unknown reply", method: http.MethodPut, path: path(9999), token: askerToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "Reply not found."}),
		},
		// state machine
		{
			name: "accept r1", method: http.MethodPut, path: path(r1.ID), token: askerToken,
			wantData: result("Reply marked as accepted answer.", r1.ID, true, true),
		},
		{
			name: "accepting r2 un-accepts r1", method: http.MethodPut, path: path(r2.ID), token: askerToken,
			wantData: result("Reply marked as accepted answer.", r2.ID, true, true),
		},
		{
			name: "toggling r2 off re-opens the thread", method: http.MethodPut, path: path(r2.ID), token: askerToken,
			wantData: result("Reply unmarked as accepted answer.", r2.ID, false, false),
		},
		{
			name: "accept r1 again", method: http.MethodPut, path: path(r1.ID), token: askerToken,
			wantData: result("Reply marked as accepted answer.", r1.ID, true, true),
		},
	})

	t.Run("thread shows the accepted reply", func(t *testing.T) {
		rec := app.do(httpTest{path: fmt.Sprintf("/api/threads/%d", thread.ID), token: askerToken})
		require.Equal(t, http.StatusOK, rec.Code)
		var detail forum.Detail
		unmarchall(t, rec, &detail)
		assert.True(t, detail.Thread.IsResolved)
		accepted := 0
		for _, r := range detail.Replies {
			if r.IsAcceptedAnswer {
				accepted++
				assert.Equal(t, r1.ID, r.ID)
			}
		}
		assert.Equal(t, 1, accepted)
	})

	t.Run("helper was notified", func(t *testing.T) {
		list, err := app.notifSvc.List(ctx, helper.ID, 0, 0)
		require.NoError(t, err)
		var types []notification.Type
		for _, n := range list.Items {
			types = append(types, n.Type)
		}
		assert.Contains(t, types, notification.TypeAnswerAccepted)
	})
}

func Test_forumApi_threads(t *testing.T) {
	app := setup(t)

	member := testutil.CreateUser(t, app.users, "Member", "member@sona.ac.in", "", true)
	outsider := testutil.CreateUser(t, app.users, "Outsider", "outsider@sona.ac.in", "", true)
	c := testutil.CreateCourse(t, app.courses, "PHY201", "Mechanics", member.ID)
	threadsPath := fmt.Sprintf("/api/courses/%d/threads", c.ID)
	token := getToken(t, app.conf, member)

	app.run(t, []httpTest{
		{
			name: "blank body", method: http.MethodPost, path: threadsPath, token: token,
			body:     []byte(`{"title": "Torque", "body": "   "}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"body": "this field is required"}),
		},
		{
			name: "members only", method: http.MethodPost, path: threadsPath, token: getToken(t, app.conf, outsider),
			body:     []byte(`{"title": "Torque", "body": "Sign convention?"}`),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "Forbidden: You must be enrolled in this course."}),
		},
		{
			name: "create", method: http.MethodPost, path: threadsPath, token: token,
			body:     []byte(`{"title": "Torque", "body": "Sign convention?"}`),
			wantCode: http.StatusCreated,
		},
		{
			name: "reply to unknown thread", method: http.MethodPost, path: "/api/threads/9999/replies", token: token,
			body:     []byte(`{"body": "Right hand rule."}`),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "Thread not found."}),
		},
	})

	rec := app.do(httpTest{path: threadsPath + "?limit=5", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	var page forum.Page
	unmarchall(t, rec, &page)
	if assert.Len(t, page.Threads, 1) {
		assert.Equal(t, "Torque", page.Threads[0].Title)
		assert.Equal(t, 5, page.Pagination.Limit)
		assert.Equal(t, 1, page.Pagination.TotalItems)
	}

	rec = app.do(httpTest{
		method: http.MethodPost,
		path:   fmt.Sprintf("/api/threads/%d/replies", page.Threads[0].ID),
		token:  token,
		body:   []byte(`{"body": "Counter-clockwise is positive."}`),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var reply echoapi.ReplyResponse
	unmarchall(t, rec, &reply)
	assert.Equal(t, "Reply added successfully.", reply.Message)
	assert.False(t, reply.Reply.IsAcceptedAnswer)
}
