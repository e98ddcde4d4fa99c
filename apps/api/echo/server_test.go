package echoapi_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonalink/sonalink/core/forum"
	"github.com/sonalink/sonalink/core/material"
	"github.com/sonalink/sonalink/core/notification"
	"github.com/sonalink/sonalink/core/search"
	testutil "github.com/sonalink/sonalink/tests"
)

func TestServer_home(t *testing.T) {
	app := setup(t)

	req, rec := newRequest(http.MethodGet, "/")
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to SonaLink API!", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	req, rec = newRequest(http.MethodGet, "/api/nowhere")
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_metrics(t *testing.T) {
	app := setup(t)

	req, rec := newRequest(http.MethodGet, "/api/users/me")
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req, rec = newRequest(http.MethodGet, "/metrics")
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "sonalink_http_requests_total")
	assert.Contains(t, body, `route="/api/users/me"`)
	assert.Contains(t, body, `status="401"`)
}

func Test_notificationApi_markRead(t *testing.T) {
	app := setup(t)
	ctx := context.Background()

	anu := testutil.CreateUser(t, app.users, "Anu", "anu@sona.ac.in", "", true)
	bala := testutil.CreateUser(t, app.users, "Bala", "bala@sona.ac.in", "", true)
	n, err := app.notifSvc.Notify(ctx, notification.NewNotification{
		UserID:  anu.ID,
		Type:    notification.TypeNewReply,
		Message: "Bala replied to your thread.",
		Link:    "/threads/1",
	})
	require.NoError(t, err)
	path := fmt.Sprintf("/api/notifications/%d/read", n.ID)

	app.run(t, []httpTest{
		{
			name: "someone else's notification", method: http.MethodPut, path: path, token: getToken(t, app.conf, bala),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "Notification not found."}),
		},
		{
			name: "unread", path: "/api/users/me/notifications", token: getToken(t, app.conf, anu),
			wantData: marchallObj(t, notification.List{Items: []notification.Notification{n}, TotalItems: 1, TotalUnread: 1}),
		},
	})

	rec := app.do(httpTest{method: http.MethodPut, path: path, token: getToken(t, app.conf, anu)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var read notification.Notification
	unmarchall(t, rec, &read)
	assert.True(t, read.IsRead)

	list, err := app.notifSvc.List(ctx, anu.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, list.TotalUnread)
}

func Test_searchApi(t *testing.T) {
	app := setup(t)
	ctx := context.Background()

	anu := testutil.CreateUser(t, app.users, "Anu", "anu@sona.ac.in", "", true)
	c := testutil.CreateCourse(t, app.courses, "CS101", "Algorithms", anu.ID)
	_, err := app.materialSvc.Upload(ctx, c.ID, anu.ID, material.NewMaterial{Title: "Algorithm cheatsheet"}, material.File{
		Filename: "cheatsheet.pdf",
		Size:     int64(len(pdfData)),
		Content:  bytes.NewReader(pdfData),
	})
	require.NoError(t, err)
	_, err = app.forumSvc.CreateThread(ctx, c.ID, anu.ID, forum.NewThread{Title: "Greedy algorithms", Body: "When do they work?"})
	require.NoError(t, err)
	token := getToken(t, app.conf, anu)

	app.run(t, []httpTest{
		{
			name: "invalid type", path: "/api/search?q=algo&type=people", token: token,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"type": "type must be one of all, materials, courses, threads"}),
		},
		{name: "query too short", path: "/api/search/suggestions?q=a", token: token, wantData: []byte(`[]`)},
	})

	t.Run("suggestions", func(t *testing.T) {
		rec := app.do(httpTest{path: "/api/search/suggestions?q=ALGO", token: token})
		require.Equal(t, http.StatusOK, rec.Code)
		var sugs []search.Suggestion
		unmarchall(t, rec, &sugs)
		if assert.Len(t, sugs, 2) {
			assert.Equal(t, "Algorithm cheatsheet", sugs[0].Label)
			assert.Equal(t, "material", sugs[0].Type)
			assert.Equal(t, "course", sugs[1].Type)
		}
	})

	t.Run("search by type", func(t *testing.T) {
		rec := app.do(httpTest{path: "/api/search?q=algo&type=threads", token: token})
		require.Equal(t, http.StatusOK, rec.Code)
		var res search.Results
		unmarchall(t, rec, &res)
		assert.Len(t, res.Threads, 1)
		assert.Empty(t, res.Materials)
		assert.Empty(t, res.Courses)

		rec = app.do(httpTest{path: "/api/search?q=algo", token: token})
		require.Equal(t, http.StatusOK, rec.Code)
		unmarchall(t, rec, &res)
		assert.Len(t, res.Materials, 1)
		assert.Len(t, res.Courses, 1)
		assert.Len(t, res.Threads, 1)
	})
}
