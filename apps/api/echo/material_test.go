package echoapi_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonalink/sonalink/core/material"
	testutil "github.com/sonalink/sonalink/tests"
)

var pdfData = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n%%EOF\n")

func Test_materialApi(t *testing.T) {
	app := setup(t)

	uploader := testutil.CreateUser(t, app.users, "Uploader", "uploader@sona.ac.in", "", true)
	peer := testutil.CreateUser(t, app.users, "Peer", "peer@sona.ac.in", "", true)
	outsider := testutil.CreateUser(t, app.users, "Outsider", "outsider@sona.ac.in", "", true)
	c := testutil.CreateCourse(t, app.courses, "MA101", "Calculus", uploader.ID, peer.ID)

	uploadPath := fmt.Sprintf("/api/courses/%d/materials", c.ID)
	uploaderToken := getToken(t, app.conf, uploader)
	peerToken := getToken(t, app.conf, peer)

	t.Run("upload errors", func(t *testing.T) {
		tests := []struct {
			name     string
			token    string
			fields   map[string]string
			filename string
			content  []byte
			wantCode int
		}{
			{name: "title required", token: uploaderToken, fields: map[string]string{"title": " "}, filename: "a.pdf", content: pdfData, wantCode: http.StatusBadRequest},
			{name: "file required", token: uploaderToken, fields: map[string]string{"title": "Limits"}, wantCode: http.StatusBadRequest},
			{name: "extension not allowed", token: uploaderToken, fields: map[string]string{"title": "Limits"}, filename: "a.exe", content: pdfData, wantCode: http.StatusBadRequest},
			{name: "members only", token: getToken(t, app.conf, outsider), fields: map[string]string{"title": "Limits"}, filename: "a.pdf", content: pdfData, wantCode: http.StatusForbidden},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				fileField := "file"
				if tt.filename == "" {
					fileField = ""
				}
				req, rec := newMultipartRequest(t, uploadPath, tt.token, tt.fields, fileField, tt.filename, tt.content)
				app.server.ServeHTTP(rec, req)
				assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
				assert.Equal(t, 0, app.files.Len())
			})
		}
	})

	req, rec := newMultipartRequest(t, uploadPath, uploaderToken, map[string]string{"title": "Limits", "tags": "Exam, limits"}, "file", "limits.pdf", pdfData)
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var mat material.Material
	unmarchall(t, rec, &mat)
	assert.Equal(t, "pdf", mat.FileType)
	assert.Equal(t, []string{"exam", "limits"}, mat.Tags)
	assert.Equal(t, 1, app.files.Len())

	materialPath := fmt.Sprintf("/api/materials/%d", mat.ID)

	t.Run("upvote toggles", func(t *testing.T) {
		app.run(t, []httpTest{
			{
				name: "upvote", method: http.MethodPost, path: materialPath + "/upvote", token: peerToken,
				wantData: marchallObj(t, material.UpvoteResult{Message: "Material upvoted successfully.", Upvotes: 1}),
			},
			{
				name: "remove vote", method: http.MethodPost, path: materialPath + "/upvote", token: peerToken,
				wantData: marchallObj(t, material.UpvoteResult{Message: "Vote removed.", Upvotes: 0}),
			},
		})
	})

	t.Run("download redirects", func(t *testing.T) {
		rec := app.do(httpTest{path: materialPath + "/download", token: peerToken})
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Contains(t, rec.Header().Get("Location"), "http://files.test/materials/")
	})

	t.Run("listings", func(t *testing.T) {
		rec := app.do(httpTest{path: uploadPath + "?sort=top&limit=5", token: peerToken})
		require.Equal(t, http.StatusOK, rec.Code)
		var page material.Page
		unmarchall(t, rec, &page)
		if assert.Len(t, page.Items, 1) {
			assert.Equal(t, 1, page.Items[0].Downloads)
		}
		assert.Equal(t, 5, page.Pagination.Limit)

		rec = app.do(httpTest{path: "/api/materials?tag=nope", token: peerToken})
		require.Equal(t, http.StatusOK, rec.Code)
		unmarchall(t, rec, &page)
		assert.Empty(t, page.Items)
	})

	app.run(t, []httpTest{
		{
			name: "uploader only deletes", method: http.MethodDelete, path: materialPath, token: peerToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "Forbidden: You cannot delete this material."}),
		},
		{name: "delete", method: http.MethodDelete, path: materialPath, token: uploaderToken},
		{
			name: "deleted", path: materialPath, token: uploaderToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "Material not found."}),
		},
	})
	assert.Equal(t, 0, app.files.Len())
}
