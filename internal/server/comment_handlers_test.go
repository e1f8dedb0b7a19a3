package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"grapevine/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateComment(t *testing.T) {
	srv, app := newTestServer(t)
	_, token := signupUser(t, srv, "author@example.com", models.RoleBasic)
	gossipID := createGossipViaAPI(t, app, token, "commented")

	t.Run("Success", func(t *testing.T) {
		req := authed(jsonRequest(http.MethodPost, "/gossips/create/"+itoa(gossipID)+"/comment",
			map[string]string{"content": "first!"}), token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var comment models.Comment
		decodeBody(t, resp, &comment)
		assert.Equal(t, "first!", comment.Content)
		assert.Nil(t, comment.ParentID)
	})

	t.Run("Empty Content", func(t *testing.T) {
		req := authed(jsonRequest(http.MethodPost, "/gossips/create/"+itoa(gossipID)+"/comment",
			map[string]string{"content": ""}), token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("Missing Gossip", func(t *testing.T) {
		req := authed(jsonRequest(http.MethodPost, "/gossips/create/9999/comment",
			map[string]string{"content": "into the void"}), token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestCreateComment_ReplyDepthCollapses(t *testing.T) {
	srv, app := newTestServer(t)
	_, token := signupUser(t, srv, "author@example.com", models.RoleBasic)
	gossipID := createGossipViaAPI(t, app, token, "threaded")
	parentID := createCommentViaAPI(t, app, token, gossipID, "top level")

	// Reply to the top-level comment.
	req := authed(jsonRequest(http.MethodPost, "/gossips/create/"+itoa(gossipID)+"/comment",
		map[string]any{"content": "a reply", "parentId": parentID}), token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var reply models.Comment
	decodeBody(t, resp, &reply)
	require.NotNil(t, reply.ParentID)
	assert.Equal(t, parentID, *reply.ParentID)

	// A reply to the reply attaches to the top-level parent instead.
	req = authed(jsonRequest(http.MethodPost, "/gossips/create/"+itoa(gossipID)+"/comment",
		map[string]any{"content": "reply to reply", "parentId": reply.ID}), token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var deep models.Comment
	decodeBody(t, resp, &deep)
	require.NotNil(t, deep.ParentID)
	assert.Equal(t, parentID, *deep.ParentID)
}

func TestGetComments(t *testing.T) {
	srv, app := newTestServer(t)
	_, token := signupUser(t, srv, "author@example.com", models.RoleBasic)
	gossipID := createGossipViaAPI(t, app, token, "busy")
	for i := 0; i < 3; i++ {
		createCommentViaAPI(t, app, token, gossipID, "comment")
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/gossips/get/"+itoa(gossipID)+"/comments?page=1&limit=2", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page struct {
		TotalItems int64            `json:"totalItems"`
		Items      []models.Comment `json:"items"`
	}
	decodeBody(t, resp, &page)
	assert.Equal(t, int64(3), page.TotalItems)
	assert.Len(t, page.Items, 2)
}

func TestDeleteComment(t *testing.T) {
	srv, app := newTestServer(t)
	_, authorToken := signupUser(t, srv, "author@example.com", models.RoleBasic)
	_, otherToken := signupUser(t, srv, "other@example.com", models.RoleBasic)
	gossipID := createGossipViaAPI(t, app, authorToken, "with comment")
	commentID := createCommentViaAPI(t, app, authorToken, gossipID, "mine")

	t.Run("Non-Author Forbidden", func(t *testing.T) {
		resp, err := app.Test(authed(httptest.NewRequest(http.MethodDelete, "/gossips/delete/comment/"+itoa(commentID), nil), otherToken))
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("Author Deletes, Replies Cascade", func(t *testing.T) {
		req := authed(jsonRequest(http.MethodPost, "/gossips/create/"+itoa(gossipID)+"/comment",
			map[string]any{"content": "a reply", "parentId": commentID}), otherToken)
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		var reply models.Comment
		decodeBody(t, resp, &reply)

		resp, err = app.Test(authed(httptest.NewRequest(http.MethodDelete, "/gossips/delete/comment/"+itoa(commentID), nil), authorToken))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var count int64
		require.NoError(t, srv.db.Model(&models.Comment{}).
			Where("id IN ?", []uint{commentID, reply.ID}).Count(&count).Error)
		assert.Zero(t, count)
	})
}
