package server

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/Kellia855/mindbridge/internal/models"
	"github.com/Kellia855/mindbridge/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) createPost(user *models.User, body map[string]any) models.Post {
	e.t.Helper()
	status, raw := e.do(http.MethodPost, "/api/posts", user, body)
	require.Equal(e.t, http.StatusCreated, status, string(raw))
	return decode[models.Post](e.t, raw)
}

func TestCreatePost_Moderation(t *testing.T) {
	env := newTestEnv(t)

	post := env.createPost(env.student, map[string]any{
		"content":  "Talking to someone helped me through finals.",
		"category": "academic_stress",
	})
	assert.False(t, post.IsApproved)
	assert.True(t, post.IsAnonymous)
	assert.Equal(t, "Anonymous", post.AuthorDisplay)

	status, raw := env.do(http.MethodGet, "/api/posts", env.student, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decode[[]models.Post](t, raw))

	status, _ = env.do(http.MethodGet, "/api/posts?status=pending", env.student, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, raw = env.do(http.MethodGet, "/api/posts?status=pending", env.staff, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.Post](t, raw), 1)

	status, _ = env.do(http.MethodPost, fmt.Sprintf("/api/posts/%d/approve", post.ID), env.student, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, raw = env.do(http.MethodPost, fmt.Sprintf("/api/posts/%d/approve", post.ID), env.staff, nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.True(t, decode[models.Post](t, raw).IsApproved)

	status, raw = env.do(http.MethodGet, "/api/posts?category=academic_stress", env.student, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.Post](t, raw), 1)
}

func TestCreatePost_NamedAuthorAndAutoApprove(t *testing.T) {
	env := newTestEnv(t, withFlags("post_auto_approve=on"))

	post := env.createPost(env.student, map[string]any{
		"content":      "Morning walks keep me grounded.",
		"is_anonymous": false,
	})
	assert.True(t, post.IsApproved)
	assert.False(t, post.IsAnonymous)
	assert.Equal(t, "Firstamina Last", post.AuthorDisplay)
	assert.Equal(t, models.PostCategoryGeneralInspiration, post.Category)
}

func TestCreatePost_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"blank content", map[string]any{"content": "   "}},
		{"unknown category", map[string]any{"content": "hi", "category": "gossip"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := env.do(http.MethodPost, "/api/posts", env.student, tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
		})
	}
}

func TestDeletePost(t *testing.T) {
	env := newTestEnv(t)
	post := env.createPost(env.student, map[string]any{"content": "Breathe in, breathe out."})
	path := fmt.Sprintf("/api/posts/%d", post.ID)

	other := testutil.CreateUser(t, env.db, "brian", models.RoleStudent)
	status, _ := env.do(http.MethodDelete, path, other, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, raw := env.do(http.MethodGet, "/api/posts/mine", env.student, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.Post](t, raw), 1)

	status, _ = env.do(http.MethodDelete, path, env.staff, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = env.do(http.MethodDelete, path, env.student, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestGetPostCategories(t *testing.T) {
	env := newTestEnv(t)

	status, raw := env.do(http.MethodGet, "/api/posts/categories", env.student, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]map[string]string](t, raw), len(models.PostCategories))
}
