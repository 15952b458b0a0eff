package server

import (
	"github.com/Kellia855/mindbridge/internal/models"
	"github.com/Kellia855/mindbridge/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListPosts handles GET /api/posts
// @Summary Approved community posts
// @Description Staff may pass status=pending for the moderation queue.
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param category query string false "Category"
// @Param status query string false "pending for the moderation queue"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {array} models.Post
// @Router /posts [get]
func (s *Server) ListPosts(c *fiber.Ctx) error {
	page := parsePagination(c, 20)
	posts, err := s.postService.ListPosts(c.UserContext(), actor(c), service.ListPostsInput{
		Category: models.PostCategory(c.Query("category")),
		Pending:  c.Query("status") == "pending",
		Limit:    page.Limit,
		Offset:   page.Offset,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(posts)
}

// MyPosts handles GET /api/posts/mine
// @Summary The caller's posts
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Post
// @Router /posts/mine [get]
func (s *Server) MyPosts(c *fiber.Ctx) error {
	posts, err := s.postService.MyPosts(c.UserContext(), actor(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(posts)
}

// GetPostCategories handles GET /api/posts/categories
// @Summary Post categories
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Success 200 {array} service.CategoryOption
// @Router /posts/categories [get]
func (s *Server) GetPostCategories(c *fiber.Ctx) error {
	return c.JSON(s.postService.Categories())
}

// CreatePost handles POST /api/posts
// @Summary Share a story
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.CreatePostInput true "Post"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req service.CreatePostInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	post, err := s.postService.CreatePost(c.UserContext(), actor(c), req)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
// @Summary Delete a post
// @Tags posts
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.postService.DeletePost(c.UserContext(), actor(c), id); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ApprovePost handles POST /api/posts/:id/approve
// @Summary Publish a pending post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} models.Post
// @Router /posts/{id}/approve [post]
func (s *Server) ApprovePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.postService.ApprovePost(c.UserContext(), actor(c), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(post)
}
