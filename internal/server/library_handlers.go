package server

import (
	"io"

	"github.com/Kellia855/mindbridge/internal/models"
	"github.com/Kellia855/mindbridge/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListBooks handles GET /api/library
// @Summary Library catalog
// @Tags library
// @Produce json
// @Security BearerAuth
// @Param category query string false "Category"
// @Param search query string false "Title or author"
// @Success 200 {array} models.LibraryBook
// @Router /library [get]
func (s *Server) ListBooks(c *fiber.Ctx) error {
	books, err := s.libraryService.List(c.UserContext(), models.LibraryFilter{
		Category: models.BookCategory(c.Query("category")),
		Search:   c.Query("search"),
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(books)
}

// GetBookCategories handles GET /api/library/categories
// @Summary Library categories
// @Tags library
// @Produce json
// @Security BearerAuth
// @Success 200 {array} service.CategoryOption
// @Router /library/categories [get]
func (s *Server) GetBookCategories(c *fiber.Ctx) error {
	return c.JSON(s.libraryService.Categories())
}

// GetBook handles GET /api/library/:id
// @Summary Book detail
// @Tags library
// @Produce json
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Success 200 {object} models.LibraryBook
// @Failure 404 {object} models.ErrorResponse
// @Router /library/{id} [get]
func (s *Server) GetBook(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	book, err := s.libraryService.Get(c.UserContext(), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(book)
}

// CreateBook handles POST /api/library
// @Summary Add a book
// @Tags library
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.BookInput true "Book"
// @Success 201 {object} models.LibraryBook
// @Router /library [post]
func (s *Server) CreateBook(c *fiber.Ctx) error {
	var req service.BookInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	book, err := s.libraryService.Create(c.UserContext(), actor(c), req)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(book)
}

// UpdateBook handles PUT /api/library/:id
// @Summary Update a book
// @Tags library
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Param request body service.BookInput true "Book"
// @Success 200 {object} models.LibraryBook
// @Router /library/{id} [put]
func (s *Server) UpdateBook(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req service.BookInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	book, err := s.libraryService.Update(c.UserContext(), actor(c), id, req)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(book)
}

// DeleteBook handles DELETE /api/library/:id
// @Summary Remove a book
// @Tags library
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Success 204
// @Router /library/{id} [delete]
func (s *Server) DeleteBook(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.libraryService.Delete(c.UserContext(), actor(c), id); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// UploadBookCover handles POST /api/library/:id/cover
// @Summary Upload a cover image
// @Description Multipart field "file". JPEG, PNG and WebP are accepted.
// @Tags library
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Param file formData file true "Cover image"
// @Success 200 {object} models.LibraryBook
// @Failure 400 {object} models.ErrorResponse
// @Router /library/{id}/cover [post]
func (s *Server) UploadBookCover(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("No file uploaded"))
	}
	file, err := fileHeader.Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Unable to read uploaded file"))
	}
	defer func() { _ = file.Close() }()

	content, err := io.ReadAll(file)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Unable to read uploaded file"))
	}

	book, err := s.libraryService.UploadCover(c.UserContext(), actor(c), id, content)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(book)
}
