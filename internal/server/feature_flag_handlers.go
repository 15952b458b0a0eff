package server

import (
	"errors"
	"log/slog"

	"github.com/Kellia855/mindbridge/internal/featureflags"
	"github.com/Kellia855/mindbridge/internal/middleware"
	"github.com/Kellia855/mindbridge/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetFeatureFlags returns configured feature flags and evaluated state for current user.
// @Summary Feature flag snapshot
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{flags=[]featureflags.Flag,evaluated=map[string]bool}
// @Router /admin/feature-flags [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"flags":     s.featureFlags.List(),
		"evaluated": s.featureFlags.Snapshot(actor(c).ID),
	})
}

// SetFeatureFlag flips a flag at runtime. The change is process-local and
// lasts until restart.
// @Summary Set a feature flag
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param name path string true "Flag name"
// @Param request body object{value=string} true "on, off or N%"
// @Success 200 {object} featureflags.Flag
// @Failure 400 {object} models.ErrorResponse
// @Router /admin/feature-flags/{name} [put]
func (s *Server) SetFeatureFlag(c *fiber.Ctx) error {
	var req struct {
		Value string `json:"value"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	name := c.Params("name")
	if err := s.featureFlags.Set(name, req.Value); err != nil {
		if errors.Is(err, featureflags.ErrInvalidValue) {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Flag values are on, off or a percentage like 25%"))
		}
		return models.RespondWithAppError(c, err)
	}

	middleware.Logger.InfoContext(c.UserContext(), "feature flag changed",
		slog.String("flag", name), slog.String("value", req.Value))
	return c.JSON(featureflags.Flag{Name: name, Value: req.Value})
}
