package server

import (
	"errors"

	"github.com/Kellia855/mindbridge/internal/cache"
	"github.com/Kellia855/mindbridge/internal/middleware"
	"github.com/Kellia855/mindbridge/internal/models"

	"github.com/gofiber/fiber/v2"
)

// AuthRequired validates the bearer token, rejects revoked tokens and loads
// the caller. It stores "userID", "user" and "claims" in locals.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := middleware.BearerToken(c.Get(fiber.HeaderAuthorization))
		// Browsers cannot set headers on a websocket upgrade
		if token == "" && websocketUpgrade(c) {
			token = c.Query("token")
		}
		if token == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		claims, err := s.tokens.Parse(token)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}

		revoked, err := cache.IsTokenRevoked(c.UserContext(), claims.ID)
		if err != nil {
			middleware.Logger.WarnContext(c.UserContext(), "token revocation check failed")
		}
		if revoked {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Token has been revoked"))
		}

		userID, _ := claims.UserID()
		user, err := s.userRepo.GetByID(c.UserContext(), userID)
		if err != nil {
			if models.IsCode(err, models.CodeNotFound) {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("User no longer exists"))
			}
			return models.RespondWithAppError(c, err)
		}

		c.Locals("userID", userID)
		c.Locals("user", user)
		c.Locals("claims", claims)
		c.SetUserContext(middleware.WithUserID(c.UserContext(), userID))

		return c.Next()
	}
}

// StaffRequired rejects callers outside the wellness team with 403.
// Must be placed after AuthRequired so that userID is available in locals.
func (s *Server) StaffRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals("userID").(uint)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		staff, err := s.isStaffByUserID(c.UserContext(), userID)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		}
		if !staff {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Wellness team access required"))
		}

		return c.Next()
	}
}

func websocketUpgrade(c *fiber.Ctx) bool {
	return c.Get(fiber.HeaderUpgrade) == "websocket"
}

func claimsFrom(c *fiber.Ctx) (*middleware.Claims, error) {
	claims, ok := c.Locals("claims").(*middleware.Claims)
	if !ok {
		return nil, errors.New("missing token claims")
	}
	return claims, nil
}
