package server

import (
	"github.com/Kellia855/mindbridge/internal/models"
	"github.com/Kellia855/mindbridge/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListEvents handles GET /api/events
// @Summary List wellness events
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param scope query string false "upcoming, past or all"
// @Success 200 {array} models.Event
// @Router /events [get]
func (s *Server) ListEvents(c *fiber.Ctx) error {
	events, err := s.eventService.List(c.UserContext(), actor(c), models.EventScope(c.Query("scope")))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(events)
}

// GetEvent handles GET /api/events/:id
// @Summary Event detail
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param id path int true "Event ID"
// @Success 200 {object} models.Event
// @Failure 404 {object} models.ErrorResponse
// @Router /events/{id} [get]
func (s *Server) GetEvent(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	event, err := s.eventService.Get(c.UserContext(), actor(c), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(event)
}

// CreateEvent handles POST /api/events
// @Summary Create an event
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.EventInput true "Event"
// @Success 201 {object} models.Event
// @Failure 400 {object} models.ErrorResponse
// @Router /events [post]
func (s *Server) CreateEvent(c *fiber.Ctx) error {
	var req service.EventInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	event, err := s.eventService.Create(c.UserContext(), actor(c), req)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(event)
}

// UpdateEvent handles PUT /api/events/:id
// @Summary Update an event
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Event ID"
// @Param request body service.EventInput true "Event"
// @Success 200 {object} models.Event
// @Router /events/{id} [put]
func (s *Server) UpdateEvent(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req service.EventInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	event, err := s.eventService.Update(c.UserContext(), actor(c), id, req)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(event)
}

// ArchiveEvent handles DELETE /api/events/:id
// @Summary Archive an event
// @Tags events
// @Security BearerAuth
// @Param id path int true "Event ID"
// @Success 204
// @Router /events/{id} [delete]
func (s *Server) ArchiveEvent(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.eventService.Archive(c.UserContext(), actor(c), id); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RegisterForEvent handles POST /api/events/:id/register
// @Summary Register for an event
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param id path int true "Event ID"
// @Success 201 {object} models.EventRegistration
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /events/{id}/register [post]
func (s *Server) RegisterForEvent(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	reg, err := s.eventService.Register(c.UserContext(), actor(c), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(reg)
}

// UnregisterFromEvent handles DELETE /api/events/:id/register
// @Summary Cancel an event registration
// @Tags events
// @Security BearerAuth
// @Param id path int true "Event ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Router /events/{id}/register [delete]
func (s *Server) UnregisterFromEvent(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.eventService.Unregister(c.UserContext(), actor(c), id); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// MyEventRegistrations handles GET /api/events/mine
// @Summary The caller's event registrations
// @Tags events
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.EventRegistration
// @Router /events/mine [get]
func (s *Server) MyEventRegistrations(c *fiber.Ctx) error {
	regs, err := s.eventService.MyRegistrations(c.UserContext(), actor(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(regs)
}

// ListEventRegistrations handles GET /api/events/:id/registrations
// @Summary Registrations for an event
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param id path int true "Event ID"
// @Success 200 {array} models.EventRegistration
// @Router /events/{id}/registrations [get]
func (s *Server) ListEventRegistrations(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	regs, err := s.eventService.Registrations(c.UserContext(), actor(c), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(regs)
}

// SetAttendance handles POST /api/event-registrations/:id/attended
// @Summary Record attendance
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Registration ID"
// @Param request body object{attended=bool} true "Attendance"
// @Success 200 {object} models.EventRegistration
// @Router /event-registrations/{id}/attended [post]
func (s *Server) SetAttendance(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Attended bool `json:"attended"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	reg, err := s.eventService.SetAttended(c.UserContext(), actor(c), id, req.Attended)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(reg)
}
