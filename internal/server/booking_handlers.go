package server

import (
	"github.com/Kellia855/mindbridge/internal/models"
	"github.com/Kellia855/mindbridge/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateBooking handles POST /api/bookings
// @Summary Request a counseling session
// @Tags bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.CreateBookingInput true "Booking request"
// @Success 201 {object} models.Booking
// @Failure 400 {object} models.ErrorResponse
// @Router /bookings [post]
func (s *Server) CreateBooking(c *fiber.Ctx) error {
	var req service.CreateBookingInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	booking, err := s.bookingService.Create(c.UserContext(), actor(c), req)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(booking)
}

// ListBookings handles GET /api/bookings
// @Summary List bookings
// @Description Staff see every booking, students their own.
// @Tags bookings
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {array} models.Booking
// @Router /bookings [get]
func (s *Server) ListBookings(c *fiber.Ctx) error {
	page := parsePagination(c, 50)
	bookings, err := s.bookingService.List(c.UserContext(), actor(c), models.BookingFilter{
		Status: models.BookingStatus(c.Query("status")),
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(bookings)
}

// GetBooking handles GET /api/bookings/:id
// @Summary Booking detail
// @Tags bookings
// @Produce json
// @Security BearerAuth
// @Param id path int true "Booking ID"
// @Success 200 {object} models.Booking
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /bookings/{id} [get]
func (s *Server) GetBooking(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	booking, err := s.bookingService.Get(c.UserContext(), actor(c), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(booking)
}

// GetSessionTypes handles GET /api/bookings/session-types
// @Summary Bookable session types
// @Tags bookings
// @Produce json
// @Security BearerAuth
// @Success 200 {array} service.SessionTypeOption
// @Router /bookings/session-types [get]
func (s *Server) GetSessionTypes(c *fiber.Ctx) error {
	return c.JSON(s.bookingService.SessionTypes())
}

// ApproveBooking handles POST /api/bookings/:id/approve
// @Summary Approve a booking
// @Description Approves the booking and provisions a Google Meet link. A
// @Description provisioning failure still approves; the outcome and message say so.
// @Tags bookings
// @Produce json
// @Security BearerAuth
// @Param id path int true "Booking ID"
// @Success 200 {object} service.ApprovalResult
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /bookings/{id}/approve [post]
func (s *Server) ApproveBooking(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	result, err := s.bookingService.Approve(c.UserContext(), actor(c), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(result)
}

// RejectBooking handles POST /api/bookings/:id/reject
// @Summary Reject a booking
// @Tags bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Booking ID"
// @Param request body object{notes=string} false "Staff notes"
// @Success 200 {object} models.Booking
// @Failure 409 {object} models.ErrorResponse
// @Router /bookings/{id}/reject [post]
func (s *Server) RejectBooking(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Notes string `json:"notes"`
	}
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return nil
		}
	}

	booking, err := s.bookingService.Reject(c.UserContext(), actor(c), id, req.Notes)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(booking)
}

// CancelBooking handles POST /api/bookings/:id/cancel
// @Summary Cancel own booking
// @Tags bookings
// @Produce json
// @Security BearerAuth
// @Param id path int true "Booking ID"
// @Success 200 {object} service.CancelResult
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /bookings/{id}/cancel [post]
func (s *Server) CancelBooking(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	result, err := s.bookingService.Cancel(c.UserContext(), actor(c), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(result)
}

// RescheduleBooking handles POST /api/bookings/:id/reschedule
// @Summary Move a booking to a new slot
// @Tags bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Booking ID"
// @Param request body service.RescheduleInput true "New slot"
// @Success 200 {object} service.RescheduleResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /bookings/{id}/reschedule [post]
func (s *Server) RescheduleBooking(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req service.RescheduleInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	result, err := s.bookingService.Reschedule(c.UserContext(), actor(c), id, req)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(result)
}

// CompleteBookings handles POST /api/admin/bookings/complete
// @Summary Mark sessions completed
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{booking_ids=[]int} true "Bookings to complete"
// @Success 200 {object} object{completed=int,bookings=[]models.Booking}
// @Router /admin/bookings/complete [post]
func (s *Server) CompleteBookings(c *fiber.Ctx) error {
	var req struct {
		BookingIDs []uint `json:"booking_ids"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	updated, err := s.bookingService.MarkCompleted(c.UserContext(), actor(c), req.BookingIDs)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"completed": len(updated), "bookings": updated})
}
