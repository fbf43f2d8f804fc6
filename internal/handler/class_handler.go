package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gymflow/gymflow-api/internal/models"
	"github.com/gymflow/gymflow-api/internal/service"
	appErrors "github.com/gymflow/gymflow-api/pkg/errors"
	"github.com/gymflow/gymflow-api/pkg/response"
)

// ClassHandler exposes scheduled class endpoints.
type ClassHandler struct {
	classes  *service.ClassService
	bookings *service.BookingService
}

// NewClassHandler constructs ClassHandler.
func NewClassHandler(classes *service.ClassService, bookings *service.BookingService) *ClassHandler {
	return &ClassHandler{classes: classes, bookings: bookings}
}

// List godoc
// @Summary List scheduled classes
// @Tags Classes
// @Produce json
// @Param trainerId query int false "Filter by trainer"
// @Param roomId query int false "Filter by room"
// @Param from query string false "RFC3339 lower bound on start time"
// @Param to query string false "RFC3339 upper bound on start time"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /classes [get]
func (h *ClassHandler) List(c *gin.Context) {
	var filter models.ClassFilter
	filter.TrainerID = queryInt64(c, "trainerId")
	filter.RoomID = queryInt64(c, "roomId")
	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid from timestamp"))
			return
		}
		filter.From = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid to timestamp"))
			return
		}
		filter.To = &to
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	classes, pagination, err := h.classes.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, pagination)
}

// Get godoc
// @Summary Get a scheduled class
// @Tags Classes
// @Produce json
// @Param id path int true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id} [get]
func (h *ClassHandler) Get(c *gin.Context) {
	id := idParam(c, "id")
	if id == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid class id"))
		return
	}
	class, err := h.classes.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}

// Create godoc
// @Summary Schedule a class
// @Tags Classes
// @Accept json
// @Produce json
// @Param payload body service.CreateClassRequest true "Class payload"
// @Success 201 {object} response.Envelope
// @Router /classes [post]
func (h *ClassHandler) Create(c *gin.Context) {
	var req service.CreateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	class, err := h.classes.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, class)
}

// Update godoc
// @Summary Reschedule or reassign a class
// @Tags Classes
// @Accept json
// @Produce json
// @Param id path int true "Class ID"
// @Param payload body service.UpdateClassRequest true "Class payload"
// @Success 200 {object} response.Envelope
// @Router /classes/{id} [put]
func (h *ClassHandler) Update(c *gin.Context) {
	id := idParam(c, "id")
	if id == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid class id"))
		return
	}
	var req service.UpdateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	class, err := h.classes.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}

// Availability godoc
// @Summary Advisory seat availability snapshot for a class
// @Tags Classes
// @Produce json
// @Param id path int true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/availability [get]
func (h *ClassHandler) Availability(c *gin.Context) {
	id := idParam(c, "id")
	if id == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid class id"))
		return
	}
	availability, err := h.bookings.GetClassAvailability(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, availability, nil)
}

// CancelBookings godoc
// @Summary Bulk-cancel all enrolled bookings of a class
// @Tags Classes
// @Produce json
// @Param id path int true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/bookings/cancel [put]
func (h *ClassHandler) CancelBookings(c *gin.Context) {
	id := idParam(c, "id")
	if id == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid class id"))
		return
	}
	cancelled, err := h.bookings.CancelAllForClass(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"cancelled": cancelled}, nil)
}
