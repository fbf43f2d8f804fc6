package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gymflow/gymflow-api/internal/models"
	"github.com/gymflow/gymflow-api/internal/service"
	appErrors "github.com/gymflow/gymflow-api/pkg/errors"
	"github.com/gymflow/gymflow-api/pkg/response"
)

// BookingHandler exposes booking endpoints.
type BookingHandler struct {
	bookings *service.BookingService
}

// NewBookingHandler constructs BookingHandler.
func NewBookingHandler(bookings *service.BookingService) *BookingHandler {
	return &BookingHandler{bookings: bookings}
}

// List godoc
// @Summary List bookings
// @Tags Bookings
// @Produce json
// @Param memberId query int false "Filter by member"
// @Param classId query int false "Filter by class"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /bookings [get]
func (h *BookingHandler) List(c *gin.Context) {
	var filter models.BookingFilter
	filter.MemberID = queryInt64(c, "memberId")
	filter.ClassID = queryInt64(c, "classId")
	// Members only ever see their own bookings.
	if claims := claimsFromContext(c); claims != nil && claims.Role == "MEMBER" {
		filter.MemberID = claims.UserID
	}
	if status := c.Query("status"); status != "" {
		filter.Status = models.BookingStatus(strings.ToUpper(status))
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	bookings, pagination, err := h.bookings.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bookings, pagination)
}

// Get godoc
// @Summary Get booking
// @Tags Bookings
// @Produce json
// @Param id path int true "Booking ID"
// @Success 200 {object} response.Envelope
// @Router /bookings/{id} [get]
func (h *BookingHandler) Get(c *gin.Context) {
	id := idParam(c, "id")
	if id == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid booking id"))
		return
	}
	booking, err := h.bookings.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil)
}

// Create godoc
// @Summary Book a member into a class
// @Tags Bookings
// @Accept json
// @Produce json
// @Param payload body service.CreateBookingRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Router /bookings [post]
func (h *BookingHandler) Create(c *gin.Context) {
	var req service.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	booking, err := h.bookings.CreateBooking(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, booking)
}

// Cancel godoc
// @Summary Cancel a booking
// @Tags Bookings
// @Produce json
// @Param id path int true "Booking ID"
// @Success 200 {object} response.Envelope
// @Router /bookings/{id}/cancel [put]
func (h *BookingHandler) Cancel(c *gin.Context) {
	id := idParam(c, "id")
	if id == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid booking id"))
		return
	}
	booking, err := h.bookings.CancelBooking(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil)
}

// ReEnroll godoc
// @Summary Re-enroll a cancelled booking
// @Tags Bookings
// @Produce json
// @Param id path int true "Booking ID"
// @Success 200 {object} response.Envelope
// @Router /bookings/{id}/re-enroll [put]
func (h *BookingHandler) ReEnroll(c *gin.Context) {
	id := idParam(c, "id")
	if id == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid booking id"))
		return
	}
	booking, err := h.bookings.ReEnrollBooking(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil)
}

// Eligibility godoc
// @Summary Advisory booking eligibility check
// @Tags Bookings
// @Produce json
// @Param memberId query int true "Member ID"
// @Param classId query int true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /bookings/eligibility [get]
func (h *BookingHandler) Eligibility(c *gin.Context) {
	memberID := queryInt64(c, "memberId")
	classID := queryInt64(c, "classId")
	if memberID == 0 || classID == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "memberId and classId are required"))
		return
	}
	check, err := h.bookings.CheckEligibility(c.Request.Context(), memberID, classID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, check, nil)
}
