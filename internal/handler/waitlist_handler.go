package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gymflow/gymflow-api/internal/service"
	appErrors "github.com/gymflow/gymflow-api/pkg/errors"
	"github.com/gymflow/gymflow-api/pkg/response"
)

// WaitlistHandler exposes waitlist endpoints.
type WaitlistHandler struct {
	waitlist *service.WaitlistService
}

// NewWaitlistHandler constructs WaitlistHandler.
func NewWaitlistHandler(waitlist *service.WaitlistService) *WaitlistHandler {
	return &WaitlistHandler{waitlist: waitlist}
}

// Join godoc
// @Summary Join a class waitlist
// @Tags Waitlist
// @Accept json
// @Produce json
// @Param payload body service.JoinWaitlistRequest true "Waitlist payload"
// @Success 201 {object} response.Envelope
// @Router /waitlist [post]
func (h *WaitlistHandler) Join(c *gin.Context) {
	var req service.JoinWaitlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	entry, err := h.waitlist.AddToWaitlist(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// Remove godoc
// @Summary Remove a waiting entry
// @Tags Waitlist
// @Produce json
// @Param id path int true "Waitlist entry ID"
// @Success 200 {object} response.Envelope
// @Router /waitlist/{id} [delete]
func (h *WaitlistHandler) Remove(c *gin.Context) {
	id := idParam(c, "id")
	if id == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid waitlist entry id"))
		return
	}
	entry, err := h.waitlist.RemoveFromWaitlist(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Position godoc
// @Summary Get the 1-based queue position of a waiting entry
// @Tags Waitlist
// @Produce json
// @Param id path int true "Waitlist entry ID"
// @Success 200 {object} response.Envelope
// @Router /waitlist/{id}/position [get]
func (h *WaitlistHandler) Position(c *gin.Context) {
	id := idParam(c, "id")
	if id == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid waitlist entry id"))
		return
	}
	position, err := h.waitlist.GetPosition(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, position, nil)
}

// ListForClass godoc
// @Summary List waiting entries of a class in queue order
// @Tags Waitlist
// @Produce json
// @Param id path int true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/waitlist [get]
func (h *WaitlistHandler) ListForClass(c *gin.Context) {
	classID := idParam(c, "id")
	if classID == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid class id"))
		return
	}
	entries, err := h.waitlist.ListForClass(c.Request.Context(), classID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Expire godoc
// @Summary Expire waiting entries of classes that already started
// @Tags Waitlist
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /waitlist/expire [post]
func (h *WaitlistHandler) Expire(c *gin.Context) {
	expired, err := h.waitlist.ExpireEntries(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"expired": expired}, nil)
}
