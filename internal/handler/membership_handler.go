package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gymflow/gymflow-api/internal/service"
	"github.com/gymflow/gymflow-api/pkg/response"
)

// MembershipHandler exposes the lifecycle trigger endpoint.
type MembershipHandler struct {
	lifecycle *service.MembershipLifecycleService
}

// NewMembershipHandler constructs MembershipHandler.
func NewMembershipHandler(lifecycle *service.MembershipLifecycleService) *MembershipHandler {
	return &MembershipHandler{lifecycle: lifecycle}
}

// RunLifecycle godoc
// @Summary Run one membership lifecycle sweep
// @Description Moves ACTIVE members past their plan end date to GRACE_PERIOD
// @Description and GRACE_PERIOD members past the grace window to EXPIRED.
// @Tags Membership
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /membership/lifecycle/run [post]
func (h *MembershipHandler) RunLifecycle(c *gin.Context) {
	result, err := h.lifecycle.RunOnce(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
