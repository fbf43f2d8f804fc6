package handler

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/gymflow/gymflow-api/internal/service"
	appErrors "github.com/gymflow/gymflow-api/pkg/errors"
	"github.com/gymflow/gymflow-api/pkg/response"
)

// RosterHandler serves class roster exports.
type RosterHandler struct {
	roster *service.RosterService
}

// NewRosterHandler constructs RosterHandler.
func NewRosterHandler(roster *service.RosterService) *RosterHandler {
	return &RosterHandler{roster: roster}
}

// Export godoc
// @Summary Export the enrolled roster of a class
// @Tags Classes
// @Produce text/csv
// @Produce application/pdf
// @Param id path int true "Class ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Router /classes/{id}/roster/export [get]
func (h *RosterHandler) Export(c *gin.Context) {
	id := idParam(c, "id")
	if id == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid class id"))
		return
	}
	format := c.DefaultQuery("format", "csv")

	export, err := h.roster.Export(c.Request.Context(), id, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	c.Data(200, export.ContentType, export.Content)
}
