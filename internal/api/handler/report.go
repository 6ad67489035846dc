package handler

import (
	"errors"
	"net/http"

	"strangerly/backend/internal/complaint"
	"strangerly/backend/internal/logger"
	"strangerly/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// reportRequest is the body of POST /report. Every field may be null.
type reportRequest struct {
	ReporterID string `json:"reporterId"`
	ReportedID string `json:"reportedId"`
	RoomID     string `json:"roomId"`
	Reason     string `json:"reason"`
}

// Report files an abuse report and answers {ok: bool}.
func (h *Handler) Report(c *gin.Context) {
	var req reportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	r := &models.Report{
		ReporterID: req.ReporterID,
		ReportedID: req.ReportedID,
		RoomID:     req.RoomID,
		Reason:     req.Reason,
	}
	err := h.Complaints.HandleReport(c.Request.Context(), r)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"ok": true, "id": r.ID})
	case errors.Is(err, complaint.ErrInvalidReport):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
	default:
		logger.Ctx(c.Request.Context()).Error().Err(err).Msg("report not saved")
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false})
	}
}
