package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/bonos/internal/audit/domain"
	"github.com/smallbiznis/bonos/pkg/db/pagination"
	"go.uber.org/zap"
)

// ListAuditLogs returns recorded state changes, newest first.
func (s *Server) ListAuditLogs(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Action     string `form:"action"`
		TargetType string `form:"target_type"`
		TargetID   string `form:"target_id"`
		PartnerID  string `form:"partner_id"`
		StartAt    string `form:"start_at"`
		EndAt      string `form:"end_at"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	partnerID, err := parseOptionalSnowflakeID(query.PartnerID)
	if err != nil {
		AbortWithError(c, newValidationError("partner_id", "invalid_partner_id", "invalid partner_id"))
		return
	}
	startAt, err := parseOptionalTime(query.StartAt, false)
	if err != nil {
		AbortWithError(c, newValidationError("start_at", "invalid_start_at", "invalid start_at"))
		return
	}
	endAt, err := parseOptionalTime(query.EndAt, true)
	if err != nil {
		AbortWithError(c, newValidationError("end_at", "invalid_end_at", "invalid end_at"))
		return
	}

	req := auditdomain.ListAuditLogRequest{
		Pagination: query.Pagination,
		Action:     strings.TrimSpace(query.Action),
		TargetType: strings.TrimSpace(query.TargetType),
		TargetID:   strings.TrimSpace(query.TargetID),
		StartAt:    startAt,
		EndAt:      endAt,
	}
	if partnerID != nil {
		req.PartnerID = *partnerID
	}

	resp, err := s.auditSvc.List(c.Request.Context(), req)
	switch {
	case errors.Is(err, auditdomain.ErrInvalidTimeRange):
		AbortWithError(c, newValidationError("start_at", "invalid_time_range", "start_at is after end_at"))
		return
	case errors.Is(err, pagination.ErrInvalidPageToken):
		AbortWithError(c, newValidationError("page_token", "invalid_page_token", "invalid page_token"))
		return
	case err != nil:
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, resp)
}

// recordAudit writes an entry outside any transaction. Failures are logged
// and never fail the request.
func (s *Server) recordAudit(c *gin.Context, event auditdomain.Event) {
	if s.auditSvc == nil {
		return
	}
	if err := s.auditSvc.Record(c.Request.Context(), nil, event); err != nil {
		s.log.Warn("audit record failed", zap.String("action", event.Action), zap.Error(err))
	}
}
