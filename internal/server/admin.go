package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/bonos/internal/audit/domain"
	"github.com/smallbiznis/bonos/internal/authorization"
	lifecycledomain "github.com/smallbiznis/bonos/internal/lifecycle/domain"
	partnerdomain "github.com/smallbiznis/bonos/internal/partner/domain"
)

type expireRequest struct {
	Before string `json:"before" binding:"required"`
}

// ExpireVouchers moves PENDING and ACTIVE vouchers created before the cutoff
// to EXPIRED.
func (s *Server) ExpireVouchers(c *gin.Context) {
	var req expireRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}
	cutoff, err := parseOptionalTime(req.Before, false)
	if err != nil || cutoff == nil {
		AbortWithError(c, newValidationError("before", "invalid_before", "invalid before"))
		return
	}

	result, err := s.lifecycle.ExpireBefore(c.Request.Context(), mustActor(c), *cutoff)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

type upsertPartnerRequest struct {
	Name    string `json:"name" binding:"required"`
	LegalID string `json:"legalId"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
}

func (s *Server) UpsertPartner(c *gin.Context) {
	id, ok := optionalPathID(c)
	if !ok {
		return
	}
	var req upsertPartnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	partner, err := s.partnerSvc.UpsertPartner(c.Request.Context(), partnerdomain.UpsertPartnerRequest{
		ID:      id,
		Name:    strings.TrimSpace(req.Name),
		LegalID: req.LegalID,
		Email:   req.Email,
		Phone:   req.Phone,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.recordAudit(c, auditdomain.Event{
		Action:     authorization.ActionPartnerManage,
		TargetType: auditdomain.TargetPartner,
		TargetID:   partner.ID.String(),
		Metadata:   map[string]any{"name": partner.Name, "email": req.Email, "phone": req.Phone},
	})
	respond(c, http.StatusOK, partner)
}

type upsertCustomerRequest struct {
	MayoristaID snowflake.ID `json:"mayoristaId" binding:"required"`
	Name        string       `json:"name" binding:"required"`
	LegalID     string       `json:"legalId"`
	Email       string       `json:"email"`
	Phone       string       `json:"phone"`
}

func (s *Server) UpsertCustomer(c *gin.Context) {
	id, ok := optionalPathID(c)
	if !ok {
		return
	}
	var req upsertCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	customer, err := s.partnerSvc.UpsertCustomer(c.Request.Context(), partnerdomain.UpsertCustomerRequest{
		ID:          id,
		MayoristaID: req.MayoristaID,
		Name:        strings.TrimSpace(req.Name),
		LegalID:     req.LegalID,
		Email:       req.Email,
		Phone:       req.Phone,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.recordAudit(c, auditdomain.Event{
		Action:     authorization.ActionPartnerManage,
		TargetType: auditdomain.TargetCustomer,
		TargetID:   customer.ID.String(),
		Metadata: map[string]any{
			"mayorista_id": customer.MayoristaID.String(),
			"name":         customer.Name,
			"email":        req.Email,
			"phone":        req.Phone,
		},
	})
	respond(c, http.StatusOK, customer)
}

func (s *Server) GetPartner(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}
	if !ownsPartner(mustActor(c), id) {
		AbortWithError(c, lifecycledomain.ErrUnauthorized)
		return
	}

	partner, err := s.partnerSvc.GetPartner(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, partner)
}

func (s *Server) ListPartnerCustomers(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}
	if !ownsPartner(mustActor(c), id) {
		AbortWithError(c, lifecycledomain.ErrUnauthorized)
		return
	}

	customers, err := s.partnerSvc.ListCustomers(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"customers": customers})
}

func (s *Server) GetCustomer(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	customer, err := s.partnerSvc.GetCustomer(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !ownsPartner(mustActor(c), customer.MayoristaID) {
		AbortWithError(c, lifecycledomain.ErrUnauthorized)
		return
	}
	respond(c, http.StatusOK, customer)
}

// ownsPartner reports whether a mayorista actor may see records of partnerID.
// Unscoped actors see everything.
func ownsPartner(actor lifecycledomain.Actor, partnerID snowflake.ID) bool {
	if actor.PartnerID == 0 || actor.Role != authorization.RoleMayorista {
		return true
	}
	return actor.PartnerID == partnerID
}

// optionalPathID reads :id when the route has one. POST routes without an id
// create a new record.
func optionalPathID(c *gin.Context) (snowflake.ID, bool) {
	raw := c.Param("id")
	if raw == "" {
		return 0, true
	}
	id, err := parseSnowflakeID(raw)
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return 0, false
	}
	return id, true
}
