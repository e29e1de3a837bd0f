package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	lifecycledomain "github.com/smallbiznis/bonos/internal/lifecycle/domain"
)

type activationItem struct {
	VoucherID snowflake.ID `json:"voucherId" binding:"required"`
	Master    string       `json:"master"`
	Item      string       `json:"item"`
}

type activateByInvoiceRequest struct {
	Items []activationItem `json:"items" binding:"required,min=1,dive"`
}

type activateByMasterRequest struct {
	Token string           `json:"token" binding:"required"`
	Items []activationItem `json:"items" binding:"required,min=1,dive"`
}

func toActivations(items []activationItem) []lifecycledomain.ActivationRequest {
	out := make([]lifecycledomain.ActivationRequest, 0, len(items))
	for _, item := range items {
		out = append(out, lifecycledomain.ActivationRequest{
			VoucherID: item.VoucherID,
			Master:    strings.TrimSpace(item.Master),
			Item:      strings.TrimSpace(item.Item),
		})
	}
	return out
}

// ActivateByInvoice activates vouchers of one invoice. Items succeed or fail
// independently; per-item outcomes are in the result.
func (s *Server) ActivateByInvoice(c *gin.Context) {
	invoice := strings.TrimSpace(c.Param("invoice"))
	if invoice == "" {
		AbortWithError(c, newValidationError("invoice", "invalid_invoice", "invalid invoice"))
		return
	}
	var req activateByInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	result, err := s.lifecycle.ActivateByInvoice(c.Request.Context(), mustActor(c), invoice, toActivations(req.Items))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

func (s *Server) ActivateByMaster(c *gin.Context) {
	var req activateByMasterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	result, err := s.lifecycle.ActivateByMaster(c.Request.Context(), mustActor(c), strings.TrimSpace(req.Token), toActivations(req.Items))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

type redemptionItem struct {
	VoucherID     snowflake.ID `json:"voucherId" binding:"required"`
	RedeemInvoice string       `json:"redeemInvoice"`
}

type redeemRequest struct {
	Items []redemptionItem `json:"items" binding:"required,min=1,dive"`
}

func (s *Server) RedeemVouchers(c *gin.Context) {
	var req redeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	items := make([]lifecycledomain.RedemptionRequest, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, lifecycledomain.RedemptionRequest{
			VoucherID:     item.VoucherID,
			RedeemInvoice: strings.TrimSpace(item.RedeemInvoice),
		})
	}

	result, err := s.lifecycle.RedeemBatch(c.Request.Context(), mustActor(c), items)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}
