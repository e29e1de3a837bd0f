package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	catalogdomain "github.com/smallbiznis/bonos/internal/catalog/domain"
	lifecycledomain "github.com/smallbiznis/bonos/internal/lifecycle/domain"
	voucherdomain "github.com/smallbiznis/bonos/internal/voucher/domain"
	"github.com/smallbiznis/bonos/pkg/db/pagination"
)

type productSpecRequest struct {
	Brand   string `json:"brand"`
	Size    string `json:"size"`
	Design  string `json:"design"`
	RimSize string `json:"rimSize"`
}

func (r productSpecRequest) spec() catalogdomain.ProductSpec {
	return catalogdomain.ProductSpec{
		Brand:   r.Brand,
		Size:    r.Size,
		Design:  r.Design,
		RimSize: r.RimSize,
	}
}

type issueVoucherRequest struct {
	CustomerID    snowflake.ID       `json:"customerId" binding:"required"`
	InvoiceNumber string             `json:"invoiceNumber" binding:"required"`
	Spec          productSpecRequest `json:"spec"`
}

func (s *Server) IssueVoucher(c *gin.Context) {
	var req issueVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	result, err := s.lifecycle.Issue(c.Request.Context(), mustActor(c), lifecycledomain.IssueRequest{
		CustomerID:    req.CustomerID,
		Spec:          req.Spec.spec(),
		InvoiceNumber: strings.TrimSpace(req.InvoiceNumber),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusCreated, result)
}

type batchLineRequest struct {
	Spec     productSpecRequest `json:"spec"`
	Quantity int                `json:"quantity"`
}

type issueBatchRequest struct {
	CustomerID    snowflake.ID       `json:"customerId" binding:"required"`
	InvoiceNumber string             `json:"invoiceNumber" binding:"required"`
	Items         []batchLineRequest `json:"items" binding:"required,min=1,dive"`
}

// IssueVoucherBatch issues every line or none. Line validation is left to the
// lifecycle so that every rejected line is reported in the envelope data.
func (s *Server) IssueVoucherBatch(c *gin.Context) {
	var req issueBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	items := make([]lifecycledomain.BatchLine, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, lifecycledomain.BatchLine{Spec: item.Spec.spec(), Quantity: item.Quantity})
	}

	result, err := s.lifecycle.IssueBatch(c.Request.Context(), mustActor(c), lifecycledomain.IssueBatchRequest{
		CustomerID:    req.CustomerID,
		InvoiceNumber: strings.TrimSpace(req.InvoiceNumber),
		Items:         items,
	})
	if err != nil {
		if len(result.Failures) > 0 {
			abortWithData(c, err, gin.H{"failures": result.Failures})
			return
		}
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusCreated, result)
}

func (s *Server) GetVoucher(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	item, err := s.lifecycle.GetVoucher(c.Request.Context(), mustActor(c), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, item)
}

func (s *Server) ListVouchers(c *gin.Context) {
	var query struct {
		pagination.Pagination
		MayoristaID   string `form:"mayorista_id"`
		CustomerID    string `form:"customer_id"`
		InvoiceNumber string `form:"invoice_number"`
		Status        string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	mayoristaID, err := parseOptionalSnowflakeID(query.MayoristaID)
	if err != nil {
		AbortWithError(c, newValidationError("mayorista_id", "invalid_mayorista_id", "invalid mayorista_id"))
		return
	}
	customerID, err := parseOptionalSnowflakeID(query.CustomerID)
	if err != nil {
		AbortWithError(c, newValidationError("customer_id", "invalid_customer_id", "invalid customer_id"))
		return
	}

	req := voucherdomain.ListRequest{
		InvoiceNumber: strings.TrimSpace(query.InvoiceNumber),
		Status:        strings.TrimSpace(query.Status),
		Page:          query.Pagination,
	}
	if mayoristaID != nil {
		req.MayoristaID = *mayoristaID
	}
	if customerID != nil {
		req.CustomerID = *customerID
	}

	resp, err := s.lifecycle.ListVouchers(c.Request.Context(), mustActor(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, resp)
}

type rejectVoucherRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (s *Server) RejectVoucher(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}
	var req rejectVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	result, err := s.lifecycle.Reject(c.Request.Context(), mustActor(c), lifecycledomain.RejectRequest{
		VoucherID: id,
		Reason:    strings.TrimSpace(req.Reason),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}
