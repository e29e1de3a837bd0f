package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	allocationdomain "github.com/smallbiznis/bonos/internal/allocation/domain"
	catalogdomain "github.com/smallbiznis/bonos/internal/catalog/domain"
	lifecycledomain "github.com/smallbiznis/bonos/internal/lifecycle/domain"
)

func (s *Server) ListAllocations(c *gin.Context) {
	var query struct {
		MayoristaID string `form:"mayorista_id"`
		CustomerID  string `form:"customer_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	actor := mustActor(c)
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

	req := lifecycledomain.AllocationQuery{MayoristaID: actor.PartnerID, CustomerID: customerID}
	if mayoristaID != nil {
		req.MayoristaID = *mayoristaID
	}

	entries, err := s.lifecycle.ListAllocations(c.Request.Context(), actor, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"allocations": entries})
}

type allocationLine struct {
	MayoristaID snowflake.ID `json:"mayoristaId" binding:"required"`
	CustomerID  snowflake.ID `json:"customerId"`
	Brand       string       `json:"brand" binding:"required"`
	Size        string       `json:"size" binding:"required"`
	Design      string       `json:"design" binding:"required"`
	Entitled    int          `json:"entitled" binding:"gte=0"`
	Source      string       `json:"source"`
}

type syncAllocationsRequest struct {
	Entries []allocationLine `json:"entries" binding:"required,min=1,dive"`
}

// SyncAllocations applies an allocation feed. Each entry sets the total
// entitlement for its key; issued counts are preserved.
func (s *Server) SyncAllocations(c *gin.Context) {
	var req syncAllocationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	entries := make([]allocationdomain.SyncEntry, 0, len(req.Entries))
	for _, line := range req.Entries {
		entries = append(entries, allocationdomain.SyncEntry{
			MayoristaID: line.MayoristaID,
			CustomerID:  line.CustomerID,
			Spec: catalogdomain.ProductSpec{
				Brand:  line.Brand,
				Size:   line.Size,
				Design: line.Design,
			},
			Entitled: line.Entitled,
			Source:   strings.TrimSpace(line.Source),
		})
	}

	result, err := s.lifecycle.SyncAllocations(c.Request.Context(), mustActor(c), entries)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}
