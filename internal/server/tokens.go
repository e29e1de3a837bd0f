package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// VerifyRateLimit throttles QR lookups per caller. Limiter errors let the
// request through.
func (s *Server) VerifyRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.verifyLimiter.Enabled() {
			c.Next()
			return
		}

		res, err := s.verifyLimiter.Allow(c.Request.Context(), callerKey(c))
		if err != nil {
			s.log.Warn("verify rate limit failed", zap.Error(err))
			c.Next()
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			if res.RetryAfter > 0 {
				c.Header("Retry-After", strconv.Itoa(int((res.RetryAfter+time.Second-1)/time.Second)))
			}
			s.obsMetrics.RecordVerifyLimited(c.Request.Context())
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}

// VerifyToken resolves a scanned QR code to the vouchers it covers and the
// actions the caller may take on each.
func (s *Server) VerifyToken(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		AbortWithError(c, newValidationError("token", "invalid_token", "invalid token"))
		return
	}

	result, err := s.lifecycle.Verify(c.Request.Context(), mustActor(c), token)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

func (s *Server) MintInvoiceToken(c *gin.Context) {
	result, err := s.lifecycle.MintForInvoice(c.Request.Context(), mustActor(c), strings.TrimSpace(c.Param("invoice")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusCreated, result)
}

func (s *Server) MintMasterToken(c *gin.Context) {
	result, err := s.lifecycle.MintForMaster(c.Request.Context(), mustActor(c), strings.TrimSpace(c.Param("master")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusCreated, result)
}
