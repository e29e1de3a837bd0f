package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) ListCatalog(c *gin.Context) {
	respond(c, http.StatusOK, gin.H{"entries": s.catalogSvc.List(c.Request.Context())})
}
