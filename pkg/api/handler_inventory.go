package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// listVMsHandler handles GET /api/v1/inventory/vms. Reads go through the
// client's TTL cache, so polling this endpoint does not hammer vCenter.
func (s *Server) listVMsHandler(c *gin.Context) {
	if s.inventory == nil {
		writeError(c, http.StatusServiceUnavailable, "vSphere integration is not configured")
		return
	}

	vms, err := s.inventory.ListVMs(c.Request.Context())
	if err != nil {
		s.mapError(c, err)
		return
	}

	c.JSON(http.StatusOK, VMListResponse{VMs: vms, Count: len(vms)})
}

// vmDetailsHandler handles GET /api/v1/inventory/vms/:name.
func (s *Server) vmDetailsHandler(c *gin.Context) {
	if s.inventory == nil {
		writeError(c, http.StatusServiceUnavailable, "vSphere integration is not configured")
		return
	}

	details, err := s.inventory.VMDetails(c.Request.Context(), c.Param("name"))
	if err != nil {
		s.mapError(c, err)
		return
	}

	c.JSON(http.StatusOK, details)
}
