// internal/api/handlers/site_handler.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wte-api-server/internal/reports"
)

type SiteHandler struct {
	Reports *reports.Service
}

// GetAllSites lists the sites a worker can report from.
func (h *SiteHandler) GetAllSites(c *gin.Context) {
	sites, err := h.Reports.ListSites(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sites)
}
