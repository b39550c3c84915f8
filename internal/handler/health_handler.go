package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/school-logistics/roster-api/pkg/response"
)

// HealthHandler reports service and database health. The endpoint is
// admin-gated: it reveals backend state.
type HealthHandler struct {
	db *sqlx.DB
}

// NewHealthHandler constructs a health handler.
func NewHealthHandler(db *sqlx.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Health godoc
// @Summary Health check
// @Description Report API and database connectivity
// @Tags Health
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	if h.db == nil || h.db.PingContext(c.Request.Context()) != nil {
		response.JSON(c, http.StatusServiceUnavailable, gin.H{"status": "error", "database": "disconnected"}, nil)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"status": "ok", "database": "connected"}, nil)
}
