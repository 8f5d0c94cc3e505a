package handler

import (
	"net/http"

	"github.com/SergeiKhy/tinylink/internal/models"
	"github.com/gin-gonic/gin"
)

const Version = "1.0"

// HealthCheck godoc
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} models.HealthStatus
// @Router /healthz [get]
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthStatus{OK: true, Version: Version})
}
