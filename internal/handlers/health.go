package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/domainaware/checkdmarc-web-frontend/internal/db"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	DB        *db.Database
	StartTime time.Time
}

func NewHealthHandler(database *db.Database) *HealthHandler {
	return &HealthHandler{
		DB:        database,
		StartTime: time.Now(),
	}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	response := gin.H{
		"status":  "ok",
		"runtime": "go",
		"uptime":  time.Since(h.StartTime).String(),
		"memory": gin.H{
			"alloc_mb":       memStats.Alloc / 1024 / 1024,
			"sys_mb":         memStats.Sys / 1024 / 1024,
			"num_goroutines": runtime.NumGoroutine(),
		},
	}

	if h.DB != nil {
		dbStatus := "healthy"
		if err := h.DB.HealthCheck(c.Request.Context()); err != nil {
			dbStatus = "unhealthy: " + err.Error()
		}
		response["database"] = gin.H{"status": dbStatus}
	} else {
		response["database"] = gin.H{"status": "not configured"}
	}

	c.JSON(http.StatusOK, response)
}
