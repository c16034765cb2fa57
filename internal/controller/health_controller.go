package controller

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"lakehouse-gateway/internal/streaming"
)

type HealthResponse struct {
	Status      string            `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	Service     string            `json:"service"`
	Version     string            `json:"version"`
	Catalog     CatalogStatus     `json:"catalog"`
	Streams     []string          `json:"streams"`
	Connections map[string]string `json:"connections"`
}

type CatalogStatus struct {
	Backend string `json:"backend"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type HealthController struct {
	db      *gorm.DB
	manager *streaming.Manager
}

// NewHealthController creates a health controller. db is nil when the
// catalog runs on the in-memory backend.
func NewHealthController(db *gorm.DB, manager *streaming.Manager) *HealthController {
	return &HealthController{
		db:      db,
		manager: manager,
	}
}

func (hc *HealthController) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:      "healthy",
		Timestamp:   time.Now(),
		Service:     "lakehouse-gateway",
		Version:     "1.0.0",
		Streams:     hc.manager.Names(),
		Connections: make(map[string]string),
	}

	if hc.db == nil {
		response.Catalog = CatalogStatus{
			Backend: "memory",
			Status:  "connected",
		}
	} else {
		response.Catalog = hc.checkCatalogDatabase(&response)
	}

	statusCode := http.StatusOK
	if response.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, response)
}

func (hc *HealthController) checkCatalogDatabase(response *HealthResponse) CatalogStatus {
	sqlDB, err := hc.db.DB()
	if err != nil {
		response.Status = "unhealthy"
		return CatalogStatus{
			Backend: "mysql",
			Status:  "disconnected",
			Message: "Failed to get database instance",
		}
	}
	if err := sqlDB.Ping(); err != nil {
		response.Status = "unhealthy"
		return CatalogStatus{
			Backend: "mysql",
			Status:  "disconnected",
			Message: "Database ping failed: " + err.Error(),
		}
	}

	stats := sqlDB.Stats()
	response.Connections["database_open_connections"] = fmt.Sprintf("%d", stats.OpenConnections)
	response.Connections["database_in_use"] = fmt.Sprintf("%d", stats.InUse)
	response.Connections["database_idle"] = fmt.Sprintf("%d", stats.Idle)
	return CatalogStatus{
		Backend: "mysql",
		Status:  "connected",
		Message: "Database connection healthy",
	}
}
