package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Projects  int       `json:"projects"`
}

type HealthHandler struct {
	serviceName string
	version     string
	count       func() int
}

// NewHealthHandler reports liveness; count, if set, reports the number of
// stored projects.
func NewHealthHandler(serviceName, version string, count func() int) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		count:       count,
	}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	n := 0
	if h.count != nil {
		n = h.count()
	}
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Service:   h.serviceName,
		Version:   h.version,
		Projects:  n,
	})
}

func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)
	r.GET("/healthz", h.HealthCheck)
}
