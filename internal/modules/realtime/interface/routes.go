package transport

import (
	"github.com/labstack/echo/v4"

	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/application/usecase"
	"github.com/thanhnvbk92/machine-management-system-sub001/internal/shared/auth"
)

// RegisterRoutes mounts the hub endpoints, the ingestion API and the
// introspection routes on e. ingestRole, when set, is required on ingestion tokens.
func RegisterRoutes(e *echo.Echo, hubs Hubs, router *usecase.IngestRouter, validator auth.TokenValidator, ingestRole string) {
	ws := NewHubWebsocketHandler(hubs, validator)
	e.GET("/hubs/:hub", ws)
	e.GET("/hubs/:hub/:token", ws)

	e.POST("/api/notifications/:hub/:event", NewIngestHTTPHandler(router, validator, ingestRole))
	e.GET("/api/hubs/:hub/topics", NewHubTopicsHandler(hubs))
	e.GET("/api/hubs/:hub/connections/:connectionId/topics", NewConnectionTopicsHandler(hubs))
	e.GET("/health", NewHealthHandler(hubs))
}
