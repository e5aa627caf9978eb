package transport

import (
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"
)

type TopicInfo struct {
	Topic       string `json:"topic"`
	Subscribers int    `json:"subscribers"`
}

type HubTopicsResponse struct {
	Hub         string      `json:"hub"`
	Connections int         `json:"connections"`
	Methods     []string    `json:"methods"`
	Topics      []TopicInfo `json:"topics"`
}

// NewHubTopicsHandler serves GET /api/hubs/:hub/topics.
func NewHubTopicsHandler(hubs Hubs) echo.HandlerFunc {
	return func(c echo.Context) error {
		hub, ok := hubs.Lookup(c.Param("hub"))
		if !ok {
			return echo.NewHTTPError(http.StatusNotFound, "unknown hub")
		}
		registry := hub.Registry()
		topics := registry.Topics()
		infos := make([]TopicInfo, 0, len(topics))
		for _, topic := range topics {
			infos = append(infos, TopicInfo{Topic: topic, Subscribers: len(registry.Subscribers(topic))})
		}
		return c.JSON(http.StatusOK, HubTopicsResponse{
			Hub:         hub.Name(),
			Connections: hub.ConnectionCount(),
			Methods:     hub.Invocations().Methods(),
			Topics:      infos,
		})
	}
}

type ConnectionTopicsResponse struct {
	Hub          string   `json:"hub"`
	ConnectionID string   `json:"connectionId"`
	Topics       []string `json:"topics"`
}

// NewConnectionTopicsHandler serves GET /api/hubs/:hub/connections/:connectionId/topics.
func NewConnectionTopicsHandler(hubs Hubs) echo.HandlerFunc {
	return func(c echo.Context) error {
		hub, ok := hubs.Lookup(c.Param("hub"))
		if !ok {
			return echo.NewHTTPError(http.StatusNotFound, "unknown hub")
		}
		id := c.Param("connectionId")
		if !slices.Contains(hub.ConnectionIDs(), id) {
			return echo.NewHTTPError(http.StatusNotFound, "unknown connection")
		}
		return c.JSON(http.StatusOK, ConnectionTopicsResponse{
			Hub:          hub.Name(),
			ConnectionID: id,
			Topics:       hub.Registry().TopicsOf(id),
		})
	}
}

// NewHealthHandler serves GET /health with the connection count of every hub.
func NewHealthHandler(hubs Hubs) echo.HandlerFunc {
	return func(c echo.Context) error {
		connections := make(map[string]int, len(hubs))
		for name, hub := range hubs {
			connections[name] = hub.ConnectionCount()
		}
		return c.JSON(http.StatusOK, map[string]any{
			"status":      "ok",
			"connections": connections,
		})
	}
}
