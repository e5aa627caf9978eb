package transport

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/domain"
	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/infrastructure"
	"github.com/thanhnvbk92/machine-management-system-sub001/internal/shared/auth"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hubs indexes the served hubs by canonical name.
type Hubs map[string]*infrastructure.Hub

// Lookup resolves a route parameter such as "machines" or "LogHub" to its hub.
func (h Hubs) Lookup(raw string) (*infrastructure.Hub, bool) {
	hub, ok := h[domain.NormalizeHub(raw)]
	return hub, ok
}

// ConnectedPayload is the argument of the Connected event sent on attach.
type ConnectedPayload struct {
	ConnectionID string `json:"connectionId"`
	Hub          string `json:"hub"`
	UserID       string `json:"userId,omitempty"`
}

// NewHubWebsocketHandler exposes /hubs/:hub and /hubs/:hub/:token. When
// validator is nil connections are anonymous; otherwise a valid JWT from the
// path, the Authorization header or the access_token/token query is required.
func NewHubWebsocketHandler(hubs Hubs, validator auth.TokenValidator) echo.HandlerFunc {
	return func(c echo.Context) error {
		logger := c.Logger()
		requestID := c.Response().Header().Get(echo.HeaderXRequestID)
		peerIP := c.RealIP()

		hub, ok := hubs.Lookup(c.Param("hub"))
		if !ok {
			slog.Warn("ws handler unknown hub", slog.String("hub", c.Param("hub")), slog.String("ip", peerIP))
			return echo.NewHTTPError(http.StatusNotFound, "unknown hub")
		}

		userID := ""
		if validator != nil {
			token := strings.TrimSpace(c.Param("token"))
			if token == "" {
				token = auth.ExtractToken(c.Request())
			}
			claims, err := validator.Validate(token)
			if err != nil {
				status, message := http.StatusUnauthorized, "invalid token"
				if errors.Is(err, auth.ErrMissingToken) {
					message = "missing token"
				}
				slog.Warn("ws handler auth failed", slog.String("hub", hub.Name()), slog.String("ip", peerIP), slog.Any("error", err))
				logger.Warnf("ws rejected hub=%s ip=%s reqID=%s: %v", hub.Name(), peerIP, requestID, err)
				return echo.NewHTTPError(status, message)
			}
			userID = claims.Subject
		}

		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			slog.Error("ws handler upgrade failed", slog.String("hub", hub.Name()), slog.Any("error", err))
			logger.Errorf("ws upgrade failed hub=%s ip=%s reqID=%s: %v", hub.Name(), peerIP, requestID, err)
			return err
		}

		client := infrastructure.NewClient(hub, conn, userID)
		hub.AttachClient(client)

		// Queued before the read pump starts so it is the first frame the client sees.
		connected := domain.NewMessage(hub.Name(), "", domain.EventConnected, time.Now(), ConnectedPayload{
			ConnectionID: client.ID(),
			Hub:          hub.Name(),
			UserID:       userID,
		})
		if err := client.SendMessage(connected); err != nil {
			slog.Warn("ws handler connected event not queued", slog.String("hub", hub.Name()), slog.String("connectionId", client.ID()), slog.Any("error", err))
		}

		go client.WritePump()
		go client.ReadPump()

		slog.Info("ws connected", slog.String("hub", hub.Name()), slog.String("connectionId", client.ID()), slog.String("userId", userID), slog.String("ip", peerIP))
		logger.Infof("ws connected hub=%s conn=%s user=%s ip=%s reqID=%s", hub.Name(), client.ID(), userID, peerIP, requestID)
		return nil
	}
}
