package transport

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/application/usecase"
	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/domain"
	"github.com/thanhnvbk92/machine-management-system-sub001/internal/shared/auth"
	"github.com/thanhnvbk92/machine-management-system-sub001/internal/shared/httputil"
)

const maxIngestBody = 1 << 20

// IngestResponse acknowledges an accepted notification.
type IngestResponse struct {
	Accepted bool   `json:"accepted"`
	Hub      string `json:"hub"`
	Event    string `json:"event"`
}

var ingestErrors = httputil.NewErrorMapper().
	WithMapping(auth.ErrMissingToken, http.StatusUnauthorized, "missing token").
	WithMapping(auth.ErrInvalidToken, http.StatusUnauthorized, "invalid token").
	WithMapping(auth.ErrMissingRole, http.StatusForbidden, "missing role").
	WithMapping(usecase.ErrUnknownIngestEvent, http.StatusNotFound, "unknown hub event").
	WithMapping(usecase.ErrInvalidIngestPayload, http.StatusBadRequest, "invalid payload").
	WithMapping(domain.ErrInvalidTopic, http.StatusBadRequest, "invalid topic").
	WithMapping(domain.ErrUnknownRelation, http.StatusBadRequest, "unknown relation").
	WithMapping(domain.ErrDeliveryFailure, http.StatusBadGateway, "delivery failed")

// NewIngestHTTPHandler serves POST /api/notifications/:hub/:event. Domain
// services post the event data as the JSON body; it is routed exactly like a
// Kafka record. The optional machineId query parameter routes positional data.
// When role is set, tokens must carry it.
func NewIngestHTTPHandler(router *usecase.IngestRouter, validator auth.TokenValidator, role string) echo.HandlerFunc {
	return func(c echo.Context) error {
		if validator != nil {
			if err := authorizeIngest(validator, auth.ExtractToken(c.Request()), role); err != nil {
				info := ingestErrors.Map(err)
				return echo.NewHTTPError(info.Status, info.Message)
			}
		}

		body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxIngestBody+1))
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
		}
		if len(body) > maxIngestBody {
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "body exceeds 1 MiB")
		}
		if !json.Valid(body) {
			return echo.NewHTTPError(http.StatusBadRequest, "body must be JSON")
		}

		var machineID *domain.MachineID
		if raw := c.QueryParam("machineId"); raw != "" {
			id, err := domain.ParseMachineID(raw)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid machineId")
			}
			machineID = &id
		}

		event := &domain.IngestEvent{
			MachineID:  machineID,
			Hub:        c.Param("hub"),
			Event:      c.Param("event"),
			Data:       json.RawMessage(body),
			Source:     "rest",
			ReceivedAt: time.Now().UTC(),
		}
		if err := router.Route(c.Request().Context(), event); err != nil {
			info := ingestErrors.Map(err)
			slog.Warn("ingest http rejected", slog.String("hub", event.Hub), slog.String("event", event.Event), slog.Int("status", info.Status), slog.Any("error", err))
			return echo.NewHTTPError(info.Status, info.Message)
		}

		return c.JSON(http.StatusAccepted, IngestResponse{
			Accepted: true,
			Hub:      domain.NormalizeHub(event.Hub),
			Event:    event.Event,
		})
	}
}

func authorizeIngest(validator auth.TokenValidator, token, role string) error {
	claims, err := validator.Validate(token)
	if err != nil {
		return err
	}
	if role != "" && !claims.HasRole(role) {
		return fmt.Errorf("%w: %s", auth.ErrMissingRole, role)
	}
	return nil
}
