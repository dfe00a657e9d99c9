package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wareable/user-service/internal/core/ports"
)

// LogHandler exercises the remote log sink on demand.
type LogHandler struct {
	sink ports.LogSink
}

func NewLogHandler(sink ports.LogSink) *LogHandler {
	return &LogHandler{sink: sink}
}

// Simulate handles GET /api/log/simulate. It queues a request line, a
// transaction line and an error line so operators can confirm the daily log
// object is being written.
func (h *LogHandler) Simulate(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}

	h.sink.Append("INFO: API Request received at /api/log/simulate by " + claims.Subject)
	h.sink.Append("INFO: DB Transaction - User fetched from DB")
	h.sink.Append("ERROR: Simulated failure - integer divide by zero")

	return c.JSON(http.StatusOK, messageResponse{Message: "Log simulated and queued for upload."})
}
