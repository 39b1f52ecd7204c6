package server

import (
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
)

func (s *Server) handleLiveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadiness verifies the scratch area is usable; without it every
// conversion fails immediately.
func (s *Server) handleReadiness(c echo.Context) error {
	probe, err := os.CreateTemp(s.config.WorkDir, "ready_*")
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"reason": "work directory is not writable",
		})
	}
	probe.Close()
	os.Remove(probe.Name())

	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
