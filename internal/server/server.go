package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/proconverter/proconverter-lemons/internal/config"
	"github.com/proconverter/proconverter-lemons/internal/domain"
	apperrors "github.com/proconverter/proconverter-lemons/internal/errors"
)

type Server struct {
	echo      *echo.Echo
	config    *config.Config
	converter domain.ConverterService
	limiter   *uploadRateLimiter
}

func NewServer(cfg *config.Config, converter domain.ConverterService) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(fmt.Sprintf("%dM", cfg.MaxUploadMB)))
	e.Use(apperrors.Middleware())

	srv := &Server{
		echo:      e,
		config:    cfg,
		converter: converter,
		limiter:   newUploadRateLimiter(cfg.UploadRate, cfg.UploadBurst),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
