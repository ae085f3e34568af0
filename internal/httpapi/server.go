// Package httpapi exposes a session over HTTP for headless runs.
package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	orchestration "github.com/koscakluka/ema-live/core"
)

// Controller is the part of a session the HTTP surface drives.
type Controller interface {
	Connect(ctx context.Context) error
	Pause() error
	Resume() error
	Disconnect() error
	AppendUploadedContext(name, text string) error

	State() orchestration.State
	Err() string
	ConnectionID() string
	ProviderName() string
	AudioLevel() float64
	Transcript() string
	Segments() []orchestration.Segment
}

type Server struct {
	echo    *echo.Echo
	session Controller
}

func NewServer(session Controller) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(echo.WrapMiddleware(otelhttp.NewMiddleware(scopeName)))

	s := &Server{echo: e, session: session}
	s.register()
	return s
}

func (s *Server) register() {
	s.echo.GET("/health", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	s.echo.GET("/session", s.status)
	s.echo.POST("/session/connect", s.connect)
	s.echo.POST("/session/pause", s.pause)
	s.echo.POST("/session/resume", s.resume)
	s.echo.POST("/session/disconnect", s.disconnect)
	s.echo.POST("/session/context", s.uploadContext)
	s.echo.GET("/transcript", s.transcript)
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start(address string) error {
	logger.Info("serving session control", "address", address)
	if err := s.echo.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

type statusResponse struct {
	State        string  `json:"state"`
	Error        string  `json:"error,omitempty"`
	ConnectionID string  `json:"connection_id,omitempty"`
	Provider     string  `json:"provider"`
	AudioLevel   float64 `json:"audio_level"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type segmentResponse struct {
	Input     string    `json:"input,omitempty"`
	Output    string    `json:"output,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type transcriptResponse struct {
	Transcript string            `json:"transcript"`
	Segments   []segmentResponse `json:"segments"`
}

func (s *Server) currentStatus() statusResponse {
	return statusResponse{
		State:        s.session.State().String(),
		Error:        s.session.Err(),
		ConnectionID: s.session.ConnectionID(),
		Provider:     s.session.ProviderName(),
		AudioLevel:   s.session.AudioLevel(),
	}
}

func (s *Server) status(c echo.Context) error {
	return c.JSON(http.StatusOK, s.currentStatus())
}

func (s *Server) connect(c echo.Context) error {
	if err := s.session.Connect(c.Request().Context()); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusAccepted, s.currentStatus())
}

func (s *Server) pause(c echo.Context) error {
	if err := s.session.Pause(); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, s.currentStatus())
}

func (s *Server) resume(c echo.Context) error {
	if err := s.session.Resume(); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, s.currentStatus())
}

func (s *Server) disconnect(c echo.Context) error {
	if err := s.session.Disconnect(); err != nil {
		logger.Warn("disconnect incomplete", "error", err)
	}
	return c.JSON(http.StatusOK, s.currentStatus())
}

func (s *Server) uploadContext(c echo.Context) error {
	name := c.QueryParam("name")
	if name == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "name query parameter is required"})
	}

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, orchestration.MaxUploadSize+1))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	if err := s.session.AppendUploadedContext(name, string(body)); err != nil {
		return s.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) transcript(c echo.Context) error {
	if c.QueryParam("format") == "text" {
		return c.String(http.StatusOK, s.session.Transcript())
	}

	segments := s.session.Segments()
	response := transcriptResponse{
		Transcript: s.session.Transcript(),
		Segments:   make([]segmentResponse, 0, len(segments)),
	}
	for _, segment := range segments {
		response.Segments = append(response.Segments, segmentResponse{
			Input:     segment.Input,
			Output:    segment.Output,
			CreatedAt: segment.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, response)
}

func (s *Server) fail(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, orchestration.ErrInvalidState), errors.Is(err, orchestration.ErrNotConnected):
		status = http.StatusConflict
	case errors.Is(err, orchestration.ErrUploadTooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, orchestration.ErrMicrophoneUnavailable):
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, errorResponse{Error: err.Error()})
}
