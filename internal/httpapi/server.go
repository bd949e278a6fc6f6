// Package httpapi exposes the companion's operational HTTP surface.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/keshon/stream-companion/internal/mind"
	"github.com/keshon/stream-companion/internal/stream"
	"github.com/keshon/stream-companion/internal/voice"
)

const (
	speakTimeout    = 2 * time.Minute
	shutdownTimeout = 5 * time.Second
	maxSpeakText    = 1000
)

// Companion is what the HTTP surface needs from the runner.
type Companion interface {
	Health() mind.Health
	Status() mind.Status
	Stats() mind.Stats
	Ingest(ev mind.StreamEvent)
	Speak(ctx context.Context, text, mood string) (*voice.Clip, error)
	LatestClip() (*voice.Clip, uint64)
}

// JobLister reports running background jobs.
type JobLister interface {
	List() []string
}

// Server serves /health, /status, /stats, /speak, /events and /voice/latest.
type Server struct {
	e    *echo.Echo
	c    Companion
	jobs JobLister
	log  zerolog.Logger
}

func New(c Companion, jobs JobLister, log zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(requestLogger(log))

	s := &Server{e: e, c: c, jobs: jobs, log: log}
	s.Register(e)
	return s
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/health", s.health)
	e.GET("/status", s.status)
	e.GET("/stats", s.stats)
	e.POST("/speak", s.speak)
	e.POST("/events", s.event)
	e.GET("/voice/latest", s.latestVoice)
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.e }

// Run listens on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("http api listening")
		errCh <- s.e.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.e.Shutdown(shutdownCtx)
	}
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, s.c.Health())
}

func (s *Server) status(c echo.Context) error {
	return c.JSON(http.StatusOK, s.c.Status())
}

func (s *Server) stats(c echo.Context) error {
	st := s.c.Stats()
	if s.jobs != nil {
		st.Jobs = s.jobs.List()
	}
	return c.JSON(http.StatusOK, st)
}

type speakRequest struct {
	Text string `json:"text"`
	Mood string `json:"mood"`
}

func (s *Server) speak(c echo.Context) error {
	var req speakRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "text is required")
	}
	if len(req.Text) > maxSpeakText {
		return echo.NewHTTPError(http.StatusBadRequest, "text too long")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), speakTimeout)
	defer cancel()
	clip, err := s.c.Speak(ctx, req.Text, req.Mood)
	if errors.Is(err, voice.ErrUnavailable) {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "voice unavailable")
	}
	if err != nil {
		s.log.Warn().Err(err).Msg("speak failed")
		return echo.NewHTTPError(http.StatusBadGateway, "synthesis failed")
	}
	return writeClip(c, clip, 0)
}

func (s *Server) event(c echo.Context) error {
	var f stream.Frame
	if err := json.NewDecoder(c.Request().Body).Decode(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid frame")
	}
	ev, ok, err := stream.Decode(f)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if !ok {
		return c.NoContent(http.StatusAccepted)
	}
	s.c.Ingest(ev)
	return c.JSON(http.StatusAccepted, map[string]string{"type": ev.Type})
}

func (s *Server) latestVoice(c echo.Context) error {
	clip, id := s.c.LatestClip()
	if clip == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no clip yet")
	}
	return writeClip(c, clip, id)
}

func writeClip(c echo.Context, clip *voice.Clip, id uint64) error {
	h := c.Response().Header()
	h.Set("X-Event-ID", strconv.FormatUint(id, 10))
	h.Set("X-Voice-Duration", strconv.FormatFloat(clip.Duration.Seconds(), 'f', 2, 64))
	return c.Blob(http.StatusOK, "audio/wav", clip.Audio)
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			log.Debug().
				Str("method", c.Request().Method).
				Str("path", c.Path()).
				Int("status", c.Response().Status).
				Dur("took", time.Since(start)).
				Msg("request")
			return nil
		}
	}
}
