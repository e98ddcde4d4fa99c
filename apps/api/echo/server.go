package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sonalink/sonalink/core"
	"github.com/sonalink/sonalink/core/course"
	"github.com/sonalink/sonalink/core/forum"
	"github.com/sonalink/sonalink/core/material"
	"github.com/sonalink/sonalink/core/notification"
	"github.com/sonalink/sonalink/core/quiz"
	"github.com/sonalink/sonalink/core/search"
	"github.com/sonalink/sonalink/core/user"
)

type (
	ServerDeps struct {
		Conf   *core.Config
		Logger core.Logger

		UserSvc         *user.Service
		CourseSvc       *course.Service
		MaterialSvc     *material.Service
		ForumSvc        *forum.Service
		QuizSvc         *quiz.Service
		NotificationSvc *notification.Service
		SearchSvc       *search.Service

		Validate   *validator.Validate
		Translator ut.Translator

		// Registry collects the HTTP metrics served on /metrics. A fresh registry is used when nil.
		Registry       *prometheus.Registry
		DisableReqLogs bool
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	if deps.Registry == nil {
		deps.Registry = prometheus.NewRegistry()
	}
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Debug = conf.Debug
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: newRequestID}))
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     conf.Server.CORSOrigins,
		AllowCredentials: true,
	}))
	if conf.Server.BodyLimit != "" {
		s.app.Use(middleware.BodyLimit(conf.Server.BodyLimit))
	}
	s.app.Use(metricsMiddleware(newHTTPMetrics(s.deps.Registry)))

	s.app.GET("/", home)
	s.app.GET("/metrics", echo.WrapHandler(metricsHandler(s.deps.Registry)))

	g := s.app.Group("/api")
	jwt := middleware.JWTWithConfig(newJWTConfig(conf))

	registerAuthAPI(g, jwt, s.deps)
	registerUserAPI(g, jwt, s.deps)
	registerCourseAPI(g, jwt, s.deps)
	registerMaterialAPI(g, jwt, s.deps)
	registerForumAPI(g, jwt, s.deps)
	registerQuizAPI(g, jwt, s.deps)
	registerNotificationAPI(g, jwt, s.deps)
	registerSearchAPI(g, jwt, s.deps)
}

// Start blocks until the server stops. Listener failures are reported on Errors().
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address()); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

// ShutdownSignal delivers SIGINT/SIGTERM, and a synthetic SIGTERM when a request hits a shutdown error.
func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	signal.Stop(s.shutdown)
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func newRequestID() string {
	return uuid.New().String()
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to SonaLink API!")
}
