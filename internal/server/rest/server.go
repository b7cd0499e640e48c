// Package rest exposes the authentication and account services over HTTP
// using gin.
package rest

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 5 * time.Second

type HTTPServer struct {
	address string
	auth    *services.AuthService
	users   *services.UserService
	logger  logging.Logger

	bearer  services.Strategy
	refresh services.Strategy
}

func NewHTTPServer(a string, l logging.Logger, as *services.AuthService, us *services.UserService) (*HTTPServer, error) {
	if l == nil {
		l = logging.Nop()
	}
	return &HTTPServer{
		address: a,
		logger:  l.With("module", "http_server"),
		auth:    as,
		users:   us,
		bearer:  services.BearerJWT{Auth: as},
		refresh: services.OpaqueRefresh{Auth: as},
	}, nil
}

// Handler builds the gin engine with every route registered.
func (s *HTTPServer) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", s.Health)

	authGroup := r.Group("/auth")
	authGroup.POST("/login", s.Login)
	authGroup.POST("/token", s.Token)
	authGroup.POST("/logout", s.Logout)

	usersGroup := r.Group("/users")
	usersGroup.POST("", s.Register)
	usersGroup.GET("/me", s.guard(s.bearer), s.Me)
	usersGroup.PUT("/me", s.guard(s.bearer), s.UpdateMe)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	<-stopped
	return nil
}
