package rest

import (
	"strings"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"
	accountKey      = "account"
)

// requestLogger tags each request with an id and logs its outcome.
func (s *HTTPServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)

		c.Next()

		s.logger.Info(c.Request.Context(), "request",
			"request_id", id,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}

// guard authenticates the bearer credential with strategy and stores the
// resolved account in the gin context.
func (s *HTTPServer) guard(strategy services.Strategy) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(c)
			return
		}

		p, err := strategy.Authenticate(c.Request.Context(), token)
		if err != nil {
			s.writeError(c, err)
			c.Abort()
			return
		}
		if p.Account == nil {
			abortUnauthorized(c)
			return
		}

		c.Set(accountKey, p.Account)
		c.Next()
	}
}

func accountFrom(c *gin.Context) (*models.AccountView, bool) {
	v, ok := c.Get(accountKey)
	if !ok {
		return nil, false
	}
	a, ok := v.(*models.AccountView)
	return a, ok
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
