package server

import (
	"crypto/subtle"
	"strings"
	"time"

	"go-maintdash/internal/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	contextKeyIdentity = "identity"
	sessionCookie      = "maintdash_session"
)

// requestLogger logs each request using zap.
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}

func (s *Server) requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.ObserveRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// optionalAuth stores the caller's identity when a valid session is present.
func (s *Server) optionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, err := s.sessions.Parse(extractToken(c)); err == nil {
			c.Set(contextKeyIdentity, id)
		}
		c.Next()
	}
}

// requireAuth rejects requests without a valid session.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := currentIdentity(c); !ok {
			Unauthorized(c)
			return
		}
		c.Next()
	}
}

// requireAuthOrBootstrap lets unauthenticated callers through while no user
// exists yet.
func (s *Server) requireAuthOrBootstrap() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := currentIdentity(c); ok {
			c.Next()
			return
		}
		open, err := s.sites.Bootstrap(c.Request.Context())
		if err != nil {
			InternalError(c, s.logger, err)
			return
		}
		if !open {
			Unauthorized(c)
			return
		}
		c.Next()
	}
}

// requireSecret guards a route with a shared secret header. An empty
// expected value disables the route unless open is set.
func requireSecret(header, expected string, open bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if expected == "" {
			if open {
				c.Next()
				return
			}
			Unauthorized(c)
			return
		}
		got := c.GetHeader(header)
		if subtle.ConstantTimeCompare([]byte(got), []byte(expected)) != 1 {
			Unauthorized(c)
			return
		}
		c.Next()
	}
}

func currentIdentity(c *gin.Context) (session.Identity, bool) {
	v, ok := c.Get(contextKeyIdentity)
	if !ok {
		return session.Identity{}, false
	}
	id, ok := v.(session.Identity)
	return id, ok
}

func extractToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		return normalizeToken(h)
	}
	if cookie, err := c.Cookie(sessionCookie); err == nil {
		return strings.TrimSpace(cookie)
	}
	return ""
}

// normalizeToken trims spaces and strips an optional Bearer prefix.
func normalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}
