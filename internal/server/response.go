package server

import (
	"errors"
	"net/http"
	"reflect"

	"go-maintdash/internal/auth"
	"go-maintdash/internal/session"
	"go-maintdash/internal/sites"
	"go-maintdash/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OK sends a 200 response. Slices are wrapped in {data: [...]}.
func OK(c *gin.Context, data interface{}) {
	if data != nil {
		v := reflect.ValueOf(data)
		if v.Kind() == reflect.Slice {
			c.JSON(http.StatusOK, gin.H{"data": data})
			return
		}
	}
	c.JSON(http.StatusOK, data)
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

func BadRequest(c *gin.Context, message string) {
	abort(c, http.StatusBadRequest, message)
}

func Unauthorized(c *gin.Context) {
	abort(c, http.StatusUnauthorized, "unauthorized")
}

func NotFoundMsg(c *gin.Context, message string) {
	abort(c, http.StatusNotFound, message)
}

// InternalError hides err from the client; the detail is logged.
func InternalError(c *gin.Context, log *zap.Logger, err error) {
	log.Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err))
	abort(c, http.StatusInternalServerError, "internal error")
}

func abort(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"ok": 0, "code": code, "message": message})
}

// fail maps a service error onto the response taxonomy.
func (s *Server) fail(c *gin.Context, err error) {
	var verr *sites.ValidationError
	switch {
	case errors.As(err, &verr):
		BadRequest(c, verr.Error())
	case errors.Is(err, store.ErrNotFound):
		NotFoundMsg(c, "not found")
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, session.ErrInvalidToken):
		Unauthorized(c)
	default:
		InternalError(c, s.logger, err)
	}
}
