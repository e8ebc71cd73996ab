package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/littlelemon/internal/domain"
	"github.com/vladislavdragonenkov/littlelemon/internal/metrics"
)

const (
	requestIDHeader = "X-Request-ID"

	ctxKeyRequestID = "littlelemon.request_id"
	ctxKeyCaller    = "littlelemon.caller"
)

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(ctxKeyRequestID, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestIDFrom(c *gin.Context) string {
	return c.GetString(ctxKeyRequestID)
}

func loggingMiddleware(logger *log.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		status := c.Writer.Status()
		entry := logger.WithFields(log.Fields{
			"request_id": requestIDFrom(c),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"latency":    time.Since(started).String(),
		})
		if caller, ok := c.Get(ctxKeyCaller); ok {
			if cl, ok := caller.(domain.Caller); ok && cl.Authenticated {
				entry = entry.WithField("user_id", cl.UserID)
			}
		}

		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("request completed")
		case status >= http.StatusBadRequest:
			entry.Warn("request completed")
		default:
			entry.Info("request completed")
		}
	}
}

func metricsMiddleware(m *metrics.OrderMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		m.HTTPRequestStarted()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequestFinished(c.Request.Method, route, c.Writer.Status(), time.Since(started))
	}
}

// authMiddleware определяет вызывающего по Authorization. Без заголовка запрос идёт дальше анонимно,
// а сервисы сами отвечают Unauthenticated там, где нужна аутентификация.
func authMiddleware(resolver CallerResolver, logger *log.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, err := resolver.Resolve(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.Set(ctxKeyCaller, caller)
		c.Next()
	}
}

func callerFrom(c *gin.Context) domain.Caller {
	if v, ok := c.Get(ctxKeyCaller); ok {
		if caller, ok := v.(domain.Caller); ok {
			return caller
		}
	}
	return domain.Anonymous()
}

func recoveryMiddleware(logger *log.Entry) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.WithFields(log.Fields{
			"request_id": requestIDFrom(c),
			"panic":      recovered,
		}).Error("panic while serving request")
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody{Error: categoryInternal, Detail: internalErrorDetail})
	})
}
