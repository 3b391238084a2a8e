package utils

import (
	"net"
	"net/http"
	"net/http/httputil"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader carries the id assigned to each request.
const RequestIDHeader = "X-Request-ID"

// Ginzap logs one line per request to logger.
func Ginzap(logger *zap.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		reqID := ctx.GetHeader(RequestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		ctx.Header(RequestIDHeader, reqID)
		path := ctx.Request.URL.Path
		query := ctx.Request.URL.RawQuery

		ctx.Next()

		fields := []zap.Field{
			zap.Int("status", ctx.Writer.Status()),
			zap.String("method", ctx.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.String("ip", ctx.ClientIP()),
			zap.String("request_id", reqID),
			zap.Duration("latency", time.Since(start)),
		}
		if uid, ok := ctx.Get("user_id"); ok {
			fields = append(fields, zap.Any("user_id", uid))
		}
		if len(ctx.Errors) > 0 {
			for _, e := range ctx.Errors.Errors() {
				logger.Error(e, fields...)
			}
			return
		}
		logger.Info(path, fields...)
	}
}

// RecoveryWithZap turns panics into a 500 envelope and logs them. Broken
// client connections are logged without a response.
func RecoveryWithZap(logger *zap.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			request, _ := httputil.DumpRequest(ctx.Request, false)

			if brokenPipe(rec) {
				logger.Error(ctx.Request.URL.Path, zap.Any("error", rec), zap.String("request", string(request)))
				_ = ctx.Error(rec.(error))
				ctx.Abort()
				return
			}

			logger.Error("recovered from panic",
				zap.Any("error", rec),
				zap.String("request", string(request)),
				zap.String("stack", string(debug.Stack())),
			)
			Error(ctx, http.StatusInternalServerError, 50000, "internal server error")
			ctx.Abort()
		}()
		ctx.Next()
	}
}

func brokenPipe(rec any) bool {
	ne, ok := rec.(*net.OpError)
	if !ok {
		return false
	}
	se, ok := ne.Err.(*os.SyscallError)
	if !ok {
		return false
	}
	msg := strings.ToLower(se.Error())
	return strings.Contains(msg, "broken pipe") || strings.Contains(msg, "connection reset by peer")
}
