package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"
)

// RecoveryMiddleware turns a panicking handler into a 500. Mount it after
// RequestID so the log entry and the response share the request id.
type RecoveryMiddleware struct {
	logger *zap.Logger
}

// NewRecoveryMiddleware creates a new recovery middleware.
func NewRecoveryMiddleware(logger *zap.Logger) *RecoveryMiddleware {
	return &RecoveryMiddleware{logger: logger}
}

// Handler wraps an http.Handler with panic recovery. http.ErrAbortHandler is
// re-raised for net/http to handle.
func (rm *RecoveryMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			rm.report(r, rec)
			writeError(w, r, http.StatusInternalServerError, "internal server error")
		}()

		next.ServeHTTP(w, r)
	})
}

func (rm *RecoveryMiddleware) report(r *http.Request, rec any) {
	fields := []zap.Field{
		zap.String("panic", fmt.Sprint(rec)),
		zap.String("route", r.Method+" "+r.URL.Path),
		zap.String("request_id", GetRequestID(r.Context())),
		zap.ByteString("stack", debug.Stack()),
	}
	if err, ok := rec.(error); ok {
		fields = append(fields, zap.Error(err))
	}
	rm.logger.Error("panic recovered", fields...)
}
