package middleware

import (
	"context"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/dealdesk/dealdesk/pkg/composables"
	"github.com/dealdesk/dealdesk/pkg/configuration"
	"github.com/dealdesk/dealdesk/pkg/constants"
)

// Provide injects a static value under the given context key for every
// request, e.g. the application instance or the database pool.
func Provide(key constants.ContextKey, value any) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), key, value)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func getRealIP(r *http.Request, conf *configuration.Configuration) string {
	if v := r.Header.Get(conf.RealIPHeader); v != "" {
		return v
	}
	return r.RemoteAddr
}

func getRequestID(r *http.Request, conf *configuration.Configuration) string {
	if v := r.Header.Get(conf.RequestIDHeader); v != "" {
		return v
	}
	return uuid.New().String()
}

// WithLogger attaches a request-scoped logrus entry to the context, logs
// request start/end with duration, and recovers panics into a 500.
func WithLogger(logger *logrus.Logger) mux.MiddlewareFunc {
	conf := configuration.Use()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := getRequestID(r, conf)

			fieldsLogger := logger.WithFields(logrus.Fields{
				"request-id": requestID,
				"path":       r.RequestURI,
				"method":     r.Method,
			})
			fieldsLogger.WithFields(logrus.Fields{
				"ip":         getRealIP(r, conf),
				"user-agent": r.UserAgent(),
			}).Info("request started")

			w.Header().Set("X-Request-Id", requestID)

			ctx := composables.WithLogger(r.Context(), fieldsLogger)
			ctx = composables.WithParams(ctx, &composables.Params{
				IP:        getRealIP(r, conf),
				UserAgent: r.UserAgent(),
				RequestID: requestID,
				Request:   r,
				Writer:    w,
			})

			defer func() {
				if recovered := recover(); recovered != nil {
					fieldsLogger.WithFields(logrus.Fields{
						"panic":    recovered,
						"stack":    string(debug.Stack()),
						"duration": time.Since(start),
					}).Error("panic recovered in request handler")
					http.Error(w, "internal server error", http.StatusInternalServerError)
					return
				}
				fieldsLogger.WithField("duration", time.Since(start)).Info("request completed")
			}()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithActor resolves the acting admin's identity from the upstream identity
// proxy header. Requests without it still pass; attributed operations fail
// later with ErrNoActor before any store call.
func WithActor(header string) mux.MiddlewareFunc {
	if header == "" {
		header = "X-Admin-Id"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if raw := r.Header.Get(header); raw != "" {
				if id, err := uuid.Parse(raw); err == nil {
					r = r.WithContext(composables.WithActorID(r.Context(), id))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
