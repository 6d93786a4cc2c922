// Package httpapi exposes workshop progress over JSON/HTTP.
package httpapi

import (
	"net/http"

	"github.com/ad/go-workshop-progress/internal/auth"
	"github.com/ad/go-workshop-progress/internal/models"
	"github.com/ad/go-workshop-progress/internal/services"
	"go.uber.org/zap"
)

type Handler struct {
	Auth   *auth.Service
	Users  *services.UserManager
	Sync   *services.ProgressSyncService
	Stats  *services.StatisticsService
	Logger *zap.Logger
}

func NewRouter(h *Handler) http.Handler {
	if h.Logger == nil {
		h.Logger = zap.NewNop()
	}
	mux := http.NewServeMux()
	secured := auth.JWTMiddleware(h.Auth)
	staff := func(next http.HandlerFunc) http.Handler {
		return secured(auth.RequireRole(next, models.RoleAdmin, models.RoleFacilitator))
	}
	admin := func(next http.HandlerFunc) http.Handler {
		return secured(auth.RequireRole(next, models.RoleAdmin))
	}

	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.HandleFunc("POST /api/auth/login", h.handleLogin)
	mux.HandleFunc("GET /api/workshops/{workshop}/steps", h.handleSteps)
	mux.Handle("GET /api/workshops/{workshop}/progress", secured(http.HandlerFunc(h.handleProgress)))
	mux.Handle("POST /api/assessments", secured(http.HandlerFunc(h.handleSubmitAssessment)))

	mux.Handle("GET /api/admin/users", staff(h.handleListUsers))
	mux.Handle("GET /api/admin/users/{id}", staff(h.handleUserDetails))
	mux.Handle("GET /api/admin/workshops/{workshop}/stats", staff(h.handleStats))
	mux.Handle("POST /api/admin/users/{id}/sync", admin(h.handleSyncUser))
	mux.Handle("POST /api/admin/users/{id}/workshops/{workshop}/reset", admin(h.handleResetWorkshop))
	mux.Handle("POST /api/admin/sync", admin(h.handleSyncAll))

	return h.logRequests(mux)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.Logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
