package api

import (
	"context"
	"net/http"
	"path/filepath"

	"github.com/julienschmidt/httprouter"

	apiContext "attendr/internal/api/context"
	"attendr/internal/api/handlers"
	"attendr/internal/api/middleware"
	"attendr/internal/pkg/errors"
	"attendr/internal/platform/auth"
	"attendr/internal/platform/models"
)

type Dependencies struct {
	AuthHandler       *handlers.AuthHandler
	UserHandler       *handlers.UserHandler
	ParentHandler     *handlers.ParentHandler
	AttendanceHandler *handlers.AttendanceHandler
	CardHandler       *handlers.CardHandler
	AuditHandler      *handlers.AuditHandler
	HealthHandler     *handlers.HealthHandler
	MetricsHandler    *handlers.MetricsHandler
	AuthMiddleware    *middleware.AuthMiddleware
	AssetsRoot        string
}

func NewRouter(deps *Dependencies) *httprouter.Router {
	router := httprouter.New()
	authMid := deps.AuthMiddleware.Handle
	admin := requireRole(models.RoleAdmin)
	staff := requireRole(models.RoleAdmin, models.RoleTeacher, models.RoleStaff)
	m := middleware.Instrument

	// Probes
	router.GET("/health", wrap(deps.HealthHandler.Check))
	router.GET("/api/health", wrap(deps.HealthHandler.Check))
	router.GET("/metrics", wrap(deps.MetricsHandler.Export))

	// Uploaded photos and logos
	router.ServeFiles("/static/*filepath", http.Dir(filepath.Join(deps.AssetsRoot, "static")))

	// Authentication
	router.POST("/api/auth/bootstrap",
		chain(deps.AuthHandler.Bootstrap, m("auth_bootstrap"), middleware.RateLimit("login")))
	router.POST("/api/auth/login",
		chain(deps.AuthHandler.Login, m("auth_login"), middleware.RateLimit("login")))
	router.POST("/api/auth/refresh",
		chain(deps.AuthHandler.Refresh, m("auth_refresh"), middleware.RateLimit("login")))
	router.POST("/api/auth/register",
		chain(deps.AuthHandler.Register, m("auth_register"), authMid, admin))
	router.GET("/api/auth/me",
		chain(deps.AuthHandler.Me, m("auth_me"), authMid))

	// Users
	router.GET("/api/users",
		chain(deps.UserHandler.List, m("users_list"), authMid, staff))
	router.GET("/api/users/:user_id",
		chain(deps.UserHandler.Get, m("users_get"), authMid, staff))
	router.PUT("/api/users/:user_id",
		chain(deps.UserHandler.Update, m("users_update"), authMid, admin, middleware.RateLimit("api_write")))
	router.DELETE("/api/users/:user_id",
		chain(deps.UserHandler.Delete, m("users_delete"), authMid, admin, middleware.RateLimit("api_write")))
	router.POST("/api/users/:user_id/upload-photo",
		chain(deps.UserHandler.UploadPhoto, m("users_photo"), authMid, admin, middleware.RateLimit("api_write")))
	router.GET("/api/users/:user_id/qr",
		chain(deps.UserHandler.QRCode, m("users_qr"), authMid, staff))
	router.GET("/api/categories",
		chain(deps.UserHandler.Categories, m("categories"), authMid))

	// Parents
	router.POST("/api/parents",
		chain(deps.ParentHandler.Create, m("parents_create"), authMid, admin, middleware.RateLimit("api_write")))
	router.POST("/api/parents/link",
		chain(deps.ParentHandler.Link, m("parents_link"), authMid, admin, middleware.RateLimit("api_write")))
	router.GET("/api/parents/:user_id",
		chain(deps.ParentHandler.Get, m("parents_get"), authMid, staff))
	router.GET("/api/parents/:user_id/students",
		chain(deps.ParentHandler.Students, m("parents_students"), authMid))
	router.GET("/api/students/:student_id/parents",
		chain(deps.ParentHandler.ByStudent, m("students_parents"), authMid, staff))

	// Attendance
	router.POST("/api/attendance",
		chain(deps.AttendanceHandler.Record, m("attendance_record"), authMid, staff, middleware.RateLimit("scan")))
	router.GET("/api/attendance",
		chain(deps.AttendanceHandler.List, m("attendance_list"), authMid, staff))
	router.GET("/api/attendance/stats/:user_id",
		chain(deps.AttendanceHandler.Stats, m("attendance_stats"), authMid))
	router.GET("/api/dashboard/stats",
		chain(deps.AttendanceHandler.Dashboard, m("dashboard"), authMid, staff))

	// ID cards
	router.GET("/api/cards/generate/:user_id",
		chain(deps.CardHandler.Generate, m("cards_generate"), authMid, staff, middleware.RateLimit("card")))

	// Audit trail
	router.GET("/api/audit",
		chain(deps.AuditHandler.List, m("audit_list"), authMid, admin))

	return router
}

// chain applies middlewares outermost first.
func chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return wrap(handler)
}

// wrap converts an http.HandlerFunc to an httprouter.Handle with the route
// params in the request context.
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}

func requireRole(roles ...string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims, ok := r.Context().Value(apiContext.Claims).(*auth.Claims)
			if !ok {
				errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Authentication required", nil)
				return
			}

			allowed := false
			for _, role := range roles {
				if claims.Role == role {
					allowed = true
					break
				}
			}

			if !allowed {
				errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, "Insufficient permissions", nil)
				return
			}

			next(w, r)
		}
	}
}
