package http

import (
	"net/http"

	"clinic-queue/internal/delivery/http/handler"
	"clinic-queue/internal/delivery/http/middleware"

	"github.com/gorilla/mux"
)

type Router struct {
	router             *mux.Router
	appointmentHandler *handler.AppointmentHandler
	queueHandler       *handler.QueueHandler
	auditLogHandler    *handler.AuditLogHandler
	authMiddleware     *middleware.AuthMiddleware
	corsMiddleware     *middleware.CORSMiddleware
}

func NewRouter(
	appointmentHandler *handler.AppointmentHandler,
	queueHandler *handler.QueueHandler,
	auditLogHandler *handler.AuditLogHandler,
	authMiddleware *middleware.AuthMiddleware,
	corsMiddleware *middleware.CORSMiddleware,
) *Router {
	return &Router{
		router:             mux.NewRouter(),
		appointmentHandler: appointmentHandler,
		queueHandler:       queueHandler,
		auditLogHandler:    auditLogHandler,
		authMiddleware:     authMiddleware,
		corsMiddleware:     corsMiddleware,
	}
}

func (r *Router) Setup() *mux.Router {
	// API versioning
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", r.healthCheck).Methods(http.MethodGet)

	// Booking and queue views (any authenticated user)
	authed := api.NewRoute().Subrouter()
	authed.Use(r.authMiddleware.Authenticate)
	authed.HandleFunc("/appointments", r.appointmentHandler.CreateAppointment).Methods(http.MethodPost)
	authed.HandleFunc("/appointments/{id}", r.appointmentHandler.GetAppointment).Methods(http.MethodGet)
	authed.HandleFunc("/appointments/{id}/on-way", r.appointmentHandler.MarkOnWay).Methods(http.MethodPost)
	authed.HandleFunc("/appointments/{id}/swap-history", r.queueHandler.GetSwapHistory).Methods(http.MethodGet)
	authed.HandleFunc("/emergencies", r.appointmentHandler.RaiseEmergency).Methods(http.MethodPost)
	authed.HandleFunc("/emergencies", r.appointmentHandler.GetActiveEmergencies).Methods(http.MethodGet)
	authed.HandleFunc("/queue", r.queueHandler.GetQueue).Methods(http.MethodGet)

	// Reception operations (admin or doctor)
	ops := api.NewRoute().Subrouter()
	ops.Use(r.authMiddleware.Authenticate)
	ops.Use(middleware.RequireAdminOrDoctor)
	ops.HandleFunc("/appointments/{id}/arrive", r.appointmentHandler.MarkArrived).Methods(http.MethodPost)
	ops.HandleFunc("/appointments/{id}/start", r.appointmentHandler.StartTreatment).Methods(http.MethodPost)
	ops.HandleFunc("/appointments/{id}/complete", r.appointmentHandler.CompleteTreatment).Methods(http.MethodPost)
	ops.HandleFunc("/queue/swap/{id}", r.queueHandler.SwapWithNext).Methods(http.MethodPost)
	ops.HandleFunc("/queue/run-swap", r.queueHandler.RunAbsenceScan).Methods(http.MethodPost)

	// Admin routes (protected - admin only)
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(r.authMiddleware.Authenticate)
	admin.Use(middleware.RequireAdmin)
	admin.HandleFunc("/audit-logs", r.auditLogHandler.GetAllAuditLogs).Methods(http.MethodGet)
	admin.HandleFunc("/audit-logs/{id}", r.auditLogHandler.GetAuditLog).Methods(http.MethodGet)

	// Add CORS middleware
	r.router.Use(r.corsMiddleware.Handle)

	return r.router
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}
