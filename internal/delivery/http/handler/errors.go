package handler

import (
	"errors"
	"net/http"

	"clinic-queue/internal/infrastructure/database"
	"clinic-queue/internal/service"
	"clinic-queue/internal/usecase"
	"clinic-queue/pkg/response"
)

// writeError maps queue domain errors to HTTP statuses; anything else is a 500 with fallback.
func writeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrAppointmentNotFound):
		response.NotFound(w, "Appointment not found")
	case errors.Is(err, service.ErrQueuePositionNotFound):
		response.NotFound(w, "Queue position not found")
	case errors.Is(err, usecase.ErrInvalidTransition):
		response.Conflict(w, err.Error())
	case errors.Is(err, database.ErrTransactionConflict):
		response.Conflict(w, "Queue changed concurrently, retry the operation")
	case errors.Is(err, service.ErrScanLockHeld):
		response.Conflict(w, "Absence scan is already running")
	case errors.Is(err, usecase.ErrAuditLogNotFound):
		response.NotFound(w, "Audit log not found")
	default:
		response.InternalServerError(w, fallback)
	}
}
