package handler

import (
	"net/http"

	"clinic-queue/internal/domain/entity"
	"clinic-queue/internal/usecase"
	"clinic-queue/pkg/response"

	"github.com/google/uuid"
)

type QueueHandler struct {
	queueUsecase usecase.QueueUsecase
}

func NewQueueHandler(queueUsecase usecase.QueueUsecase) *QueueHandler {
	return &QueueHandler{
		queueUsecase: queueUsecase,
	}
}

// GetQueue returns the ordered queue for ?doctor_id= or ?patient_id=, or every queue without filter.
// The two filters are mutually exclusive.
func (h *QueueHandler) GetQueue(w http.ResponseWriter, r *http.Request) {
	var filter entity.QueueFilter
	query := r.URL.Query()

	if raw := query.Get("doctor_id"); raw != "" {
		doctorID, err := uuid.Parse(raw)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "Invalid doctor ID", nil)
			return
		}
		filter.DoctorID = &doctorID
	}
	if raw := query.Get("patient_id"); raw != "" {
		patientID, err := uuid.Parse(raw)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "Invalid patient ID", nil)
			return
		}
		filter.PatientID = &patientID
	}
	if filter.DoctorID != nil && filter.PatientID != nil {
		response.Error(w, http.StatusBadRequest, "Use either doctor_id or patient_id, not both", nil)
		return
	}

	queue, err := h.queueUsecase.GetQueue(r.Context(), filter)
	if err != nil {
		writeError(w, err, "Failed to get queue")
		return
	}

	response.Success(w, http.StatusOK, "Queue retrieved successfully", queue)
}

func (h *QueueHandler) SwapWithNext(w http.ResponseWriter, r *http.Request) {
	id, ok := appointmentID(w, r)
	if !ok {
		return
	}

	result, err := h.queueUsecase.SwapWithNext(r.Context(), id)
	if err != nil {
		writeError(w, err, "Failed to swap appointment")
		return
	}

	message := "Appointment swapped successfully"
	if !result.Swapped {
		message = "No later patient to swap with"
	}
	response.Success(w, http.StatusOK, message, result)
}

func (h *QueueHandler) RunAbsenceScan(w http.ResponseWriter, r *http.Request) {
	report, err := h.queueUsecase.RunAbsenceScan(r.Context())
	if err != nil {
		writeError(w, err, "Failed to run absence scan")
		return
	}

	response.Success(w, http.StatusOK, "Absence scan completed", report)
}

func (h *QueueHandler) GetSwapHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := appointmentID(w, r)
	if !ok {
		return
	}

	history, err := h.queueUsecase.GetSwapHistory(r.Context(), id)
	if err != nil {
		writeError(w, err, "Failed to get swap history")
		return
	}

	response.Success(w, http.StatusOK, "Swap history retrieved successfully", history)
}
