package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"clinic-queue/internal/delivery/dto"
	"clinic-queue/internal/usecase"
	"clinic-queue/pkg/response"
	"clinic-queue/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type AppointmentHandler struct {
	appointmentUsecase usecase.AppointmentUsecase
	validator          *validator.CustomValidator
}

func NewAppointmentHandler(appointmentUsecase usecase.AppointmentUsecase, validator *validator.CustomValidator) *AppointmentHandler {
	return &AppointmentHandler{
		appointmentUsecase: appointmentUsecase,
		validator:          validator,
	}
}

func (h *AppointmentHandler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	appointment, err := h.appointmentUsecase.CreateAppointment(r.Context(), &req)
	if err != nil {
		writeError(w, err, "Failed to create appointment")
		return
	}

	response.Success(w, http.StatusCreated, "Appointment created successfully", appointment)
}

func (h *AppointmentHandler) RaiseEmergency(w http.ResponseWriter, r *http.Request) {
	var req dto.RaiseEmergencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	appointment, err := h.appointmentUsecase.RaiseEmergency(r.Context(), &req)
	if err != nil {
		writeError(w, err, "Failed to raise emergency")
		return
	}

	response.Success(w, http.StatusCreated, "Emergency raised successfully", appointment)
}

func (h *AppointmentHandler) GetActiveEmergencies(w http.ResponseWriter, r *http.Request) {
	emergencies, err := h.appointmentUsecase.GetActiveEmergencies(r.Context())
	if err != nil {
		writeError(w, err, "Failed to get emergencies")
		return
	}

	response.Success(w, http.StatusOK, "Emergencies retrieved successfully", emergencies)
}

func (h *AppointmentHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := appointmentID(w, r)
	if !ok {
		return
	}

	appointment, err := h.appointmentUsecase.GetAppointment(r.Context(), id)
	if err != nil {
		writeError(w, err, "Failed to get appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment retrieved successfully", appointment)
}

func (h *AppointmentHandler) MarkArrived(w http.ResponseWriter, r *http.Request) {
	id, ok := appointmentID(w, r)
	if !ok {
		return
	}

	appointment, err := h.appointmentUsecase.MarkArrived(r.Context(), id)
	if err != nil {
		writeError(w, err, "Failed to mark arrival")
		return
	}

	response.Success(w, http.StatusOK, "Arrival recorded successfully", appointment)
}

// MarkOnWay accepts an empty body; coordinates are optional.
func (h *AppointmentHandler) MarkOnWay(w http.ResponseWriter, r *http.Request) {
	id, ok := appointmentID(w, r)
	if !ok {
		return
	}

	var req dto.OnWayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	appointment, err := h.appointmentUsecase.MarkOnWay(r.Context(), id, &req)
	if err != nil {
		writeError(w, err, "Failed to mark on the way")
		return
	}

	response.Success(w, http.StatusOK, "Appointment marked on the way", appointment)
}

func (h *AppointmentHandler) StartTreatment(w http.ResponseWriter, r *http.Request) {
	id, ok := appointmentID(w, r)
	if !ok {
		return
	}

	appointment, err := h.appointmentUsecase.StartTreatment(r.Context(), id)
	if err != nil {
		writeError(w, err, "Failed to start treatment")
		return
	}

	response.Success(w, http.StatusOK, "Treatment started", appointment)
}

func (h *AppointmentHandler) CompleteTreatment(w http.ResponseWriter, r *http.Request) {
	id, ok := appointmentID(w, r)
	if !ok {
		return
	}

	appointment, err := h.appointmentUsecase.CompleteTreatment(r.Context(), id)
	if err != nil {
		writeError(w, err, "Failed to complete treatment")
		return
	}

	response.Success(w, http.StatusOK, "Treatment completed", appointment)
}

func appointmentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid appointment ID", nil)
		return uuid.Nil, false
	}
	return id, true
}
