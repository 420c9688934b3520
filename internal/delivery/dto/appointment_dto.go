package dto

import (
	"time"

	"clinic-queue/internal/domain/entity"

	"github.com/google/uuid"
)

// Request DTOs

type CreateAppointmentRequest struct {
	PatientID   uuid.UUID `json:"patient_id" validate:"required"`
	DoctorID    uuid.UUID `json:"doctor_id" validate:"required"`
	Department  string    `json:"department" validate:"required,max=100"`
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
	Emergency   bool      `json:"emergency"`
	Notes       string    `json:"notes" validate:"max=1000"`
}

type RaiseEmergencyRequest struct {
	PatientID  uuid.UUID `json:"patient_id" validate:"required"`
	DoctorID   uuid.UUID `json:"doctor_id" validate:"required"`
	Department string    `json:"department" validate:"required,max=100"`
	Notes      string    `json:"notes" validate:"max=1000"`
}

type OnWayRequest struct {
	Latitude  *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude *float64 `json:"longitude" validate:"omitempty,longitude"`
}

// Response DTOs

type QueuePositionResponse struct {
	Position    int        `json:"position"`
	Priority    int        `json:"priority"`
	State       string     `json:"state"`
	LastSeenAt  *time.Time `json:"last_seen_at,omitempty"`
	AbsentAt    *time.Time `json:"absent_at,omitempty"`
	SwappedWith *uuid.UUID `json:"swapped_with,omitempty"`
}

type AppointmentResponse struct {
	ID           uuid.UUID              `json:"id"`
	PatientID    uuid.UUID              `json:"patient_id"`
	DoctorID     uuid.UUID              `json:"doctor_id"`
	Department   string                 `json:"department"`
	ScheduledAt  time.Time              `json:"scheduled_at"`
	Emergency    bool                   `json:"emergency"`
	Status       string                 `json:"status"`
	LocationInfo entity.JSON            `json:"location_info,omitempty"`
	Notes        string                 `json:"notes,omitempty"`
	Queue        *QueuePositionResponse `json:"queue,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Total        int                   `json:"total"`
}
