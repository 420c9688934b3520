package dto

import (
	"time"

	"github.com/google/uuid"
)

type QueueEntryResponse struct {
	Rank          int        `json:"rank"`
	AppointmentID uuid.UUID  `json:"appointment_id"`
	PatientID     uuid.UUID  `json:"patient_id"`
	DoctorID      uuid.UUID  `json:"doctor_id"`
	Department    string     `json:"department"`
	ScheduledAt   time.Time  `json:"scheduled_at"`
	Emergency     bool       `json:"emergency"`
	Position      int        `json:"position"`
	Priority      int        `json:"priority"`
	State         string     `json:"state"`
	Late          bool       `json:"late"`
	LastSeenAt    *time.Time `json:"last_seen_at,omitempty"`
	SwappedWith   *uuid.UUID `json:"swapped_with,omitempty"`
}

type QueueResponse struct {
	Entries     []QueueEntryResponse `json:"entries"`
	Total       int                  `json:"total"`
	GeneratedAt time.Time            `json:"generated_at"`
}

type SwapHistoryEntryResponse struct {
	At     time.Time `json:"at"`
	From   int       `json:"from"`
	To     int       `json:"to"`
	With   uuid.UUID `json:"with"`
	Reason string    `json:"reason"`
}

type SwapHistoryResponse struct {
	AppointmentID uuid.UUID                  `json:"appointment_id"`
	Entries       []SwapHistoryEntryResponse `json:"entries"`
	Total         int                        `json:"total"`
}

type SwapResultResponse struct {
	Swapped       bool       `json:"swapped"`
	AppointmentID uuid.UUID  `json:"appointment_id"`
	SwappedWith   *uuid.UUID `json:"swapped_with,omitempty"`
	FromPosition  int        `json:"from_position"`
	ToPosition    int        `json:"to_position"`
	MarkedAbsent  bool       `json:"marked_absent"`
}

type ScanReportResponse struct {
	Threshold    time.Time `json:"threshold"`
	Candidates   int       `json:"candidates"`
	Swapped      int       `json:"swapped"`
	MarkedAbsent int       `json:"marked_absent"`
	Skipped      int       `json:"skipped"`
	Failed       int       `json:"failed"`
}
