package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AppointmentStatus is shared by Appointment.Status and QueuePosition.State
type AppointmentStatus string

const (
	StatusBooked       AppointmentStatus = "BOOKED"
	StatusOnWay        AppointmentStatus = "ON_WAY"
	StatusArrived      AppointmentStatus = "ARRIVED"
	StatusBeingTreated AppointmentStatus = "BEING_TREATED"
	StatusCompleted    AppointmentStatus = "COMPLETED"
	StatusAbsent       AppointmentStatus = "ABSENT"
)

// Appointment represents a patient visit in a doctor's walk-in queue
type Appointment struct {
	ID           uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	PatientID    uuid.UUID         `gorm:"type:uuid;not null;index" json:"patient_id"`
	DoctorID     uuid.UUID         `gorm:"type:uuid;not null;index" json:"doctor_id"`
	Department   string            `gorm:"type:varchar(100);not null" json:"department"`
	ScheduledAt  time.Time         `gorm:"not null;index" json:"scheduled_at"`
	Emergency    bool              `gorm:"not null;default:false;index" json:"emergency"`
	Status       AppointmentStatus `gorm:"type:varchar(20);not null;default:'BOOKED';index" json:"status"`
	LocationInfo JSON              `gorm:"type:jsonb" json:"location_info,omitempty"`
	Notes        string            `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt    time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	QueuePosition *QueuePosition     `gorm:"foreignKey:AppointmentID" json:"queue_position,omitempty"`
	SwapHistory   []SwapHistoryEntry `gorm:"foreignKey:AppointmentID" json:"swap_history,omitempty"`
}

func (Appointment) TableName() string {
	return "appointments"
}

func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// IsResolved reports whether the patient has shown up, been seen or was already marked absent.
// Resolved appointments are never marked absent again.
func (a *Appointment) IsResolved() bool {
	switch a.Status {
	case StatusArrived, StatusBeingTreated, StatusCompleted, StatusAbsent:
		return true
	}
	return false
}

// IsWaiting checks if the appointment still counts as an expected, not-yet-arrived visit
func (a *Appointment) IsWaiting() bool {
	return a.Status == StatusBooked || a.Status == StatusOnWay
}

// Priority returns the queue class of the appointment
func (a *Appointment) Priority() int {
	if a.Emergency {
		return PriorityEmergency
	}
	return PriorityRoutine
}

// allowedTransitions lists the statuses an appointment may move to from each status.
// ABSENT patients may still arrive late or be called in directly.
var allowedTransitions = map[AppointmentStatus][]AppointmentStatus{
	StatusBooked:       {StatusOnWay, StatusArrived, StatusBeingTreated, StatusAbsent},
	StatusOnWay:        {StatusOnWay, StatusArrived, StatusBeingTreated, StatusAbsent},
	StatusArrived:      {StatusBeingTreated},
	StatusAbsent:       {StatusArrived, StatusBeingTreated},
	StatusBeingTreated: {StatusCompleted},
}

// CanTransitionTo checks if the appointment may move to next
func (a *Appointment) CanTransitionTo(next AppointmentStatus) bool {
	for _, s := range allowedTransitions[a.Status] {
		if s == next {
			return true
		}
	}
	return false
}
