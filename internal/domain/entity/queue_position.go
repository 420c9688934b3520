package entity

import (
	"time"

	"github.com/google/uuid"
)

// Queue classes. Lower sorts first.
const (
	PriorityEmergency = 0
	PriorityRoutine   = 10
)

// QueuePosition holds the slot of one appointment inside its doctor's queue.
// Positions are unique per doctor and are exchanged by swaps, never renumbered.
type QueuePosition struct {
	AppointmentID uuid.UUID         `gorm:"type:uuid;primaryKey" json:"appointment_id"`
	DoctorID      uuid.UUID         `gorm:"type:uuid;not null;index:idx_queue_positions_doctor_position,priority:1" json:"doctor_id"`
	Position      int               `gorm:"not null;index:idx_queue_positions_doctor_position,priority:2" json:"position"`
	Priority      int               `gorm:"not null" json:"priority"`
	State         AppointmentStatus `gorm:"type:varchar(20);not null;default:'BOOKED'" json:"state"`
	LastSeenAt    *time.Time        `json:"last_seen_at,omitempty"`
	AbsentAt      *time.Time        `json:"absent_at,omitempty"`
	SwappedWith   *uuid.UUID        `gorm:"type:uuid" json:"swapped_with,omitempty"`
	CreatedAt     time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

func (QueuePosition) TableName() string {
	return "queue_positions"
}

// IsEmergency checks if the entry belongs to the emergency class
func (q *QueuePosition) IsEmergency() bool {
	return q.Priority == PriorityEmergency
}

// QueueFilter selects which queue view to load.
// DoctorID restricts to one doctor and to active states, PatientID to one patient's history.
// Both empty means the global queue.
type QueueFilter struct {
	DoctorID  *uuid.UUID
	PatientID *uuid.UUID
}

// ActiveQueueStates are the states shown on a doctor's live queue
var ActiveQueueStates = []AppointmentStatus{StatusBooked, StatusOnWay, StatusArrived, StatusBeingTreated}

// QueueEntry pairs a queue slot with its appointment for ordering and display
type QueueEntry struct {
	Position    QueuePosition
	Appointment Appointment
}
