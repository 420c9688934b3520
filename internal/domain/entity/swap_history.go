package entity

import (
	"time"

	"github.com/google/uuid"
)

// SwapReasonAbsentAutoSwap tags swaps performed because the patient was overdue
const SwapReasonAbsentAutoSwap = "ABSENT_15_MIN_AUTO_SWAP"

// SwapHistoryEntry is one append-only record of a position exchange, owned by an appointment.
// Each swap writes a mirrored pair: one entry per affected appointment.
type SwapHistoryEntry struct {
	ID                int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	AppointmentID     uuid.UUID `gorm:"type:uuid;not null;index" json:"appointment_id"`
	At                time.Time `gorm:"not null" json:"at"`
	FromPos           int       `gorm:"not null" json:"from_pos"`
	ToPos             int       `gorm:"not null" json:"to_pos"`
	WithAppointmentID uuid.UUID `gorm:"type:uuid;not null" json:"with"`
	Reason            string    `gorm:"type:varchar(100);not null" json:"reason"`
}

func (SwapHistoryEntry) TableName() string {
	return "swap_history_entries"
}
