package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditLog represents a system audit trail entry
type AuditLog struct {
	ID         int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Actor      string     `gorm:"type:varchar(50);not null;index" json:"actor"`
	Action     string     `gorm:"type:varchar(100);not null;index" json:"action"`
	EntityType string     `gorm:"type:varchar(50)" json:"entity_type,omitempty"`
	EntityID   string     `gorm:"type:varchar(64);index" json:"entity_id,omitempty"`
	Metadata   JSON       `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt  time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

// JSON type for GORM JSONB support
type JSON map[string]interface{}

// Value returns json value, implement driver.Valuer interface
func (j JSON) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan scan value into Jsonb, implements sql.Scanner interface
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New(fmt.Sprint("Failed to unmarshal JSONB value:", value))
	}

	result := map[string]interface{}{}
	err := json.Unmarshal(bytes, &result)
	*j = JSON(result)
	return err
}

// Audit actors
const (
	AuditActorSystem    = "system"
	AuditActorReception = "reception"
)

// Common audit actions
const (
	AuditActionQueueSwap           = "queue.swap"
	AuditActionAppointmentCreate   = "appointment.create"
	AuditActionAppointmentArrive   = "appointment.arrive"
	AuditActionAppointmentOnWay    = "appointment.on_way"
	AuditActionAppointmentStart    = "appointment.start"
	AuditActionAppointmentComplete = "appointment.complete"
	AuditActionEmergencyRaise      = "emergency.raise"
)

// AuditEntityAppointment is the entity type recorded for appointment-scoped audit rows
const AuditEntityAppointment = "Appointment"
