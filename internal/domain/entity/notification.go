package entity

import (
	"time"

	"github.com/google/uuid"
)

// NotificationChannel is the delivery medium requested for a notification
type NotificationChannel string

const (
	ChannelPush  NotificationChannel = "PUSH"
	ChannelSMS   NotificationChannel = "SMS"
	ChannelEmail NotificationChannel = "EMAIL"
)

// NotificationStatusPending marks a notification waiting for the delivery worker
const NotificationStatusPending = "PENDING"

// Notification template keys
const (
	TemplateBookedConfirmation = "BOOKED_CONFIRMATION"
	TemplateArrivalAck         = "ARRIVAL_ACK"
	TemplateTreatmentStarted   = "TREATMENT_STARTED"
	TemplateTreatmentCompleted = "TREATMENT_COMPLETED"
	TemplateEmergencyRaised    = "EMERGENCY_RAISED"
	TemplateQueueSwapped       = "QUEUE_SWAPPED"
	TemplateReminder           = "APPOINTMENT_REMINDER_30MIN"
)

// Notification is an outbound message handed to the delivery collaborator.
// Rows are written PENDING; delivery updates them outside this service.
type Notification struct {
	ID            int64               `gorm:"primaryKey;autoIncrement" json:"id"`
	Channel       NotificationChannel `gorm:"type:varchar(10);not null" json:"channel"`
	TemplateKey   string              `gorm:"type:varchar(100);not null;index" json:"template_key"`
	Payload       JSON                `gorm:"type:jsonb" json:"payload,omitempty"`
	AppointmentID *uuid.UUID          `gorm:"type:uuid;index" json:"appointment_id,omitempty"`
	PatientID     *uuid.UUID          `gorm:"type:uuid;index" json:"patient_id,omitempty"`
	Status        string              `gorm:"type:varchar(20);not null;index" json:"status"`
	CreatedAt     time.Time           `gorm:"autoCreateTime" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}
