package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "PENDING"
	OutboxStatusProcessed OutboxStatus = "PROCESSED"
	OutboxStatusFailed    OutboxStatus = "FAILED"
)

// Event types recorded alongside appointment writes.
const (
	EventAppointmentBooked        = "appointment.booked"
	EventAppointmentStatusChanged = "appointment.status_changed"
	EventConsultationCompleted    = "consultation.completed"
)

type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"event_type"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       OutboxStatus    `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	RetryCount   int             `db:"retry_count" json:"retry_count"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
}

// AppointmentEvent is the payload of every appointment outbox event.
type AppointmentEvent struct {
	AppointmentID int64             `json:"appointment_id"`
	Status        AppointmentStatus `json:"status"`
	PreviousState AppointmentStatus `json:"previous_status,omitempty"`
	PatientUserID int64             `json:"patient_user_id"`
	PatientName   string            `json:"patient_name"`
	PatientEmail  string            `json:"patient_email"`
	DoctorUserID  int64             `json:"doctor_user_id"`
	DoctorName    string            `json:"doctor_name"`
	Date          time.Time         `json:"date"`
	Amount        float64           `json:"amount,omitempty"`
	OccurredAt    time.Time         `json:"occurred_at"`
}
