package model

import "time"

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "PENDING"
	AppointmentStatusConfirmed AppointmentStatus = "CONFIRMED"
	AppointmentStatusCompleted AppointmentStatus = "COMPLETED"
	AppointmentStatusCancelled AppointmentStatus = "CANCELLED"
)

// DefaultSymptoms is stored when a booking carries no symptoms.
const DefaultSymptoms = "General checkup"

var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentStatusPending:   {AppointmentStatusConfirmed, AppointmentStatusCancelled},
	AppointmentStatusConfirmed: {AppointmentStatusCompleted, AppointmentStatusCancelled},
}

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusPending, AppointmentStatusConfirmed, AppointmentStatusCompleted, AppointmentStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	for _, allowed := range appointmentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s AppointmentStatus) IsTerminal() bool {
	return len(appointmentTransitions[s]) == 0
}

// IsActive reports whether the appointment still occupies the doctor's schedule.
func (s AppointmentStatus) IsActive() bool {
	return s == AppointmentStatusPending || s == AppointmentStatusConfirmed
}

type Appointment struct {
	Base
	Date         time.Time         `json:"date" db:"date"`
	Symptoms     string            `json:"symptoms" db:"symptoms"`
	Status       AppointmentStatus `json:"status" db:"status"`
	PatientID    int64             `json:"patientId" db:"patient_id"`
	DoctorID     int64             `json:"doctorId" db:"doctor_id"`
	Patient      *PatientProfile   `json:"patient,omitempty" db:"-"`
	Doctor       *DoctorProfile    `json:"doctor,omitempty" db:"-"`
	Prescription *Prescription     `json:"prescription,omitempty" db:"-"`
	Billing      *Billing          `json:"billing,omitempty" db:"-"`
}

type CreateAppointmentRequest struct {
	DoctorID ID      `json:"doctorId" binding:"required"`
	Date     string  `json:"date" binding:"required"`
	Symptoms *string `json:"symptoms"`
}

type UpdateStatusRequest struct {
	Status AppointmentStatus `json:"status" binding:"required,appointment_status"`
}

type ConsultationRequest struct {
	Diagnosis string       `json:"diagnosis" binding:"required"`
	Medicines []Medication `json:"medicines" binding:"dive"`
}

// BookingInput is the validated form of CreateAppointmentRequest.
type BookingInput struct {
	DoctorID int64
	Date     time.Time
	Symptoms string
}

type AppointmentFilters struct {
	PatientID int64
	DoctorID  int64
}
