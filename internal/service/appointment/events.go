package appointment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
)

// recordEvent writes an outbox event in the caller's transaction. The payload carries
// the contact details the notification worker needs.
func recordEvent(ctx context.Context, tx repository.Store, eventType string, appt *model.Appointment,
	previous model.AppointmentStatus, amount float64) error {
	payload := model.AppointmentEvent{
		AppointmentID: appt.ID,
		Status:        appt.Status,
		PreviousState: previous,
		Date:          appt.Date,
		Amount:        amount,
		OccurredAt:    time.Now().UTC(),
	}

	patient, err := tx.Profiles().GetPatient(ctx, appt.PatientID)
	if err != nil {
		return fmt.Errorf("failed to get patient profile: %w", err)
	}
	doctor, err := tx.Profiles().GetDoctor(ctx, appt.DoctorID)
	if err != nil {
		return fmt.Errorf("failed to get doctor profile: %w", err)
	}

	users, err := tx.Users().ListByIDs(ctx, []int64{patient.UserID, doctor.UserID})
	if err != nil {
		return fmt.Errorf("failed to get participants: %w", err)
	}
	for _, u := range users {
		if u.ID == patient.UserID {
			payload.PatientUserID = u.ID
			payload.PatientName = u.Name
			payload.PatientEmail = u.Email
		}
		if u.ID == doctor.UserID {
			payload.DoctorUserID = u.ID
			payload.DoctorName = u.Name
		}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	if err := tx.Outbox().Create(ctx, &model.OutboxEvent{
		EventType: eventType,
		Payload:   data,
		Status:    model.OutboxStatusPending,
	}); err != nil {
		return fmt.Errorf("failed to record %s event: %w", eventType, err)
	}
	return nil
}
