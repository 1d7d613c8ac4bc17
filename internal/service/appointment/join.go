package appointment

import (
	"context"
	"errors"
	"fmt"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
)

type joinOptions struct {
	patient      bool
	doctor       bool
	prescription bool
	billing      bool
}

// attach loads the requested relations for a page of appointments with one query per relation.
func attach(ctx context.Context, store repository.Store, appointments []*model.Appointment, opts joinOptions) error {
	if len(appointments) == 0 {
		return nil
	}

	var patientIDs, doctorIDs, appointmentIDs []int64
	for _, a := range appointments {
		patientIDs = append(patientIDs, a.PatientID)
		doctorIDs = append(doctorIDs, a.DoctorID)
		appointmentIDs = append(appointmentIDs, a.ID)
	}

	var userIDs []int64
	patients := map[int64]*model.PatientProfile{}
	doctors := map[int64]*model.DoctorProfile{}

	if opts.patient {
		list, err := store.Profiles().ListPatientsByIDs(ctx, patientIDs)
		if err != nil {
			return fmt.Errorf("failed to list patient profiles: %w", err)
		}
		for _, p := range list {
			patients[p.ID] = p
			userIDs = append(userIDs, p.UserID)
		}
	}
	if opts.doctor {
		list, err := store.Profiles().ListDoctorsByIDs(ctx, doctorIDs)
		if err != nil {
			return fmt.Errorf("failed to list doctor profiles: %w", err)
		}
		for _, d := range list {
			doctors[d.ID] = d
			userIDs = append(userIDs, d.UserID)
		}
	}

	if len(userIDs) > 0 {
		users, err := store.Users().ListByIDs(ctx, userIDs)
		if err != nil {
			return fmt.Errorf("failed to list users: %w", err)
		}
		byID := make(map[int64]*model.User, len(users))
		for _, u := range users {
			byID[u.ID] = u
		}
		for _, p := range patients {
			p.User = byID[p.UserID]
		}
		for _, d := range doctors {
			d.User = byID[d.UserID]
		}
	}

	prescriptions := map[int64]*model.Prescription{}
	if opts.prescription {
		list, err := store.Prescriptions().ListByAppointmentIDs(ctx, appointmentIDs)
		if err != nil {
			return fmt.Errorf("failed to list prescriptions: %w", err)
		}
		for _, p := range list {
			prescriptions[p.AppointmentID] = p
		}
	}

	for _, a := range appointments {
		a.Patient = patients[a.PatientID]
		a.Doctor = doctors[a.DoctorID]
		a.Prescription = prescriptions[a.ID]

		if opts.billing {
			billing, err := store.Billings().GetByAppointmentID(ctx, a.ID)
			if err == nil {
				a.Billing = billing
			} else if !errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("failed to get billing: %w", err)
			}
		}
	}
	return nil
}
