package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// PrescriptionDosage is the placeholder written to every prescription's dosage column;
// per-medicine dosage lives in the medication list.
const PrescriptionDosage = "As prescribed"

type Medication struct {
	Name     string `json:"name" binding:"required"`
	Dosage   string `json:"dosage"`
	Duration string `json:"duration"`
}

// Medications is stored as a jsonb document.
type Medications []Medication

func (m Medications) Value() (driver.Value, error) {
	if m == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(m)
}

func (m *Medications) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*m = Medications{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Medications", src)
	}
	return json.Unmarshal(raw, m)
}

type Prescription struct {
	Base
	AppointmentID int64       `json:"appointmentId" db:"appointment_id"`
	Medication    Medications `json:"medication" db:"medication"`
	Dosage        string      `json:"dosage" db:"dosage"`
	Instructions  string      `json:"instructions" db:"instructions"`
}
