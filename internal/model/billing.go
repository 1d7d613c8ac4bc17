package model

type BillingStatus string

const (
	BillingStatusUnpaid BillingStatus = "UNPAID"
	BillingStatusPaid   BillingStatus = "PAID"
)

type Billing struct {
	Base
	AppointmentID int64         `json:"appointmentId" db:"appointment_id"`
	Amount        float64       `json:"amount" db:"amount"`
	Status        BillingStatus `json:"status" db:"status"`
}

// Stats summarises the hospital for the admin dashboard.
type Stats struct {
	Doctors      int                       `json:"doctors"`
	Patients     int                       `json:"patients"`
	Appointments int                       `json:"appointments"`
	ByStatus     map[AppointmentStatus]int `json:"byStatus"`
	Revenue      float64                   `json:"revenue"`
}
