package notify

import (
	"fmt"
	"strings"

	"github.com/jwalitptl/hospital-api/internal/model"
)

const dateLayout = "Mon, 02 Jan 2006 15:04 MST"

// Email is a rendered notification.
type Email struct {
	To      string
	Subject string
	Body    string
}

// ForAppointmentEvent renders the patient e-mail for an appointment event.
// ok is false when the event does not warrant an e-mail.
func ForAppointmentEvent(eventType string, evt model.AppointmentEvent) (Email, bool) {
	if evt.PatientEmail == "" {
		return Email{}, false
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", evt.PatientName)

	var subject string
	switch {
	case eventType == model.EventAppointmentStatusChanged && evt.Status == model.AppointmentStatusConfirmed:
		subject = "Your appointment is confirmed"
		fmt.Fprintf(&b, "Dr. %s has confirmed your appointment on %s.\n", evt.DoctorName, evt.Date.Format(dateLayout))
	case eventType == model.EventAppointmentStatusChanged && evt.Status == model.AppointmentStatusCancelled:
		subject = "Your appointment was cancelled"
		fmt.Fprintf(&b, "Your appointment with Dr. %s on %s has been cancelled.\n", evt.DoctorName, evt.Date.Format(dateLayout))
	case eventType == model.EventConsultationCompleted:
		subject = "Your consultation summary and bill"
		fmt.Fprintf(&b, "Your consultation with Dr. %s is complete. Your prescription is available in your dashboard.\n", evt.DoctorName)
		fmt.Fprintf(&b, "An invoice of %.2f is awaiting payment.\n", evt.Amount)
	default:
		return Email{}, false
	}

	b.WriteString("\nHospital Management System\n")
	return Email{To: evt.PatientEmail, Subject: subject, Body: b.String()}, true
}
