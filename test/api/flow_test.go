package api_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type session struct {
	AccessToken string `json:"access_token"`
	User        struct {
		ID   int64  `json:"id"`
		Role string `json:"role"`
	} `json:"user"`
}

func register(t *testing.T, c *client, name, role string) session {
	t.Helper()
	resp := c.do(t, http.MethodPost, "/auth/register", map[string]string{
		"name":     name,
		"email":    uniqueEmail(role),
		"password": "secret1",
		"role":     role,
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(resp.Body))

	var s session
	resp.Decode(t, &s)
	return s
}

func TestHealth(t *testing.T) {
	c := newClient(t)
	assert.Equal(t, http.StatusOK, c.do(t, http.MethodGet, "/health/live", nil, "").StatusCode)
	assert.Equal(t, http.StatusOK, c.do(t, http.MethodGet, "/health/ready", nil, "").StatusCode)
}

func TestConsultationFlow(t *testing.T) {
	c := newClient(t)
	doctor := register(t, c, "Flow Doctor", "DOCTOR")
	patient := register(t, c, "Flow Patient", "PATIENT")

	var me struct {
		DoctorProfile struct {
			ID int64 `json:"id"`
		} `json:"doctorProfile"`
	}
	c.do(t, http.MethodGet, "/auth/me", nil, doctor.AccessToken).Decode(t, &me)
	require.NotZero(t, me.DoctorProfile.ID)

	date := time.Now().Add(24 * time.Hour).Truncate(time.Minute)
	resp := c.do(t, http.MethodPost, "/appointments", map[string]interface{}{
		"doctorId": fmt.Sprint(me.DoctorProfile.ID),
		"date":     date.UTC().Format(time.RFC3339),
		"symptoms": "Headache",
	}, patient.AccessToken)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(resp.Body))

	var appt struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	resp.Decode(t, &appt)
	assert.Equal(t, "PENDING", appt.Status)

	base := fmt.Sprintf("/appointments/%d", appt.ID)
	resp = c.do(t, http.MethodPatch, base+"/status", map[string]string{"status": "CONFIRMED"}, doctor.AccessToken)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(resp.Body))

	consult := map[string]interface{}{
		"diagnosis": "Tension headache",
		"medicines": []map[string]string{{"name": "Paracetamol", "dosage": "500mg", "duration": "3 days"}},
	}
	resp = c.do(t, http.MethodPatch, base+"/consult", consult, doctor.AccessToken)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(resp.Body))

	resp = c.do(t, http.MethodPatch, base+"/consult", consult, doctor.AccessToken)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var full struct {
		Prescription *struct {
			Instructions string `json:"instructions"`
		} `json:"prescription"`
		Billing *struct {
			Status string `json:"status"`
		} `json:"billing"`
	}
	c.do(t, http.MethodGet, base, nil, patient.AccessToken).Decode(t, &full)
	require.NotNil(t, full.Prescription)
	require.NotNil(t, full.Billing)
	assert.Equal(t, "Tension headache", full.Prescription.Instructions)
	assert.Equal(t, "UNPAID", full.Billing.Status)
}
