package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/hospital-api/internal/handler"
	appointmenthandler "github.com/jwalitptl/hospital-api/internal/handler/appointment"
	authhandler "github.com/jwalitptl/hospital-api/internal/handler/auth"
	statshandler "github.com/jwalitptl/hospital-api/internal/handler/stats"
	userhandler "github.com/jwalitptl/hospital-api/internal/handler/user"
	"github.com/jwalitptl/hospital-api/internal/middleware"
	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository/memory"
	appointmentservice "github.com/jwalitptl/hospital-api/internal/service/appointment"
	authservice "github.com/jwalitptl/hospital-api/internal/service/auth"
	statsservice "github.com/jwalitptl/hospital-api/internal/service/stats"
	userservice "github.com/jwalitptl/hospital-api/internal/service/user"
	"github.com/jwalitptl/hospital-api/pkg/auth"
	"github.com/jwalitptl/hospital-api/pkg/security"
)

type testApp struct {
	engine  *gin.Engine
	authSvc *authservice.Service
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	require.NoError(t, middleware.RegisterValidators())

	store := memory.NewStore()
	reg := prometheus.NewRegistry()

	authSvc := authservice.NewService(
		store,
		security.NewBcryptHasher(bcrypt.MinCost),
		auth.NewJWTService("test-secret", time.Hour),
		auth.NewRevocationList(time.Minute),
		authservice.Config{},
	)
	userSvc := userservice.NewService(store)
	apptSvc := appointmentservice.NewService(store, appointmentservice.Config{
		PreventOverlap:  true,
		Slot:            30 * time.Minute,
		ConsultationFee: 50,
	})

	r := NewRouter(middleware.NewAuthMiddleware(authSvc), Handlers{
		Auth:        authhandler.NewHandler(authSvc, userSvc),
		User:        userhandler.NewHandler(userSvc),
		Appointment: appointmenthandler.NewHandler(apptSvc),
		Stats:       statshandler.NewHandler(statsservice.NewService(store)),
		Ops:         handler.NewHandler(store, reg),
	}, RouterConfig{
		Mode:          gin.TestMode,
		CORSConfig:    middleware.DefaultCORSConfig(),
		MetricsPrefix: "hospital_test",
		Registerer:    reg,
	})
	r.Setup()

	return &testApp{engine: r.Engine(), authSvc: authSvc}
}

func (a *testApp) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func (a *testApp) register(t *testing.T, name, email string, role model.Role) model.Session {
	t.Helper()
	w := a.do(t, http.MethodPost, "/auth/register", "", gin.H{
		"name": name, "email": email, "password": "secret1", "role": role,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var session model.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))
	return session
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) handler.Response {
	t.Helper()
	var body handler.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealthAndMetrics(t *testing.T) {
	app := newTestApp(t)

	assert.Equal(t, http.StatusOK, app.do(t, http.MethodGet, "/health/live", "", nil).Code)
	assert.Equal(t, http.StatusOK, app.do(t, http.MethodGet, "/health/ready", "", nil).Code)

	w := app.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "hospital_test_requests_total")
}

func TestAuthFlow(t *testing.T) {
	app := newTestApp(t)
	session := app.register(t, "Pat", "pat@example.com", "")
	assert.Equal(t, model.RolePatient, session.User.Role)

	w := app.do(t, http.MethodPost, "/auth/register", "", gin.H{
		"name": "Again", "email": "pat@example.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = app.do(t, http.MethodPost, "/auth/register", "", gin.H{"name": "X", "email": "not-an-email", "password": "1"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "error", body.Status)
	assert.NotEmpty(t, body.Errors)

	w = app.do(t, http.MethodPost, "/auth/login", "", gin.H{"email": "pat@example.com", "password": "wrong1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = app.do(t, http.MethodPost, "/auth/login", "", gin.H{"email": "pat@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code)
	var login model.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))

	w = app.do(t, http.MethodGet, "/auth/me", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me model.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, "pat@example.com", me.Email)
	assert.NotNil(t, me.PatientProfile)
	assert.NotContains(t, w.Body.String(), "password")

	assert.Equal(t, http.StatusOK, app.do(t, http.MethodPost, "/auth/logout", login.AccessToken, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, app.do(t, http.MethodGet, "/auth/me", login.AccessToken, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, app.do(t, http.MethodGet, "/auth/me", "", nil).Code)
}

func TestUsersEndpoints(t *testing.T) {
	app := newTestApp(t)
	doc := app.register(t, "Doc", "doc@example.com", model.RoleDoctor)
	pat := app.register(t, "Pat", "pat@example.com", model.RolePatient)

	w := app.do(t, http.MethodGet, "/users?role=DOCTOR", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var doctors []model.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doctors))
	require.Len(t, doctors, 1)
	assert.Equal(t, "General", doctors[0].DoctorProfile.Specialization)

	assert.Equal(t, http.StatusBadRequest, app.do(t, http.MethodGet, "/users?role=NURSE", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, app.do(t, http.MethodGet, "/users/999", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, app.do(t, http.MethodGet, "/users/abc", "", nil).Code)

	path := fmt.Sprintf("/users/%d", doc.User.ID)
	patch := gin.H{"doctorProfile": gin.H{"specialization": "Cardiology", "experience": "5", "consultationFee": 80}}

	assert.Equal(t, http.StatusUnauthorized, app.do(t, http.MethodPatch, path, "", patch).Code)
	assert.Equal(t, http.StatusForbidden, app.do(t, http.MethodPatch, path, pat.AccessToken, patch).Code)

	w = app.do(t, http.MethodPatch, path, doc.AccessToken, patch)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated model.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "Cardiology", updated.DoctorProfile.Specialization)
	assert.Equal(t, 5, updated.DoctorProfile.Experience)

	w = app.do(t, http.MethodPatch, path, doc.AccessToken, gin.H{"doctorProfile": gin.H{"experience": -1}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAppointmentLifecycle(t *testing.T) {
	app := newTestApp(t)
	doc := app.register(t, "Doc", "doc@example.com", model.RoleDoctor)
	pat := app.register(t, "Pat", "pat@example.com", model.RolePatient)

	w := app.do(t, http.MethodGet, "/users?role=DOCTOR", "", nil)
	var doctors []model.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doctors))
	doctorID := doctors[0].DoctorProfile.ID

	w = app.do(t, http.MethodPost, "/appointments", pat.AccessToken, gin.H{
		"doctorId": fmt.Sprint(doctorID),
		"date":     "2030-03-01T09:00:00Z",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var appt model.Appointment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &appt))
	assert.Equal(t, model.AppointmentStatusPending, appt.Status)
	assert.Equal(t, model.DefaultSymptoms, appt.Symptoms)

	w = app.do(t, http.MethodPost, "/appointments", doc.AccessToken, gin.H{"doctorId": doctorID, "date": "2030-03-02T09:00:00Z"})
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)

	w = app.do(t, http.MethodPost, "/appointments", pat.AccessToken, gin.H{"doctorId": "abc", "date": "2030-03-02T09:00:00Z"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, http.MethodGet, "/appointments", doc.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []model.Appointment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Patient)
	assert.Equal(t, "Pat", list[0].Patient.User.Name)

	base := fmt.Sprintf("/appointments/%d", appt.ID)
	consult := gin.H{"diagnosis": "Migraine", "medicines": []gin.H{{"name": "Ibuprofen", "dosage": "200mg", "duration": "3 days"}}}

	assert.Equal(t, http.StatusConflict, app.do(t, http.MethodPatch, base+"/consult", doc.AccessToken, consult).Code)
	assert.Equal(t, http.StatusBadRequest, app.do(t, http.MethodPatch, base+"/status", doc.AccessToken, gin.H{"status": "DONE"}).Code)
	assert.Equal(t, http.StatusConflict, app.do(t, http.MethodPatch, base+"/status", doc.AccessToken, gin.H{"status": "COMPLETED"}).Code)
	assert.Equal(t, http.StatusForbidden, app.do(t, http.MethodPatch, base+"/status", pat.AccessToken, gin.H{"status": "CONFIRMED"}).Code)
	require.Equal(t, http.StatusOK, app.do(t, http.MethodPatch, base+"/status", doc.AccessToken, gin.H{"status": "CONFIRMED"}).Code)

	w = app.do(t, http.MethodPatch, base+"/consult", doc.AccessToken, gin.H{"medicines": []gin.H{{"dosage": "1"}}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, http.MethodPatch, base+"/consult", doc.AccessToken, consult)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &appt))
	assert.Equal(t, model.AppointmentStatusCompleted, appt.Status)
	assert.Equal(t, "Migraine", appt.Symptoms)

	assert.Equal(t, http.StatusConflict, app.do(t, http.MethodPatch, base+"/consult", doc.AccessToken, consult).Code)

	w = app.do(t, http.MethodGet, base, pat.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &appt))
	require.NotNil(t, appt.Prescription)
	require.NotNil(t, appt.Billing)
	assert.Equal(t, "Ibuprofen", appt.Prescription.Medication[0].Name)
	assert.Equal(t, 50.0, appt.Billing.Amount)
}

func TestStatsRequiresAdmin(t *testing.T) {
	app := newTestApp(t)
	pat := app.register(t, "Pat", "pat@example.com", model.RolePatient)

	assert.Equal(t, http.StatusUnauthorized, app.do(t, http.MethodGet, "/stats", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, app.do(t, http.MethodGet, "/stats", pat.AccessToken, nil).Code)

	_, err := app.authSvc.CreateAdmin(context.Background(), "Root", "root@example.com", "secret1")
	require.NoError(t, err)
	w := app.do(t, http.MethodPost, "/auth/login", "", gin.H{"email": "root@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code)
	var admin model.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &admin))

	w = app.do(t, http.MethodGet, "/stats", admin.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats model.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Patients)
}
