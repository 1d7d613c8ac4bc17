package model

import "time"

type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleDoctor  Role = "DOCTOR"
	RolePatient Role = "PATIENT"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RolePatient:
		return true
	}
	return false
}

// User represents an account. At most one of the profiles is set and it matches Role.
type User struct {
	Base
	Name           string          `json:"name" db:"name"`
	Email          string          `json:"email" db:"email"`
	PasswordHash   string          `json:"-" db:"password_hash"`
	Role           Role            `json:"role" db:"role"`
	DoctorProfile  *DoctorProfile  `json:"doctorProfile" db:"-"`
	PatientProfile *PatientProfile `json:"patientProfile" db:"-"`
}

// PublicUser is the redacted view returned alongside a session token.
type PublicUser struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

type DoctorProfile struct {
	Base
	UserID          int64   `json:"userId" db:"user_id"`
	Specialization  string  `json:"specialization" db:"specialization"`
	Experience      int     `json:"experience" db:"experience"`
	ConsultationFee float64 `json:"consultationFee" db:"consultation_fee"`
	User            *User   `json:"user,omitempty" db:"-"`
}

type PatientProfile struct {
	Base
	UserID     int64     `json:"userId" db:"user_id"`
	Gender     string    `json:"gender" db:"gender"`
	BloodGroup *string   `json:"bloodGroup" db:"blood_group"`
	Address    string    `json:"address" db:"address"`
	DOB        time.Time `json:"dob" db:"dob"`
	User       *User     `json:"user,omitempty" db:"-"`
}

// Profile defaults applied at registration.
const (
	DefaultSpecialization  = "General"
	DefaultExperience      = 0
	DefaultConsultationFee = 50.0
	DefaultAddress         = "Not provided"
	DefaultGender          = "Other"
)

// UserFilter represents user search parameters
type UserFilter struct {
	Role Role `form:"role" binding:"omitempty,hospital_role"`
}

// UpdateUserRequest represents user update parameters
type UpdateUserRequest struct {
	Name           *string             `json:"name" binding:"omitempty,min=1"`
	Email          *string             `json:"email" binding:"omitempty,email"`
	DoctorProfile  *DoctorProfilePatch  `json:"doctorProfile"`
	PatientProfile *PatientProfilePatch `json:"patientProfile"`
}

type DoctorProfilePatch struct {
	Specialization  *string    `json:"specialization" binding:"omitempty,min=1"`
	Experience      *FlexInt   `json:"experience" binding:"omitempty,gte=0"`
	ConsultationFee *FlexFloat `json:"consultationFee" binding:"omitempty,gte=0"`
}

type PatientProfilePatch struct {
	Gender     *string `json:"gender"`
	BloodGroup *string `json:"bloodGroup"`
	Address    *string `json:"address"`
	DOB        *string `json:"dob"`
}
