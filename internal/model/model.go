package model

import "time"

// DateLayout is the calendar-date wire format accepted by every command that
// takes a date.
const DateLayout = "2006-01-02"

type Patient struct {
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

type Caregiver struct {
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// VaccineStock tracks one vaccine type and its remaining doses.
// Doses never goes negative; decrements are conditional at the storage layer.
type VaccineStock struct {
	Name  string
	Doses int
}

// AvailabilitySlot is one bookable unit of caregiver time. Existence of the
// row is the availability; a successful claim deletes it.
type AvailabilitySlot struct {
	CaregiverUsername string
	Day               time.Time
}

type Appointment struct {
	ID                int64
	CaregiverUsername string
	PatientUsername   string
	VaccineName       string
	Day               time.Time
	CreatedAt         time.Time
}

// AppointmentView is one row of a per-identity listing: the counterparty is
// the patient when a caregiver lists, the caregiver when a patient lists.
type AppointmentView struct {
	ID           int64
	VaccineName  string
	Day          time.Time
	Counterparty string
}

type Role string

const (
	RolePatient   Role = "patient"
	RoleCaregiver Role = "caregiver"
)

// Identity is the read-only capability the core receives per request.
// The zero value is anonymous.
type Identity struct {
	Role     Role
	Username string
}

func (i Identity) IsAnonymous() bool { return i.Username == "" }
func (i Identity) IsPatient() bool   { return i.Role == RolePatient && i.Username != "" }
func (i Identity) IsCaregiver() bool { return i.Role == RoleCaregiver && i.Username != "" }
