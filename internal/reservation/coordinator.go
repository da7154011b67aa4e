// Package reservation implements the booking protocol: atomically take one
// dose, pick one caregiver among those available on the day, bind them into
// an appointment and retract the caregiver's slot. Any failure after partial
// progress compensates before the error is returned, so a decremented dose
// without an appointment, or a claimed slot without an appointment, never
// persists.
package reservation

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"vaccine-scheduler/internal/apperr"
	"vaccine-scheduler/internal/model"
)

// Inventory is the dose ledger. TryReserveDose must be an atomic
// check-and-decrement; ReturnDose undoes one reservation.
type Inventory interface {
	TryReserveDose(ctx context.Context, name string) error
	ReturnDose(ctx context.Context, name string) error
}

// Availability is the slot registry. ClaimSlot reports whether this caller
// removed the slot; concurrent claims for the same slot yield one winner.
type Availability interface {
	AvailableCaregivers(ctx context.Context, day time.Time) ([]string, error)
	ClaimSlot(ctx context.Context, caregiver string, day time.Time) (bool, error)
	PublishAvailability(ctx context.Context, caregiver string, day time.Time) error
}

// Appointments is the durable booking record.
type Appointments interface {
	AppendAppointment(ctx context.Context, caregiver, patient, vaccine string, day time.Time) (int64, error)
	AppointmentByID(ctx context.Context, id int64) (*model.Appointment, error)
	CancelAppointment(ctx context.Context, id int64) error
}

// Confirmation is what the caller renders on success.
type Confirmation struct {
	AppointmentID     int64
	CaregiverUsername string
}

type Coordinator struct {
	inventory Inventory
	slots     Availability
	appts     Appointments
	log       zerolog.Logger
}

func New(inv Inventory, slots Availability, appts Appointments, log zerolog.Logger) *Coordinator {
	return &Coordinator{inventory: inv, slots: slots, appts: appts, log: log}
}

// Reserve books one dose of the named vaccine on the given day for the
// requesting patient. The dose is taken first; the caregiver is the
// lexicographically smallest available username whose slot we win, with
// fall-through past candidates lost to concurrent claims.
func (c *Coordinator) Reserve(ctx context.Context, ident model.Identity, day time.Time, vaccine string) (*Confirmation, error) {
	if ident.IsAnonymous() {
		return nil, apperr.New(apperr.CodeUnauthenticated, "login required")
	}
	if !ident.IsPatient() {
		return nil, apperr.New(apperr.CodePermissionDenied, "only patients can reserve")
	}
	if vaccine == "" {
		return nil, apperr.New(apperr.CodeInvalidArgument, "vaccine name required")
	}
	if day.IsZero() {
		return nil, apperr.New(apperr.CodeInvalidArgument, "date required")
	}

	// Dose scarcity is checked first; everything past this point must put
	// the dose back on failure.
	if err := c.inventory.TryReserveDose(ctx, vaccine); err != nil {
		return nil, err
	}

	conf, err := c.assignCaregiver(ctx, ident.Username, day, vaccine)
	if err != nil {
		c.compensateDose(ctx, vaccine)
		c.log.Info().
			Str("patient", ident.Username).
			Str("vaccine", vaccine).
			Time("day", day).
			Str("reason", string(apperr.CodeOf(err))).
			Msg("reservation rolled back")
		return nil, err
	}

	c.log.Info().
		Int64("appointment_id", conf.AppointmentID).
		Str("patient", ident.Username).
		Str("caregiver", conf.CaregiverUsername).
		Str("vaccine", vaccine).
		Time("day", day).
		Msg("reservation committed")
	return conf, nil
}

func (c *Coordinator) assignCaregiver(ctx context.Context, patient string, day time.Time, vaccine string) (*Confirmation, error) {
	candidates, err := c.slots.AvailableCaregivers(ctx, day)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, apperr.New(apperr.CodeNoCaregiverAvailable, "no caregiver is available on that day")
	}

	for _, caregiver := range candidates {
		claimed, err := c.slots.ClaimSlot(ctx, caregiver, day)
		if err != nil {
			return nil, err
		}
		if !claimed {
			// lost the slot to a concurrent reservation, try the next one
			continue
		}

		id, err := c.appts.AppendAppointment(ctx, caregiver, patient, vaccine, day)
		if err != nil {
			c.compensateSlot(ctx, caregiver, day)
			return nil, err
		}
		return &Confirmation{AppointmentID: id, CaregiverUsername: caregiver}, nil
	}

	return nil, apperr.New(apperr.CodeNoCaregiverAvailable, "no caregiver is available on that day")
}

func (c *Coordinator) compensateDose(ctx context.Context, vaccine string) {
	if err := c.inventory.ReturnDose(ctx, vaccine); err != nil {
		c.log.Error().Err(err).Str("vaccine", vaccine).Msg("dose compensation failed")
	}
}

func (c *Coordinator) compensateSlot(ctx context.Context, caregiver string, day time.Time) {
	if err := c.slots.PublishAvailability(ctx, caregiver, day); err != nil {
		c.log.Error().Err(err).Str("caregiver", caregiver).Time("day", day).
			Msg("slot compensation failed")
	}
}

// Cancel removes an appointment owned by the requesting identity, returning
// the dose to inventory and re-publishing the caregiver's slot. A non-owner
// gets NOT_FOUND rather than a hint that the id exists.
func (c *Coordinator) Cancel(ctx context.Context, ident model.Identity, id int64) error {
	if ident.IsAnonymous() {
		return apperr.New(apperr.CodeUnauthenticated, "login required")
	}

	appt, err := c.appts.AppointmentByID(ctx, id)
	if err != nil {
		return err
	}

	owner := appt.PatientUsername
	if ident.IsCaregiver() {
		owner = appt.CaregiverUsername
	}
	if owner != ident.Username {
		return apperr.Newf(apperr.CodeNotFound, "appointment %d not found", id)
	}

	if err := c.appts.CancelAppointment(ctx, id); err != nil {
		return err
	}

	c.log.Info().
		Int64("appointment_id", id).
		Str("requested_by", ident.Username).
		Msg("appointment cancelled")
	return nil
}
