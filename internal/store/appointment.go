package store

import (
	"context"
	"time"

	"vaccine-scheduler/internal/apperr"
	"vaccine-scheduler/internal/model"
)

// AppendAppointment stores the booking and returns its identifier. Ids come
// from the table's identity column, so they are unique and monotonically
// assigned.
func (s *Store) AppendAppointment(ctx context.Context, caregiver, patient, vaccine string, day time.Time) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO appointments (caregiver_username, patient_username, vaccine_name, day)
		 VALUES ($1,$2,$3,$4) RETURNING id`,
		caregiver, patient, vaccine, day,
	).Scan(&id)
	if err != nil {
		return 0, apperr.FromPG("append appointment", err)
	}
	return id, nil
}

func (s *Store) AppointmentByID(ctx context.Context, id int64) (*model.Appointment, error) {
	a := &model.Appointment{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, caregiver_username, patient_username, vaccine_name, day, created_at
		 FROM appointments WHERE id = $1`, id,
	).Scan(&a.ID, &a.CaregiverUsername, &a.PatientUsername, &a.VaccineName, &a.Day, &a.CreatedAt)
	if err != nil {
		return nil, apperr.FromPG("appointment lookup", err)
	}
	return a, nil
}

func (s *Store) AppointmentsByCaregiver(ctx context.Context, caregiver string) ([]model.AppointmentView, error) {
	return s.listAppointments(ctx,
		`SELECT id, vaccine_name, day, patient_username
		 FROM appointments WHERE caregiver_username = $1 ORDER BY id`, caregiver)
}

func (s *Store) AppointmentsByPatient(ctx context.Context, patient string) ([]model.AppointmentView, error) {
	return s.listAppointments(ctx,
		`SELECT id, vaccine_name, day, caregiver_username
		 FROM appointments WHERE patient_username = $1 ORDER BY id`, patient)
}

func (s *Store) listAppointments(ctx context.Context, query, username string) ([]model.AppointmentView, error) {
	rows, err := s.pool.Query(ctx, query, username)
	if err != nil {
		return nil, apperr.FromPG("list appointments", err)
	}
	defer rows.Close()

	var out []model.AppointmentView
	for rows.Next() {
		var v model.AppointmentView
		if err := rows.Scan(&v.ID, &v.VaccineName, &v.Day, &v.Counterparty); err != nil {
			return nil, apperr.FromPG("list appointments", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.FromPG("list appointments", err)
	}
	return out, nil
}

// CancelAppointment deletes the record, returns the dose to inventory and
// re-publishes the caregiver's slot, all in one transaction. If the caregiver
// has since re-published the same day by hand, the slot insert is a no-op.
func (s *Store) CancelAppointment(ctx context.Context, id int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return apperr.FromPG("cancel appointment", err)
	}
	defer tx.Rollback(ctx)

	var caregiver, vaccine string
	var day time.Time
	err = tx.QueryRow(ctx,
		`DELETE FROM appointments WHERE id = $1
		 RETURNING caregiver_username, vaccine_name, day`, id,
	).Scan(&caregiver, &vaccine, &day)
	if err != nil {
		return apperr.FromPG("cancel appointment", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE vaccines SET doses = doses + 1 WHERE name = $1`, vaccine)
	if err != nil {
		return apperr.FromPG("cancel appointment", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO availabilities (caregiver_username, day) VALUES ($1,$2)
		 ON CONFLICT (caregiver_username, day) DO NOTHING`,
		caregiver, day,
	)
	if err != nil {
		return apperr.FromPG("cancel appointment", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.FromPG("cancel appointment", err)
	}
	return nil
}
