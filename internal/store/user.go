package store

import (
	"context"

	"vaccine-scheduler/internal/apperr"
	"vaccine-scheduler/internal/model"
)

func (s *Store) CreatePatient(ctx context.Context, p *model.Patient) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO patients (username, password_hash) VALUES ($1,$2)`,
		p.Username, p.PasswordHash,
	)
	if err != nil {
		return apperr.FromPG("create patient", err)
	}
	return nil
}

func (s *Store) PatientByUsername(ctx context.Context, username string) (*model.Patient, error) {
	p := &model.Patient{}
	err := s.pool.QueryRow(ctx,
		`SELECT username, password_hash, created_at FROM patients WHERE username = $1`,
		username,
	).Scan(&p.Username, &p.PasswordHash, &p.CreatedAt)
	if err != nil {
		return nil, apperr.FromPG("patient lookup", err)
	}
	return p, nil
}

func (s *Store) CreateCaregiver(ctx context.Context, c *model.Caregiver) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO caregivers (username, password_hash) VALUES ($1,$2)`,
		c.Username, c.PasswordHash,
	)
	if err != nil {
		return apperr.FromPG("create caregiver", err)
	}
	return nil
}

func (s *Store) CaregiverByUsername(ctx context.Context, username string) (*model.Caregiver, error) {
	c := &model.Caregiver{}
	err := s.pool.QueryRow(ctx,
		`SELECT username, password_hash, created_at FROM caregivers WHERE username = $1`,
		username,
	).Scan(&c.Username, &c.PasswordHash, &c.CreatedAt)
	if err != nil {
		return nil, apperr.FromPG("caregiver lookup", err)
	}
	return c, nil
}
